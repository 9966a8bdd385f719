package data

import (
	"context"

	"Scribeline/internal/model"
	pkglog "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// LogCircuitNotifier implements biz.CircuitNotifier by writing circuit events
// to the log. Delivery to an external endpoint is not implemented.
type LogCircuitNotifier struct {
	logger *pkglog.LogHelper
}

// NewLogCircuitNotifier creates a new log-only circuit notifier
func NewLogCircuitNotifier(logger log.Logger) *LogCircuitNotifier {
	return &LogCircuitNotifier{
		logger: pkglog.NewLogHelper(logger),
	}
}

// NotifyCircuitOpened logs a circuit opened event
func (s *LogCircuitNotifier) NotifyCircuitOpened(_ context.Context, event *model.CircuitOpenedEvent) error {
	s.logger.Circuit("circuit opened notification",
		"operation", event.Name,
		"failure_count", event.FailureCount,
		"opened_at", event.OpenedAt,
		"retry_at", event.RetryAt)
	return nil
}

// NotifyCircuitRecovered logs a circuit recovered event
func (s *LogCircuitNotifier) NotifyCircuitRecovered(_ context.Context, event *model.CircuitRecoveredEvent) error {
	s.logger.Circuit("circuit recovered notification",
		"operation", event.Name,
		"probe_count", event.ProbeCount,
		"open_duration", event.OpenDuration)
	return nil
}
