package biz

import (
	"context"

	"Scribeline/internal/model"
	"Scribeline/pkg/gemini"
)

// Transport sends one generation request upstream with a single credential
type Transport interface {
	Generate(ctx context.Context, apiKey string, req *gemini.Request) (*gemini.Response, error)
	// Model returns the model identifier requests are sent to
	Model() string
}

// ResultCache stores parsed results keyed by a content hash.
// Implementations report a miss as an error and must never block a call on failure.
type ResultCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
}

// CallRecorder persists orchestrated calls and circuit transitions
type CallRecorder interface {
	// RecordCall records one orchestrated call; must not block
	RecordCall(ctx context.Context, rec *model.CallRecord)

	// RecordCircuitEvent records a circuit transition; must not block
	RecordCircuitEvent(ctx context.Context, event, name string, failureCount int)
}

// CircuitNotifier is told when a circuit opens and when it recovers
type CircuitNotifier interface {
	// NotifyCircuitOpened sends notification when an operation's circuit opens
	NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error

	// NotifyCircuitRecovered sends notification when a circuit closes again
	NotifyCircuitRecovered(ctx context.Context, event *model.CircuitRecoveredEvent) error
}
