package main

import (
	"strings"

	"Scribeline/internal/biz"
	"Scribeline/pkg/breaker"
	pkglog "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// reportSpec runs at second zero of every minute.
const reportSpec = "0 * * * * *"

// NewReportCron builds the circuit and latency report job. The caller starts
// and stops it with the application lifecycle.
func NewReportCron(uc *biz.AIUsecase, logger log.Logger) (*cron.Cron, error) {
	helper := pkglog.NewLogHelper(logger)

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(reportSpec, func() { report(uc, helper) }); err != nil {
		return nil, err
	}
	return c, nil
}

// report logs every circuit that is not closed and the P90 latency of each
// operation with history.
func report(uc *biz.AIUsecase, helper *pkglog.LogHelper) {
	var degraded []string
	for _, s := range uc.CircuitStates() {
		if s.State == breaker.Closed {
			continue
		}
		degraded = append(degraded, s.Name+"="+s.State.String())
		helper.Report("circuit not closed",
			"operation", s.Name,
			"state", s.State.String(),
			"failure_count", s.FailureCount,
			"last_failure", s.LastFailure)
	}

	for _, stat := range uc.LatencyStats() {
		if stat.Samples == 0 {
			continue
		}
		helper.Report("latency",
			"operation", stat.Name,
			"samples", stat.Samples,
			"p90_ms", stat.P90Ms,
			"effective_timeout_ms", stat.EffectiveTimeoutMs)
	}

	if len(degraded) == 0 {
		helper.Debugw("msg", "all circuits closed")
		return
	}
	helper.Report("degraded operations: " + strings.Join(degraded, ", "))
}
