package biz

import (
	"time"

	"Scribeline/internal/conf"
	"Scribeline/pkg/timeout"

	"github.com/coder/quartz"
	"github.com/go-kratos/kratos/v2/log"
)

// newStrategy builds the timeout strategy configured for one operation.
// A missing budget means the call is bounded only by its context.
func newStrategy(op string, c *conf.AI_Timeout, history *timeout.History, clock quartz.Clock, logger log.Logger) timeout.Strategy {
	if c == nil || c.Timeout <= 0 {
		return timeout.None{}
	}

	opts := []timeout.Option{timeout.WithClock(clock), timeout.WithLogger(logger)}
	switch c.Strategy {
	case conf.StrategyFixed:
		return timeout.NewFixed(c.Timeout, opts...)
	case conf.StrategyExtendable:
		return timeout.NewExtendable(c.Timeout, max(c.Max, c.Timeout), func(time.Duration) {
			TimeoutExtensions.WithLabelValues(op).Inc()
		}, opts...)
	case conf.StrategyProgressive:
		return timeout.NewProgressive(c.Timeout, c.Interval, opts...)
	case conf.StrategyAdaptive:
		if c.MaxMultiplier > 0 {
			opts = append(opts, timeout.WithMaxMultiplier(c.MaxMultiplier))
		}
		return timeout.NewAdaptive(c.Timeout, history, opts...)
	default:
		return timeout.None{}
	}
}
