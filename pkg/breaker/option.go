package breaker

import (
	"time"

	"github.com/coder/quartz"
	"github.com/go-kratos/kratos/v2/log"
)

type config struct {
	failureThreshold int
	cooldown         time.Duration
	successThreshold int
	isFailure        func(error) bool
	clock            quartz.Clock
	logger           log.Logger
	onStateChange    func(Transition)
}

// Option configures a Registry.
type Option func(*config)

// WithFailureThreshold sets how many consecutive failures open a circuit.
func WithFailureThreshold(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.failureThreshold = n
		}
	}
}

// WithCooldown sets how long a circuit stays open after its last failure.
func WithCooldown(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// WithSuccessThreshold sets how many half-open successes close a circuit.
func WithSuccessThreshold(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.successThreshold = n
		}
	}
}

// WithFailurePredicate decides which errors count against a circuit.
func WithFailurePredicate(fn func(error) bool) Option {
	return func(c *config) {
		if fn != nil {
			c.isFailure = fn
		}
	}
}

// WithClock sets the clock used for cooldown tracking.
func WithClock(clock quartz.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger for state transitions.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStateChange registers a hook called after every transition, outside the circuit lock.
func WithStateChange(fn func(Transition)) Option {
	return func(c *config) {
		c.onStateChange = fn
	}
}
