// Package retry runs an operation repeatedly, classifying each failure to decide
// whether and when to try again.
package retry

import (
	"context"
	"fmt"
	"time"

	aierr "Scribeline/pkg/errors"

	"github.com/coder/quartz"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Policy holds the delay applied before the next attempt, per failure category.
type Policy struct {
	// RateLimitBase is the first rate-limit delay; it doubles on each attempt.
	RateLimitBase time.Duration
	// RateLimitMax caps the rate-limit delay.
	RateLimitMax time.Duration
	// TimeoutDelay is the fixed delay after a timeout.
	TimeoutDelay time.Duration
	// UnknownDelay is the fixed delay after any other retryable failure.
	UnknownDelay time.Duration
}

// DefaultPolicy returns 1s doubling up to 10s for rate limits, 2s after timeouts and 1s otherwise.
func DefaultPolicy() Policy {
	return Policy{
		RateLimitBase: time.Second,
		RateLimitMax:  10 * time.Second,
		TimeoutDelay:  2 * time.Second,
		UnknownDelay:  time.Second,
	}
}

// Delay returns how long to wait after attempt (1-based) failed with category.
func (p Policy) Delay(category aierr.Category, attempt int) time.Duration {
	switch category {
	case aierr.CategoryRateLimit:
		if attempt < 1 {
			attempt = 1
		}
		d := p.RateLimitBase
		for i := 1; i < attempt && d < p.RateLimitMax; i++ {
			d *= 2
		}
		return min(d, p.RateLimitMax)
	case aierr.CategoryTimeout:
		return p.TimeoutDelay
	default:
		return p.UnknownDelay
	}
}

// Attempt describes one try of an operation.
type Attempt struct {
	ID        string
	Operation string
	Number    int
	Start     time.Time
}

// Result is reported to the observer after every attempt.
type Result struct {
	Attempt
	Latency  time.Duration
	Err      error
	Category aierr.Category
	// Delay is the wait before the next attempt; zero when no retry follows.
	Delay time.Duration
}

// Controller runs operations with classification-driven retries. Safe for concurrent use.
type Controller struct {
	policy     Policy
	classifier *aierr.Classifier
	clock      quartz.Clock
	logger     *log.Helper
	observer   func(Result)
}

// Option configures a Controller.
type Option func(*Controller)

// WithPolicy sets the delay policy.
func WithPolicy(p Policy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithClassifier sets the failure classifier.
func WithClassifier(cl *aierr.Classifier) Option {
	return func(c *Controller) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// WithClock sets the clock used for latency and backoff timers.
func WithClock(clock quartz.Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = log.NewHelper(logger)
		}
	}
}

// WithObserver registers a callback invoked after every attempt.
func WithObserver(fn func(Result)) Option {
	return func(c *Controller) { c.observer = fn }
}

// NewController creates a Controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		policy:     DefaultPolicy(),
		classifier: aierr.NewClassifier(),
		clock:      quartz.NewReal(),
		logger:     log.NewHelper(log.DefaultLogger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the controller's delay policy.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Do runs op up to maxAttempts times. Terminal failures stop immediately; the
// returned error is an *errors.AIError tagged with name and the attempt count.
// A maxAttempts below 1 is treated as 1.
func Do[T any](ctx context.Context, c *Controller, name string, maxAttempts int, op func(ctx context.Context, a Attempt) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		lastErr error
		lastCat aierr.Category
	)
	for n := 1; n <= maxAttempts; n++ {
		a := Attempt{
			ID:        uuid.NewString(),
			Operation: name,
			Number:    n,
			Start:     c.clock.Now(),
		}

		v, err := op(ctx, a)
		latency := c.clock.Since(a.Start)

		if err == nil {
			c.logger.Debugw("msg", "attempt succeeded",
				"operation", name,
				"attempt", n,
				"attempt_id", a.ID,
				"latency_ms", latency.Milliseconds())
			c.observe(Result{Attempt: a, Latency: latency})
			return v, nil
		}

		lastErr = err
		lastCat = c.classifier.Classify(err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			c.observe(Result{Attempt: a, Latency: latency, Err: err, Category: lastCat})
			return zero, c.fail(name, n, aierr.Classify(ctxErr), ctxErr)
		}

		if lastCat.Terminal() {
			c.logger.Warnw("msg", "attempt failed with terminal error",
				"operation", name,
				"attempt", n,
				"attempt_id", a.ID,
				"latency_ms", latency.Milliseconds(),
				"category", lastCat.String(),
				"error", err.Error())
			c.observe(Result{Attempt: a, Latency: latency, Err: err, Category: lastCat})
			return zero, c.fail(name, n, lastCat, err)
		}

		if n == maxAttempts {
			c.logger.Warnw("msg", "final attempt failed",
				"operation", name,
				"attempt", n,
				"attempt_id", a.ID,
				"latency_ms", latency.Milliseconds(),
				"category", lastCat.String(),
				"error", err.Error())
			c.observe(Result{Attempt: a, Latency: latency, Err: err, Category: lastCat})
			break
		}

		delay := c.policy.Delay(lastCat, n)
		c.logger.Warnw("msg", "attempt failed, retrying",
			"operation", name,
			"attempt", n,
			"max_attempts", maxAttempts,
			"attempt_id", a.ID,
			"latency_ms", latency.Milliseconds(),
			"category", lastCat.String(),
			"delay_ms", delay.Milliseconds(),
			"error", err.Error())
		c.observe(Result{Attempt: a, Latency: latency, Err: err, Category: lastCat, Delay: delay})

		if err := c.sleep(ctx, delay); err != nil {
			return zero, c.fail(name, n, aierr.Classify(err), err)
		}
	}

	return zero, c.fail(name, maxAttempts, lastCat, lastErr)
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := c.clock.NewTimer(d, "retry", "backoff")
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Controller) fail(name string, attempts int, category aierr.Category, err error) error {
	c.logger.Errorw("msg", "retry exhausted",
		"operation", name,
		"attempts", attempts,
		"category", category.String(),
		"error", err.Error())
	return &aierr.AIError{
		Category:  category,
		Operation: name,
		Attempts:  attempts,
		Message:   fmt.Sprintf("operation %s failed after %d attempt(s)", name, attempts),
		Err:       err,
	}
}

func (c *Controller) observe(r Result) {
	if c.observer != nil {
		c.observer(r)
	}
}
