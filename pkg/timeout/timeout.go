// Package timeout bounds how long a caller waits on an in-flight operation.
//
// Four strategies are provided: Fixed, Extendable, Progressive and Adaptive.
// Run starts the operation in its own goroutine and races it against the
// strategy's timers. Timers are stopped on every return path. When the caller
// stops waiting, the context handed to the operation is cancelled.
package timeout

import (
	"context"
	"fmt"
	"time"

	aierr "Scribeline/pkg/errors"

	"github.com/coder/quartz"
	"github.com/go-kratos/kratos/v2/log"
)

// DefaultMaxMultiplier caps an adaptive timeout at this multiple of its base.
const DefaultMaxMultiplier = 5

// Strategy decides how long Run waits for an operation to settle.
type Strategy interface {
	// await blocks until done delivers the operation's result, the strategy gives
	// up, or ctx ends. It returns the operation's error, a timeout error or ctx.Err().
	await(ctx context.Context, name string, done <-chan error) error
}

// Run executes fn under s. It returns fn's result, or a TIMEOUT error when s gives up first.
func Run[T any](ctx context.Context, s Strategy, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out T
	done := make(chan error, 1)
	go func() {
		v, err := fn(opCtx)
		out = v
		done <- err
	}()

	if err := s.await(ctx, name, done); err != nil {
		return zero, err
	}
	return out, nil
}

type options struct {
	clock         quartz.Clock
	logger        log.Logger
	maxMultiplier int
	onProgress    func(elapsed time.Duration, percent float64)
}

// Option configures a strategy.
type Option func(*options)

// WithClock sets the clock used for timers.
func WithClock(clock quartz.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger used for extension and progress messages.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxMultiplier sets the adaptive cap multiplier.
func WithMaxMultiplier(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxMultiplier = n
		}
	}
}

// WithProgress registers a callback for each Progressive interval.
func WithProgress(fn func(elapsed time.Duration, percent float64)) Option {
	return func(o *options) {
		o.onProgress = fn
	}
}

func newOptions(opts []Option) options {
	o := options{
		clock:         quartz.NewReal(),
		logger:        log.DefaultLogger,
		maxMultiplier: DefaultMaxMultiplier,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// None waits for the operation or the context, with no timer.
type None struct{}

func (None) await(ctx context.Context, _ string, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fixed rejects after a constant duration.
type Fixed struct {
	timeout time.Duration
	clock   quartz.Clock
}

// NewFixed creates a Fixed strategy.
func NewFixed(timeout time.Duration, opts ...Option) *Fixed {
	o := newOptions(opts)
	return &Fixed{timeout: timeout, clock: o.clock}
}

func (f *Fixed) await(ctx context.Context, name string, done <-chan error) error {
	return waitFor(ctx, f.clock, name, f.timeout, done)
}

func waitFor(ctx context.Context, clock quartz.Clock, name string, limit time.Duration, done <-chan error) error {
	timer := clock.NewTimer(limit, "timeout", name)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return aierr.Timeout(name, limit, "")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Extendable starts with a short timer and doubles it, up to max, each time it
// fires while the operation is still running.
type Extendable struct {
	initial    time.Duration
	max        time.Duration
	onProgress func(elapsed time.Duration)
	clock      quartz.Clock
	logger     *log.Helper
}

// NewExtendable creates an Extendable strategy. onProgress may be nil.
func NewExtendable(initial, max time.Duration, onProgress func(elapsed time.Duration), opts ...Option) *Extendable {
	o := newOptions(opts)
	if initial <= 0 || initial > max {
		initial = max
	}
	return &Extendable{
		initial:    initial,
		max:        max,
		onProgress: onProgress,
		clock:      o.clock,
		logger:     log.NewHelper(o.logger),
	}
}

func (e *Extendable) await(ctx context.Context, name string, done <-chan error) error {
	start := e.clock.Now()
	current := e.initial

	timer := e.clock.NewTimer(current, "timeout", name)
	defer timer.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			elapsed := e.clock.Since(start)
			if elapsed >= e.max {
				return aierr.Timeout(name, e.max,
					fmt.Sprintf("operation %s exceeded maximum timeout of %dms", name, e.max.Milliseconds()))
			}

			current = min(current*2, e.max)
			e.logger.Debugw("msg", "extending timeout",
				"operation", name,
				"elapsed_ms", elapsed.Milliseconds(),
				"next_timeout_ms", current.Milliseconds())
			if e.onProgress != nil {
				e.onProgress(elapsed)
			}
			timer.Reset(min(current, e.max-elapsed), "timeout", name)
		}
	}
}

// Progressive enforces a hard timeout and reports progress on a shorter interval.
type Progressive struct {
	timeout    time.Duration
	interval   time.Duration
	onProgress func(elapsed time.Duration, percent float64)
	clock      quartz.Clock
	logger     *log.Helper
}

// NewProgressive creates a Progressive strategy. An interval that is not
// shorter than the timeout is replaced by a tenth of the timeout.
func NewProgressive(timeout, interval time.Duration, opts ...Option) *Progressive {
	o := newOptions(opts)
	if interval <= 0 || interval >= timeout {
		interval = max(timeout/10, time.Millisecond)
	}
	return &Progressive{
		timeout:    timeout,
		interval:   interval,
		onProgress: o.onProgress,
		clock:      o.clock,
		logger:     log.NewHelper(o.logger),
	}
}

func (p *Progressive) await(ctx context.Context, name string, done <-chan error) error {
	start := p.clock.Now()

	timer := p.clock.NewTimer(p.timeout, "timeout", name)
	defer timer.Stop()
	ticker := p.clock.NewTicker(p.interval, "progress", name)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return aierr.Timeout(name, p.timeout, "")
		case <-ticker.C:
			elapsed := p.clock.Since(start)
			percent := float64(elapsed) / float64(p.timeout) * 100
			p.logger.Infow("msg", "operation in progress",
				"operation", name,
				"elapsed_ms", elapsed.Milliseconds(),
				"progress", fmt.Sprintf("%.0f%%", percent))
			if p.onProgress != nil {
				p.onProgress(elapsed, percent)
			}
		}
	}
}

// Adaptive derives its limit from the recorded durations of the same operation
// and records the duration of every successful call.
type Adaptive struct {
	base          time.Duration
	maxMultiplier int
	history       *History
	clock         quartz.Clock
}

// NewAdaptive creates an Adaptive strategy backed by history.
func NewAdaptive(base time.Duration, history *History, opts ...Option) *Adaptive {
	o := newOptions(opts)
	if history == nil {
		history = NewHistory(DefaultWindow, DefaultMaxNames)
	}
	return &Adaptive{
		base:          base,
		maxMultiplier: o.maxMultiplier,
		history:       history,
		clock:         o.clock,
	}
}

// Effective returns the limit the next call for name will get: twice the P90
// of its history capped at base*maxMultiplier, or base when there is no history.
func (a *Adaptive) Effective(name string) time.Duration {
	p90, ok := a.history.P90(name)
	if !ok {
		return a.base
	}
	return min(2*p90, a.base*time.Duration(a.maxMultiplier))
}

func (a *Adaptive) await(ctx context.Context, name string, done <-chan error) error {
	start := a.clock.Now()
	err := waitFor(ctx, a.clock, name, a.Effective(name), done)
	if err == nil {
		a.history.Record(name, a.clock.Since(start))
	}
	return err
}
