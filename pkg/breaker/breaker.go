// Package breaker provides per-operation circuit breakers.
//
// A Registry lazily creates one circuit per operation name. A circuit opens after
// a run of consecutive failures, rejects calls while open, and lets calls through
// again once the cooldown since the last failure has elapsed. While half-open, a
// single failure reopens it and a run of successes closes it.
package breaker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	aierr "Scribeline/pkg/errors"

	"github.com/coder/quartz"
	"github.com/go-kratos/kratos/v2/log"
)

// State is the state of one circuit.
type State int

const (
	// Closed lets calls through and counts consecutive failures.
	Closed State = iota
	// Open rejects calls without invoking them.
	Open
	// HalfOpen lets calls through to probe for recovery.
	HalfOpen
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Defaults.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 5 * time.Minute
	DefaultSuccessThreshold = 2
)

// Snapshot is a read-only copy of a circuit's state.
type Snapshot struct {
	Name         string    `json:"name"`
	State        State     `json:"state"`
	FailureCount int       `json:"failure_count"`
	SuccessCount int       `json:"success_count"`
	LastFailure  time.Time `json:"last_failure"`
}

// Transition describes a state change, delivered to the OnStateChange hook.
type Transition struct {
	Name string
	From State
	To   State
	At   time.Time
	// OpenedAt is when the circuit last entered Open; zero if it never did.
	OpenedAt time.Time
	Snapshot Snapshot
}

// Registry owns the circuits of one service instance. Safe for concurrent use.
type Registry struct {
	cfg config

	mu       sync.Mutex
	circuits map[string]*circuit
}

type circuit struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
	openedAt    time.Time
}

// New creates a Registry.
func New(opts ...Option) *Registry {
	cfg := config{
		failureThreshold: DefaultFailureThreshold,
		cooldown:         DefaultCooldown,
		successThreshold: DefaultSuccessThreshold,
		isFailure:        defaultIsFailure,
		clock:            quartz.NewReal(),
		logger:           log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		cfg:      cfg,
		circuits: make(map[string]*circuit),
	}
}

// Execute runs fn under the circuit for name. When the circuit is open the
// call is rejected with a CIRCUIT_OPEN error and fn is not invoked.
func (r *Registry) Execute(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	c := r.circuit(name)

	if err := r.allow(name, c); err != nil {
		return err
	}

	err := fn(ctx)
	r.record(name, c, err)
	return err
}

// Call is Execute for operations that return a value.
func Call[T any](ctx context.Context, r *Registry, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Execute(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// State returns the state of the circuit for name. Names never executed report Closed.
func (r *Registry) State(name string) Snapshot {
	r.mu.Lock()
	c, ok := r.circuits[name]
	r.mu.Unlock()
	if !ok {
		return Snapshot{Name: name, State: Closed}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(name)
}

// States returns a snapshot of every known circuit ordered by name.
func (r *Registry) States() []Snapshot {
	r.mu.Lock()
	names := make([]string, 0, len(r.circuits))
	for name := range r.circuits {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	out := make([]Snapshot, 0, len(names))
	for _, name := range names {
		out = append(out, r.State(name))
	}
	return out
}

// IsOpen reports whether err is a rejection by an open circuit.
func IsOpen(err error) bool {
	return aierr.IsCategory(err, aierr.CategoryCircuitOpen)
}

func (r *Registry) circuit(name string) *circuit {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.circuits[name]
	if !ok {
		c = &circuit{state: Closed}
		r.circuits[name] = c
	}
	return c
}

func (r *Registry) allow(name string, c *circuit) error {
	c.mu.Lock()

	if c.state != Open {
		c.mu.Unlock()
		return nil
	}

	now := r.cfg.clock.Now()
	retryAt := c.lastFailure.Add(r.cfg.cooldown)
	if now.Before(retryAt) {
		c.mu.Unlock()
		return aierr.CircuitOpen(name, retryAt)
	}

	t := c.setState(name, HalfOpen, now)
	c.mu.Unlock()

	r.notify(t)
	return nil
}

func (r *Registry) record(name string, c *circuit, err error) {
	c.mu.Lock()

	now := r.cfg.clock.Now()
	var t *Transition

	if r.cfg.isFailure(err) {
		c.failures++
		c.lastFailure = now
		switch c.state {
		case Closed:
			if c.failures >= r.cfg.failureThreshold {
				t = c.setState(name, Open, now)
			}
		case HalfOpen:
			t = c.setState(name, Open, now)
		}
	} else if err == nil {
		switch c.state {
		case Closed:
			c.failures = 0
		case HalfOpen:
			c.successes++
			if c.successes >= r.cfg.successThreshold {
				t = c.setState(name, Closed, now)
			}
		}
	}

	c.mu.Unlock()
	r.notify(t)
}

func (r *Registry) notify(t *Transition) {
	if t == nil {
		return
	}

	helper := log.NewHelper(r.cfg.logger)
	switch t.To {
	case Open:
		helper.Warnw("msg", "circuit opened",
			"operation", t.Name,
			"from", t.From.String(),
			"failure_count", t.Snapshot.FailureCount,
			"cooldown", r.cfg.cooldown.String())
	case HalfOpen:
		helper.Infow("msg", "circuit half-open, probing", "operation", t.Name)
	case Closed:
		helper.Infow("msg", "circuit closed", "operation", t.Name, "from", t.From.String())
	}

	if r.cfg.onStateChange != nil {
		r.cfg.onStateChange(*t)
	}
}

// setState must be called with c.mu held.
func (c *circuit) setState(name string, to State, now time.Time) *Transition {
	if c.state == to {
		return nil
	}
	from := c.state
	c.state = to

	switch to {
	case Closed:
		c.failures = 0
		c.successes = 0
	case HalfOpen:
		c.successes = 0
	case Open:
		c.successes = 0
		c.openedAt = now
	}

	return &Transition{
		Name:     name,
		From:     from,
		To:       to,
		At:       now,
		OpenedAt: c.openedAt,
		Snapshot: c.snapshot(name),
	}
}

func (c *circuit) snapshot(name string) Snapshot {
	return Snapshot{
		Name:         name,
		State:        c.state,
		FailureCount: c.failures,
		SuccessCount: c.successes,
		LastFailure:  c.lastFailure,
	}
}

// A caller abandoning the call is not evidence that the dependency is unhealthy.
func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}
