package timeout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	aierr "Scribeline/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepy returns an operation that finishes after d or when its context ends.
func sleepy(d time.Duration, value string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		select {
		case <-time.After(d):
			return value, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func TestFixed_ReturnsResultBeforeDeadline(t *testing.T) {
	v, err := Run(context.Background(), NewFixed(time.Second), "chat", sleepy(5*time.Millisecond, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestFixed_TimesOut(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), NewFixed(20*time.Millisecond), "chat", sleepy(time.Second, "late"))

	require.Error(t, err)
	assert.Equal(t, aierr.CategoryTimeout, aierr.CategoryOf(err))
	assert.Contains(t, err.Error(), "chat")
	assert.Contains(t, err.Error(), "20ms")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestFixed_PropagatesOperationError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), NewFixed(time.Second), "chat", func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_CancelsOperationContextOnTimeout(t *testing.T) {
	cancelled := make(chan struct{})
	_, err := Run(context.Background(), NewFixed(10*time.Millisecond), "chat", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(cancelled)
		return "", ctx.Err()
	})
	require.Error(t, err)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("operation context was not cancelled after the timeout fired")
	}
}

func TestRun_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, NewFixed(time.Second), "chat", sleepy(time.Second, "late"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNone_WaitsForResult(t *testing.T) {
	v, err := Run(context.Background(), None{}, "chat", sleepy(5*time.Millisecond, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestExtendable_ExtendsUntilDone(t *testing.T) {
	var calls atomic.Int32
	s := NewExtendable(10*time.Millisecond, time.Second, func(time.Duration) { calls.Add(1) })

	v, err := Run(context.Background(), s, "analyze_prompt", sleepy(50*time.Millisecond, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.GreaterOrEqual(t, calls.Load(), int32(1), "onProgress runs on every extension")
}

func TestExtendable_RejectsAtMaximum(t *testing.T) {
	start := time.Now()
	s := NewExtendable(10*time.Millisecond, 40*time.Millisecond, nil)

	_, err := Run(context.Background(), s, "analyze_prompt", sleepy(5*time.Second, "late"))
	require.Error(t, err)
	assert.Equal(t, aierr.CategoryTimeout, aierr.CategoryOf(err))
	assert.Contains(t, err.Error(), "exceeded maximum timeout of 40ms")
	assert.Less(t, time.Since(start), time.Second)
}

func TestProgressive_ReportsProgressThenTimesOut(t *testing.T) {
	var (
		mu       sync.Mutex
		percents []float64
	)
	s := NewProgressive(100*time.Millisecond, 15*time.Millisecond, WithProgress(func(_ time.Duration, pct float64) {
		mu.Lock()
		percents = append(percents, pct)
		mu.Unlock()
	}))

	_, err := Run(context.Background(), s, "transcribe", sleepy(5*time.Second, "late"))
	require.Error(t, err)
	assert.Equal(t, aierr.CategoryTimeout, aierr.CategoryOf(err))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
}

func TestProgressive_CompletesWithinTimeout(t *testing.T) {
	s := NewProgressive(time.Second, 10*time.Millisecond)
	v, err := Run(context.Background(), s, "transcribe", sleepy(30*time.Millisecond, "done"))
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestProgressive_FixesBadInterval(t *testing.T) {
	s := NewProgressive(time.Second, 2*time.Second)
	assert.Equal(t, 100*time.Millisecond, s.interval)
}

func TestAdaptive_UsesBaseWithoutHistory(t *testing.T) {
	s := NewAdaptive(time.Second, NewHistory(0, 0))
	assert.Equal(t, time.Second, s.Effective("x"))
}

func TestAdaptive_UsesHistory(t *testing.T) {
	h := NewHistory(0, 0)
	for _, ms := range []int{800, 900, 700} {
		h.Record("x", time.Duration(ms)*time.Millisecond)
	}

	s := NewAdaptive(time.Second, h)
	assert.Equal(t, 1800*time.Millisecond, s.Effective("x"))
	assert.NotEqual(t, time.Second, s.Effective("x"))
}

func TestAdaptive_CappedAtMultiplier(t *testing.T) {
	h := NewHistory(0, 0)
	h.Record("x", 10*time.Second)

	assert.Equal(t, 5*time.Second, NewAdaptive(time.Second, h).Effective("x"))
	assert.Equal(t, 3*time.Second, NewAdaptive(time.Second, h, WithMaxMultiplier(3)).Effective("x"))
}

func TestAdaptive_RecordsOnlySuccess(t *testing.T) {
	h := NewHistory(0, 0)
	s := NewAdaptive(time.Second, h)

	_, err := Run(context.Background(), s, "x", sleepy(time.Millisecond, "ok"))
	require.NoError(t, err)
	assert.Equal(t, 1, h.Len("x"))

	_, err = Run(context.Background(), s, "x", func(context.Context) (string, error) {
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, h.Len("x"))
}

func TestAdaptive_TimesOutOnHistoryDerivedLimit(t *testing.T) {
	h := NewHistory(0, 0)
	h.Record("x", 5*time.Millisecond)
	s := NewAdaptive(time.Second, h)

	_, err := Run(context.Background(), s, "x", sleepy(time.Second, "late"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10ms")
}
