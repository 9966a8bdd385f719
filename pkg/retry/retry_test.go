package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	aierr "Scribeline/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastController(opts ...Option) *Controller {
	base := []Option{WithPolicy(Policy{
		RateLimitBase: time.Millisecond,
		RateLimitMax:  4 * time.Millisecond,
		TimeoutDelay:  time.Millisecond,
		UnknownDelay:  time.Millisecond,
	})}
	return NewController(append(base, opts...)...)
}

func TestPolicy_DefaultDelays(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		category aierr.Category
		attempt  int
		expected time.Duration
	}{
		{"rate limit attempt 1", aierr.CategoryRateLimit, 1, time.Second},
		{"rate limit attempt 2", aierr.CategoryRateLimit, 2, 2 * time.Second},
		{"rate limit attempt 3", aierr.CategoryRateLimit, 3, 4 * time.Second},
		{"rate limit attempt 4", aierr.CategoryRateLimit, 4, 8 * time.Second},
		{"rate limit capped", aierr.CategoryRateLimit, 5, 10 * time.Second},
		{"rate limit far out", aierr.CategoryRateLimit, 40, 10 * time.Second},
		{"timeout fixed", aierr.CategoryTimeout, 3, 2 * time.Second},
		{"unknown fixed", aierr.CategoryUnknown, 3, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Delay(tt.category, tt.attempt))
		})
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastController(), "chat", 3, func(context.Context, Attempt) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableThenSucceeds(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastController(), "chat", 5, func(_ context.Context, a Attempt) (int, error) {
		calls++
		assert.Equal(t, calls, a.Number)
		assert.Equal(t, "chat", a.Operation)
		if calls <= 2 {
			return 0, &aierr.UpstreamError{StatusCode: 429, Message: "quota"}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestDo_AuthIsTerminal(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastController(), "transcribe", 5, func(context.Context, Attempt) (string, error) {
		calls++
		return "", &aierr.UpstreamError{StatusCode: 401, Message: "bad key"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var ae *aierr.AIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, aierr.CategoryAuth, ae.Category)
	assert.Equal(t, "transcribe", ae.Operation)
	assert.Equal(t, 1, ae.Attempts)
}

func TestDo_InvalidRequestIsTerminal(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastController(), "chat", 5, func(context.Context, Attempt) (string, error) {
		calls++
		return "", &aierr.UpstreamError{StatusCode: 400, Status: "INVALID_ARGUMENT", Message: "bad payload"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, aierr.CategoryInvalidRequest, aierr.CategoryOf(err))
}

func TestDo_CircuitOpenIsNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastController(), "chat", 5, func(context.Context, Attempt) (string, error) {
		calls++
		return "", aierr.CircuitOpen("chat", time.Now())
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, aierr.CategoryCircuitOpen, aierr.CategoryOf(err))
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastController(), "analyze", 3, func(context.Context, Attempt) (string, error) {
		calls++
		return "", errors.New("connection reset by peer")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var ae *aierr.AIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, aierr.CategoryUnknown, ae.Category)
	assert.Equal(t, 3, ae.Attempts)
	assert.Equal(t, "analyze", ae.Operation)
	assert.Contains(t, err.Error(), "operation analyze failed after 3 attempt(s)")
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestDo_MinimumOneAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastController(), "chat", 0, func(context.Context, Attempt) (string, error) {
		calls++
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsWhenContextCancelledDuringBackoff(t *testing.T) {
	c := NewController(WithPolicy(Policy{UnknownDelay: time.Hour}))
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, c, "chat", 3, func(context.Context, Attempt) (string, error) {
			calls++
			return "", errors.New("boom")
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry loop did not stop after cancellation")
	}
}

func TestDo_ObserverSeesEveryAttempt(t *testing.T) {
	var (
		mu      sync.Mutex
		results []Result
	)
	c := fastController(WithObserver(func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}))

	calls := 0
	_, err := Do(context.Background(), c, "chat", 3, func(context.Context, Attempt) (string, error) {
		calls++
		if calls == 1 {
			return "", &aierr.UpstreamError{StatusCode: 504}
		}
		return "ok", nil
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 2)
	assert.Equal(t, aierr.CategoryTimeout, results[0].Category)
	assert.Equal(t, time.Millisecond, results[0].Delay)
	assert.NotEmpty(t, results[0].ID)
	assert.NotEqual(t, results[0].ID, results[1].ID)
	assert.NoError(t, results[1].Err)
}

func TestDo_CustomClassifier(t *testing.T) {
	c := fastController(WithClassifier(aierr.NewClassifier(aierr.Rule{
		Name:     "stop",
		Match:    func(error) bool { return true },
		Category: aierr.CategoryInvalidRequest,
	})))

	calls := 0
	_, err := Do(context.Background(), c, "chat", 3, func(context.Context, Attempt) (string, error) {
		calls++
		return "", errors.New("connection reset")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
