package timeout

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_FIFOWindow(t *testing.T) {
	h := NewHistory(DefaultWindow, 0)
	for i := 1; i <= 60; i++ {
		h.Record("x", time.Duration(i)*time.Millisecond)
	}

	d := h.Durations("x")
	require.Len(t, d, DefaultWindow)
	assert.Equal(t, 11*time.Millisecond, d[0], "the oldest entries are evicted first")
	assert.Equal(t, 60*time.Millisecond, d[len(d)-1])
}

func TestHistory_P90(t *testing.T) {
	h := NewHistory(0, 0)

	_, ok := h.P90("x")
	assert.False(t, ok)

	for _, ms := range []int{800, 900, 700} {
		h.Record("x", time.Duration(ms)*time.Millisecond)
	}
	p90, ok := h.P90("x")
	require.True(t, ok)
	assert.Equal(t, 900*time.Millisecond, p90)

	h2 := NewHistory(0, 0)
	for i := 1; i <= 10; i++ {
		h2.Record("y", time.Duration(i)*time.Second)
	}
	p90, _ = h2.P90("y")
	assert.Equal(t, 10*time.Second, p90)
}

func TestHistory_DurationsIsACopy(t *testing.T) {
	h := NewHistory(0, 0)
	h.Record("x", time.Second)

	d := h.Durations("x")
	d[0] = time.Hour
	assert.Equal(t, time.Second, h.Durations("x")[0])
}

func TestHistory_EvictsLeastRecentlyUsedName(t *testing.T) {
	h := NewHistory(0, 2)
	h.Record("a", time.Second)
	h.Record("b", time.Second)
	h.Record("c", time.Second)

	assert.Equal(t, 0, h.Len("a"))
	assert.ElementsMatch(t, []string{"b", "c"}, h.Names())
}

func TestHistory_ConcurrentRecords(t *testing.T) {
	h := NewHistory(1000, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Record("x", time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, h.Len("x"))
}
