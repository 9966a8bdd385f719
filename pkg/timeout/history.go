package timeout

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultWindow is how many durations are kept per operation name.
	DefaultWindow = 50
	// DefaultMaxNames bounds how many operation names are tracked; the least recently used is evicted.
	DefaultMaxNames = 1024
)

// History keeps a bounded FIFO window of observed durations per operation name.
type History struct {
	mu     sync.Mutex
	window int
	series *lru.Cache[string, []time.Duration]
}

// NewHistory creates a History. Non-positive arguments fall back to the defaults.
func NewHistory(window, maxNames int) *History {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxNames <= 0 {
		maxNames = DefaultMaxNames
	}
	// lru.New only fails on a non-positive size.
	series, _ := lru.New[string, []time.Duration](maxNames)
	return &History{window: window, series: series}
}

// Record appends d to the window for name, evicting the oldest entry when full.
func (h *History) Record(name string, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, _ := h.series.Get(name)
	if len(s) >= h.window {
		copy(s, s[len(s)-h.window+1:])
		s = s[:h.window-1]
	}
	h.series.Add(name, append(s, d))
}

// Durations returns a copy of the window for name, oldest first.
func (h *History) Durations(name string) []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, _ := h.series.Peek(name)
	out := make([]time.Duration, len(s))
	copy(out, s)
	return out
}

// Len returns the number of durations recorded for name.
func (h *History) Len(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, _ := h.series.Peek(name)
	return len(s)
}

// P90 returns the nearest-rank 90th percentile for name, or false when nothing was recorded.
func (h *History) P90(name string) (time.Duration, bool) {
	sorted := h.Durations(name)
	if len(sorted) == 0 {
		return 0, false
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * 0.9)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx], true
}

// Names returns the tracked operation names, least recently used first.
func (h *History) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.series.Keys()
}
