// Package model holds records shared by the biz and data layers.
package model

import "time"

// Call outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CallRecord describes one orchestrated call, including all of its attempts.
type CallRecord struct {
	ID        string
	RequestID string
	Operation string
	Model     string
	Outcome   string
	// Category is empty on success.
	Category  string
	Attempts  int
	Latency   time.Duration
	ParseStep string
	CacheHit  bool
	Error     string
	CreatedAt time.Time
}
