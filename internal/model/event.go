package model

import "time"

// Circuit event types stored in ai_call_logs.event
const (
	EventCall             = "CALL"
	EventCircuitOpened    = "CIRCUIT_OPENED"
	EventCircuitHalfOpen  = "CIRCUIT_HALF_OPEN"
	EventCircuitRecovered = "CIRCUIT_RECOVERED"
)

// CircuitOpenedEvent is raised when an operation's circuit opens
type CircuitOpenedEvent struct {
	Name         string
	FailureCount int
	OpenedAt     time.Time
	RetryAt      time.Time
}

// CircuitRecoveredEvent is raised when a half-open circuit closes again
type CircuitRecoveredEvent struct {
	Name         string
	OpenDuration time.Duration
	ProbeCount   int
}
