package biz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal tracks orchestrated calls per operation and outcome
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribeline_ai_calls_total",
			Help: "Total number of orchestrated AI calls",
		},
		[]string{"operation", "outcome", "category"},
	)

	// AttemptsTotal tracks individual upstream attempts
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribeline_ai_attempts_total",
			Help: "Total number of upstream attempts",
		},
		[]string{"operation", "category"},
	)

	// AttemptLatency tracks the latency of individual attempts
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribeline_ai_attempt_latency_seconds",
			Help:    "Upstream attempt latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"},
	)

	// TimeoutsTotal tracks attempts abandoned by a timeout strategy
	TimeoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribeline_ai_timeouts_total",
			Help: "Total number of attempts that timed out",
		},
		[]string{"operation"},
	)

	// TimeoutExtensions tracks extendable timeout escalations
	TimeoutExtensions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribeline_ai_timeout_extensions_total",
			Help: "Total number of extendable timeout escalations",
		},
		[]string{"operation"},
	)

	// CircuitState exposes the state of each circuit (0 closed, 1 open, 2 half-open)
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scribeline_ai_circuit_state",
			Help: "Circuit breaker state per operation",
		},
		[]string{"operation"},
	)

	// CircuitTransitions tracks circuit state changes
	CircuitTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribeline_ai_circuit_transitions_total",
			Help: "Total number of circuit breaker transitions",
		},
		[]string{"operation", "to"},
	)

	// ParseSteps tracks which recovery step produced a structured result
	ParseSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribeline_ai_parse_steps_total",
			Help: "Structured results by recovery step",
		},
		[]string{"operation", "step"},
	)

	// CacheLookups tracks result cache hits and misses
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribeline_ai_cache_lookups_total",
			Help: "Result cache lookups",
		},
		[]string{"operation", "result"},
	)
)
