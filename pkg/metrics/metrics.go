package metrics

import (
	"time"
)

// Collector defines the interface for pipeline metrics. Implementations can
// export to various backends (Prometheus, in-memory snapshots).
type Collector interface {
	// Remote API calls made by the unified data service
	RecordRemoteCall(resource string, success bool, duration time.Duration)
	// Local-store fallbacks taken after a remote failure
	RecordFallback(resource string)

	// Offline sync queue
	RecordEnqueue(kind string)
	RecordDrain(outcome DrainOutcome)
	RecordQueueDepth(depth int)

	// Transfer submissions by terminal status
	RecordTransfer(status string, duration time.Duration)

	// Circuit breaker on the remote API client
	RecordCircuitState(name string, state CircuitState)
}

// DrainOutcome is what happened to one queued operation during a drain pass.
type DrainOutcome string

const (
	DrainSynced     DrainOutcome = "synced"
	DrainRetried    DrainOutcome = "retried"
	DrainDeadLetter DrainOutcome = "dead_letter"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means requests flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means requests are rejected.
	CircuitOpen
	// CircuitHalfOpen means the breaker is probing for recovery.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is the default collector when metrics are not needed.
type NoOpCollector struct{}

// RecordRemoteCall does nothing.
func (NoOpCollector) RecordRemoteCall(resource string, success bool, duration time.Duration) {}

// RecordFallback does nothing.
func (NoOpCollector) RecordFallback(resource string) {}

// RecordEnqueue does nothing.
func (NoOpCollector) RecordEnqueue(kind string) {}

// RecordDrain does nothing.
func (NoOpCollector) RecordDrain(outcome DrainOutcome) {}

// RecordQueueDepth does nothing.
func (NoOpCollector) RecordQueueDepth(depth int) {}

// RecordTransfer does nothing.
func (NoOpCollector) RecordTransfer(status string, duration time.Duration) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}
