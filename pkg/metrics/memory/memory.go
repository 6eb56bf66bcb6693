package memory

import (
	"sync"
	"time"

	"solbank/pkg/metrics"
)

// MemoryCollector implements Collector for in-memory inspection and tests.
type MemoryCollector struct {
	mu sync.RWMutex

	remoteCalls    map[string]*ResourceMetrics
	fallbacks      map[string]int64
	enqueuesByKind map[string]int64
	drains         map[metrics.DrainOutcome]int64
	transfers      map[string]int64
	queueDepth     int
	circuitStates  map[string]metrics.CircuitState
}

// ResourceMetrics holds remote-call counters for one resource.
type ResourceMetrics struct {
	Successes int64
	Failures  int64
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		remoteCalls:    make(map[string]*ResourceMetrics),
		fallbacks:      make(map[string]int64),
		enqueuesByKind: make(map[string]int64),
		drains:         make(map[metrics.DrainOutcome]int64),
		transfers:      make(map[string]int64),
		circuitStates:  make(map[string]metrics.CircuitState),
	}
}

// RecordRemoteCall records a remote API call outcome.
func (mc *MemoryCollector) RecordRemoteCall(resource string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	rm, ok := mc.remoteCalls[resource]
	if !ok {
		rm = &ResourceMetrics{}
		mc.remoteCalls[resource] = rm
	}
	if success {
		rm.Successes++
	} else {
		rm.Failures++
	}
}

// RecordFallback records a local-store fallback.
func (mc *MemoryCollector) RecordFallback(resource string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.fallbacks[resource]++
}

// RecordEnqueue records an offline operation entering the queue.
func (mc *MemoryCollector) RecordEnqueue(kind string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enqueuesByKind[kind]++
}

// RecordDrain records the outcome of one drained operation.
func (mc *MemoryCollector) RecordDrain(outcome metrics.DrainOutcome) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.drains[outcome]++
}

// RecordQueueDepth records the current queue depth.
func (mc *MemoryCollector) RecordQueueDepth(depth int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.queueDepth = depth
}

// RecordTransfer records a transfer submission by terminal status.
func (mc *MemoryCollector) RecordTransfer(status string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.transfers[status]++
}

// RecordCircuitState records a circuit breaker state change.
func (mc *MemoryCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.circuitStates[name] = state
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	RemoteCalls   map[string]ResourceMetrics           `json:"remote_calls"`
	Fallbacks     map[string]int64                     `json:"fallbacks"`
	Enqueues      map[string]int64                     `json:"enqueues"`
	Drains        map[metrics.DrainOutcome]int64       `json:"drains"`
	Transfers     map[string]int64                     `json:"transfers"`
	QueueDepth    int                                  `json:"queue_depth"`
	CircuitStates map[string]string                    `json:"circuit_states"`
}

// TakeSnapshot returns a copy of the current counters.
func (mc *MemoryCollector) TakeSnapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snap := Snapshot{
		RemoteCalls:   make(map[string]ResourceMetrics, len(mc.remoteCalls)),
		Fallbacks:     make(map[string]int64, len(mc.fallbacks)),
		Enqueues:      make(map[string]int64, len(mc.enqueuesByKind)),
		Drains:        make(map[metrics.DrainOutcome]int64, len(mc.drains)),
		Transfers:     make(map[string]int64, len(mc.transfers)),
		QueueDepth:    mc.queueDepth,
		CircuitStates: make(map[string]string, len(mc.circuitStates)),
	}
	for k, v := range mc.remoteCalls {
		snap.RemoteCalls[k] = *v
	}
	for k, v := range mc.fallbacks {
		snap.Fallbacks[k] = v
	}
	for k, v := range mc.enqueuesByKind {
		snap.Enqueues[k] = v
	}
	for k, v := range mc.drains {
		snap.Drains[k] = v
	}
	for k, v := range mc.transfers {
		snap.Transfers[k] = v
	}
	for k, v := range mc.circuitStates {
		snap.CircuitStates[k] = v.String()
	}
	return snap
}
