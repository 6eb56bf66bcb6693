package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"solbank/pkg/metrics"
)

// PrometheusCollector implements Collector for Prometheus.
type PrometheusCollector struct {
	namespace string

	remoteCalls  *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	enqueues     *prometheus.CounterVec
	drains       *prometheus.CounterVec
	transfers    *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	queueDepth prometheus.Gauge

	remoteLatency   *prometheus.HistogramVec
	transferLatency *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	pc := &PrometheusCollector{
		namespace: namespace,
		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_calls_total",
				Help:      "Total remote API calls per resource and outcome",
			},
			[]string{"resource", "outcome"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Total local-store fallbacks per resource",
			},
			[]string{"resource"},
		),
		enqueues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "offline_enqueues_total",
				Help:      "Total operations queued for offline sync per kind",
			},
			[]string{"kind"},
		),
		drains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "offline_drains_total",
				Help:      "Total drained operations per outcome",
			},
			[]string{"outcome"},
		),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Total transfer submissions per terminal status",
			},
			[]string{"status"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "offline_queue_depth",
				Help:      "Current offline queue depth",
			},
		),
		remoteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Remote API call latency per resource",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		transferLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "End-to-end transfer latency per terminal status",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"status"},
		),
	}
	return pc
}

// Register registers all collectors with the given registry.
func (pc *PrometheusCollector) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		pc.remoteCalls, pc.fallbacks, pc.enqueues, pc.drains,
		pc.transfers, pc.circuitState, pc.queueDepth,
		pc.remoteLatency, pc.transferLatency,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordRemoteCall records a remote API call outcome.
func (pc *PrometheusCollector) RecordRemoteCall(resource string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	pc.remoteCalls.WithLabelValues(resource, outcome).Inc()
	pc.remoteLatency.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordFallback records a local-store fallback.
func (pc *PrometheusCollector) RecordFallback(resource string) {
	pc.fallbacks.WithLabelValues(resource).Inc()
}

// RecordEnqueue records an offline operation entering the queue.
func (pc *PrometheusCollector) RecordEnqueue(kind string) {
	pc.enqueues.WithLabelValues(kind).Inc()
}

// RecordDrain records the outcome of one drained operation.
func (pc *PrometheusCollector) RecordDrain(outcome metrics.DrainOutcome) {
	pc.drains.WithLabelValues(string(outcome)).Inc()
}

// RecordQueueDepth records the current queue depth.
func (pc *PrometheusCollector) RecordQueueDepth(depth int) {
	pc.queueDepth.Set(float64(depth))
}

// RecordTransfer records a transfer submission by terminal status.
func (pc *PrometheusCollector) RecordTransfer(status string, duration time.Duration) {
	pc.transfers.WithLabelValues(status).Inc()
	pc.transferLatency.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordCircuitState records a circuit breaker state change.
func (pc *PrometheusCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	var v float64
	switch state {
	case metrics.CircuitOpen:
		v = 1
	case metrics.CircuitHalfOpen:
		v = 2
	}
	pc.circuitState.WithLabelValues(name).Set(v)
}
