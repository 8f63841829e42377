// Package metrics exposes Prometheus collectors for the server's
// connection and pipeline activity, served on a listener separate from
// the OT TCP port.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds the collectors registered against the default Prometheus
// registry. Get returns the process-wide singleton; tests that need an
// isolated registry should construct via promauto.With(prometheus.NewRegistry()).
type Metrics struct {
	ConnectionsActive   prometheus.Gauge
	ConnectionsTotal    prometheus.Counter
	ConnectionsRejected prometheus.Counter

	BroadcastEvictionsTotal *prometheus.CounterVec
	HeartbeatEvictionsTotal prometheus.Counter

	OperationsAppliedTotal   *prometheus.CounterVec
	OperationApplyDuration   prometheus.Histogram
	OperationsRejectedTotal  *prometheus.CounterVec
	FramesDecodeErrorsTotal  prometheus.Counter
}

// Get returns the singleton Metrics instance, registering its collectors
// on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

func newMetrics() *Metrics {
	m := &Metrics{}

	m.ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "otsync",
		Subsystem: "transport",
		Name:      "connections_active",
		Help:      "Number of currently registered client connections.",
	})

	m.ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "otsync",
		Subsystem: "transport",
		Name:      "connections_total",
		Help:      "Total number of client connections accepted.",
	})

	m.ConnectionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "otsync",
		Subsystem: "transport",
		Name:      "connections_rejected_total",
		Help:      "Total number of connections rejected because the registry was full.",
	})

	m.BroadcastEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otsync",
		Subsystem: "transport",
		Name:      "evictions_total",
		Help:      "Total number of clients evicted, by reason.",
	}, []string{"reason"})

	m.HeartbeatEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "otsync",
		Subsystem: "transport",
		Name:      "heartbeat_evictions_total",
		Help:      "Total number of clients evicted for exceeding the idle timeout.",
	})

	m.OperationsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otsync",
		Subsystem: "pipeline",
		Name:      "operations_applied_total",
		Help:      "Total number of operations successfully applied, by kind.",
	}, []string{"kind"})

	m.OperationApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "otsync",
		Subsystem: "pipeline",
		Name:      "apply_duration_seconds",
		Help:      "Time spent in the version-check/rebase/apply/log critical section.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
	})

	m.OperationsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otsync",
		Subsystem: "pipeline",
		Name:      "operations_rejected_total",
		Help:      "Total number of operations rejected, by reason.",
	}, []string{"reason"})

	m.FramesDecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "otsync",
		Subsystem: "wire",
		Name:      "frame_decode_errors_total",
		Help:      "Total number of frames that failed to decode or exceeded the size limit.",
	})

	return m
}

// ObserveEviction records a client eviction with its reason label.
func (m *Metrics) ObserveEviction(reason string) {
	m.BroadcastEvictionsTotal.WithLabelValues(reason).Inc()
}

// ObserveApply records a successful pipeline apply of the given kind,
// taking elapsed as the critical-section duration.
func (m *Metrics) ObserveApply(kind string, elapsed time.Duration) {
	m.OperationsAppliedTotal.WithLabelValues(kind).Inc()
	m.OperationApplyDuration.Observe(elapsed.Seconds())
}

// ObserveRejection records a rejected operation with its reason label.
func (m *Metrics) ObserveRejection(reason string) {
	m.OperationsRejectedTotal.WithLabelValues(reason).Inc()
}
