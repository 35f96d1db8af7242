package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics collects per-operation counters and latency for a database
// service adapter.
type StoreMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStoreMetrics creates the store operation collectors. The table label is
// fixed per adapter instance; operation and status vary per call.
func NewStoreMetrics() *StoreMetrics {
	return &StoreMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbservice_operations_total",
				Help: "Total database service operations by operation and status.",
			},
			[]string{"operation", "table", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dbservice_operation_duration_seconds",
				Help:    "Database service operation latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
	}
}

// Describe implements prometheus.Collector.
func (m *StoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operations.Describe(ch)
	m.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *StoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operations.Collect(ch)
	m.duration.Collect(ch)
}

// Observe records one completed operation.
func (m *StoreMetrics) Observe(operation, table string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, table, status).Inc()
	m.duration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
