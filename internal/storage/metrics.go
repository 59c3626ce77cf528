package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK      = "ok"
	outcomeHit     = "hit"
	outcomeMiss    = "miss"
	outcomeError   = "error"
	outcomeTimeout = "timeout"
)

// Metrics records per-backend storage activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fallbacks  *prometheus.CounterVec
}

// NewMetrics registers the storage collectors with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payloadhub",
				Subsystem: "storage",
				Name:      "backend_operations_total",
				Help:      "Backend calls by backend, operation and outcome",
			},
			[]string{"backend", "op", "outcome"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "payloadhub",
				Subsystem: "storage",
				Name:      "backend_operation_duration_seconds",
				Help:      "Backend call latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"backend", "op"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payloadhub",
				Subsystem: "storage",
				Name:      "fallbacks_total",
				Help:      "Operations served by the replica after the primary missed or failed",
			},
			[]string{"op"},
		),
	}
}

func (m *Metrics) observe(backend, op, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(backend, op, outcome).Inc()
	m.duration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) fallback(op string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(op).Inc()
}
