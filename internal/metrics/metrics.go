package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notes"

// Metrics holds Prometheus collectors for one notes component.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight *prometheus.GaugeVec
	RenderedNotes    prometheus.Gauge
	StaleRefreshes   prometheus.Counter
}

// New registers the collectors for subsystem on reg. A nil reg uses a fresh
// private registry so repeated construction (tests, several controllers)
// never collides.
func New(subsystem string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Total number of requests",
			},
			[]string{"op", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		RequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
			[]string{"op"},
		),
		RenderedNotes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rendered_notes",
			Help:      "Number of notes in the last rendered list",
		}),
		StaleRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stale_refreshes_total",
			Help:      "Refresh responses dropped because a newer refresh already rendered",
		}),
	}
}

// Track marks op as in flight and returns a func that records its outcome.
// A nil receiver is allowed and records nothing.
func (m *Metrics) Track(op string) func(status string) {
	if m == nil {
		return func(string) {}
	}
	m.RequestsInFlight.WithLabelValues(op).Inc()
	start := time.Now()
	return func(status string) {
		m.RequestsInFlight.WithLabelValues(op).Dec()
		m.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(op, status).Inc()
	}
}

// Status maps an error to the status label used by RequestCounter.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
