package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks request outcomes as seen by the transport layer.
//
// Metrics:
//   - pingora_requests_total: request count by outcome
//   - pingora_request_duration_seconds: request duration histogram by outcome
//
// Outcome labels are "handled", "unhandled", "error", and "panic".
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the transport metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pingora",
				Name:      "requests_total",
				Help:      "Total number of requests processed by the pipeline",
			},
			[]string{"outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pingora",
				Name:      "request_duration_seconds",
				Help:      "Duration of pipeline request processing in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// observe records one finished request.
func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.requestDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
