package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Backend records outgoing requests to the portal search API.
// A nil *Backend is a valid no-op recorder.
type Backend struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewBackend creates backend request metrics on reg.
func NewBackend(reg prometheus.Registerer) (*Backend, error) {
	b := &Backend{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total portal API requests by route and outcome.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Portal API request duration in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
	}
	if err := registerOrReuse(reg, &b.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &b.duration); err != nil {
		return nil, err
	}
	return b, nil
}

// Observe records one request. status is the HTTP status code as text, or
// "error" when no response was received.
func (b *Backend) Observe(method, route, status string, d time.Duration) {
	if b == nil {
		return
	}
	b.requests.WithLabelValues(method, route, status).Inc()
	b.duration.WithLabelValues(method, route).Observe(d.Seconds())
}
