package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operations counts SDK operations (get_all, search, get, export, ...).
// A nil *Operations is a valid no-op recorder.
type Operations struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewOperations creates SDK operation metrics on reg.
func NewOperations(reg prometheus.Registerer) (*Operations, error) {
	o := &Operations{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &o.total); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &o.duration); err != nil {
		return nil, err
	}
	return o, nil
}

// Observe records one operation outcome.
func (o *Operations) Observe(op string, d time.Duration, err error) {
	if o == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.total.WithLabelValues(op, status).Inc()
	o.duration.WithLabelValues(op).Observe(d.Seconds())
}
