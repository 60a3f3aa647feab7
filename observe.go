package popdex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/igsr/popdex/internal/metrics"
)

// observer provides logging and metrics for SDK operations.
type observer struct {
	logger  *zap.Logger
	metrics *metrics.Operations
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *metrics.Operations
	if reg != nil {
		var err error
		m, err = metrics.NewOperations(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	o.metrics.Observe(op, dur, err)

	if o.logger != nil {
		if err != nil {
			o.logger.Warn("operation failed",
				zap.String("op", op),
				zap.Duration("duration", dur),
				zap.Error(err),
			)
		} else {
			o.logger.Debug("operation completed",
				zap.String("op", op),
				zap.Duration("duration", dur),
			)
		}
	}
}
