package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igsr/popdex/internal/domain"
	"github.com/igsr/popdex/internal/metrics"
)

// RequestIDHeader carries the correlation id of an outgoing request.
const RequestIDHeader = "X-Request-ID"

type routeKey struct{}

// WithRoute tags ctx with a low-cardinality route name used as a metric label.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFrom(ctx context.Context) string {
	if r, ok := ctx.Value(routeKey{}).(string); ok && r != "" {
		return r
	}
	return "other"
}

// Instrumented stamps a request id, records backend metrics and logs each
// request. It should be the outermost decorator so timings include waits.
func Instrumented(m *metrics.Backend, logger *zap.Logger) Decorator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			id := req.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
				req.Header.Set(RequestIDHeader, id)
			}
			route := routeFrom(req.Context())

			start := time.Now()
			resp, err := next.Do(req)
			dur := time.Since(start)

			status := statusLabel(resp, err)
			m.Observe(req.Method, route, status, dur)

			fields := []zap.Field{
				zap.String("request_id", id),
				zap.String("method", req.Method),
				zap.String("route", route),
				zap.String("status", status),
				zap.Duration("latency", dur),
			}
			if err != nil {
				logger.Warn("backend request failed", append(fields, zap.Error(err))...)
				return nil, err
			}
			logger.Debug("backend request", fields...)
			return resp, nil
		})
	}
}

func statusLabel(resp *http.Response, err error) string {
	var he *domain.HTTPError
	switch {
	case err == nil && resp != nil:
		return strconv.Itoa(resp.StatusCode)
	case errors.As(err, &he):
		return strconv.Itoa(he.Status)
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
