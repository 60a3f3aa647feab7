package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/igsr/popdex/internal/metrics"
)

// RouterConfig holds the middleware settings of the facade router.
type RouterConfig struct {
	Logger *zap.Logger
	// Metrics records facade requests; nil disables it.
	Metrics *metrics.HTTP
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
	// AllowedOrigins enables CORS for these origins; empty disables CORS.
	AllowedOrigins []string
	CORSMaxAgeSec  int
}

// NewRouter assembles the facade: middleware, population routes,
// /healthz and /metrics.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEvent(logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(CORS(cfg.AllowedOrigins, cfg.CORSMaxAgeSec))
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	s.Register(r)
	r.Get("/healthz", s.HealthCheck)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
