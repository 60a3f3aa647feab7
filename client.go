package popdex

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/igsr/popdex/internal/metrics"
	"github.com/igsr/popdex/internal/transport/httpclient"
	"github.com/igsr/popdex/internal/transport/portal"
	populationuc "github.com/igsr/popdex/internal/usecase/population"
)

// Client is the popdex SDK entry point. It is safe for concurrent use.
type Client struct {
	popSvc *populationuc.Service
	obs    *observer
}

// New creates a Client. No request is sent until the first query.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL:   DefaultBaseURL,
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, fmt.Errorf("popdex: %w", err)
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	popSvc := populationuc.New(backend, nil, cfg.logger)
	if len(cfg.listFields) > 0 {
		popSvc = popSvc.WithListSourceFields(cfg.listFields)
	}

	return &Client{popSvc: popSvc, obs: obs}, nil
}

func newBackend(cfg *clientConfig) (*portal.Client, error) {
	var backendMetrics *metrics.Backend
	if cfg.metricsReg != nil {
		var err error
		backendMetrics, err = metrics.NewBackend(cfg.metricsReg)
		if err != nil {
			return nil, fmt.Errorf("popdex: %w", err)
		}
	}

	var limiter *rate.Limiter
	if cfg.rateLimit > 0 {
		burst := cfg.burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), burst)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{}
	}

	doer := httpclient.Chain(hc,
		httpclient.Instrumented(backendMetrics, cfg.logger),
		httpclient.Timeout(cfg.timeout),
		httpclient.Errors(),
		httpclient.RateLimit(limiter),
	)

	c, err := portal.New(portal.Config{
		BaseURL:   cfg.baseURL,
		Doer:      doer,
		UserAgent: cfg.userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("popdex: %w", err)
	}
	return c, nil
}

// Populations returns the population query service. Every call returns a
// view over the same service, so the cached list is shared.
func (c *Client) Populations() *PopulationService {
	return &PopulationService{svc: c.popSvc, obs: c.obs}
}

// ExportFilename is the file name a data collection export is written
// under, as returned by SearchDataCollectionPopulationsExport.
func ExportFilename(dc string) string {
	return populationuc.ExportFilename(dc)
}
