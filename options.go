package popdex

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public IGSR data portal.
const DefaultBaseURL = "https://www.internationalgenome.org"

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "popdex"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string

	rateLimit float64
	burst     int

	listFields []string

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithBaseURL sets the portal root the /api/beta/population paths are
// resolved against. Defaults to DefaultBaseURL.
func WithBaseURL(u string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = u
	})
}

// WithHTTPClient sets the underlying HTTP client. Defaults to a new
// http.Client without its own timeout.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-request deadline. Requests that get no
// response in time fail with ErrTimeout. Zero disables it. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithUserAgent sets the User-Agent header of backend requests.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// WithRateLimit caps outgoing requests at rps per second with the given
// burst. Requests wait for a token. Disabled by default.
func WithRateLimit(rps float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rateLimit = rps
		c.burst = burst
	})
}

// WithListSourceFields restricts the fields fetched for the cached
// population list (GetAll). Defaults to full documents.
func WithListSourceFields(fields ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.listFields = fields
	})
}

// WithLogger enables structured logging of SDK operations and backend
// requests. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK operation and backend request metrics on
// the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
