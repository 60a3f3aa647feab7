// Package chi serves the population queries over HTTP for the portal UI.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/igsr/popdex/internal/domain"
	dompop "github.com/igsr/popdex/internal/domain/population"
	"github.com/igsr/popdex/internal/domain/search"
	logpkg "github.com/igsr/popdex/internal/logger"
	healthuc "github.com/igsr/popdex/internal/usecase/health"
	populationuc "github.com/igsr/popdex/internal/usecase/population"
	"github.com/igsr/popdex/internal/version"
)

const (
	defaultPageSize           = 10
	defaultDataCollectionSize = 20

	// maxQueryBody bounds the query document accepted by POST endpoints.
	maxQueryBody = 64 << 10

	// statusClientClosedRequest is recorded when the caller went away.
	statusClientClosedRequest = 499
)

// Hits is a page of population search results.
type Hits = search.Hits[dompop.Population]

// Populations is the population query API the server exposes.
type Populations interface {
	GetAll(ctx context.Context) (Hits, error)
	Search(ctx context.Context, hitsPerPage, from int, q search.Query) (Hits, error)
	Get(ctx context.Context, code string) (dompop.Population, error)
	TextSearch(ctx context.Context, text string, hitsPerPage int) (*Hits, error)
	SearchDataCollectionPopulations(ctx context.Context, dc string, offset, hitsPerPage int) (Hits, error)
	SearchExport(ctx context.Context, q search.Query, filename string, w io.Writer) (int64, error)
	SearchDataCollectionPopulationsExport(ctx context.Context, dc string, w io.Writer) (string, int64, error)
	Descriptions() map[string]string
}

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes returned by the facade.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeNotFound          ErrorCode = "not_found"
	CodeRateLimited       ErrorCode = "rate_limited"
	CodeTimeout           ErrorCode = "timeout"
	CodeUpstreamError     ErrorCode = "upstream_error"
	CodeBackendDown       ErrorCode = "backend_unavailable"
	CodeMalformedResponse ErrorCode = "malformed_response"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the facade handlers.
type Server struct {
	pops          Populations
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the facade server. health may be nil, in which case
// /healthz only reports liveness.
func NewServer(pops Populations, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{pops: pops, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrBadRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrUnavailable, http.StatusBadGateway, CodeBackendDown),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway, CodeMalformedResponse),
		sentinelHandler(domain.ErrUnauthorized, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, CodeUpstreamError),
	}
	return s
}

// Register mounts the population routes on r.
func (s *Server) Register(r chi.Router) {
	r.Route("/v1/populations", func(r chi.Router) {
		r.Get("/", s.ListPopulations)
		r.Get("/descriptions", s.GetDescriptions)
		r.Get("/search", s.TextSearch)
		r.Post("/_search", s.SearchPopulations)
		r.Post("/export/{filename}", s.ExportPopulations)
		r.Get("/{code}", s.GetPopulation)
	})
	r.Route("/v1/data-collections/{dc}", func(r chi.Router) {
		r.Get("/populations", s.ListDataCollectionPopulations)
		r.Get("/populations.tsv", s.ExportDataCollectionPopulations)
	})
}

// ListPopulations handles GET /v1/populations.
func (s *Server) ListPopulations(w http.ResponseWriter, r *http.Request) {
	hits, err := s.pops.GetAll(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// GetDescriptions handles GET /v1/populations/descriptions.
func (s *Server) GetDescriptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pops.Descriptions())
}

// TextSearch handles GET /v1/populations/search. An empty q yields null.
func (s *Server) TextSearch(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("Invalid format for parameter q: %s", err))
		return
	}
	size, ok := intParam(w, r, "size", defaultPageSize)
	if !ok {
		return
	}

	hits, err := s.pops.TextSearch(r.Context(), q, size)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// SearchPopulations handles POST /v1/populations/_search. The body is an
// optional query document.
func (s *Server) SearchPopulations(w http.ResponseWriter, r *http.Request) {
	from, ok := intParam(w, r, "from", 0)
	if !ok {
		return
	}
	size, ok := intParam(w, r, "size", defaultPageSize)
	if !ok {
		return
	}
	q, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid query body: "+err.Error())
		return
	}

	hits, err := s.pops.Search(r.Context(), size, from, q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// GetPopulation handles GET /v1/populations/{code}.
func (s *Server) GetPopulation(w http.ResponseWriter, r *http.Request) {
	code, ok := pathParam(w, r, "code")
	if !ok {
		return
	}
	pop, err := s.pops.Get(r.Context(), code)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pop)
}

// ListDataCollectionPopulations handles GET /v1/data-collections/{dc}/populations.
func (s *Server) ListDataCollectionPopulations(w http.ResponseWriter, r *http.Request) {
	dc, ok := pathParam(w, r, "dc")
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset", 0)
	if !ok {
		return
	}
	size, ok := intParam(w, r, "size", defaultDataCollectionSize)
	if !ok {
		return
	}

	hits, err := s.pops.SearchDataCollectionPopulations(r.Context(), dc, offset, size)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// ExportDataCollectionPopulations handles GET /v1/data-collections/{dc}/populations.tsv.
func (s *Server) ExportDataCollectionPopulations(w http.ResponseWriter, r *http.Request) {
	dc, ok := pathParam(w, r, "dc")
	if !ok {
		return
	}

	aw := newAttachmentWriter(w, populationuc.ExportFilename(dc))
	if _, _, err := s.pops.SearchDataCollectionPopulationsExport(r.Context(), dc, aw); err != nil {
		s.handleExportError(aw, r, err)
		return
	}
	aw.finish()
}

// ExportPopulations handles POST /v1/populations/export/{filename}. The
// body is an optional query document.
func (s *Server) ExportPopulations(w http.ResponseWriter, r *http.Request) {
	filename, ok := pathParam(w, r, "filename")
	if !ok {
		return
	}
	q, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid query body: "+err.Error())
		return
	}

	aw := newAttachmentWriter(w, filename+".tsv")
	if _, err := s.pops.SearchExport(r.Context(), q, filename, aw); err != nil {
		s.handleExportError(aw, r, err)
		return
	}
	aw.finish()
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	healthuc.Report
	Version version.Info `json:"version"`
}

// HealthCheck handles GET /healthz. A failed population list fetch makes
// the facade unhealthy.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	report := healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}
	if s.health != nil {
		report = s.health.Check()
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Report: report, Version: version.Get()})
}

func (s *Server) handleExportError(aw *attachmentWriter, r *http.Request, err error) {
	if aw.started && errors.Is(err, context.Canceled) {
		logpkg.FromContext(r.Context(), s.logger).Debug("export canceled by client", zap.Error(err))
		return
	}
	if aw.started {
		// Headers are gone; the client sees a truncated file.
		logpkg.FromContext(r.Context(), s.logger).Error("export aborted mid-stream", zap.Error(err))
		return
	}
	s.handleDomainError(aw.w, r, err)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context(), s.logger)
	if errors.Is(err, context.Canceled) {
		logger.Debug("request canceled by client", zap.Error(err))
		w.WriteHeader(statusClientClosedRequest)
		return
	}
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// attachmentWriter sets the download headers on the first write, so an
// error before any byte arrives can still become a JSON error response.
type attachmentWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func newAttachmentWriter(w http.ResponseWriter, filename string) *attachmentWriter {
	return &attachmentWriter{w: w, filename: filename}
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.writeHeaders()
	}
	n, err := a.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("write attachment: %w", err)
	}
	return n, nil
}

func (a *attachmentWriter) writeHeaders() {
	a.started = true
	h := a.w.Header()
	h.Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.filename}))
	a.w.WriteHeader(http.StatusOK)
}

// finish sends the headers of an empty export.
func (a *attachmentWriter) finish() {
	if !a.started {
		a.writeHeaders()
	}
}

func decodeQuery(r *http.Request) (search.Query, error) {
	var q search.Query
	dec := json.NewDecoder(io.LimitReader(r.Body, maxQueryBody))
	if err := dec.Decode(&q); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode query: %w", err)
	}
	return q, nil
}

// intParam binds an optional integer query parameter. On failure it writes
// a 400 and returns false.
func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	var v *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
		return 0, false
	}
	if v == nil {
		return def, true
	}
	return *v, true
}

// pathParam binds a required path parameter.
func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
		return "", false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrBadRequest,
		domain.ErrRateLimited,
		domain.ErrTimeout,
		domain.ErrUnavailable,
		domain.ErrMalformedResponse,
		domain.ErrUnauthorized,
		domain.ErrUpstream,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
