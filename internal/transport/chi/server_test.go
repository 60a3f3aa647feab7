package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/igsr/popdex/internal/domain"
	dompop "github.com/igsr/popdex/internal/domain/population"
	"github.com/igsr/popdex/internal/domain/search"
	"github.com/igsr/popdex/internal/metrics"
	healthuc "github.com/igsr/popdex/internal/usecase/health"
)

// --- Mock ---

type mockPopulations struct {
	getAllFn     func(ctx context.Context) (Hits, error)
	searchFn     func(ctx context.Context, size, from int, q search.Query) (Hits, error)
	getFn        func(ctx context.Context, code string) (dompop.Population, error)
	textSearchFn func(ctx context.Context, text string, size int) (*Hits, error)
	dcSearchFn   func(ctx context.Context, dc string, offset, size int) (Hits, error)
	exportFn     func(ctx context.Context, q search.Query, filename string, w io.Writer) (int64, error)
	dcExportFn   func(ctx context.Context, dc string, w io.Writer) (string, int64, error)
	descriptions map[string]string
}

func (m *mockPopulations) GetAll(ctx context.Context) (Hits, error) { return m.getAllFn(ctx) }

func (m *mockPopulations) Search(ctx context.Context, size, from int, q search.Query) (Hits, error) {
	return m.searchFn(ctx, size, from, q)
}

func (m *mockPopulations) Get(ctx context.Context, code string) (dompop.Population, error) {
	return m.getFn(ctx, code)
}

func (m *mockPopulations) TextSearch(ctx context.Context, text string, size int) (*Hits, error) {
	return m.textSearchFn(ctx, text, size)
}

func (m *mockPopulations) SearchDataCollectionPopulations(
	ctx context.Context, dc string, offset, size int,
) (Hits, error) {
	return m.dcSearchFn(ctx, dc, offset, size)
}

func (m *mockPopulations) SearchExport(
	ctx context.Context, q search.Query, filename string, w io.Writer,
) (int64, error) {
	return m.exportFn(ctx, q, filename, w)
}

func (m *mockPopulations) SearchDataCollectionPopulationsExport(
	ctx context.Context, dc string, w io.Writer,
) (string, int64, error) {
	return m.dcExportFn(ctx, dc, w)
}

func (m *mockPopulations) Descriptions() map[string]string { return m.descriptions }

func newTestRouter(t *testing.T, m *mockPopulations) http.Handler {
	t.Helper()
	return NewRouter(NewServer(m, nil, zap.NewNop()), RouterConfig{Gatherer: prometheus.NewRegistry()})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func sampleHits() Hits {
	return Hits{
		Total: search.Total{Value: 1, Relation: "eq"},
		Hits: []search.Hit[dompop.Population]{
			{ID: "GBR", Source: dompop.Population{Code: "GBR", Name: "British"}},
		},
	}
}

// --- Handlers ---

func TestListPopulations(t *testing.T) {
	m := &mockPopulations{getAllFn: func(context.Context) (Hits, error) { return sampleHits(), nil }}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/populations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var hits Hits
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&hits))
	assert.EqualValues(t, 1, hits.Total.Value)
	assert.Equal(t, "GBR", hits.Hits[0].Source.Code)
}

func TestListPopulations_Timeout(t *testing.T) {
	m := &mockPopulations{getAllFn: func(context.Context) (Hits, error) {
		return Hits{}, domain.ErrTimeout
	}}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/populations", "")
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, CodeTimeout, resp.Code)
	assert.Equal(t, domain.ErrTimeout.Error(), resp.Message)
}

func TestListPopulations_ClientCanceled(t *testing.T) {
	m := &mockPopulations{getAllFn: func(context.Context) (Hits, error) {
		return Hits{}, fmt.Errorf("wait for population list: %w", context.Canceled)
	}}
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	h := NewRouter(NewServer(m, nil, logger), RouterConfig{Logger: logger, Gatherer: prometheus.NewRegistry()})

	rr := do(t, h, http.MethodGet, "/v1/populations", "")
	assert.Equal(t, statusClientClosedRequest, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("request canceled by client").Len())
}

func TestGetDescriptions(t *testing.T) {
	m := &mockPopulations{descriptions: map[string]string{"GBR": "British"}}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/populations/descriptions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"GBR":"British"}`, rr.Body.String())
}

func TestTextSearch_EmptyIsNull(t *testing.T) {
	m := &mockPopulations{textSearchFn: func(_ context.Context, text string, size int) (*Hits, error) {
		assert.Equal(t, "", text)
		assert.Equal(t, defaultPageSize, size)
		return nil, nil
	}}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/populations/search", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "null", strings.TrimSpace(rr.Body.String()))
}

func TestTextSearch_Params(t *testing.T) {
	var gotText string
	var gotSize int
	m := &mockPopulations{textSearchFn: func(_ context.Context, text string, size int) (*Hits, error) {
		gotText, gotSize = text, size
		h := sampleHits()
		return &h, nil
	}}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/populations/search?q=han+chinese&size=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "han chinese", gotText)
	assert.Equal(t, 5, gotSize)
}

func TestTextSearch_InvalidSize(t *testing.T) {
	m := &mockPopulations{}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/populations/search?q=x&size=ten", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, CodeBadRequest, decodeError(t, rr).Code)
}

func TestSearchPopulations(t *testing.T) {
	var gotQuery search.Query
	var gotSize, gotFrom int
	m := &mockPopulations{searchFn: func(_ context.Context, size, from int, q search.Query) (Hits, error) {
		gotSize, gotFrom, gotQuery = size, from, q
		return sampleHits(), nil
	}}

	rr := do(t, newTestRouter(t, m), http.MethodPost, "/v1/populations/_search?from=20&size=-1",
		`{"term":{"code":"GBR"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, -1, gotSize)
	assert.Equal(t, 20, gotFrom)
	assert.Equal(t, search.Query{"term": map[string]any{"code": "GBR"}}, gotQuery)
}

func TestSearchPopulations_EmptyBodyMeansNoQuery(t *testing.T) {
	called := false
	m := &mockPopulations{searchFn: func(_ context.Context, size, from int, q search.Query) (Hits, error) {
		called = true
		assert.Nil(t, q)
		assert.Equal(t, defaultPageSize, size)
		assert.Equal(t, 0, from)
		return Hits{}, nil
	}}

	rr := do(t, newTestRouter(t, m), http.MethodPost, "/v1/populations/_search", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, called)
}

func TestSearchPopulations_BadBody(t *testing.T) {
	m := &mockPopulations{}

	rr := do(t, newTestRouter(t, m), http.MethodPost, "/v1/populations/_search", `{"term":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchPopulations_DomainBadRequest(t *testing.T) {
	m := &mockPopulations{searchFn: func(context.Context, int, int, search.Query) (Hits, error) {
		return Hits{}, domain.NewHTTPError(http.StatusBadRequest, "parsing_exception")
	}}

	rr := do(t, newTestRouter(t, m), http.MethodPost, "/v1/populations/_search", `{"bogus":{}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, CodeBadRequest, resp.Code)
	assert.NotContains(t, resp.Message, "parsing_exception")
}

func TestGetPopulation(t *testing.T) {
	m := &mockPopulations{getFn: func(_ context.Context, code string) (dompop.Population, error) {
		if code != "GBR" {
			return dompop.Population{}, domain.NewHTTPError(http.StatusNotFound, "")
		}
		return dompop.Population{Code: "GBR", Name: "British"}, nil
	}}
	h := newTestRouter(t, m)

	rr := do(t, h, http.MethodGet, "/v1/populations/GBR", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"British"`)

	rr = do(t, h, http.MethodGet, "/v1/populations/XYZ", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rr).Code)
}

func TestGetPopulation_UpstreamFailure(t *testing.T) {
	m := &mockPopulations{getFn: func(context.Context, string) (dompop.Population, error) {
		return dompop.Population{}, domain.ErrUnavailable
	}}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/populations/GBR", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, CodeBackendDown, decodeError(t, rr).Code)
}

func TestListDataCollectionPopulations(t *testing.T) {
	var gotDC string
	var gotOffset, gotSize int
	m := &mockPopulations{dcSearchFn: func(_ context.Context, dc string, offset, size int) (Hits, error) {
		gotDC, gotOffset, gotSize = dc, offset, size
		return sampleHits(), nil
	}}
	h := newTestRouter(t, m)

	rr := do(t, h, http.MethodGet, "/v1/data-collections/1000%20Genomes/populations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1000 Genomes", gotDC)
	assert.Equal(t, 0, gotOffset)
	assert.Equal(t, defaultDataCollectionSize, gotSize)

	rr = do(t, h, http.MethodGet, "/v1/data-collections/HGDP/populations?offset=40&size=10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 40, gotOffset)
	assert.Equal(t, 10, gotSize)
}

func TestExportDataCollectionPopulations(t *testing.T) {
	m := &mockPopulations{dcExportFn: func(_ context.Context, dc string, w io.Writer) (string, int64, error) {
		n, err := io.WriteString(w, "Population code\nGBR\n")
		return "igsr-hgdp-populations.tsv", int64(n), err
	}}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/data-collections/HGDP/populations.tsv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/tab-separated-values; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=igsr-hgdp-populations.tsv`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "Population code\nGBR\n", rr.Body.String())
}

func TestExportDataCollectionPopulations_ErrorBeforeData(t *testing.T) {
	m := &mockPopulations{dcExportFn: func(context.Context, string, io.Writer) (string, int64, error) {
		return "", 0, domain.ErrTimeout
	}}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/data-collections/HGDP/populations.tsv", "")
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Empty(t, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, CodeTimeout, decodeError(t, rr).Code)
}

func TestExportDataCollectionPopulations_CanceledMidStream(t *testing.T) {
	m := &mockPopulations{dcExportFn: func(_ context.Context, _ string, w io.Writer) (string, int64, error) {
		n, _ := io.WriteString(w, "Population code\n")
		return "igsr-hgdp-populations.tsv", int64(n), context.Canceled
	}}
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	h := NewRouter(NewServer(m, nil, logger), RouterConfig{Logger: logger, Gatherer: prometheus.NewRegistry()})

	rr := do(t, h, http.MethodGet, "/v1/data-collections/HGDP/populations.tsv", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Population code\n", rr.Body.String())
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestExportPopulations(t *testing.T) {
	var gotFile string
	var gotQuery search.Query
	m := &mockPopulations{exportFn: func(_ context.Context, q search.Query, filename string, w io.Writer) (int64, error) {
		gotFile, gotQuery = filename, q
		n, err := io.WriteString(w, "tsv")
		return int64(n), err
	}}

	rr := do(t, newTestRouter(t, m), http.MethodPost, "/v1/populations/export/my-populations",
		`{"term":{"superpopulation.code":"EUR"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "my-populations", gotFile)
	assert.Contains(t, gotQuery, "term")
	assert.Equal(t, `attachment; filename=my-populations.tsv`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "tsv", rr.Body.String())
}

func TestExportPopulations_EmptyResult(t *testing.T) {
	m := &mockPopulations{exportFn: func(context.Context, search.Query, string, io.Writer) (int64, error) {
		return 0, nil
	}}

	rr := do(t, newTestRouter(t, m), http.MethodPost, "/v1/populations/export/empty", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Content-Disposition"))
	assert.Empty(t, rr.Body.String())
}

// --- Router ---

func TestHealthz(t *testing.T) {
	rr := do(t, newTestRouter(t, &mockPopulations{}), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

type listStatus struct {
	ready bool
	err   error
}

func (l listStatus) ListStatus() (bool, error) { return l.ready, l.err }

func TestHealthz_ListStates(t *testing.T) {
	tests := []struct {
		name   string
		list   listStatus
		status int
		body   string
	}{
		{"cached", listStatus{ready: true}, http.StatusOK, `"population_list":"ok"`},
		{"pending", listStatus{}, http.StatusOK, `"status":"degraded"`},
		{"failed", listStatus{err: domain.ErrTimeout}, http.StatusServiceUnavailable, `"population_list":"error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&mockPopulations{}, healthuc.New(tt.list), nil)
			h := NewRouter(srv, RouterConfig{Gatherer: prometheus.NewRegistry()})

			rr := do(t, h, http.MethodGet, "/healthz", "")
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.body)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	rr := do(t, newTestRouter(t, &mockPopulations{}), http.MethodGet, "/v2/nothing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rr).Code)
}

func TestRecoverer(t *testing.T) {
	m := &mockPopulations{getFn: func(context.Context, string) (dompop.Population, error) {
		panic("boom")
	}}

	rr := do(t, newTestRouter(t, m), http.MethodGet, "/v1/populations/GBR", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, CodeInternalError, decodeError(t, rr).Code)
}

func TestCORS(t *testing.T) {
	h := NewRouter(NewServer(&mockPopulations{}, nil, nil), RouterConfig{
		AllowedOrigins: []string{"https://www.internationalgenome.org"},
		CORSMaxAgeSec:  300,
		Gatherer:       prometheus.NewRegistry(),
	})

	req := httptest.NewRequest(http.MethodOptions, "/v1/populations", http.NoBody)
	req.Header.Set("Origin", "https://www.internationalgenome.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://www.internationalgenome.org", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics, err := metrics.NewHTTP(reg)
	require.NoError(t, err)

	m := &mockPopulations{descriptions: map[string]string{}}
	h := NewRouter(NewServer(m, nil, nil), RouterConfig{Metrics: httpMetrics, Gatherer: reg})

	do(t, h, http.MethodGet, "/v1/populations/descriptions", "")
	rr := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `popdex_http_requests_total{method="GET",path="/v1/populations/descriptions",status="200"} 1`)
}
