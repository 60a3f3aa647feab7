package popdex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const listResponse = `{"took":3,"timed_out":false,"hits":{
	"total":{"value":3,"relation":"eq"},
	"hits":[
		{"_id":"ACB","_source":{"code":"ACB","elasticId":"ACB","description":"African Caribbean in Barbados","display_order":1,
			"latitude":"13.1","longitude":-59.6,
			"superpopulation":{"code":"AFR","name":"African Ancestry","display_colour":"#ffd845","display_order":1}}},
		{"_id":"GBR","_source":{"code":"GBR","elasticId":"GBR","description":"British in England and Scotland","display_order":2}},
		{"_id":"XYZ","_source":{"code":"XYZ","elasticId":"XYZ","description":"","display_order":3}}
	]}}`

// fakePortal serves the population API under /data-portal.
type fakePortal struct {
	searchCalls atomic.Int32
	lastSearch  atomic.Value // map[string]any
	lastExport  atomic.Value // string, the filename
	userAgent   atomic.Value // string
	delay       time.Duration
}

func (f *fakePortal) handler(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/data-portal/api/beta/population", func(r chi.Router) {
		r.Post("/_search", func(w http.ResponseWriter, req *http.Request) {
			f.searchCalls.Add(1)
			f.userAgent.Store(req.UserAgent())
			var body map[string]any
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			f.lastSearch.Store(body)
			if f.delay > 0 {
				select {
				case <-time.After(f.delay):
				case <-req.Context().Done():
					return
				}
			}
			_, _ = io.WriteString(w, listResponse)
		})
		r.Post("/_search/{filename}", func(w http.ResponseWriter, req *http.Request) {
			f.lastExport.Store(chi.URLParam(req, "filename"))
			_, _ = io.WriteString(w, "Population code\nGBR\n")
		})
		r.Get("/{code}", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "code") != "GBR" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"error":"population not found"}`)
				return
			}
			_, _ = io.WriteString(w, `{"_id":"GBR","found":true,"_source":{"code":"GBR","name":"British"}}`)
		})
	})
	return r
}

func newTestClient(t *testing.T, fake *fakePortal, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithBaseURL(srv.URL + "/data-portal"),
		WithHTTPClient(srv.Client()),
	}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(WithBaseURL("not a url"))
	assert.Error(t, err)
}

func TestGetAll_SingleRequestForConcurrentCallers(t *testing.T) {
	fake := &fakePortal{delay: 30 * time.Millisecond}
	pops := newTestClient(t, fake).Populations()

	var wg sync.WaitGroup
	totals := make([]int64, 10)
	for i := range totals {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hits, err := pops.GetAll(context.Background())
			assert.NoError(t, err)
			totals[i] = hits.Total.Value
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, fake.searchCalls.Load())
	for _, total := range totals {
		assert.EqualValues(t, 3, total)
	}

	body := fake.lastSearch.Load().(map[string]any)
	assert.EqualValues(t, -1, body["size"])
	assert.Equal(t, []any{"display_order"}, body["sort"])
	assert.NotContains(t, body, "query")
}

func TestGetAll_SharedAcrossPopulationViews(t *testing.T) {
	fake := &fakePortal{}
	c := newTestClient(t, fake)

	_, err := c.Populations().GetAll(context.Background())
	require.NoError(t, err)
	_, err = c.Populations().GetAll(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, fake.searchCalls.Load())
}

func TestGetAll_DecodesRecords(t *testing.T) {
	pops := newTestClient(t, &fakePortal{}).Populations()

	hits, err := pops.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, hits.Hits, 3)

	acb := hits.Hits[0].Source
	require.NotNil(t, acb.Latitude)
	assert.InDelta(t, 13.1, acb.Latitude.Float64(), 1e-9)
	assert.InDelta(t, -59.6, acb.Longitude.Float64(), 1e-9)
	require.NotNil(t, acb.Superpopulation)
	assert.Equal(t, "#ffd845", acb.Superpopulation.DisplayColor)
}

func TestDescriptions_FilledByGetAll(t *testing.T) {
	pops := newTestClient(t, &fakePortal{}).Populations()

	_, ok := pops.Description("GBR")
	assert.False(t, ok)

	_, err := pops.GetAll(context.Background())
	require.NoError(t, err)

	desc, ok := pops.Description("GBR")
	assert.True(t, ok)
	assert.Equal(t, "British in England and Scotland", desc)
	assert.Equal(t, map[string]string{
		"ACB": "African Caribbean in Barbados",
		"GBR": "British in England and Scotland",
	}, pops.Descriptions())
}

func TestWatchAll(t *testing.T) {
	pops := newTestClient(t, &fakePortal{}).Populations()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	n, ok := <-pops.WatchAll(ctx)
	require.True(t, ok)
	require.NoError(t, n.Err)
	assert.Len(t, n.Value.Hits, 3)
}

func TestTextSearch(t *testing.T) {
	fake := &fakePortal{}
	pops := newTestClient(t, fake).Populations()

	hits, err := pops.TextSearch(context.Background(), "", 10)
	assert.NoError(t, err)
	assert.Nil(t, hits)
	assert.EqualValues(t, 0, fake.searchCalls.Load())

	hits, err = pops.TextSearch(context.Background(), "british", 10)
	require.NoError(t, err)
	require.NotNil(t, hits)
	assert.Len(t, hits.Hits, 3)

	body := fake.lastSearch.Load().(map[string]any)
	assert.Contains(t, body["query"], "multi_match")
	assert.Equal(t, []any{"dataCollections._analysisGroups"}, body["fields"])
}

func TestGet_NotFound(t *testing.T) {
	pops := newTestClient(t, &fakePortal{}).Populations()

	pop, err := pops.Get(context.Background(), "GBR")
	require.NoError(t, err)
	assert.Equal(t, "British", pop.Name)

	_, err = pops.Get(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrNotFound)

	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, "population not found", he.Message)
}

func TestTimeout(t *testing.T) {
	fake := &fakePortal{delay: time.Second}
	pops := newTestClient(t, fake, WithTimeout(20*time.Millisecond)).Populations()

	_, err := pops.Search(context.Background(), 10, 0, nil)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestUserAgent(t *testing.T) {
	fake := &fakePortal{}
	pops := newTestClient(t, fake, WithUserAgent("igsr-ui")).Populations()

	_, err := pops.Search(context.Background(), 10, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "igsr-ui", fake.userAgent.Load())
}

func TestDataCollectionExport(t *testing.T) {
	fake := &fakePortal{}
	pops := newTestClient(t, fake).Populations()

	var buf bytes.Buffer
	name, n, err := pops.SearchDataCollectionPopulationsExport(context.Background(), "1000 Genomes", &buf)
	require.NoError(t, err)

	assert.Equal(t, ExportFilename("1000 Genomes"), name)
	assert.Equal(t, "igsr-1000 genomes-populations.tsv.tsv", fake.lastExport.Load())
	assert.Equal(t, "Population code\nGBR\n", buf.String())
	assert.EqualValues(t, buf.Len(), n)
}

func TestMetricsAndLogging(t *testing.T) {
	reg := prometheus.NewRegistry()
	pops := newTestClient(t, &fakePortal{},
		WithPrometheus(reg),
		WithLogger(zap.NewNop()),
	).Populations()

	_, err := pops.Get(context.Background(), "GBR")
	require.NoError(t, err)
	_, err = pops.Get(context.Background(), "NOPE")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "popdex_sdk_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "ok and error series for population.get")

	count, err = testutil.GatherAndCount(reg, "popdex_backend_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "200 and 404 series for the get route")
}

func TestNew_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(WithPrometheus(reg))
	require.NoError(t, err)
	_, err = New(WithPrometheus(reg))
	assert.NoError(t, err)
}
