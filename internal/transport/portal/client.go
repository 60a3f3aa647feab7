// Package portal talks to the data portal population API.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/igsr/popdex/internal/domain"
	"github.com/igsr/popdex/internal/domain/population"
	"github.com/igsr/popdex/internal/domain/search"
	"github.com/igsr/popdex/internal/transport/httpclient"
)

// Endpoint layout of the population index.
const (
	populationPath = "api/beta/population"
	searchSegment  = "_search"
	exportSuffix   = ".tsv"

	// ExportField is the form field carrying the JSON export payload.
	ExportField = "json"
)

// Client is the population API client. Timeouts, error classification and
// metrics come from the Doer chain it is built with.
type Client struct {
	base      *url.URL
	doer      httpclient.Doer
	userAgent string
}

// Config holds the client settings.
type Config struct {
	BaseURL   string
	Doer      httpclient.Doer
	UserAgent string
}

// New creates a portal client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	doer := cfg.Doer
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{base: base, doer: doer, userAgent: cfg.UserAgent}, nil
}

// Search runs POST /api/beta/population/_search and unwraps {"hits": ...}.
func (c *Client) Search(
	ctx context.Context, req search.Request,
) (search.Hits[population.Population], error) {
	body, err := json.Marshal(req)
	if err != nil {
		return search.Hits[population.Population]{}, fmt.Errorf("encode search request: %w", err)
	}

	u := c.base.JoinPath(populationPath, searchSegment)
	httpReq, err := c.newRequest(ctx, "search", http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return search.Hits[population.Population]{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	var env search.Envelope[population.Population]
	if err := c.doJSON(httpReq, &env); err != nil {
		return search.Hits[population.Population]{}, fmt.Errorf("search: %w", err)
	}
	if env.Hits == nil {
		return search.Hits[population.Population]{}, fmt.Errorf("search: missing hits: %w", domain.ErrMalformedResponse)
	}
	return *env.Hits, nil
}

// Get runs GET /api/beta/population/{code} and unwraps {"_source": ...}.
func (c *Client) Get(ctx context.Context, code string) (population.Population, error) {
	u, err := c.endpoint(code, populationPath)
	if err != nil {
		return population.Population{}, fmt.Errorf("get %q: %w", code, err)
	}
	httpReq, err := c.newRequest(ctx, "get", http.MethodGet, u, http.NoBody)
	if err != nil {
		return population.Population{}, err
	}
	httpReq.Header.Set("Accept", "application/json")

	var doc search.Document[population.Population]
	if err := c.doJSON(httpReq, &doc); err != nil {
		return population.Population{}, fmt.Errorf("get %q: %w", code, err)
	}
	if doc.Found != nil && !*doc.Found {
		return population.Population{}, fmt.Errorf("get %q: %w", code, domain.ErrNotFound)
	}
	if doc.Source == nil {
		return population.Population{}, fmt.Errorf("get %q: missing _source: %w", code, domain.ErrMalformedResponse)
	}
	return *doc.Source, nil
}

// Export submits the export form to /api/beta/population/_search/{filename}.tsv
// and copies the returned TSV into w. Returns the number of bytes written.
func (c *Client) Export(
	ctx context.Context, filename string, req search.ExportRequest, w io.Writer,
) (int64, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode export request: %w", err)
	}
	form := url.Values{ExportField: {string(payload)}}

	u, err := c.endpoint(filename+exportSuffix, populationPath, searchSegment)
	if err != nil {
		return 0, fmt.Errorf("export %q: %w", filename, err)
	}
	httpReq, err := c.newRequest(ctx, "export", http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "text/tab-separated-values, text/plain;q=0.9, */*;q=0.1")

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("export %q: %w", filename, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("export %q: copy body: %w", filename, err)
	}
	return n, nil
}

// endpoint joins prefix and segment under the base URL. segment is escaped
// as one path element; empty and dot segments are rejected.
func (c *Client) endpoint(segment string, prefix ...string) (*url.URL, error) {
	switch segment {
	case "", ".", "..":
		return nil, fmt.Errorf("%w: invalid path segment %q", domain.ErrBadRequest, segment)
	}
	return c.base.JoinPath(append(prefix, url.PathEscape(segment))...), nil
}

func (c *Client) newRequest(
	ctx context.Context, route, method string, u *url.URL, body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(httpclient.WithRoute(ctx, route), method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", route, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) doJSON(req *http.Request, dst any) error {
	resp, err := c.doer.Do(req)
	if err != nil {
		return err //nolint:wrapcheck // decorators already classified and annotated it
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			return err //nolint:wrapcheck // keep timeout classification
		}
		return fmt.Errorf("decode response: %w: %w", domain.ErrMalformedResponse, err)
	}
	return nil
}
