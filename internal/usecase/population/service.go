// Package population implements the population queries issued by the portal
// UI: the cached full list, paged and free-text search, single lookups and
// TSV exports.
package population

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/igsr/popdex/internal/domain"
	dompop "github.com/igsr/popdex/internal/domain/population"
	"github.com/igsr/popdex/internal/domain/search"
	"github.com/igsr/popdex/internal/replay"
)

// Hits is a page of population search results.
type Hits = search.Hits[dompop.Population]

// Service runs population queries against the backend.
type Service struct {
	backend      Backend
	descriptions *dompop.DescriptionIndex
	logger       *zap.Logger
	listFields   []string

	listOnce sync.Once
	list     *replay.Subject[Hits]
}

// New creates a population service. descriptions receives the
// elasticId -> description pairs of the full list once it is fetched.
func New(backend Backend, descriptions *dompop.DescriptionIndex, logger *zap.Logger) *Service {
	if descriptions == nil {
		descriptions = dompop.NewDescriptionIndex()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:      backend,
		descriptions: descriptions,
		logger:       logger,
		list:         replay.NewSubject[Hits](),
	}
}

// WithListSourceFields restricts the _source of the cached full list.
// Must be called before the first GetAll.
func (s *Service) WithListSourceFields(fields []string) *Service {
	s.listFields = fields
	return s
}

// Descriptions returns the elasticId -> description index fed by GetAll.
func (s *Service) Descriptions() *dompop.DescriptionIndex {
	return s.descriptions
}

// GetAll returns the full population list sorted by display order.
// The backend is queried at most once per Service; every caller, concurrent
// or later, gets the same result (including a failure). ctx bounds only the
// wait, not the shared request. The returned Hits is shared and must not be modified.
func (s *Service) GetAll(ctx context.Context) (Hits, error) {
	return s.listSource(ctx).Wait(ctx)
}

// WatchAll is the subscription form of GetAll: the channel replays the
// current list and then follows later updates until ctx is done.
func (s *Service) WatchAll(ctx context.Context) <-chan replay.Notification[Hits] {
	return s.listSource(ctx).Subscribe(ctx)
}

func (s *Service) listSource(ctx context.Context) *replay.Subject[Hits] {
	s.listOnce.Do(func() {
		// The fetch outlives the first caller: its result is delivered even
		// if nobody is listening any more.
		go s.fetchList(context.WithoutCancel(ctx))
	})
	return s.list
}

func (s *Service) fetchList(ctx context.Context) {
	req := search.NewRequest(search.Unbounded, 0).
		WithSort(fieldDisplayOrder).
		WithSourceFields(s.listFields...)

	hits, err := s.backend.Search(ctx, req)
	if err != nil {
		s.logger.Warn("population list fetch failed", zap.Error(err))
		s.list.Fail(fmt.Errorf("list populations: %w", err))
		return
	}

	added := s.descriptions.AddAll(hits.Sources())
	s.logger.Info("population list cached",
		zap.Int("populations", len(hits.Hits)),
		zap.Int64("total", hits.Total.Value),
		zap.Int("descriptions_added", added),
	)
	s.list.Publish(hits)
}

// Search returns one page of populations matching q (all when q is nil).
// hitsPerPage may be search.Unbounded.
func (s *Service) Search(ctx context.Context, hitsPerPage, from int, q search.Query) (Hits, error) {
	if hitsPerPage < search.Unbounded {
		return Hits{}, fmt.Errorf("%w: hits per page must be >= -1, got %d", domain.ErrBadRequest, hitsPerPage)
	}
	if from < 0 {
		return Hits{}, fmt.Errorf("%w: offset must be >= 0, got %d", domain.ErrBadRequest, from)
	}

	req := search.NewRequest(hitsPerPage, from).
		WithFields(fieldAnalysisGroups).
		WithQuery(q)

	s.logger.Debug("population search",
		zap.Int("size", hitsPerPage),
		zap.Int("from", from),
		zap.Bool("has_query", req.HasQuery()),
	)

	hits, err := s.backend.Search(ctx, req)
	if err != nil {
		return Hits{}, fmt.Errorf("search populations: %w", err)
	}
	return hits, nil
}

// Get returns the population with the given code.
func (s *Service) Get(ctx context.Context, code string) (dompop.Population, error) {
	if code == "" {
		return dompop.Population{}, fmt.Errorf("%w: population code is required", domain.ErrBadRequest)
	}
	pop, err := s.backend.Get(ctx, code)
	if err != nil {
		return dompop.Population{}, fmt.Errorf("get population: %w", err)
	}
	return pop, nil
}

// TextSearch matches text against names, codes, descriptions and data
// collection titles. Empty text returns (nil, nil) without a backend call.
func (s *Service) TextSearch(ctx context.Context, text string, hitsPerPage int) (*Hits, error) {
	if text == "" {
		return nil, nil
	}
	hits, err := s.Search(ctx, hitsPerPage, 0, search.MultiMatch(text, textSearchFields...))
	if err != nil {
		return nil, err
	}
	return &hits, nil
}

// SearchDataCollectionPopulations returns the populations sampled in dc.
func (s *Service) SearchDataCollectionPopulations(
	ctx context.Context, dc string, offset, hitsPerPage int,
) (Hits, error) {
	return s.Search(ctx, hitsPerPage, offset, dataCollectionFilter(dc))
}

// SearchExport streams a TSV of the populations matching q (all when nil)
// into w. The backend appends ".tsv" to filename.
func (s *Service) SearchExport(
	ctx context.Context, q search.Query, filename string, w io.Writer,
) (int64, error) {
	req := search.NewExportRequest(exportColumns, q)
	n, err := s.backend.Export(ctx, filename, req, w)
	if err != nil {
		return n, fmt.Errorf("export populations: %w", err)
	}
	s.logger.Debug("population export", zap.String("filename", filename), zap.Int64("bytes", n))
	return n, nil
}

// SearchDataCollectionPopulationsExport streams a TSV of the populations
// sampled in dc into w and returns the filename it was requested under.
func (s *Service) SearchDataCollectionPopulationsExport(
	ctx context.Context, dc string, w io.Writer,
) (string, int64, error) {
	filename := ExportFilename(dc)
	n, err := s.SearchExport(ctx, dataCollectionFilter(dc), filename, w)
	return filename, n, err
}

// ExportFilename is the file name a data collection export is requested
// under. Whitespace in dc is kept as-is.
func ExportFilename(dc string) string {
	return "igsr-" + strings.ToLower(dc) + "-populations.tsv"
}

// ListStatus reports whether the cached list is available. It returns the
// fetch error once the fetch has failed, and (false, nil) while it is pending
// or not yet started.
func (s *Service) ListStatus() (bool, error) {
	_, ok, err := s.list.Latest()
	return ok, err
}
