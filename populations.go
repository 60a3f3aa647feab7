package popdex

import (
	"context"
	"io"
	"time"

	dompop "github.com/igsr/popdex/internal/domain/population"
	"github.com/igsr/popdex/internal/domain/search"
	"github.com/igsr/popdex/internal/replay"
)

// populationUseCase is the subset of the population use case the SDK calls.
type populationUseCase interface {
	GetAll(ctx context.Context) (Hits, error)
	WatchAll(ctx context.Context) <-chan replay.Notification[Hits]
	Search(ctx context.Context, hitsPerPage, from int, q search.Query) (Hits, error)
	Get(ctx context.Context, code string) (dompop.Population, error)
	TextSearch(ctx context.Context, text string, hitsPerPage int) (*Hits, error)
	SearchDataCollectionPopulations(ctx context.Context, dc string, offset, hitsPerPage int) (Hits, error)
	SearchExport(ctx context.Context, q search.Query, filename string, w io.Writer) (int64, error)
	SearchDataCollectionPopulationsExport(ctx context.Context, dc string, w io.Writer) (string, int64, error)
	Descriptions() *dompop.DescriptionIndex
	ListStatus() (bool, error)
}

// PopulationService queries the population index.
type PopulationService struct {
	svc populationUseCase
	obs *observer
}

// GetAll returns every population sorted by display order. The list is
// fetched once per Client; later and concurrent calls share that result,
// including a failure. ctx bounds only this caller's wait. The returned
// value is shared and must not be modified.
func (s *PopulationService) GetAll(ctx context.Context) (_ Hits, err error) {
	start := time.Now()
	defer func() { s.obs.observe("population.get_all", start, err) }()

	return s.svc.GetAll(ctx)
}

// WatchAll delivers the population list as soon as it is available, and
// immediately when it already is. The channel closes on failure or when ctx
// is done.
func (s *PopulationService) WatchAll(ctx context.Context) <-chan Notification {
	return s.svc.WatchAll(ctx)
}

// Search returns one page of populations matching q. A nil q matches all;
// hitsPerPage may be Unbounded.
func (s *PopulationService) Search(
	ctx context.Context, hitsPerPage, from int, q Query,
) (_ Hits, err error) {
	start := time.Now()
	defer func() { s.obs.observe("population.search", start, err) }()

	return s.svc.Search(ctx, hitsPerPage, from, q)
}

// Get returns the population with the given code.
func (s *PopulationService) Get(ctx context.Context, code string) (_ Population, err error) {
	start := time.Now()
	defer func() { s.obs.observe("population.get", start, err) }()

	return s.svc.Get(ctx, code)
}

// TextSearch runs a free-text search over names, codes, descriptions and
// data collection titles. Empty text yields (nil, nil) without a request.
func (s *PopulationService) TextSearch(
	ctx context.Context, text string, hitsPerPage int,
) (_ *Hits, err error) {
	start := time.Now()
	defer func() { s.obs.observe("population.text_search", start, err) }()

	return s.svc.TextSearch(ctx, text, hitsPerPage)
}

// SearchDataCollectionPopulations returns the populations sampled in the
// data collection titled dc.
func (s *PopulationService) SearchDataCollectionPopulations(
	ctx context.Context, dc string, offset, hitsPerPage int,
) (_ Hits, err error) {
	start := time.Now()
	defer func() { s.obs.observe("population.data_collection_search", start, err) }()

	return s.svc.SearchDataCollectionPopulations(ctx, dc, offset, hitsPerPage)
}

// SearchExport writes a TSV of the populations matching q into w and
// returns the number of bytes written.
func (s *PopulationService) SearchExport(
	ctx context.Context, q Query, filename string, w io.Writer,
) (_ int64, err error) {
	start := time.Now()
	defer func() { s.obs.observe("population.export", start, err) }()

	return s.svc.SearchExport(ctx, q, filename, w)
}

// SearchDataCollectionPopulationsExport writes a TSV of the populations
// sampled in dc into w. It returns the export filename and byte count.
func (s *PopulationService) SearchDataCollectionPopulationsExport(
	ctx context.Context, dc string, w io.Writer,
) (_ string, _ int64, err error) {
	start := time.Now()
	defer func() { s.obs.observe("population.data_collection_export", start, err) }()

	return s.svc.SearchDataCollectionPopulationsExport(ctx, dc, w)
}

// Description returns the description of the population with the given
// elasticId. Entries appear once GetAll has completed.
func (s *PopulationService) Description(elasticID string) (string, bool) {
	return s.svc.Descriptions().Lookup(elasticID)
}

// Descriptions returns a copy of the elasticId -> description table.
func (s *PopulationService) Descriptions() map[string]string {
	return s.svc.Descriptions().Snapshot()
}

// ListStatus reports whether the population list has been fetched. It
// returns the fetch error if the fetch failed.
func (s *PopulationService) ListStatus() (bool, error) {
	return s.svc.ListStatus()
}
