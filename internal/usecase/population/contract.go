package population

import (
	"context"
	"io"

	dompop "github.com/igsr/popdex/internal/domain/population"
	"github.com/igsr/popdex/internal/domain/search"
)

// Backend is the population search API.
type Backend interface {
	Search(ctx context.Context, req search.Request) (search.Hits[dompop.Population], error)
	Get(ctx context.Context, code string) (dompop.Population, error)
	Export(ctx context.Context, filename string, req search.ExportRequest, w io.Writer) (int64, error)
}
