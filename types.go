package popdex

import (
	dompop "github.com/igsr/popdex/internal/domain/population"
	"github.com/igsr/popdex/internal/domain/search"
	"github.com/igsr/popdex/internal/replay"
)

// Population is one population record of the portal index.
type Population = dompop.Population

// Superpopulation groups populations by continental ancestry.
type Superpopulation = dompop.Superpopulation

// DataCollection is a data collection a population was sampled in.
type DataCollection = dompop.DataCollection

// Coordinate is a latitude or longitude.
type Coordinate = dompop.Coordinate

// Hit is one population search result.
type Hit = search.Hit[dompop.Population]

// Hits is a page of population search results in backend order.
type Hits = search.Hits[dompop.Population]

// Total is the backend hit count.
type Total = search.Total

// Notification is one delivery of the watched population list.
type Notification = replay.Notification[Hits]

// Query is a backend query clause. A nil Query matches everything.
type Query = search.Query

// Unbounded as a page size returns every matching population.
const Unbounded = search.Unbounded

// MultiMatch matches text against several analyzed fields.
func MultiMatch(text string, fields ...string) Query {
	return search.MultiMatch(text, fields...)
}

// Term matches an exact value of field.
func Term(field string, value any) Query {
	return search.Term(field, value)
}

// ConstantScore wraps filter in a non-scoring query.
func ConstantScore(filter Query) Query {
	return search.ConstantScore(filter)
}
