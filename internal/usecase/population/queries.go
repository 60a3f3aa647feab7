package population

import "github.com/igsr/popdex/internal/domain/search"

// Index paths used by the population queries.
const (
	fieldDisplayOrder        = "display_order"
	fieldAnalysisGroups      = "dataCollections._analysisGroups"
	fieldDataCollectionTitle = "dataCollections.title"
)

// textSearchFields are the analyzed ".std" variants matched by free-text search.
var textSearchFields = []string{
	"name.std",
	"code.std",
	"elasticId.std",
	"description.std",
	"dataCollections.title.std",
	"superpopulation.code.std",
	"superpopulation.name.std",
}

// exportColumns is the fixed TSV layout of population exports.
var exportColumns = []search.Column{
	{Field: "code", Name: "Population code"},
	{Field: "elasticId", Name: "Population elastic ID"},
	{Field: "name", Name: "Population name"},
	{Field: "description", Name: "Population description"},
	{Field: "latitude", Name: "Population latitude"},
	{Field: "longitude", Name: "Population longitude"},
	{Field: "superpopulation.code", Name: "Superpopulation code"},
	{Field: "superpopulation.name", Name: "Superpopulation name"},
	{Field: "superpopulation.display_colour", Name: "Superpopulation display colour"},
	{Field: "superpopulation.display_order", Name: "Superpopulation display order"},
	{Field: "dataCollections.title", Name: "Data collections"},
}

// dataCollectionFilter matches populations sampled in dc. It is a
// non-scoring filter, so every match ranks the same.
func dataCollectionFilter(dc string) search.Query {
	return search.ConstantScore(search.Term(fieldDataCollectionTitle, dc))
}
