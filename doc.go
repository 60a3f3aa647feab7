// Package popdex provides a Go client for the IGSR data portal population
// search API.
//
// The client issues search, lookup and TSV export requests against the
// portal's population index. The full population list is fetched once per
// Client and shared by every caller; while it is fetched, an
// elasticId -> description table is built for the UI.
//
//	client, _ := popdex.New(
//	    popdex.WithBaseURL("https://www.internationalgenome.org"),
//	    popdex.WithTimeout(10*time.Second),
//	)
//	pops := client.Populations()
//
//	all, _ := pops.GetAll(ctx)
//	hits, _ := pops.TextSearch(ctx, "british", 10)
//	gbr, _ := pops.Get(ctx, "GBR")
//
//	f, _ := os.Create("populations.tsv")
//	_, _ = pops.SearchExport(ctx, popdex.Term("code", "GBR"), "populations", f)
//
// Errors are classified into the sentinels of this package; use errors.Is.
package popdex
