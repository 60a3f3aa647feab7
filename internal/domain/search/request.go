package search

// Unbounded is the page size the backend reads as "return everything".
const Unbounded = -1

// Request is the body of POST /_search. Query is held as an interface so that
// omitempty drops it only when no query was attached; the backend reads a
// missing key as match-all.
type Request struct {
	From   int      `json:"from"`
	Size   int      `json:"size"`
	Source any      `json:"_source"`
	Fields []string `json:"fields,omitempty"`
	Sort   []string `json:"sort,omitempty"`
	Query  any      `json:"query,omitempty"`
}

// NewRequest creates a paged request that returns full source documents.
func NewRequest(size, from int) Request {
	return Request{From: from, Size: size, Source: true}
}

// HasQuery reports whether a query was attached.
func (r Request) HasQuery() bool { return r.Query != nil }

// WithQuery attaches q. A nil q is ignored.
func (r Request) WithQuery(q Query) Request {
	if q != nil {
		r.Query = q
	}
	return r
}

// WithFields sets the stored-field projection.
func (r Request) WithFields(fields ...string) Request {
	r.Fields = fields
	return r
}

// WithSort sets the sort keys, ascending.
func (r Request) WithSort(keys ...string) Request {
	r.Sort = keys
	return r
}

// WithSourceFields restricts _source to the given paths. An empty list keeps
// full documents.
func (r Request) WithSourceFields(paths ...string) Request {
	if len(paths) > 0 {
		r.Source = paths
	}
	return r
}

// ExportRequest is the JSON payload submitted to the TSV export endpoint.
type ExportRequest struct {
	Fields      []string `json:"fields"`
	ColumnNames []string `json:"column_names"`
	Query       any      `json:"query,omitempty"`
}

// Column pairs an index path with its TSV header.
type Column struct {
	Field string
	Name  string
}

// NewExportRequest creates an export payload for cols, optionally filtered by q.
func NewExportRequest(cols []Column, q Query) ExportRequest {
	req := ExportRequest{
		Fields:      make([]string, len(cols)),
		ColumnNames: make([]string, len(cols)),
	}
	for i, c := range cols {
		req.Fields[i] = c.Field
		req.ColumnNames[i] = c.Name
	}
	if q != nil {
		req.Query = q
	}
	return req
}
