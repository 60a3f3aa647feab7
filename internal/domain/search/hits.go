// Package search holds the wire shapes of the portal search API.
package search

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Hit is one search result as returned by the backend.
type Hit[T any] struct {
	Index  string         `json:"_index,omitempty"`
	ID     string         `json:"_id,omitempty"`
	Score  *float64       `json:"_score,omitempty"`
	Source T              `json:"_source"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Hits is a page of results in backend order.
type Hits[T any] struct {
	Hits     []Hit[T] `json:"hits"`
	Total    Total    `json:"total"`
	MaxScore *float64 `json:"max_score,omitempty"`
}

// Sources returns the _source documents in order.
func (h *Hits[T]) Sources() []T {
	out := make([]T, len(h.Hits))
	for i := range h.Hits {
		out[i] = h.Hits[i].Source
	}
	return out
}

// Total is the number of matching documents. Older index versions report a
// bare number, newer ones an object with a relation.
type Total struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation,omitempty"`
}

// UnmarshalJSON accepts both 42 and {"value": 42, "relation": "eq"}.
func (t *Total) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		type plain Total
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("total: %w", err)
		}
		*t = Total(p)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("total: %w", err)
	}
	*t = Total{Value: n, Relation: "eq"}
	return nil
}

// Envelope is the search response wrapper: {"hits": {...}}.
type Envelope[T any] struct {
	Took     int      `json:"took,omitempty"`
	TimedOut bool     `json:"timed_out,omitempty"`
	Hits     *Hits[T] `json:"hits"`
}

// Document is the direct-lookup response wrapper: {"_source": {...}}.
type Document[T any] struct {
	Index  string `json:"_index,omitempty"`
	ID     string `json:"_id,omitempty"`
	Found  *bool  `json:"found,omitempty"`
	Source *T     `json:"_source"`
}
