package search

// Query is a backend query clause, serialized verbatim under "query".
type Query map[string]any

// MultiMatch matches text against several fields.
func MultiMatch(text string, fields ...string) Query {
	return Query{
		"multi_match": map[string]any{
			"query":  text,
			"fields": fields,
		},
	}
}

// Term matches an exact, unanalyzed value.
func Term(field string, value any) Query {
	return Query{
		"term": map[string]any{field: value},
	}
}

// ConstantScore wraps filter so that every match scores the same and
// relevance ranking is skipped.
func ConstantScore(filter Query) Query {
	return Query{
		"constant_score": map[string]any{
			"filter": filter,
		},
	}
}
