package query

import "fmt"

// Query is a mapping from field name to condition. All present fields are
// AND-combined; a nil condition is skipped entirely (it does not mean
// "field is null").
type Query map[string]Condition

// ParseQuery compiles a raw field→condition mapping into a Query.
func ParseQuery(raw map[string]any) (Query, error) {
	q := make(Query, len(raw))
	for field, rawCond := range raw {
		if rawCond == nil {
			continue
		}
		c, err := Parse(rawCond)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		q[field] = c
	}
	return q, nil
}

// Match evaluates the query against a record's mapping form.
func (q Query) Match(doc map[string]any) bool {
	for field, cond := range q {
		if cond == nil {
			continue
		}
		if !cond.Match(doc[field]) {
			return false
		}
	}
	return true
}

// Raw returns the serializable field→condition form of the query.
func (q Query) Raw() map[string]any {
	out := make(map[string]any, len(q))
	for field, cond := range q {
		if cond == nil {
			continue
		}
		out[field] = cond.Raw()
	}
	return out
}

// MatchAny reports whether any of the queries matches the document.
// An empty query list matches nothing.
func MatchAny(queries []Query, doc map[string]any) bool {
	for _, q := range queries {
		if q.Match(doc) {
			return true
		}
	}
	return false
}
