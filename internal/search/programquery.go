package search

import (
	"encoding/json"
	"fmt"
	"os"

	"aircheck/internal/query"
	"aircheck/internal/timeparse"
)

// ProgramQuery holds one condition per queryable program field. Nil fields
// are omitted from evaluation; set fields are AND-combined. The external
// key of a field carries a "program_" prefix where the record key would
// clash with other entities (program_id vs station id and so on).
type ProgramQuery struct {
	StationID   query.Condition
	ProgramID   query.Condition
	ProgramName query.Condition
	ProgramURL  query.Condition
	Description query.Condition
	Information query.Condition
	Performers  query.Condition
	EpisodeID   query.Condition
	EpisodeName query.Condition
	Datetime    query.Condition
	Duration    query.Condition
	ASCIIName   query.Condition
	Guests      query.Condition
	IsVideo     query.Condition
}

// queryField ties an external mapping key to the record key it matches.
type queryField struct {
	key       string // external key in the serialized query form
	recordKey string // key in the program's mapping form
	cond      *query.Condition
}

func (q *ProgramQuery) fields() []queryField {
	return []queryField{
		{"station_id", "station_id", &q.StationID},
		{"program_id", "id", &q.ProgramID},
		{"program_name", "name", &q.ProgramName},
		{"program_url", "url", &q.ProgramURL},
		{"description", "description", &q.Description},
		{"information", "information", &q.Information},
		{"performers", "performers", &q.Performers},
		{"episode_id", "episode_id", &q.EpisodeID},
		{"episode_name", "episode_name", &q.EpisodeName},
		{"datetime", "datetime", &q.Datetime},
		{"duration", "duration", &q.Duration},
		{"ascii_name", "ascii_name", &q.ASCIIName},
		{"guests", "guests", &q.Guests},
		{"is_video", "is_video", &q.IsVideo},
	}
}

// Compile resolves the set fields into an executable field→condition query.
func (q ProgramQuery) Compile() query.Query {
	out := make(query.Query)
	for _, f := range q.fields() {
		if *f.cond != nil {
			out[f.recordKey] = *f.cond
		}
	}
	return out
}

// ToMapping returns the serializable form of the query, keyed by the
// external field names. Unset fields are omitted.
func (q ProgramQuery) ToMapping() map[string]any {
	out := make(map[string]any)
	for _, f := range q.fields() {
		if *f.cond != nil {
			out[f.key] = (*f.cond).Raw()
		}
	}
	return out
}

// ToQuery returns the query as a single serializable condition document,
// AND-combining the per-field conditions on their record keys.
func (q ProgramQuery) ToQuery() map[string]any {
	var clauses []any
	for _, f := range q.fields() {
		if *f.cond != nil {
			clauses = append(clauses, map[string]any{f.recordKey: (*f.cond).Raw()})
		}
	}
	return map[string]any{"$and": clauses}
}

// ProgramQueryFromMapping parses the serialized form back into a query.
// Unknown keys are rejected so a typo in a saved search fails on load.
func ProgramQueryFromMapping(data map[string]any) (ProgramQuery, error) {
	var q ProgramQuery
	byKey := make(map[string]*query.Condition)
	for _, f := range q.fields() {
		byKey[f.key] = f.cond
	}
	for key, raw := range data {
		slot, ok := byKey[key]
		if !ok {
			return ProgramQuery{}, fmt.Errorf("%w: unknown query field %q", query.ErrInvalidShape, key)
		}
		if raw == nil {
			continue
		}
		if key == "datetime" {
			raw = reviveDatetimes(raw)
		}
		c, err := query.Parse(raw)
		if err != nil {
			return ProgramQuery{}, fmt.Errorf("query field %s: %w", key, err)
		}
		*slot = c
	}
	return q, nil
}

// reviveDatetimes converts canonical datetime strings inside a raw
// condition back into time values so they order correctly against the
// record's native timestamps.
func reviveDatetimes(raw any) any {
	switch v := raw.(type) {
	case string:
		if t, err := timeparse.Normalize(v); err == nil {
			return t
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for op, operand := range v {
			if op == "$regex" {
				out[op] = operand
				continue
			}
			out[op] = reviveDatetimes(operand)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = reviveDatetimes(e)
		}
		return out
	default:
		return raw
	}
}

// ProgramQueryList is an ordered set of queries combined with logical OR.
type ProgramQueryList []ProgramQuery

// ToQuery returns the list as a single serializable condition document.
func (l ProgramQueryList) ToQuery() map[string]any {
	queries := make([]any, len(l))
	for i, q := range l {
		queries[i] = q.ToQuery()
	}
	return map[string]any{"$or": queries}
}

// Save writes the query list to path as indented JSON, the persisted
// "saved search" form.
func (l ProgramQueryList) Save(path string) error {
	mappings := make([]map[string]any, len(l))
	for i, q := range l {
		mappings[i] = q.ToMapping()
	}
	data, err := json.MarshalIndent(mappings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queries: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write queries: %w", err)
	}
	return nil
}

// LoadQueries reads a saved query list from path.
func LoadQueries(path string) (ProgramQueryList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}
	var mappings []map[string]any
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("parse queries: %w", err)
	}
	list := make(ProgramQueryList, 0, len(mappings))
	for i, m := range mappings {
		q, err := ProgramQueryFromMapping(m)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		list = append(list, q)
	}
	return list, nil
}
