// Package search evaluates declarative queries against the normalized
// program catalog.
package search

import (
	"time"

	"aircheck/internal/domain"
	"aircheck/internal/query"
)

// IsDownloadable reports whether the program's broadcast window has fully
// elapsed, i.e. time-shifted retrieval can start.
func IsDownloadable(p domain.Program) bool {
	return IsDownloadableAt(p, time.Now())
}

// IsDownloadableAt is IsDownloadable with an injected clock. It is true
// iff the broadcast time is set and now is strictly after broadcast time
// plus duration (zero when absent).
func IsDownloadableAt(p domain.Program, now time.Time) bool {
	if p.Datetime.IsZero() {
		return false
	}
	end := p.Datetime
	if p.Duration != nil {
		end = end.Add(time.Duration(*p.Duration) * time.Second)
	}
	return now.After(end)
}

// Search filters programs with an OR-combined query list, keeping the
// original relative order. With downloadableOnly set, programs whose
// broadcast window has not elapsed are dropped first, independent of the
// queries.
func Search(programs []domain.Program, queries ProgramQueryList, downloadableOnly bool) []domain.Program {
	return SearchAt(programs, queries, downloadableOnly, time.Now())
}

// SearchAt is Search with an injected clock.
func SearchAt(programs []domain.Program, queries ProgramQueryList, downloadableOnly bool, now time.Time) []domain.Program {
	compiled := make([]query.Query, len(queries))
	for i, q := range queries {
		compiled[i] = q.Compile()
	}

	var out []domain.Program
	for _, p := range programs {
		if downloadableOnly && !IsDownloadableAt(p, now) {
			continue
		}
		if query.MatchAny(compiled, p.QueryMapping()) {
			out = append(out, p)
		}
	}
	return out
}
