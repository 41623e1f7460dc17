package domain

import (
	"slices"
	"time"
)

// Program represents one broadcast episode in the canonical schema shared
// by every source adapter.
type Program struct {
	ID          int64
	StationID   *string // nil when the source has no multi-station concept
	Name        string
	URL         string
	Description string
	Information string
	Performers  []string
	Copyright   string
	EpisodeID   int64
	EpisodeName string
	Datetime    time.Time
	Duration    *int // seconds
	ASCIIName   *string
	Guests      []string
	ImageURL    *string
	IsVideo     bool

	// RawData is the source payload kept only for media retrieval.
	// It is excluded from query matching and from Equal.
	RawData map[string]any
}

// Equal reports whether two programs are the same record, ignoring RawData.
func (p Program) Equal(o Program) bool {
	return p.ID == o.ID &&
		ptrEqual(p.StationID, o.StationID) &&
		p.Name == o.Name &&
		p.URL == o.URL &&
		p.Description == o.Description &&
		p.Information == o.Information &&
		slices.Equal(p.Performers, o.Performers) &&
		p.Copyright == o.Copyright &&
		p.EpisodeID == o.EpisodeID &&
		p.EpisodeName == o.EpisodeName &&
		p.Datetime.Equal(o.Datetime) &&
		ptrEqual(p.Duration, o.Duration) &&
		ptrEqual(p.ASCIIName, o.ASCIIName) &&
		slices.Equal(p.Guests, o.Guests) &&
		ptrEqual(p.ImageURL, o.ImageURL) &&
		p.IsVideo == o.IsVideo
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
