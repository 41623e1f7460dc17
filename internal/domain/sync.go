package domain

import "time"

// SyncStats holds statistics about one catalog sync cycle.
type SyncStats struct {
	SourceID  string
	Fetched   int
	Stations  int
	New       int
	Updated   int
	Skipped   int
	Errors    int
	Published int
	Duration  time.Duration
}

// SyncState tracks sync progress per source.
type SyncState struct {
	ID            int64     `db:"id"`
	SourceID      string    `db:"source_id"`
	LastSyncedAt  time.Time `db:"last_synced_at"`
	LastEpisodeID int64     `db:"last_episode_id"`
	TotalSynced   int64     `db:"total_synced"`
}
