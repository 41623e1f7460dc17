package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"aircheck/internal/domain"
)

type ProgramStore interface {
	Upsert(ctx context.Context, sourceID string, program *domain.Program) (int64, error)
	GetExistingByEpisodeIDs(ctx context.Context, sourceID string, ids []int64) (map[int64]time.Time, error)
}

type StationStore interface {
	Upsert(ctx context.Context, station *domain.Station) error
}

type SyncStateStore interface {
	Get(ctx context.Context, sourceID string) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

// Source is a platform adapter producing normalized catalog records.
type Source interface {
	ID() string
	Name() string
	FetchPrograms(ctx context.Context) ([]domain.Program, error)
	FetchStations(ctx context.Context) ([]domain.Station, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, sourceID string, program *domain.Program, isNew bool) error
	Close() error
}
