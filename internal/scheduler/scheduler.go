package scheduler

import (
	"context"
	"log/slog"
	"time"

	"aircheck/internal/domain"
)

// Syncer defines the interface for catalog sync operations.
type Syncer interface {
	Sync(ctx context.Context) (*domain.SyncStats, error)
}

// Scheduler runs every registered syncer once at start and then on a
// fixed interval until the context is canceled.
type Scheduler struct {
	syncers  []Syncer
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(syncers []Syncer, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncers:  syncers,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "sources", len(s.syncers))

	s.runSyncs(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runSyncs(ctx)
		}
	}
}

func (s *Scheduler) runSyncs(ctx context.Context) {
	for _, syncer := range s.syncers {
		syncCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		if _, err := syncer.Sync(syncCtx); err != nil {
			s.logger.Error("sync failed", "error", err)
		}
		cancel()
	}
}
