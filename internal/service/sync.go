package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aircheck/internal/config"
	"aircheck/internal/domain"
)

// CatalogService runs one source adapter's sync cycle: fetch stations and
// programs, drop records outside the historical window, split new from
// updated, store and publish the rest.
type CatalogService struct {
	source    Source
	programs  ProgramStore
	stations  StationStore
	syncState SyncStateStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	config    config.SyncConfig
}

func NewCatalogService(
	source Source,
	programs ProgramStore,
	stations StationStore,
	syncState SyncStateStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *CatalogService {
	return &CatalogService{
		source:    source,
		programs:  programs,
		stations:  stations,
		syncState: syncState,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("source", source.ID()),
		config:    cfg,
	}
}

func (s *CatalogService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	startTime := time.Now()
	s.logger.Info("starting sync",
		"source_name", s.source.Name(),
		"max_historical_days", s.config.MaxHistoricalDays,
	)

	stats := &domain.SyncStats{SourceID: s.source.ID()}

	if err := s.syncStations(ctx, stats); err != nil {
		return nil, fmt.Errorf("sync stations: %w", err)
	}

	programs, err := s.source.FetchPrograms(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch programs: %w", err)
	}

	s.logger.Info("fetched programs from source", "count", len(programs))

	cutoff := time.Now().AddDate(0, 0, -s.config.MaxHistoricalDays)
	programs = s.filterByDate(programs, cutoff)
	s.logger.Debug("filtered by broadcast date", "remaining", len(programs))

	toSync, isNew, err := s.filterForSync(ctx, programs)
	if err != nil {
		return nil, fmt.Errorf("filter for sync: %w", err)
	}

	s.logger.Info("programs to sync", "count", len(toSync))

	stats.Fetched = len(programs)
	stats.Skipped = len(programs) - len(toSync)

	for i := range toSync {
		program := &toSync[i]
		if err := s.saveProgram(ctx, program); err != nil {
			stats.Errors++
			continue
		}

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, s.source.ID(), program, isNew[program.EpisodeID]); err != nil {
				stats.Errors++
			} else {
				stats.Published++
			}
		}

		if isNew[program.EpisodeID] {
			stats.New++
		} else {
			stats.Updated++
		}
	}

	if err := s.updateSyncState(ctx, toSync, stats); err != nil {
		return stats, fmt.Errorf("update sync state: %w", err)
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("sync completed",
		"stations", stats.Stations,
		"new", stats.New,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *CatalogService) syncStations(ctx context.Context, stats *domain.SyncStats) error {
	stationList, err := s.source.FetchStations(ctx)
	if err != nil {
		return err
	}
	for i := range stationList {
		if err := s.stations.Upsert(ctx, &stationList[i]); err != nil {
			return fmt.Errorf("upsert station %s: %w", stationList[i].ID, err)
		}
		stats.Stations++
	}
	return nil
}

func (s *CatalogService) filterByDate(programs []domain.Program, cutoff time.Time) []domain.Program {
	var filtered []domain.Program
	for _, p := range programs {
		if p.Datetime.After(cutoff) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// filterForSync keeps programs that are new or whose broadcast timestamp
// advanced past the stored one, and reports which are new by episode id.
func (s *CatalogService) filterForSync(ctx context.Context, programs []domain.Program) ([]domain.Program, map[int64]bool, error) {
	if len(programs) == 0 {
		return nil, nil, nil
	}

	episodeIDs := make([]int64, len(programs))
	for i, p := range programs {
		episodeIDs[i] = p.EpisodeID
	}

	existing, err := s.programs.GetExistingByEpisodeIDs(ctx, s.source.ID(), episodeIDs)
	if err != nil {
		return nil, nil, err
	}

	var toSync []domain.Program
	isNew := make(map[int64]bool)
	for _, program := range programs {
		storedAt, exists := existing[program.EpisodeID]

		if !exists {
			toSync = append(toSync, program)
			isNew[program.EpisodeID] = true
		} else if program.Datetime.After(storedAt) {
			toSync = append(toSync, program)
		}
	}

	return toSync, isNew, nil
}

func (s *CatalogService) saveProgram(ctx context.Context, program *domain.Program) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.programs.Upsert(txCtx, s.source.ID(), program); err != nil {
			return fmt.Errorf("upsert program: %w", err)
		}
		return nil
	})
}

func (s *CatalogService) updateSyncState(ctx context.Context, synced []domain.Program, stats *domain.SyncStats) error {
	state, err := s.syncState.Get(ctx, s.source.ID())
	if err != nil {
		return err
	}

	state.SourceID = s.source.ID()
	state.LastSyncedAt = time.Now()
	state.TotalSynced += int64(stats.New + stats.Updated)
	for _, p := range synced {
		if p.EpisodeID > state.LastEpisodeID {
			state.LastEpisodeID = p.EpisodeID
		}
	}

	return s.syncState.Update(ctx, state)
}
