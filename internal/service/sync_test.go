package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aircheck/internal/config"
	"aircheck/internal/domain"
	"aircheck/internal/service/mocks"
)

type CatalogServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source    *mocks.MockSource
	programs  *mocks.MockProgramStore
	stations  *mocks.MockStationStore
	syncState *mocks.MockSyncStateStore
	txManager *mocks.MockTransactionManager
	publisher *mocks.MockPublisher

	service *CatalogService
	cfg     config.SyncConfig
	logger  *slog.Logger
}

func (s *CatalogServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.programs = mocks.NewMockProgramStore(s.ctrl)
	s.stations = mocks.NewMockStationStore(s.ctrl)
	s.syncState = mocks.NewMockSyncStateStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.cfg = config.SyncConfig{
		Interval:          15 * time.Minute,
		MaxHistoricalDays: 30,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.source.EXPECT().ID().Return("test-source").AnyTimes()
	s.source.EXPECT().Name().Return("Test Source").AnyTimes()

	s.service = NewCatalogService(
		s.source,
		s.programs,
		s.stations,
		s.syncState,
		s.txManager,
		s.publisher,
		s.logger,
		s.cfg,
	)
}

func (s *CatalogServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestCatalogServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceTestSuite))
}

func (s *CatalogServiceTestSuite) TestSync_NewPrograms() {
	ctx := context.Background()
	now := time.Now()

	programs := []domain.Program{
		{
			ID:        1,
			Name:      "JUNK Mon",
			EpisodeID: 11,
			Datetime:  now,
		},
	}

	s.source.EXPECT().FetchStations(ctx).Return(nil, nil)
	s.source.EXPECT().FetchPrograms(ctx).Return(programs, nil)

	s.programs.EXPECT().GetExistingByEpisodeIDs(ctx, "test-source", []int64{11}).Return(map[int64]time.Time{}, nil)

	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)

	s.programs.EXPECT().Upsert(ctx, "test-source", &programs[0]).Return(int64(100), nil)

	s.publisher.EXPECT().Publish(ctx, "test-source", &programs[0], true).Return(nil)

	s.syncState.EXPECT().Get(ctx, "test-source").Return(&domain.SyncState{SourceID: "test-source"}, nil)
	s.syncState.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, state *domain.SyncState) error {
			s.Equal(int64(11), state.LastEpisodeID)
			s.Equal(int64(1), state.TotalSynced)
			return nil
		},
	)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Fetched)
	s.Equal(1, stats.New)
	s.Equal(0, stats.Updated)
	s.Equal(0, stats.Skipped)
	s.Equal(1, stats.Published)
}

func (s *CatalogServiceTestSuite) TestSync_UpdatedPrograms() {
	ctx := context.Background()
	now := time.Now()
	oldTime := now.Add(-1 * time.Hour)

	programs := []domain.Program{
		{
			ID:        1,
			Name:      "JUNK Mon updated",
			EpisodeID: 11,
			Datetime:  now,
		},
	}

	s.source.EXPECT().FetchStations(ctx).Return(nil, nil)
	s.source.EXPECT().FetchPrograms(ctx).Return(programs, nil)

	s.programs.EXPECT().GetExistingByEpisodeIDs(ctx, "test-source", []int64{11}).Return(
		map[int64]time.Time{11: oldTime}, nil,
	)

	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)

	s.programs.EXPECT().Upsert(ctx, "test-source", &programs[0]).Return(int64(100), nil)

	s.publisher.EXPECT().Publish(ctx, "test-source", &programs[0], false).Return(nil)

	s.syncState.EXPECT().Get(ctx, "test-source").Return(&domain.SyncState{SourceID: "test-source"}, nil)
	s.syncState.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Fetched)
	s.Equal(0, stats.New)
	s.Equal(1, stats.Updated)
	s.Equal(0, stats.Skipped)
}

func (s *CatalogServiceTestSuite) TestSync_SkipsUnchangedPrograms() {
	ctx := context.Background()
	now := time.Now()

	programs := []domain.Program{
		{
			ID:        1,
			Name:      "JUNK Mon",
			EpisodeID: 11,
			Datetime:  now,
		},
	}

	s.source.EXPECT().FetchStations(ctx).Return(nil, nil)
	s.source.EXPECT().FetchPrograms(ctx).Return(programs, nil)

	s.programs.EXPECT().GetExistingByEpisodeIDs(ctx, "test-source", []int64{11}).Return(
		map[int64]time.Time{11: now}, nil,
	)

	s.syncState.EXPECT().Get(ctx, "test-source").Return(&domain.SyncState{SourceID: "test-source"}, nil)
	s.syncState.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Fetched)
	s.Equal(0, stats.New)
	s.Equal(0, stats.Updated)
	s.Equal(1, stats.Skipped)
}

func (s *CatalogServiceTestSuite) TestSync_FiltersOutdatedByDate() {
	ctx := context.Background()
	oldDate := time.Now().AddDate(0, 0, -31)

	programs := []domain.Program{
		{
			ID:        1,
			Name:      "very old broadcast",
			EpisodeID: 11,
			Datetime:  oldDate,
		},
	}

	s.source.EXPECT().FetchStations(ctx).Return(nil, nil)
	s.source.EXPECT().FetchPrograms(ctx).Return(programs, nil)

	s.syncState.EXPECT().Get(ctx, "test-source").Return(&domain.SyncState{SourceID: "test-source"}, nil)
	s.syncState.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(0, stats.Fetched)
	s.Equal(0, stats.New)
}

func (s *CatalogServiceTestSuite) TestSync_UpsertsStations() {
	ctx := context.Background()
	now := time.Now()

	stations := []domain.Station{
		{ID: "TBS", PlatformID: "test-source", Name: "TBS RADIO"},
		{ID: "QRR", PlatformID: "test-source", Name: "BUNKA HOSO"},
	}

	s.source.EXPECT().FetchStations(ctx).Return(stations, nil)
	s.stations.EXPECT().Upsert(ctx, &stations[0]).Return(nil)
	s.stations.EXPECT().Upsert(ctx, &stations[1]).Return(nil)

	s.source.EXPECT().FetchPrograms(ctx).Return([]domain.Program{
		{ID: 1, Name: "JUNK Mon", EpisodeID: 11, Datetime: now},
	}, nil)

	s.programs.EXPECT().GetExistingByEpisodeIDs(ctx, "test-source", []int64{11}).Return(map[int64]time.Time{}, nil)

	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.programs.EXPECT().Upsert(ctx, "test-source", gomock.Any()).Return(int64(100), nil)
	s.publisher.EXPECT().Publish(ctx, "test-source", gomock.Any(), true).Return(nil)

	s.syncState.EXPECT().Get(ctx, "test-source").Return(&domain.SyncState{SourceID: "test-source"}, nil)
	s.syncState.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(2, stats.Stations)
	s.Equal(1, stats.New)
}

func (s *CatalogServiceTestSuite) TestSync_SourceError() {
	ctx := context.Background()

	s.source.EXPECT().FetchStations(ctx).Return(nil, nil)
	s.source.EXPECT().FetchPrograms(ctx).Return(nil, errors.New("api error"))

	stats, err := s.service.Sync(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "fetch programs")
}

func (s *CatalogServiceTestSuite) TestSync_StationError() {
	ctx := context.Background()

	s.source.EXPECT().FetchStations(ctx).Return(nil, errors.New("api error"))

	stats, err := s.service.Sync(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "sync stations")
}

func (s *CatalogServiceTestSuite) TestSync_PublisherNil() {
	ctx := context.Background()
	now := time.Now()

	service := NewCatalogService(
		s.source,
		s.programs,
		s.stations,
		s.syncState,
		s.txManager,
		nil,
		s.logger,
		s.cfg,
	)

	programs := []domain.Program{
		{ID: 1, Name: "JUNK Mon", EpisodeID: 11, Datetime: now},
	}

	s.source.EXPECT().FetchStations(ctx).Return(nil, nil)
	s.source.EXPECT().FetchPrograms(ctx).Return(programs, nil)
	s.programs.EXPECT().GetExistingByEpisodeIDs(ctx, "test-source", []int64{11}).Return(map[int64]time.Time{}, nil)

	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)

	s.programs.EXPECT().Upsert(ctx, "test-source", &programs[0]).Return(int64(100), nil)

	s.syncState.EXPECT().Get(ctx, "test-source").Return(&domain.SyncState{SourceID: "test-source"}, nil)
	s.syncState.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	stats, err := service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.New)
	s.Equal(0, stats.Published)
}
