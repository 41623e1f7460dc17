package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"aircheck/internal/cache"
	"aircheck/internal/config"
	"aircheck/internal/domain"
	"aircheck/internal/publisher"
	"aircheck/internal/scheduler"
	"aircheck/internal/service"
	"aircheck/internal/source/hibiki"
	"aircheck/internal/storage"
	"aircheck/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Optional catalog cache, invalidated after every sync that writes
	var catalogCache *cache.Redis
	if cfg.Redis.URL != "" {
		catalogCache, err = cache.New(cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to configure redis", "error", err)
			os.Exit(1)
		}
		defer catalogCache.Close()

		if err := catalogCache.Ping(context.Background()); err != nil {
			logger.Error("failed to ping redis", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to redis")
	}

	// Initialize stores
	programStore := postgres.NewProgramStore(db)
	stationStore := postgres.NewStationStore(db)
	syncStateStore := postgres.NewSyncStateStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Initialize enabled sources
	var syncers []scheduler.Syncer
	if cfg.Sources.Hibiki.Enabled {
		src := hibiki.New(hibiki.Config{
			BaseURL:        cfg.Sources.Hibiki.BaseURL,
			Timeout:        cfg.Sources.Hibiki.Timeout,
			MaxAttempts:    cfg.Sources.Hibiki.Retry.MaxAttempts,
			InitialBackoff: cfg.Sources.Hibiki.Retry.InitialBackoff,
			MaxBackoff:     cfg.Sources.Hibiki.Retry.MaxBackoff,
		}, logger)

		svc := service.NewCatalogService(
			src,
			programStore,
			stationStore,
			syncStateStore,
			txManager,
			rabbitMQ,
			logger,
			cfg.Sync,
		)
		syncers = append(syncers, withCacheInvalidation(svc, catalogCache, logger))
	}

	if len(syncers) == 0 {
		logger.Error("no sources enabled")
		os.Exit(1)
	}

	sched := scheduler.NewScheduler(syncers, cfg.Sync.Interval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting catalog syncer",
		"sources", len(syncers),
		"interval", cfg.Sync.Interval,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

type invalidatingSyncer struct {
	inner  scheduler.Syncer
	cache  *cache.Redis
	logger *slog.Logger
}

func withCacheInvalidation(inner scheduler.Syncer, c *cache.Redis, logger *slog.Logger) scheduler.Syncer {
	if c == nil {
		return inner
	}
	return &invalidatingSyncer{inner: inner, cache: c, logger: logger}
}

func (s *invalidatingSyncer) Sync(ctx context.Context) (*domain.SyncStats, error) {
	stats, err := s.inner.Sync(ctx)
	if err == nil && stats != nil && stats.New+stats.Updated > 0 {
		storage.InvalidateCatalog(ctx, s.cache, s.logger)
	}
	return stats, err
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
