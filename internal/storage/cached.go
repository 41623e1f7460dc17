// Package storage provides catalog read decorators shared by the daemon
// and the operator tooling.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aircheck/internal/cache"
	"aircheck/internal/domain"
)

// CatalogLister is the catalog read surface of the program store.
type CatalogLister interface {
	ListBySource(ctx context.Context, sourceID string) ([]domain.Program, error)
}

// CachedCatalog serves catalog lists from Redis with a TTL, falling back
// to the wrapped store on a miss. Writers call InvalidateCatalog after an
// upsert cycle.
type CachedCatalog struct {
	inner  CatalogLister
	cache  *cache.Redis
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedCatalog(inner CatalogLister, c *cache.Redis, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	return &CachedCatalog{inner: inner, cache: c, ttl: ttl, logger: logger}
}

func (c *CachedCatalog) ListBySource(ctx context.Context, sourceID string) ([]domain.Program, error) {
	key := catalogKey(sourceID)
	if v, err := cache.Get[[]domain.Program](ctx, c.cache, key); err == nil {
		return v, nil
	}
	programs, err := c.inner.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, programs, c.ttl); err != nil {
		c.logger.Warn("catalog cache set failed", "key", key, "error", err)
	}
	return programs, nil
}

// InvalidateCatalog drops every cached catalog list. Sync cycles call it
// after writing so readers never wait out the TTL on stale lists.
func InvalidateCatalog(ctx context.Context, c *cache.Redis, logger *slog.Logger) {
	if err := cache.DelPattern(ctx, c, "catalog:*"); err != nil {
		logger.Warn("catalog cache invalidation failed", "error", err)
	}
}

func catalogKey(sourceID string) string {
	if sourceID == "" {
		return "catalog:all"
	}
	return fmt.Sprintf("catalog:%s", sourceID)
}
