// Package cache provides a redis-backed, TTL-bound cache for tenant
// configuration. Configuration changes are rare and eventually
// consistent reads are acceptable, so a short TTL is all the
// invalidation this needs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atelierhq/atelier/internal/domain"
)

const configKeyPrefix = "agency_config:"

// ConfigCache caches AgencyConfig documents per tenant. Cache errors
// are logged and treated as misses; the caller always has the store as
// the source of truth.
type ConfigCache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewConfigCache creates a cache with the given TTL.
func NewConfigCache(client *redis.Client, logger *slog.Logger, ttl time.Duration) *ConfigCache {
	return &ConfigCache{
		client: client,
		logger: logger.With("component", "config_cache"),
		ttl:    ttl,
	}
}

// Get returns the cached config for a tenant, or ok=false on a miss.
func (c *ConfigCache) Get(ctx context.Context, tenantID string) (*domain.AgencyConfig, bool) {
	raw, err := c.client.Get(ctx, configKeyPrefix+tenantID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("config cache read failed, falling back to store", "error", err, "tenant_id", tenantID)
		}
		return nil, false
	}
	var cfg domain.AgencyConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		c.logger.Warn("config cache entry corrupt, discarding", "error", err, "tenant_id", tenantID)
		return nil, false
	}
	return &cfg, true
}

// Set stores the config for a tenant. Failures are logged only; the
// cache is best-effort.
func (c *ConfigCache) Set(ctx context.Context, tenantID string, cfg *domain.AgencyConfig) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		c.logger.Warn("config cache marshal failed", "error", err, "tenant_id", tenantID)
		return
	}
	if err := c.client.Set(ctx, configKeyPrefix+tenantID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("config cache write failed", "error", err, "tenant_id", tenantID)
	}
}
