// Package cache stores serialized rule candidates. Redis is used when an
// address is configured, an in-process map otherwise.
package cache

import (
	"context"
	"time"

	"backoffice/internal/config"
)

// Cache is a tenant-partitioned byte store. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, tenantID, key string) ([]byte, error)
	Set(ctx context.Context, tenantID, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, tenantID, key string) (int64, error)
	Close() error
}

// New returns a Redis cache when cfg.Addr is set, a memory cache otherwise.
func New(cfg config.RedisConfig) (Cache, error) {
	if cfg.Addr == "" {
		return NewMemoryCache(), nil
	}
	return NewRedisCache(cfg.Addr, cfg.Password, cfg.DB)
}
