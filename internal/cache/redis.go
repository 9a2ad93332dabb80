package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "backoffice:"

// RedisCache implements Cache on Redis so every API replica shares the same
// rule generations.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects and pings Redis.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, tenantID, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, errTenantRequired
	}
	val, err := c.client.Get(ctx, makeKey(tenantID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, tenantID, key string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return errTenantRequired
	}
	return c.client.Set(ctx, makeKey(tenantID, key), value, ttl).Err()
}

func (c *RedisCache) Incr(ctx context.Context, tenantID, key string) (int64, error) {
	if tenantID == "" {
		return 0, errTenantRequired
	}
	return c.client.Incr(ctx, makeKey(tenantID, key)).Result()
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func makeKey(tenantID, key string) string {
	return keyPrefix + tenantID + ":" + key
}
