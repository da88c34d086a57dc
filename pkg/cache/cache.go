// Package cache is a JSON-over-Redis cache. A nil *Cache, or one whose
// server could not be reached, behaves as an always-missing cache so callers
// never need a separate code path when Redis is down.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/huertohogar/huerto/config"
	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/metrics"
)

type Cache struct {
	rdb *redis.Client
}

// New wraps an existing client.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Connect creates a client and verifies it with a ping. On failure the
// returned Cache is disabled and the error says why, so the caller can log
// and carry on.
func Connect(ctx context.Context, addr, password string) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return &Cache{}, fmt.Errorf("cache: redis ping %s: %w", addr, err)
	}
	return &Cache{rdb: rdb}, nil
}

// FromConfig connects using REDIS_ADDR and REDIS_PASSWORD.
func FromConfig(ctx context.Context) (*Cache, error) {
	return Connect(ctx, config.RedisAddr(), config.RedisPassword())
}

// Enabled reports whether a Redis server backs the cache.
func (c *Cache) Enabled() bool { return c != nil && c.rdb != nil }

// Get unmarshals the cached value for key into dest and reports a hit.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}

	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithCtx(ctx).Warn("cache: get failed", "key", key, "error", err)
		}
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}

	if err := json.Unmarshal(val, dest); err != nil {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// Del removes keys.
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Close releases the client.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
