package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/service"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "hawker:prediction:"

// RedisCache stores recent single-hawker predictions in Redis. A RedisCache
// without a client (including a nil *RedisCache) misses every lookup and
// drops every write.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

var _ service.PredictionCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection. On failure it
// returns a disabled cache alongside the error so callers may continue
// without caching.
func NewRedisCache(ctx context.Context, cfg CacheConfig) (*RedisCache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	logger := slog.Default().With("component", "cache")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Retry a few times to ride out a Redis that is still starting.
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
		}
		logger.Warn("Redis ping failed", "attempt", attempt, "addr", cfg.Addr, "error", lastErr)

		select {
		case <-ctx.Done():
			_ = client.Close()
			return &RedisCache{ttl: ttl, logger: logger}, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}

	_ = client.Close()
	return &RedisCache{ttl: ttl, logger: logger}, fmt.Errorf("redis ping failed after 3 attempts: %w", lastErr)
}

// Available reports whether the cache is backed by a live client.
func (c *RedisCache) Available() bool {
	return c != nil && c.client != nil
}

// Get returns the cached prediction for hawkerID.
func (c *RedisCache) Get(ctx context.Context, hawkerID string) (*model.Prediction, bool) {
	if !c.Available() {
		return nil, false
	}

	val, err := c.client.Get(ctx, cacheKeyPrefix+hawkerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Debug("cache read failed", "hawker", hawkerID, "error", err)
		return nil, false
	}

	var p model.Prediction
	if err := json.Unmarshal(val, &p); err != nil {
		c.logger.Debug("discarding undecodable cache entry", "hawker", hawkerID, "error", err)
		return nil, false
	}
	return &p, true
}

// Set stores p for the cache TTL.
func (c *RedisCache) Set(ctx context.Context, p *model.Prediction) {
	if !c.Available() || p == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+p.HawkerID, data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache write failed", "hawker", p.HawkerID, "error", err)
	}
}

// Invalidate drops every cached prediction.
func (c *RedisCache) Invalidate(ctx context.Context) {
	if !c.Available() {
		return
	}
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "error", err)
	}
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	if !c.Available() {
		return nil
	}
	return c.client.Close()
}
