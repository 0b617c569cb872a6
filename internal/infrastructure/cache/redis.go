package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"SearchAggregator/internal/domain"
	"SearchAggregator/internal/ports"
)

// RedisCache stores JSON-serialized result batches in Redis with a TTL.
// Upstream errors degrade to misses and false returns; the cache must
// never fail a request.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

var _ ports.ResultCache = (*RedisCache)(nil)

// NewRedis connects to the given Redis URL and verifies the connection.
func NewRedis(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 10 * time.Second
	opts.ReadTimeout = 10 * time.Second
	opts.WriteTimeout = 10 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client, logger: logger}, nil
}

// Get returns the cached batch for the key, or a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (domain.ResultBatch, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}

	var batch domain.ResultBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		c.logger.Warn("cached batch undecodable", "key", key, "error", err)
		return nil, false
	}
	return batch, true
}

// Put stores the batch under the key with the given TTL.
func (c *RedisCache) Put(ctx context.Context, key string, batch domain.ResultBatch, ttl time.Duration) bool {
	raw, err := json.Marshal(batch)
	if err != nil {
		c.logger.Warn("batch serialization failed", "key", key, "error", err)
		return false
	}

	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn("cache put failed", "key", key, "error", err)
		return false
	}
	return true
}

// Delete removes the key; deleting an absent key reports false.
func (c *RedisCache) Delete(ctx context.Context, key string) bool {
	deleted, err := c.client.Del(ctx, key).Result()
	if err != nil {
		c.logger.Warn("cache delete failed", "key", key, "error", err)
		return false
	}
	return deleted > 0
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
