// Package cache provides a small Redis-backed read cache for hot catalog
// queries. A nil *Cache is valid and disables caching, so callers never
// branch on configuration.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/shelfworks/catalog-service/pkg/logger"
)

// Cache wraps a Redis client with JSON encoding and a fixed TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New connects to Redis at addr. An empty addr returns nil, which disables
// caching everywhere.
func New(addr, password string, ttl time.Duration, log *logger.Logger) *Cache {
	if addr == "" {
		return nil
	}
	if log == nil {
		log = logger.NewDefault("cache")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		ttl:    ttl,
		log:    log,
	}
}

// Ping checks the connection. A nil cache always reports healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Get loads the value under key into v. It reports false on a miss or any
// Redis failure; failures degrade to a miss rather than an error.
func (c *Cache) Get(ctx context.Context, key string, v interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("key", key).Warn("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Cache entry is not decodable")
		return false
	}
	return true
}

// Set stores v under key for the configured TTL. Failures are logged and
// swallowed.
func (c *Cache) Set(ctx context.Context, key string, v interface{}) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Cache value is not encodable")
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

// Invalidate removes keys after a write so readers never see stale entries
// past the next request.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).Warn("Cache invalidation failed")
	}
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
