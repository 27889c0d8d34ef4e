package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis adapts a go-redis client to the Cache interface for deployments
// that run multiple processes and need shared invalidation. TTLs are
// enforced natively by Redis.
//
// Cache reads and writes are best effort: a Redis error is logged and
// reported as a miss so callers fall through to the record store.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

func NewRedis(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	return &Redis{client: client, logger: logger, prefix: prefix}
}

func (c *Redis) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

func (c *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

func (c *Redis) Delete(ctx context.Context, keys ...string) {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.key(key)
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache delete failed", "keys", keys, "error", err)
	}
}

func (c *Redis) Clear(ctx context.Context) {
	pattern := c.key("*")
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WarnContext(ctx, "cache clear scan failed", "error", err)
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.WarnContext(ctx, "cache clear failed", "error", err)
		}
	}
}
