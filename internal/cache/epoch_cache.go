package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/redis/go-redis/v9"
)

// RedisEpochCache caches each project's financial core start date as an
// ISO date string.
type RedisEpochCache struct {
	redis  redis.Cmdable
	ttl    time.Duration
	prefix string
	stats  *CacheStats
}

func NewRedisEpochCache(client redis.Cmdable, ttl time.Duration) *RedisEpochCache {
	return &RedisEpochCache{
		redis:  client,
		ttl:    ttl,
		prefix: "finance:epoch:",
		stats:  &CacheStats{},
	}
}

func (c *RedisEpochCache) Get(ctx context.Context, projectID string) (civil.Date, bool, error) {
	raw, err := c.redis.Get(ctx, c.prefix+projectID).Result()
	if errors.Is(err, redis.Nil) {
		c.stats.miss()
		return civil.Date{}, false, nil
	}
	if err != nil {
		c.stats.fail()
		return civil.Date{}, false, fmt.Errorf("redis get epoch %s: %w", projectID, err)
	}

	d, err := civil.ParseDate(raw)
	if err != nil {
		// Unreadable entries are dropped so the next read goes to the store.
		c.stats.fail()
		_ = c.redis.Del(ctx, c.prefix+projectID).Err()
		return civil.Date{}, false, nil
	}

	c.stats.hit()
	return d, true, nil
}

func (c *RedisEpochCache) Set(ctx context.Context, projectID string, start civil.Date) error {
	if err := c.redis.Set(ctx, c.prefix+projectID, start.String(), c.ttl).Err(); err != nil {
		c.stats.fail()
		return fmt.Errorf("redis set epoch %s: %w", projectID, err)
	}
	c.stats.set()
	return nil
}

func (c *RedisEpochCache) Invalidate(ctx context.Context, projectID string) error {
	if err := c.redis.Del(ctx, c.prefix+projectID).Err(); err != nil {
		return fmt.Errorf("redis del epoch %s: %w", projectID, err)
	}
	return nil
}

// GetStats returns current cache statistics
func (c *RedisEpochCache) GetStats() CacheStats {
	return c.stats.snapshot()
}
