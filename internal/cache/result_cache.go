package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/redis/go-redis/v9"
)

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
	mu     sync.RWMutex
}

func (s *CacheStats) hit() {
	s.mu.Lock()
	s.Hits++
	s.mu.Unlock()
}

func (s *CacheStats) miss() {
	s.mu.Lock()
	s.Misses++
	s.mu.Unlock()
}

func (s *CacheStats) set() {
	s.mu.Lock()
	s.Sets++
	s.mu.Unlock()
}

func (s *CacheStats) fail() {
	s.mu.Lock()
	s.Errors++
	s.mu.Unlock()
}

func (s *CacheStats) snapshot() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CacheStats{Hits: s.Hits, Misses: s.Misses, Sets: s.Sets, Errors: s.Errors}
}

// RedisResultCache stores reader results in Redis as JSON documents.
type RedisResultCache struct {
	redis  redis.Cmdable
	prefix string
	stats  *CacheStats
	logger *logging.StandardLogger
}

// NewRedisResultCache creates a result cache whose keys are namespaced by prefix.
func NewRedisResultCache(client redis.Cmdable, prefix string, logger *logging.StandardLogger) *RedisResultCache {
	return &RedisResultCache{
		redis:  client,
		prefix: prefix,
		stats:  &CacheStats{},
		logger: logger,
	}
}

// Get decodes the cached value for key into dest. A miss returns false and
// no error.
func (c *RedisResultCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	start := time.Now()
	data, err := c.redis.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.miss()
		c.logger.LogCacheOperation("get", key, false, time.Since(start).Milliseconds())
		return false, nil
	}
	if err != nil {
		c.stats.fail()
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.stats.fail()
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}

	c.stats.hit()
	return true, nil
}

// Set stores value under key for ttl.
func (c *RedisResultCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.stats.fail()
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.redis.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		c.stats.fail()
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	c.stats.set()
	return nil
}

// Clear removes every key under the cache prefix.
func (c *RedisResultCache) Clear(ctx context.Context) (int, error) {
	return clearPrefix(ctx, c.redis, c.prefix)
}

// GetStats returns current cache statistics
func (c *RedisResultCache) GetStats() CacheStats {
	return c.stats.snapshot()
}

// LogStats logs current cache performance statistics
func (c *RedisResultCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	c.logger.WithMetrics(map[string]interface{}{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"errors":   stats.Errors,
		"hit_rate": fmt.Sprintf("%.2f%%", hitRate),
	}).Info("Result cache stats", "component", "result_cache", "prefix", c.prefix)
}

func clearPrefix(ctx context.Context, client redis.Cmdable, prefix string) (int, error) {
	var keys []string
	iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("error scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("error clearing cache: %w", err)
	}
	return len(keys), nil
}
