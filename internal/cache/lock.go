package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained means another holder owns the lock.
var ErrLockNotObtained = errors.New("lock not obtained")

// RedisEpochLocker serializes epoch updates per project with a Redis lock.
type RedisEpochLocker struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
	retry  redislock.RetryStrategy
}

// NewRedisEpochLocker creates a locker. Locks expire after ttl even if never
// released.
func NewRedisEpochLocker(client *redis.Client, ttl time.Duration) *RedisEpochLocker {
	return &RedisEpochLocker{
		client: redislock.New(client),
		ttl:    ttl,
		prefix: "lock:finance:epoch:",
		retry:  redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 3),
	}
}

// Lock obtains the project's lock and returns its release function.
func (l *RedisEpochLocker) Lock(ctx context.Context, projectID string) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, l.prefix+projectID, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: project %s", ErrLockNotObtained, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain epoch lock: %w", err)
	}

	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}
