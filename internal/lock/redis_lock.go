package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const retryInterval = 100 * time.Millisecond

// RedisLock lock asesor compartido entre instancias
type RedisLock struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisLock(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *RedisLock {
	return &RedisLock{
		locker: redislock.New(client),
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// Acquire reintenta cada 100ms hasta que vence wait
func (l *RedisLock) Acquire(ctx context.Context, wait time.Duration) (Release, error) {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	held, err := l.locker.Obtain(waitCtx, l.key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryInterval),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}

	l.logger.Debug("Run lock acquired", zap.String("key", l.key), zap.String("token", held.Token()))
	return l.release(held), nil
}

func (l *RedisLock) release(held *redislock.Lock) Release {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := held.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release run lock", zap.String("key", l.key), zap.Error(err))
		}
	}
}
