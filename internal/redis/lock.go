package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("schedule lock not acquired")
)

// Locker serializes schedule mutations. Appointment writes take the whole
// provider; availability writes only take one (provider, weekday), so edits
// to different days stay concurrent. Acquisition is bounded: once the wait
// budget is spent the caller gets ErrLockNotAcquired and may retry.
type Locker interface {
	WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error
	WithAvailabilityLock(ctx context.Context, providerID uuid.UUID, day int, fn func(ctx context.Context) error) error
}

type redisScheduleLocker struct {
	client      *redis.Client
	ttl         time.Duration
	acquireWait time.Duration
}

// NewRedisScheduleLocker creates a locker backed by per-key Redis SETNX
// leases. ttl bounds how long a crashed holder can block others;
// acquireWait bounds how long a caller waits before giving up.
func NewRedisScheduleLocker(client *redis.Client, ttl, acquireWait time.Duration) Locker {
	return &redisScheduleLocker{
		client:      client,
		ttl:         ttl,
		acquireWait: acquireWait,
	}
}

func (l *redisScheduleLocker) WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:provider:%s", providerID.String())
	return l.withLock(ctx, key, fn)
}

func (l *redisScheduleLocker) WithAvailabilityLock(ctx context.Context, providerID uuid.UUID, day int, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:provider:%s:day:%d", providerID.String(), day)
	return l.withLock(ctx, key, fn)
}

func (l *redisScheduleLocker) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisScheduleLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.acquireWait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire schedule lock: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisScheduleLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release schedule lock: %w", err)
	}
	return nil
}
