package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLockTTL   = 2 * time.Minute
	defaultLockRetry = 100 * time.Millisecond
)

// Locker hands out Redis locks shared by every process pointed at the same
// server. When Redis is unavailable it grants every lock, leaving local
// locking and database constraints in charge.
type Locker struct {
	redis *Redis
	ttl   time.Duration
	retry time.Duration
}

func NewLocker(r *Redis, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Locker{redis: r, ttl: ttl, retry: defaultLockRetry}
}

// TryLock takes key once without waiting.
func (l *Locker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	if l == nil || !l.redis.Available() {
		return func() {}, true, nil
	}
	token := uuid.NewString()
	ok, err := l.redis.SetIfNotExists(ctx, key, token, l.ttl)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		// Connection lost after startup: degrade like a disabled server.
		l.redis.warnUnavailableOnce(err)
		return func() {}, true, nil
	}
	if !ok {
		return nil, false, nil
	}
	return l.release(key, token), true, nil
}

// Lock polls until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	t := time.NewTicker(l.retryInterval())
	defer t.Stop()
	for {
		unlock, ok, err := l.TryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return unlock, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Locker) retryInterval() time.Duration {
	if l == nil || l.retry <= 0 {
		return defaultLockRetry
	}
	return l.retry
}

func (l *Locker) release(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := l.redis.DeleteIfValue(ctx, key, token); err != nil && l.redis.logger != nil {
			l.redis.logger.Printf("cache=redis op=unlock key=%s err=%v", key, err)
		}
	}
}
