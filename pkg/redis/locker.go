package redis

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/locks"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultLockWait  = 3 * time.Second
	lockRetryBackoff = 50 * time.Millisecond
)

type heldLock interface {
	Release(ctx context.Context) error
}

type obtainFunc func(ctx context.Context, key string, ttl time.Duration, opts *redislock.Options) (heldLock, error)

// Locker implements locks.Locker on top of redislock so terminals running in
// separate processes serialise on the same entities.
type Locker struct {
	obtain obtainFunc
	keyFn  func(string) string
	ttl    time.Duration
	wait   time.Duration
}

// NewLocker wires a redislock client to the connection held by c.
func NewLocker(c *Client, ttl, wait time.Duration) (*Locker, error) {
	if c == nil || c.conn == nil {
		return nil, errors.New("redis client required for locker")
	}
	rl := redislock.New(c.conn)
	obtain := func(ctx context.Context, key string, ttl time.Duration, opts *redislock.Options) (heldLock, error) {
		lock, err := rl.Obtain(ctx, key, ttl, opts)
		if err != nil {
			return nil, err
		}
		return lock, nil
	}
	return newLocker(obtain, c.LockKey, ttl, wait), nil
}

func newLocker(obtain obtainFunc, keyFn func(string) string, ttl, wait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &Locker{obtain: obtain, keyFn: keyFn, ttl: ttl, wait: wait}
}

func (l *Locker) Acquire(ctx context.Context, keys ...string) (locks.Release, error) {
	keys = locks.Dedupe(keys)
	held := make([]heldLock, 0, len(keys))

	release := func(ctx context.Context) error {
		var err error
		for i := len(held) - 1; i >= 0; i-- {
			if relErr := held[i].Release(ctx); relErr != nil && !errors.Is(relErr, redislock.ErrLockNotHeld) {
				err = multierr.Append(err, relErr)
			}
		}
		held = nil
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	for _, key := range keys {
		lock, err := l.obtain(waitCtx, l.keyFn(key), l.ttl, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(lockRetryBackoff),
		})
		if err != nil {
			relErr := release(context.WithoutCancel(ctx))
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				return nil, pkgerrors.New(pkgerrors.CodeConcurrentModification, "timed out waiting for lock").
					WithDetails(map[string]any{"key": key})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, multierr.Append(err, relErr), "obtain lock")
		}
		held = append(held, lock)
	}
	return release, nil
}
