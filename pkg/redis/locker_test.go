package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

type fakeLock struct {
	key      string
	released *[]string
	err      error
}

func (f *fakeLock) Release(context.Context) error {
	*f.released = append(*f.released, f.key)
	return f.err
}

func TestLockerAcquiresInOrderAndReleasesInReverse(t *testing.T) {
	var obtained, released []string
	obtain := func(_ context.Context, key string, _ time.Duration, opts *redislock.Options) (heldLock, error) {
		require.NotNil(t, opts.RetryStrategy)
		obtained = append(obtained, key)
		return &fakeLock{key: key, released: &released}, nil
	}
	client := &Client{}
	locker := newLocker(obtain, client.LockKey, time.Second, time.Second)

	release, err := locker.Acquire(context.Background(), "product:a", "product:b", "customer:c", "product:a")
	require.NoError(t, err)
	require.Equal(t, []string{"tb:lock:product:a", "tb:lock:product:b", "tb:lock:customer:c"}, obtained)

	require.NoError(t, release(context.Background()))
	require.Equal(t, []string{"tb:lock:customer:c", "tb:lock:product:b", "tb:lock:product:a"}, released)
}

func TestLockerMapsNotObtainedToConcurrentModification(t *testing.T) {
	var released []string
	obtain := func(_ context.Context, key string, _ time.Duration, _ *redislock.Options) (heldLock, error) {
		if key == "tb:lock:customer:c" {
			return nil, redislock.ErrNotObtained
		}
		return &fakeLock{key: key, released: &released}, nil
	}
	client := &Client{}
	locker := newLocker(obtain, client.LockKey, time.Second, time.Second)

	_, err := locker.Acquire(context.Background(), "product:a", "customer:c")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConcurrentModification))
	require.Equal(t, []string{"tb:lock:product:a"}, released)
}

func TestLockerWrapsBackendFailures(t *testing.T) {
	obtain := func(context.Context, string, time.Duration, *redislock.Options) (heldLock, error) {
		return nil, errors.New("connection refused")
	}
	client := &Client{}
	locker := newLocker(obtain, client.LockKey, 0, 0)

	_, err := locker.Acquire(context.Background(), "sale:s")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestLockerReleaseIgnoresExpiredLocks(t *testing.T) {
	var released []string
	obtain := func(_ context.Context, key string, _ time.Duration, _ *redislock.Options) (heldLock, error) {
		return &fakeLock{key: key, released: &released, err: redislock.ErrLockNotHeld}, nil
	}
	client := &Client{}
	locker := newLocker(obtain, client.LockKey, time.Second, time.Second)

	release, err := locker.Acquire(context.Background(), "sale:s")
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}
