package locks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

func TestProductKeysSortedAndUnique(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	keys := ProductKeys([]uuid.UUID{b, a, b})
	require.Equal(t, []string{ProductKey(a), ProductKey(b)}, keys)
}

func TestLocalSerialisesSameKey(t *testing.T) {
	locker := NewLocal(time.Second)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "sale:1")
			require.NoError(t, err)
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			require.NoError(t, release(ctx))
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
}

func TestLocalTimesOutAndReleasesPartialHold(t *testing.T) {
	locker := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	holder, err := locker.Acquire(ctx, "customer:1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "product:1", "customer:1")
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConcurrentModification))

	// product:1 must have been released when customer:1 could not be taken.
	again, err := locker.Acquire(ctx, "product:1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
	require.NoError(t, holder(ctx))
}

func TestLocalDuplicateKeysDoNotDeadlock(t *testing.T) {
	locker := NewLocal(50 * time.Millisecond)
	release, err := locker.Acquire(context.Background(), "product:1", "product:1")
	require.NoError(t, err)
	require.NoError(t, release(context.Background()))
}

func TestLocalHonoursContextCancel(t *testing.T) {
	locker := NewLocal(time.Second)
	holder, err := locker.Acquire(context.Background(), "sale:9")
	require.NoError(t, err)
	defer holder(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, "sale:9")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConcurrentModification))
}

func (l *Local) liveSlots() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func TestLocalDropsSlotsOnceReleased(t *testing.T) {
	locker := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		release, err := locker.Acquire(ctx, SaleKey(uuid.New()), CustomerKey(uuid.New()))
		require.NoError(t, err)
		require.NoError(t, release(ctx))
	}
	require.Equal(t, 0, locker.liveSlots())

	holder, err := locker.Acquire(ctx, "sale:1")
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, "product:1", "sale:1")
	require.Error(t, err)
	require.Equal(t, 1, locker.liveSlots(), "only the held key should remain")
	require.NoError(t, holder(ctx))
	require.Equal(t, 0, locker.liveSlots())
}

func TestLocalWaiterKeepsSlotAlive(t *testing.T) {
	locker := NewLocal(time.Second)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "sale:1")
	require.NoError(t, err)

	acquired := make(chan Release, 1)
	go func() {
		release, err := locker.Acquire(ctx, "sale:1")
		if err == nil {
			acquired <- release
		}
		close(acquired)
	}()

	require.Eventually(t, func() bool {
		locker.mu.Lock()
		defer locker.mu.Unlock()
		s, ok := locker.slots["sale:1"]
		return ok && s.refs == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, first(ctx))
	second, ok := <-acquired
	require.True(t, ok, "waiter should take the lock after release")
	require.NoError(t, second(ctx))
	require.Equal(t, 0, locker.liveSlots())
}
