package locks

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

const defaultLocalWait = 3 * time.Second

// Local is an in-process Locker for single-node deployments and tests. A
// key's slot lives only while someone holds or waits on it.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

type heldSlot struct {
	key string
	s   *slot
}

// NewLocal builds a Local locker. wait bounds how long Acquire blocks per key
// before giving up with a concurrent-modification error.
func NewLocal(wait time.Duration) *Local {
	if wait <= 0 {
		wait = defaultLocalWait
	}
	return &Local{slots: make(map[string]*slot), wait: wait}
}

func (l *Local) checkout(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) checkin(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *Local) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = Dedupe(keys)
	held := make([]heldSlot, 0, len(keys))

	release := func(context.Context) error {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].s.ch
			l.checkin(held[i].key, held[i].s)
		}
		held = nil
		return nil
	}

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	for _, key := range keys {
		s := l.checkout(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, heldSlot{key: key, s: s})
		case <-ctx.Done():
			l.checkin(key, s)
			_ = release(ctx)
			return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrentModification, ctx.Err(), "lock wait canceled").
				WithDetails(map[string]any{"key": key})
		case <-timer.C:
			l.checkin(key, s)
			_ = release(ctx)
			return nil, pkgerrors.New(pkgerrors.CodeConcurrentModification, "timed out waiting for lock").
				WithDetails(map[string]any{"key": key})
		}
	}
	return release, nil
}
