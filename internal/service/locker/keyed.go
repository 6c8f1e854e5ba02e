package locker

import (
	"context"
	"fmt"
	"sync"
)

type slot struct {
	ch      chan struct{}
	waiters int
}

// Keyed is in-process Locker with one slot per key.
// Slots are created on demand and dropped when nobody holds or waits for them.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]*slot)}
}

func (k *Keyed) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	s := k.acquireSlot(key)
	defer k.releaseSlot(key, s)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("lock %q not acquired: %w", key, ctx.Err())
	}
	defer func() { <-s.ch }()

	return fn(ctx)
}

func (k *Keyed) acquireSlot(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()

	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.waiters++

	return s
}

func (k *Keyed) releaseSlot(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()

	s.waiters--
	if s.waiters == 0 {
		delete(k.slots, key)
	}
}

// Number of keys currently held or awaited
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.slots)
}
