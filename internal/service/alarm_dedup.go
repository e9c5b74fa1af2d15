package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jengzang/site-fence-backend-go/internal/repository"
)

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// AlarmDeduplicator keeps at most one pending alarm per device and fence.
//
// The check and insert run under a per-pair lock inside this process. Across
// processes the pending-alarm unique index decides, and a losing insert is
// reported as suppressed.
type AlarmDeduplicator struct {
	store AlarmStore
	locks *keyedMutex
}

// NewAlarmDeduplicator creates a deduplicator over store
func NewAlarmDeduplicator(store AlarmStore) *AlarmDeduplicator {
	return &AlarmDeduplicator{store: store, locks: newKeyedMutex()}
}

// Raise stores an alarm for v unless its (device, fence) pair already has a
// pending alarm. It returns true when a new alarm was stored.
func (d *AlarmDeduplicator) Raise(ctx context.Context, v *Violation) (bool, error) {
	unlock := d.locks.Lock(fmt.Sprintf("%s|%d", v.Device.ID, v.Fence.ID))
	defer unlock()

	existing, err := d.store.FindPending(ctx, v.Device.ID, v.Fence.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check pending alarm: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	record := v.Record()
	if err := d.store.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrPendingAlarmExists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert alarm: %w", err)
	}

	return true, nil
}
