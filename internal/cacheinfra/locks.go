package cacheinfra

import (
	"context"
	"sync"
	"time"

	perr "github.com/jmgilman/go/errors"

	"github.com/goliatone/go-output-cache/cache"
)

// lockTable hands out in-process per-key locks. Entries are reference
// counted and dropped once nobody holds or waits for them.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

func (t *lockTable) ref(key string) *lockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		t.entries[key] = e
	}
	e.refs++
	return e
}

func (t *lockTable) unref(key string, e *lockEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
}

func (t *lockTable) isLocked(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	return ok && len(e.sem) == 1
}

// memoryLock is the cache.DistributedLock of the memory provider. It only
// serializes goroutines of this process.
type memoryLock struct {
	key   string
	table *lockTable
}

func (l *memoryLock) Key() string { return l.key }

// Acquire waits for the lock. A non-positive timeout waits until ctx is done.
func (l *memoryLock) Acquire(ctx context.Context, timeout time.Duration) (cache.LockHandle, error) {
	e := l.table.ref(l.key)

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case e.sem <- struct{}{}:
		return &releaseHandle{release: func() {
			<-e.sem
			l.table.unref(l.key, e)
		}}, nil
	case <-expired:
		l.table.unref(l.key, e)
		return nil, perr.Wrapf(cache.ErrLockTimeout, perr.CodeTimeout, "lock %q not acquired within %s", l.key, timeout)
	case <-ctx.Done():
		l.table.unref(l.key, e)
		return nil, ctx.Err()
	}
}

func (l *memoryLock) IsLocked(_ context.Context) (bool, error) {
	return l.table.isLocked(l.key), nil
}

type releaseHandle struct {
	once    sync.Once
	release func()
}

func (h *releaseHandle) Release(_ context.Context) error {
	h.once.Do(h.release)
	return nil
}
