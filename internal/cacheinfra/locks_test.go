package cacheinfra

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	perr "github.com/jmgilman/go/errors"

	"github.com/goliatone/go-output-cache/cache"
)

func TestMemoryLock_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	p := newTestMemoryProvider(t, newFakeClock())
	lock := p.GetLock("k")

	if lock.Key() != "k" {
		t.Errorf("expected key k, got %q", lock.Key())
	}

	h, err := lock.Acquire(ctx, time.Second)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if locked, _ := lock.IsLocked(ctx); !locked {
		t.Error("expected lock to be held")
	}

	if err := h.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := h.Release(ctx); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
	if locked, _ := lock.IsLocked(ctx); locked {
		t.Error("expected lock to be free")
	}
	if len(p.locks.entries) != 0 {
		t.Errorf("expected lock table to be empty, got %d entries", len(p.locks.entries))
	}
}

func TestMemoryLock_Timeout(t *testing.T) {
	ctx := context.Background()
	p := newTestMemoryProvider(t, newFakeClock())

	h, err := p.GetLock("k").Acquire(ctx, time.Second)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release(ctx)

	_, err = p.GetLock("k").Acquire(ctx, 20*time.Millisecond)
	if !errors.Is(err, cache.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if perr.GetCode(err) != perr.CodeTimeout {
		t.Errorf("expected TIMEOUT code, got %s", perr.GetCode(err))
	}

	if _, err := p.GetLock("other").Acquire(ctx, 20*time.Millisecond); err != nil {
		t.Errorf("expected independent key to be free, got %v", err)
	}
}

func TestMemoryLock_ContextCancel(t *testing.T) {
	p := newTestMemoryProvider(t, newFakeClock())

	h, err := p.GetLock("k").Acquire(context.Background(), 0)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer h.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.GetLock("k").Acquire(ctx, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryLock_SerializesHolders(t *testing.T) {
	ctx := context.Background()
	p := newTestMemoryProvider(t, newFakeClock())

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := p.GetLock("k").Acquire(ctx, 5*time.Second)
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = h.Release(ctx)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most one holder, saw %d", maxInside)
	}
}
