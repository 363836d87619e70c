package cache

import (
	"context"
	"time"
)

// OutputCacheProvider stores rendered output keyed by cache key and supports
// bulk invalidation by route, key prefix or tag.
type OutputCacheProvider interface {
	// Get returns the item for key, or nil when it is missing or expired.
	Get(ctx context.Context, key string) (*OutputCacheItem, error)
	Set(ctx context.Context, key string, item *OutputCacheItem) error
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, keys ...string) error
	RemoveAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	// All pages through stored items ordered by key. Content is stripped
	// unless withContent is set.
	All(ctx context.Context, pageIndex, pageSize int, withContent bool) (Page, error)

	// InvalidateByRoute purges every item whose RouteKey is one of routes.
	InvalidateByRoute(ctx context.Context, routes ...string) (int, error)
	// InvalidateByPrefix purges every item whose key starts with prefix.
	InvalidateByPrefix(ctx context.Context, prefix string) (int, error)
	// InvalidateByTag purges every item carrying any of tags.
	InvalidateByTag(ctx context.Context, tags ...string) (int, error)

	// GetLock returns the named lock guarding population of key. The
	// provider does not enforce single flight itself.
	GetLock(key string) DistributedLock
}

// DistributedLock serializes cache population for one key, possibly across
// processes.
type DistributedLock interface {
	Key() string
	// Acquire blocks until the lock is held, timeout elapses (ErrLockTimeout)
	// or ctx is done.
	Acquire(ctx context.Context, timeout time.Duration) (LockHandle, error)
	IsLocked(ctx context.Context) (bool, error)
}

// LockHandle releases an acquired lock. Release is safe to call more than once.
type LockHandle interface {
	Release(ctx context.Context) error
}

// Page is one page of cached items.
type Page struct {
	Items     []*OutputCacheItem
	PageIndex int
	PageSize  int
	Total     int
}

// TotalPages returns the number of pages for Total at PageSize.
func (p Page) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
