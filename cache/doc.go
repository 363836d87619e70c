// Package cache defines the output cache contracts shared by providers,
// the HTTP middleware and the invalidation dispatcher.
//
// # Overview
//
// This package exports:
//
//   - OutputCacheItem: a rendered page fragment with route, tags and expiry
//   - OutputCacheProvider: key addressed storage with route, prefix and tag invalidation
//   - DistributedLock: a per-key lock used to serialize cache population
//   - KeyBuilder: builds stable cache keys from route, query and vary context
//
// Provider implementations live in internal/cacheinfra (sturdyc in memory,
// Redis) and are constructed through pkg/di.
//
// # Keys
//
// Keys have the shape "{namespace}::{route}::{hash}". The route segment is the
// snake_case form of the route name, so all keys of a route share
// KeyBuilder.RoutePrefix and can be purged with InvalidateByPrefix:
//
//	keys := cache.NewKeyBuilder("")
//	key := keys.BuildKey("Catalog.Product", r.URL.Query(), cache.VaryContext{StoreID: 1})
//	n, err := provider.InvalidateByPrefix(ctx, keys.RoutePrefix("Catalog.Product"))
//
// The hash covers the canonical query string (sorted, ignored parameters
// removed) and the VaryContext (store, language, currency, theme and sorted
// customer roles).
//
// # Tags
//
// Tags are opaque strings such as "p123" (product 123) or "c45" (category 45).
// An item is purged by InvalidateByTag when its tag set intersects the given
// tags. Which tags an entity maps to is decided by the tagging package.
//
// # Expiry
//
// An item is valid while now < CachedOnUTC + Duration. Providers never return
// expired items from Get or Exists, even before they are physically evicted.
//
// # Locking
//
// GetLock hands out a lock; it does not enforce single flight. Callers that
// populate a key acquire the lock, re-check the cache and release the handle
// on every exit path:
//
//	handle, err := provider.GetLock(key).Acquire(ctx, 5*time.Second)
//	if err != nil {
//		return err // errors.Is(err, cache.ErrLockTimeout)
//	}
//	defer handle.Release(ctx)
package cache
