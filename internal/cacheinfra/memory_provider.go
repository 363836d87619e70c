package cacheinfra

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-output-cache/cache"
	ilog "github.com/goliatone/go-output-cache/internal/log"
)

var _ cache.OutputCacheProvider = (*MemoryProvider)(nil)

// MemoryProvider keeps output cache items in a sturdyc client and maintains
// its own tag and route indexes for invalidation. Index entries may outlive
// items sturdyc evicted on its own; they are dropped on the next
// invalidation that touches them.
type MemoryProvider struct {
	client *sturdyc.Client[*cache.OutputCacheItem]
	locks  *lockTable
	logger ilog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	tags   map[string]map[string]struct{}
	routes map[string]map[string]struct{}
}

// NewMemoryProvider validates cfg and creates a sturdyc backed provider.
func NewMemoryProvider(cfg Config, opts ...Option) (*MemoryProvider, error) {
	if err := cfg.validateMemory(); err != nil {
		return nil, err
	}

	client := sturdyc.New[*cache.OutputCacheItem](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	o := applyOptions(opts)
	return &MemoryProvider{
		client: client,
		locks:  newLockTable(),
		logger: o.logger,
		now:    o.now,
		tags:   make(map[string]map[string]struct{}),
		routes: make(map[string]map[string]struct{}),
	}, nil
}

// Get implements cache.OutputCacheProvider.Get.
// Expired items are removed on access and reported as missing.
func (p *MemoryProvider) Get(_ context.Context, key string) (*cache.OutputCacheItem, error) {
	item, ok := p.valid(key)
	if !ok {
		return nil, nil
	}
	return item.Clone(true), nil
}

// Set implements cache.OutputCacheProvider.Set.
// Items that are already expired are not stored.
func (p *MemoryProvider) Set(_ context.Context, key string, item *cache.OutputCacheItem) error {
	if item == nil {
		return cache.ErrNilItem
	}
	if !item.IsValid(p.now()) {
		p.logger.Debug("outputcache.memory.set.skip_expired", "key", key)
		return nil
	}

	stored := item.Clone(true)
	stored.CacheKey = key

	if prev, ok := p.client.Get(key); ok {
		p.unindex(key, prev.RouteKey, prev.Tags)
	}
	p.client.Set(key, stored)
	p.index(key, stored.RouteKey, stored.Tags)

	p.logger.Debug("outputcache.memory.set", "key", key, "route", stored.RouteKey, "tags", len(stored.Tags))
	return nil
}

// Exists implements cache.OutputCacheProvider.Exists.
func (p *MemoryProvider) Exists(_ context.Context, key string) (bool, error) {
	_, ok := p.valid(key)
	return ok, nil
}

// Remove implements cache.OutputCacheProvider.Remove.
func (p *MemoryProvider) Remove(_ context.Context, keys ...string) error {
	for _, key := range keys {
		p.removeKey(key)
	}
	return nil
}

// RemoveAll implements cache.OutputCacheProvider.RemoveAll.
func (p *MemoryProvider) RemoveAll(_ context.Context) error {
	for _, key := range p.client.ScanKeys() {
		p.client.Delete(key)
	}

	p.mu.Lock()
	p.tags = make(map[string]map[string]struct{})
	p.routes = make(map[string]map[string]struct{})
	p.mu.Unlock()

	p.logger.Info("outputcache.memory.clear")
	return nil
}

// Count implements cache.OutputCacheProvider.Count. Only valid items count.
func (p *MemoryProvider) Count(_ context.Context) (int, error) {
	now := p.now()
	n := 0
	for _, key := range p.client.ScanKeys() {
		if item, ok := p.client.Get(key); ok && item.IsValid(now) {
			n++
		}
	}
	return n, nil
}

// All implements cache.OutputCacheProvider.All. A non-positive pageSize
// returns every item on one page.
func (p *MemoryProvider) All(_ context.Context, pageIndex, pageSize int, withContent bool) (cache.Page, error) {
	now := p.now()
	keys := p.client.ScanKeys()
	sort.Strings(keys)

	items := make([]*cache.OutputCacheItem, 0, len(keys))
	for _, key := range keys {
		if item, ok := p.client.Get(key); ok && item.IsValid(now) {
			items = append(items, item)
		}
	}

	return paginate(items, pageIndex, pageSize, withContent), nil
}

// InvalidateByRoute implements cache.OutputCacheProvider.InvalidateByRoute.
func (p *MemoryProvider) InvalidateByRoute(_ context.Context, routes ...string) (int, error) {
	n := p.invalidateIndexed(p.routes, routes)
	p.logger.Debug("outputcache.memory.invalidate.route", "routes", routes, "removed", n)
	return n, nil
}

// InvalidateByTag implements cache.OutputCacheProvider.InvalidateByTag.
func (p *MemoryProvider) InvalidateByTag(_ context.Context, tags ...string) (int, error) {
	n := p.invalidateIndexed(p.tags, tags)
	p.logger.Debug("outputcache.memory.invalidate.tag", "tags", tags, "removed", n)
	return n, nil
}

// InvalidateByPrefix implements cache.OutputCacheProvider.InvalidateByPrefix.
func (p *MemoryProvider) InvalidateByPrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, key := range p.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) && p.removeKey(key) {
			n++
		}
	}
	p.logger.Debug("outputcache.memory.invalidate.prefix", "prefix", prefix, "removed", n)
	return n, nil
}

// GetLock implements cache.OutputCacheProvider.GetLock.
func (p *MemoryProvider) GetLock(key string) cache.DistributedLock {
	return &memoryLock{key: key, table: p.locks}
}

func (p *MemoryProvider) valid(key string) (*cache.OutputCacheItem, bool) {
	item, ok := p.client.Get(key)
	if !ok {
		return nil, false
	}
	if !item.IsValid(p.now()) {
		p.removeKey(key)
		return nil, false
	}
	return item, true
}

// removeKey deletes key and reports whether a stored item was removed.
func (p *MemoryProvider) removeKey(key string) bool {
	item, ok := p.client.Get(key)
	p.client.Delete(key)
	if ok {
		p.unindex(key, item.RouteKey, item.Tags)
	}
	return ok
}

// invalidateIndexed removes every key listed under any of names in idx.
func (p *MemoryProvider) invalidateIndexed(idx map[string]map[string]struct{}, names []string) int {
	p.mu.Lock()
	keys := make(map[string]struct{})
	for _, name := range names {
		for key := range idx[name] {
			keys[key] = struct{}{}
		}
		delete(idx, name)
	}
	p.mu.Unlock()

	n := 0
	for key := range keys {
		if p.removeKey(key) {
			n++
		}
	}
	return n
}

func (p *MemoryProvider) index(key, route string, tags []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	addToIndex(p.routes, route, key)
	for _, tag := range tags {
		addToIndex(p.tags, tag, key)
	}
}

func (p *MemoryProvider) unindex(key, route string, tags []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	removeFromIndex(p.routes, route, key)
	for _, tag := range tags {
		removeFromIndex(p.tags, tag, key)
	}
}

func addToIndex(idx map[string]map[string]struct{}, name, key string) {
	set, ok := idx[name]
	if !ok {
		set = make(map[string]struct{})
		idx[name] = set
	}
	set[key] = struct{}{}
}

func removeFromIndex(idx map[string]map[string]struct{}, name, key string) {
	set, ok := idx[name]
	if !ok {
		return
	}
	delete(set, key)
	if len(set) == 0 {
		delete(idx, name)
	}
}

func paginate(items []*cache.OutputCacheItem, pageIndex, pageSize int, withContent bool) cache.Page {
	page := cache.Page{PageIndex: pageIndex, PageSize: pageSize, Total: len(items)}
	if pageIndex < 0 {
		page.PageIndex = 0
	}

	window := items
	if pageSize > 0 {
		start := page.PageIndex * pageSize
		if start >= len(items) {
			window = nil
		} else {
			end := start + pageSize
			if end > len(items) {
				end = len(items)
			}
			window = items[start:end]
		}
	} else {
		page.PageSize = len(items)
	}

	page.Items = make([]*cache.OutputCacheItem, 0, len(window))
	for _, item := range window {
		page.Items = append(page.Items, item.Clone(withContent))
	}
	return page
}
