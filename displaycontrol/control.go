// Package displaycontrol records which entities a request rendered so the
// output cache can tag the response with them.
package displaycontrol

import (
	"context"
	"reflect"
	"sync"

	"github.com/goliatone/go-output-cache/entity"
	"github.com/goliatone/go-output-cache/tagging"
)

// DisplayControl is the per-request set of displayed entities. All methods
// are safe for concurrent use so fragments may render in parallel.
type DisplayControl struct {
	resolver *tagging.Resolver

	mu          sync.Mutex
	displayed   []entity.Entity
	keys        map[entity.Key]struct{}
	transient   map[uintptr]struct{}
	idle        int
	uncacheable bool
}

// New creates an empty control that resolves tags with resolver.
func New(resolver *tagging.Resolver) *DisplayControl {
	if resolver == nil {
		resolver = tagging.NewResolver(nil, nil)
	}
	return &DisplayControl{
		resolver:  resolver,
		keys:      make(map[entity.Key]struct{}),
		transient: make(map[uintptr]struct{}),
	}
}

// Announce marks e as displayed. Nil entities and announcements made inside
// an idle scope are ignored.
func (dc *DisplayControl) Announce(e entity.Entity) {
	if entity.IsNil(e) {
		return
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.announceLocked(e)
}

// AnnounceRange announces each of es.
func (dc *DisplayControl) AnnounceRange(es ...entity.Entity) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	for _, e := range es {
		if !entity.IsNil(e) {
			dc.announceLocked(e)
		}
	}
}

func (dc *DisplayControl) announceLocked(e entity.Entity) {
	if dc.idle > 0 {
		return
	}
	if entity.IsTransient(e) {
		if p, ok := instance(e); ok {
			if _, seen := dc.transient[p]; seen {
				return
			}
			dc.transient[p] = struct{}{}
		}
		dc.displayed = append(dc.displayed, e)
		return
	}
	k := entity.KeyOf(e)
	if _, ok := dc.keys[k]; ok {
		return
	}
	dc.keys[k] = struct{}{}
	dc.displayed = append(dc.displayed, e)
}

// IsDisplayed reports whether an entity with e's type name and id was
// announced. Transient entities share no identity, so only the announced
// instance itself matches.
func (dc *DisplayControl) IsDisplayed(e entity.Entity) bool {
	if entity.IsNil(e) {
		return false
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if entity.IsTransient(e) {
		p, ok := instance(e)
		if !ok {
			return false
		}
		_, ok = dc.transient[p]
		return ok
	}
	_, ok := dc.keys[entity.KeyOf(e)]
	return ok
}

// instance returns the address of a pointer entity. Announced entities stay
// referenced by displayed, so the address is not reused while dc lives.
func instance(e entity.Entity) (uintptr, bool) {
	v := reflect.ValueOf(e)
	if v.Kind() != reflect.Ptr {
		return 0, false
	}
	return v.Pointer(), true
}

// Displayed returns the announced entities in announcement order.
func (dc *DisplayControl) Displayed() []entity.Entity {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return append([]entity.Entity(nil), dc.displayed...)
}

// BeginIdleScope suppresses announcements until the returned release func
// is called. Scopes nest and release may be called more than once.
//
//	defer dc.BeginIdleScope()()
func (dc *DisplayControl) BeginIdleScope() (release func()) {
	dc.mu.Lock()
	dc.idle++
	dc.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			dc.mu.Lock()
			dc.idle--
			dc.mu.Unlock()
		})
	}
}

// IsIdle reports whether an idle scope is open.
func (dc *DisplayControl) IsIdle() bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.idle > 0
}

// MarkRequestAsUncacheable prevents the response from being stored. It
// cannot be undone.
func (dc *DisplayControl) MarkRequestAsUncacheable() {
	dc.mu.Lock()
	dc.uncacheable = true
	dc.mu.Unlock()
}

func (dc *DisplayControl) IsUncacheableRequest() bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.uncacheable
}

// CacheControlTagsFor returns the tags of e. Nil, transient and untracked
// entities have none.
func (dc *DisplayControl) CacheControlTagsFor(ctx context.Context, e entity.Entity) ([]string, error) {
	return dc.resolver.TagsFor(ctx, e)
}

// AllCacheControlTags returns the deduplicated union of the tags of every
// persisted announced entity, in first seen order.
func (dc *DisplayControl) AllCacheControlTags(ctx context.Context) ([]string, error) {
	var tags []string
	for _, e := range dc.Displayed() {
		if e.GetID() <= 0 {
			continue
		}
		t, err := dc.resolver.TagsFor(ctx, e)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t...)
	}
	return tagging.Dedupe(tags), nil
}
