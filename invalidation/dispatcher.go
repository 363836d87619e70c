// Package invalidation purges output cache entries when the entities they
// display are persisted.
package invalidation

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-output-cache/cache"
	"github.com/goliatone/go-output-cache/entity"
	ilog "github.com/goliatone/go-output-cache/internal/log"
	"github.com/goliatone/go-output-cache/internal/metrics"
	"github.com/goliatone/go-output-cache/tagging"
)

// EntityState is the persistence operation an entity went through.
type EntityState int

const (
	StateAdded EntityState = iota + 1
	StateModified
	StateDeleted
)

func (s EntityState) String() string {
	switch s {
	case StateAdded:
		return "added"
	case StateModified:
		return "modified"
	case StateDeleted:
		return "deleted"
	}
	return "unknown"
}

// ObserveEntityContext is handed to entity observers. Setting Handled stops
// later observers and the default tag invalidation.
type ObserveEntityContext struct {
	Entity   entity.Entity
	State    EntityState
	Provider cache.OutputCacheProvider
	Resolver *tagging.Resolver
	// Tags were resolved before the change was committed.
	Tags    []string
	Handled bool
}

// EntityObserver reacts to a changed tracked entity.
type EntityObserver func(ctx context.Context, oc *ObserveEntityContext) error

// SettingObserver reacts to a changed setting.
type SettingObserver func(ctx context.Context, s *entity.Setting, provider cache.OutputCacheProvider) error

// Dispatcher resolves the tags of changed entities and purges the cache.
type Dispatcher struct {
	provider cache.OutputCacheProvider
	resolver *tagging.Resolver
	logger   ilog.Logger
	metrics  metrics.Interface

	mu        sync.RWMutex
	observers []EntityObserver
	settings  map[string][]SettingObserver
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(l ilog.Logger) Option {
	return func(d *Dispatcher) { d.logger = ilog.OrNop(l) }
}

func WithMetrics(m metrics.Interface) Option {
	return func(d *Dispatcher) { d.metrics = metrics.OrNoop(m) }
}

// NewDispatcher creates a dispatcher purging provider.
func NewDispatcher(provider cache.OutputCacheProvider, resolver *tagging.Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		provider: provider,
		resolver: resolver,
		logger:   ilog.Nop{},
		metrics:  metrics.Noop{},
		settings: make(map[string][]SettingObserver),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Provider() cache.OutputCacheProvider { return d.provider }
func (d *Dispatcher) Resolver() *tagging.Resolver { return d.resolver }

// ObserveEntity appends an observer. Observers run in registration order.
func (d *Dispatcher) ObserveEntity(fn EntityObserver) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

// ObserveSetting registers fn for settings named key (case-insensitive).
func (d *Dispatcher) ObserveSetting(key string, fn SettingObserver) {
	if fn == nil {
		return
	}
	k := strings.ToLower(key)
	d.mu.Lock()
	d.settings[k] = append(d.settings[k], fn)
	d.mu.Unlock()
}

// IsObserved reports whether changes to e can affect the cache.
func (d *Dispatcher) IsObserved(e entity.Entity) bool {
	if entity.IsNil(e) {
		return false
	}
	if s, ok := e.(*entity.Setting); ok {
		return d.hasSettingObservers(s.Name)
	}
	return d.resolver.IsTracked(e)
}

func (d *Dispatcher) hasSettingObservers(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.settings[strings.ToLower(name)]) > 0
}

// Pending is a change whose tags were resolved but not yet invalidated.
// A nil Pending commits nothing.
type Pending struct {
	d       *Dispatcher
	entity  entity.Entity
	state   EntityState
	tags    []string
	setting *entity.Setting
}

// Tags returns the tags resolved by Prepare.
func (p *Pending) Tags() []string {
	if p == nil {
		return nil
	}
	return p.tags
}

// Prepare resolves tags for e now. Deletes must be prepared before the row
// and its associations are gone. Untracked and transient entities yield a
// nil Pending.
func (d *Dispatcher) Prepare(ctx context.Context, e entity.Entity, state EntityState) (*Pending, error) {
	if entity.IsNil(e) {
		return nil, nil
	}
	if s, ok := e.(*entity.Setting); ok {
		if !d.hasSettingObservers(s.Name) {
			return nil, nil
		}
		return &Pending{d: d, entity: e, state: state, setting: s}, nil
	}
	if entity.IsTransient(e) || !d.resolver.IsTracked(e) {
		return nil, nil
	}

	tags, err := d.resolver.TagsFor(ctx, e)
	if err != nil {
		return nil, err
	}
	return &Pending{d: d, entity: e, state: state, tags: tags}, nil
}

// Commit runs the observers and, unless one handled the change, purges
// every item carrying one of the prepared tags. It returns the number of
// purged items.
func (p *Pending) Commit(ctx context.Context) (int, error) {
	if p == nil {
		return 0, nil
	}
	d := p.d
	if p.setting != nil {
		return 0, d.commitSetting(ctx, p.setting)
	}

	d.mu.RLock()
	observers := append([]EntityObserver(nil), d.observers...)
	d.mu.RUnlock()

	oc := &ObserveEntityContext{
		Entity:   p.entity,
		State:    p.state,
		Provider: d.provider,
		Resolver: d.resolver,
		Tags:     p.tags,
	}
	for _, fn := range observers {
		if err := fn(ctx, oc); err != nil {
			return 0, err
		}
		if oc.Handled {
			d.logger.Debug("outputcache.invalidation.handled", "entity", p.entity.EntityName(), "id", p.entity.GetID())
			return 0, nil
		}
	}

	if len(oc.Tags) == 0 {
		return 0, nil
	}
	n, err := d.provider.InvalidateByTag(ctx, oc.Tags...)
	if err != nil {
		return n, err
	}
	d.metrics.AddInvalidated("tag", n)
	d.logger.Debug("outputcache.invalidation.tags",
		"entity", p.entity.EntityName(),
		"id", p.entity.GetID(),
		"state", p.state.String(),
		"tags", oc.Tags,
		"removed", n,
	)
	return n, nil
}

func (d *Dispatcher) commitSetting(ctx context.Context, s *entity.Setting) error {
	d.mu.RLock()
	observers := append([]SettingObserver(nil), d.settings[strings.ToLower(s.Name)]...)
	d.mu.RUnlock()

	for _, fn := range observers {
		if err := fn(ctx, s, d.provider); err != nil {
			return err
		}
	}
	d.logger.Debug("outputcache.invalidation.setting", "name", s.Name, "observers", len(observers))
	return nil
}

// EntityChanged prepares and commits in one step. Use it when the change is
// already persisted and tags can still be resolved.
func (d *Dispatcher) EntityChanged(ctx context.Context, e entity.Entity, state EntityState) (int, error) {
	p, err := d.Prepare(ctx, e, state)
	if err != nil {
		return 0, err
	}
	return p.Commit(ctx)
}

// EntitySetChanged handles writes that cannot be attributed to single
// entities, such as criteria based deletes. When sample's type is tracked
// the whole cache is purged.
func (d *Dispatcher) EntitySetChanged(ctx context.Context, sample entity.Entity) error {
	if entity.IsNil(sample) || !d.resolver.IsTracked(sample) {
		return nil
	}
	n, err := d.provider.Count(ctx)
	if err != nil {
		d.logger.Error("outputcache.invalidation.count", "entity", sample.EntityName(), "error", err)
		n = 0
	}
	if err := d.provider.RemoveAll(ctx); err != nil {
		return err
	}
	d.metrics.AddInvalidated("all", n)
	d.logger.Info("outputcache.invalidation.all", "entity", sample.EntityName(), "removed", n)
	return nil
}
