package tagging

import (
	"context"

	perr "github.com/jmgilman/go/errors"

	"github.com/goliatone/go-output-cache/entity"
	ilog "github.com/goliatone/go-output-cache/internal/log"
)

// MaxResolveDepth bounds nested resolution, e.g. a localized property whose
// owner resolves through another handler.
const MaxResolveDepth = 4

// ErrNoLookup is returned by handlers that need a Lookup when the resolver
// was built without one.
var ErrNoLookup = perr.New(perr.CodeInvalidConfig, "tag resolver has no lookup configured")

type depthKey struct{}

// Resolver turns entities into cache tags using a Registry and an optional
// Lookup for handlers that need to query related rows.
type Resolver struct {
	registry *Registry
	lookup   Lookup
	logger   ilog.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used for depth guard and lookup events.
func WithResolverLogger(l ilog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = ilog.OrNop(l) }
}

// NewResolver creates a resolver. lookup may be nil when only handlers that
// derive tags from the entity itself are in use.
func NewResolver(registry *Registry, lookup Lookup, opts ...ResolverOption) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	r := &Resolver{registry: registry, lookup: lookup, logger: ilog.Nop{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Registry() *Registry { return r.registry }

// Lookup returns the configured lookup or ErrNoLookup.
func (r *Resolver) Lookup() (Lookup, error) {
	if r.lookup == nil {
		return nil, ErrNoLookup
	}
	return r.lookup, nil
}

// IsTracked reports whether e has a registered handler.
func (r *Resolver) IsTracked(e entity.Entity) bool {
	return !entity.IsNil(e) && r.registry.IsTracked(e)
}

// TagsFor returns the deduplicated tags of e. Nil and transient entities and
// untracked types yield no tags. Handler errors are returned unchanged.
func (r *Resolver) TagsFor(ctx context.Context, e entity.Entity) ([]string, error) {
	if entity.IsTransient(e) {
		return nil, nil
	}
	h, ok := r.registry.HandlerFor(e)
	if !ok {
		return nil, nil
	}

	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= MaxResolveDepth {
		r.logger.Debug("tagging.resolve.depth_exceeded", "entity", e.EntityName(), "id", e.GetID(), "depth", depth)
		return nil, nil
	}

	tags, err := h(context.WithValue(ctx, depthKey{}, depth+1), e, r)
	if err != nil {
		return nil, err
	}
	return Dedupe(tags), nil
}
