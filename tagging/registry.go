package tagging

import (
	"context"
	"reflect"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-output-cache/entity"
)

// Handler computes the cache tags of one entity. It may use r for lookups
// and for resolving related entities.
type Handler func(ctx context.Context, e entity.Entity, r *Resolver) ([]string, error)

// Registry maps entity runtime types to tag handlers. It is safe for
// concurrent use; registrations are additive and never cleared.
type Registry struct {
	handlers *xsync.MapOf[string, Handler]
	names    *xsync.MapOf[string, string]
}

// NewRegistry returns an empty registry. Use NewDefaultRegistry for one
// pre-populated with the storefront handlers.
func NewRegistry() *Registry {
	return &Registry{
		handlers: xsync.NewMapOf[string, Handler](),
		names:    xsync.NewMapOf[string, string](),
	}
}

// Register binds h to the runtime type of sample. A later registration for
// the same type replaces the earlier one.
func (reg *Registry) Register(sample entity.Entity, h Handler) {
	if sample == nil || h == nil {
		return
	}
	t := reflect.TypeOf(sample)
	k := typeKey(t)
	reg.handlers.Store(k, h)
	reg.names.Store(k, sample.EntityName())
}

// RegisterHandlerFor registers a typed handler for T, which is usually a
// pointer to an entity struct.
func RegisterHandlerFor[T entity.Entity](reg *Registry, h func(ctx context.Context, e T, r *Resolver) ([]string, error)) {
	var zero T
	t := reflect.TypeFor[T]()
	k := typeKey(t)
	reg.handlers.Store(k, func(ctx context.Context, e entity.Entity, r *Resolver) ([]string, error) {
		typed, ok := e.(T)
		if !ok {
			return nil, nil
		}
		return h(ctx, typed, r)
	})
	reg.names.Store(k, entityName(t, zero))
}

// HandlerFor returns the handler registered for the runtime type of e.
func (reg *Registry) HandlerFor(e entity.Entity) (Handler, bool) {
	if e == nil {
		return nil, false
	}
	return reg.handlers.Load(typeKey(reflect.TypeOf(e)))
}

// IsTracked reports whether e's type has a handler.
func (reg *Registry) IsTracked(e entity.Entity) bool {
	_, ok := reg.HandlerFor(e)
	return ok
}

// Len returns the number of registered types.
func (reg *Registry) Len() int {
	return reg.handlers.Size()
}

// EntityNames lists the logical names of all tracked types, sorted.
func (reg *Registry) EntityNames() []string {
	out := make([]string, 0, reg.names.Size())
	reg.names.Range(func(_ string, name string) bool {
		out = append(out, name)
		return true
	})
	sort.Strings(out)
	return out
}

func typeKey(t reflect.Type) string {
	base := t
	for base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	return base.PkgPath() + "|" + t.String()
}

// entityName asks a zero value of T for its name. Pointer types get a fresh
// element so pointer receivers do not see nil.
func entityName[T entity.Entity](t reflect.Type, zero T) string {
	if t.Kind() == reflect.Ptr {
		if e, ok := reflect.New(t.Elem()).Interface().(entity.Entity); ok {
			return e.EntityName()
		}
	}
	if !entity.IsNil(zero) {
		return zero.EntityName()
	}
	return t.String()
}
