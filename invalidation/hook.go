package invalidation

import (
	"context"
	"reflect"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-output-cache/entity"
	ilog "github.com/goliatone/go-output-cache/internal/log"
)

var _ bun.QueryHook = (*QueryHook)(nil)

type (
	pendingKey struct{}
	setKey     struct{}
)

// QueryHook invalidates the output cache for models written through bun.
// Deletes are prepared before the statement runs; inserts and updates after
// it succeeded. Deletes and updates that name no persisted row, such as
// Model((*T)(nil)).Where(...), purge everything when T is tracked. Failures
// are logged and never fail the query. Invalidation runs per statement, so a
// rolled back transaction still purges.
type QueryHook struct {
	dispatcher *Dispatcher
	logger     ilog.Logger
}

// NewQueryHook creates a hook for db.AddQueryHook.
func NewQueryHook(d *Dispatcher, logger ilog.Logger) *QueryHook {
	return &QueryHook{dispatcher: d, logger: ilog.OrNop(logger)}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	if event.Operation() != "DELETE" {
		return ctx
	}

	entities := modelEntities(event.Model)
	if sample, ok := setSample(event.Model, entities); ok {
		return context.WithValue(ctx, setKey{}, sample)
	}

	var pending []*Pending
	for _, e := range entities {
		p, err := h.dispatcher.Prepare(ctx, e, StateDeleted)
		if err != nil {
			h.logger.Error("outputcache.hook.prepare", "entity", e.EntityName(), "id", e.GetID(), "error", err)
			continue
		}
		if p != nil {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return ctx
	}
	return context.WithValue(ctx, pendingKey{}, pending)
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}

	var pending []*Pending
	switch event.Operation() {
	case "DELETE":
		if sample, ok := ctx.Value(setKey{}).(entity.Entity); ok {
			if err := h.dispatcher.EntitySetChanged(ctx, sample); err != nil {
				h.logger.Error("outputcache.hook.invalidate_all", "entity", sample.EntityName(), "error", err)
			}
			return
		}
		pending, _ = ctx.Value(pendingKey{}).([]*Pending)
	case "INSERT", "UPDATE":
		entities := modelEntities(event.Model)
		state := StateModified
		if event.Operation() == "INSERT" {
			state = StateAdded
		} else if sample, ok := setSample(event.Model, entities); ok {
			if err := h.dispatcher.EntitySetChanged(ctx, sample); err != nil {
				h.logger.Error("outputcache.hook.invalidate_all", "entity", sample.EntityName(), "error", err)
			}
			return
		}
		for _, e := range entities {
			p, err := h.dispatcher.Prepare(ctx, e, state)
			if err != nil {
				h.logger.Error("outputcache.hook.prepare", "entity", e.EntityName(), "id", e.GetID(), "error", err)
				continue
			}
			if p != nil {
				pending = append(pending, p)
			}
		}
	default:
		return
	}

	for _, p := range pending {
		if _, err := p.Commit(ctx); err != nil {
			h.logger.Error("outputcache.hook.commit", "entity", p.entity.EntityName(), "id", p.entity.GetID(), "error", err)
		}
	}
}

// modelEntities extracts the entities behind a bun model: a single struct
// pointer or a slice of structs or struct pointers.
func modelEntities(model bun.Model) []entity.Entity {
	if model == nil {
		return nil
	}
	v := model.Value()
	if e, ok := v.(entity.Entity); ok {
		if entity.IsNil(e) {
			return nil
		}
		return []entity.Entity{e}
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice {
		return nil
	}

	out := make([]entity.Entity, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		if elem.Kind() != reflect.Ptr && elem.CanAddr() {
			elem = elem.Addr()
		}
		if e, ok := elem.Interface().(entity.Entity); ok && !entity.IsNil(e) {
			out = append(out, e)
		}
	}
	return out
}

// setSample returns a fresh entity of the model's type when none of es is
// persisted.
func setSample(model bun.Model, es []entity.Entity) (entity.Entity, bool) {
	for _, e := range es {
		if !entity.IsTransient(e) {
			return nil, false
		}
	}
	if model == nil {
		return nil, false
	}
	t := reflect.TypeOf(model.Value())
	for t != nil && (t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, false
	}
	e, ok := reflect.New(t).Interface().(entity.Entity)
	return e, ok
}
