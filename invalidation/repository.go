package invalidation

import (
	"context"
	"reflect"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-output-cache/entity"
	ilog "github.com/goliatone/go-output-cache/internal/log"
)

var _ repository.Repository[*entity.Product] = (*ObservedRepository[*entity.Product])(nil)

// ObservedRepository decorates a repository so that successful writes
// invalidate the output cache. Reads pass through untouched. Invalidation
// errors are logged; the write result is returned as the base produced it.
type ObservedRepository[T any] struct {
	base       repository.Repository[T]
	dispatcher *Dispatcher
	logger     ilog.Logger
}

// NewObservedRepository wraps base.
func NewObservedRepository[T any](base repository.Repository[T], d *Dispatcher, logger ilog.Logger) *ObservedRepository[T] {
	return &ObservedRepository[T]{
		base:       base,
		dispatcher: d,
		logger:     ilog.OrNop(logger),
	}
}

func (r *ObservedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.Get(ctx, criteria...)
}

func (r *ObservedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetByID(ctx, id, criteria...)
}

func (r *ObservedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return r.base.List(ctx, criteria...)
}

func (r *ObservedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	return r.base.Count(ctx, criteria...)
}

func (r *ObservedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetByIdentifier(ctx, identifier, criteria...)
}

func (r *ObservedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetTx(ctx, tx, criteria...)
}

func (r *ObservedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetByIDTx(ctx, tx, id, criteria...)
}

func (r *ObservedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return r.base.ListTx(ctx, tx, criteria...)
}

func (r *ObservedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return r.base.CountTx(ctx, tx, criteria...)
}

func (r *ObservedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return r.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

func (r *ObservedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return r.base.Raw(ctx, sql, args...)
}

func (r *ObservedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return r.base.RawTx(ctx, tx, sql, args...)
}

func (r *ObservedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return r.base.Handlers()
}

// Create creates a record and invalidates the tags of the stored result.
func (r *ObservedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := r.base.Create(ctx, record, criteria...)
	if err == nil {
		r.changed(ctx, StateAdded, result)
	}
	return result, err
}

func (r *ObservedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := r.base.CreateTx(ctx, tx, record, criteria...)
	if err == nil {
		r.changed(ctx, StateAdded, result)
	}
	return result, err
}

func (r *ObservedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := r.base.CreateMany(ctx, records, criteria...)
	if err == nil {
		r.changed(ctx, StateAdded, result...)
	}
	return result, err
}

func (r *ObservedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := r.base.CreateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		r.changed(ctx, StateAdded, result...)
	}
	return result, err
}

// GetOrCreate may insert, so it is treated like a create.
func (r *ObservedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := r.base.GetOrCreate(ctx, record)
	if err == nil {
		r.changed(ctx, StateAdded, result)
	}
	return result, err
}

func (r *ObservedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	result, err := r.base.GetOrCreateTx(ctx, tx, record)
	if err == nil {
		r.changed(ctx, StateAdded, result)
	}
	return result, err
}

func (r *ObservedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.base.Update(ctx, record, criteria...)
	if err == nil {
		r.changed(ctx, StateModified, result)
	}
	return result, err
}

func (r *ObservedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.base.UpdateTx(ctx, tx, record, criteria...)
	if err == nil {
		r.changed(ctx, StateModified, result)
	}
	return result, err
}

func (r *ObservedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := r.base.UpdateMany(ctx, records, criteria...)
	if err == nil {
		r.changed(ctx, StateModified, result...)
	}
	return result, err
}

func (r *ObservedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := r.base.UpdateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		r.changed(ctx, StateModified, result...)
	}
	return result, err
}

func (r *ObservedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.base.Upsert(ctx, record, criteria...)
	if err == nil {
		r.changed(ctx, StateModified, result)
	}
	return result, err
}

func (r *ObservedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.base.UpsertTx(ctx, tx, record, criteria...)
	if err == nil {
		r.changed(ctx, StateModified, result)
	}
	return result, err
}

func (r *ObservedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := r.base.UpsertMany(ctx, records, criteria...)
	if err == nil {
		r.changed(ctx, StateModified, result...)
	}
	return result, err
}

func (r *ObservedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := r.base.UpsertManyTx(ctx, tx, records, criteria...)
	if err == nil {
		r.changed(ctx, StateModified, result...)
	}
	return result, err
}

// Delete resolves the record's tags first, while its associations still
// exist, and invalidates once the delete succeeded.
func (r *ObservedRepository[T]) Delete(ctx context.Context, record T) error {
	pending := r.prepareDelete(ctx, record)
	err := r.base.Delete(ctx, record)
	if err == nil {
		r.commit(ctx, pending)
	}
	return err
}

func (r *ObservedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	pending := r.prepareDelete(ctx, record)
	err := r.base.DeleteTx(ctx, tx, record)
	if err == nil {
		r.commit(ctx, pending)
	}
	return err
}

func (r *ObservedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	pending := r.prepareDelete(ctx, record)
	err := r.base.ForceDelete(ctx, record)
	if err == nil {
		r.commit(ctx, pending)
	}
	return err
}

func (r *ObservedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	pending := r.prepareDelete(ctx, record)
	err := r.base.ForceDeleteTx(ctx, tx, record)
	if err == nil {
		r.commit(ctx, pending)
	}
	return err
}

// DeleteMany removes rows matched by criteria. The rows are unknown, so a
// tracked type purges the whole cache.
func (r *ObservedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := r.base.DeleteMany(ctx, criteria...)
	if err == nil {
		r.setChanged(ctx)
	}
	return err
}

func (r *ObservedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := r.base.DeleteManyTx(ctx, tx, criteria...)
	if err == nil {
		r.setChanged(ctx)
	}
	return err
}

func (r *ObservedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := r.base.DeleteWhere(ctx, criteria...)
	if err == nil {
		r.setChanged(ctx)
	}
	return err
}

func (r *ObservedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := r.base.DeleteWhereTx(ctx, tx, criteria...)
	if err == nil {
		r.setChanged(ctx)
	}
	return err
}

func (r *ObservedRepository[T]) changed(ctx context.Context, state EntityState, records ...T) {
	for _, record := range records {
		e, ok := asEntity(record)
		if !ok {
			continue
		}
		if _, err := r.dispatcher.EntityChanged(ctx, e, state); err != nil {
			r.logger.Error("outputcache.repository.invalidate", "entity", e.EntityName(), "id", e.GetID(), "state", state.String(), "error", err)
		}
	}
}

func (r *ObservedRepository[T]) prepareDelete(ctx context.Context, record T) *Pending {
	e, ok := asEntity(record)
	if !ok {
		return nil
	}
	p, err := r.dispatcher.Prepare(ctx, e, StateDeleted)
	if err != nil {
		r.logger.Error("outputcache.repository.prepare", "entity", e.EntityName(), "id", e.GetID(), "error", err)
		return nil
	}
	return p
}

func (r *ObservedRepository[T]) commit(ctx context.Context, p *Pending) {
	if _, err := p.Commit(ctx); err != nil {
		r.logger.Error("outputcache.repository.invalidate", "entity", p.entity.EntityName(), "id", p.entity.GetID(), "error", err)
	}
}

func (r *ObservedRepository[T]) setChanged(ctx context.Context) {
	sample, ok := sampleEntity[T]()
	if !ok {
		return
	}
	if err := r.dispatcher.EntitySetChanged(ctx, sample); err != nil {
		r.logger.Error("outputcache.repository.invalidate_all", "entity", sample.EntityName(), "error", err)
	}
}

// sampleEntity returns a fresh T for type based dispatch.
func sampleEntity[T any]() (entity.Entity, bool) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Ptr {
		return asEntity(reflect.New(t.Elem()).Interface())
	}
	var zero T
	return asEntity(zero)
}

func asEntity[T any](record T) (entity.Entity, bool) {
	e, ok := any(record).(entity.Entity)
	if !ok || entity.IsNil(e) {
		return nil, false
	}
	return e, true
}
