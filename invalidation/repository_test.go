package invalidation

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-output-cache/entity"
	"github.com/goliatone/go-output-cache/tagging"
)

// stubRepository records the calls the tests exercise. Methods it does not
// override hit the nil embedded interface and panic.
type stubRepository[T any] struct {
	repository.Repository[T]

	mu           sync.Mutex
	calls        []string
	getResult    T
	createResult T
	createMany   []T
	updateResult T
	writeError   error
	onDelete     func()
}

func (m *stubRepository[T]) record(method string) {
	m.mu.Lock()
	m.calls = append(m.calls, method)
	m.mu.Unlock()
}

func (m *stubRepository[T]) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *stubRepository[T]) Get(context.Context, ...repository.SelectCriteria) (T, error) {
	m.record("Get")
	return m.getResult, nil
}

func (m *stubRepository[T]) GetByID(context.Context, string, ...repository.SelectCriteria) (T, error) {
	m.record("GetByID")
	return m.getResult, nil
}

func (m *stubRepository[T]) List(context.Context, ...repository.SelectCriteria) ([]T, int, error) {
	m.record("List")
	return nil, 0, nil
}

func (m *stubRepository[T]) Count(context.Context, ...repository.SelectCriteria) (int, error) {
	m.record("Count")
	return 0, nil
}

func (m *stubRepository[T]) GetByIdentifier(context.Context, string, ...repository.SelectCriteria) (T, error) {
	m.record("GetByIdentifier")
	return m.getResult, nil
}

func (m *stubRepository[T]) Create(context.Context, T, ...repository.InsertCriteria) (T, error) {
	m.record("Create")
	return m.createResult, m.writeError
}

func (m *stubRepository[T]) CreateMany(context.Context, []T, ...repository.InsertCriteria) ([]T, error) {
	m.record("CreateMany")
	return m.createMany, m.writeError
}

func (m *stubRepository[T]) Update(context.Context, T, ...repository.UpdateCriteria) (T, error) {
	m.record("Update")
	return m.updateResult, m.writeError
}

func (m *stubRepository[T]) Delete(context.Context, T) error {
	m.record("Delete")
	if m.onDelete != nil {
		m.onDelete()
	}
	return m.writeError
}

func (m *stubRepository[T]) DeleteWhere(context.Context, ...repository.DeleteCriteria) error {
	m.record("DeleteWhere")
	return m.writeError
}

func TestObservedRepository_ReadsPassThrough(t *testing.T) {
	d, p, _ := newTestDispatcher(t, nil)
	store(t, p, "k", "p1")

	base := &stubRepository[*entity.Product]{getResult: &entity.Product{ID: 1}}
	repo := NewObservedRepository[*entity.Product](base, d, nil)

	ctx := context.Background()
	got, err := repo.Get(ctx)
	if err != nil || got.ID != 1 {
		t.Fatalf("unexpected Get result %v, %v", got, err)
	}
	_, _ = repo.GetByID(ctx, "1")
	_, _, _ = repo.List(ctx)
	_, _ = repo.Count(ctx)
	_, _ = repo.GetByIdentifier(ctx, "sku")

	want := []string{"Get", "GetByID", "List", "Count", "GetByIdentifier"}
	if calls := base.recorded(); !reflect.DeepEqual(calls, want) {
		t.Errorf("expected calls %v, got %v", want, calls)
	}
	if !exists(t, p, "k") {
		t.Error("reads must not invalidate")
	}
}

func TestObservedRepository_WritesInvalidate(t *testing.T) {
	tests := []struct {
		name      string
		base      *stubRepository[*entity.Product]
		operation func(*ObservedRepository[*entity.Product]) error
		gone      []string
		kept      []string
	}{
		{
			name: "Create",
			base: &stubRepository[*entity.Product]{createResult: &entity.Product{ID: 1, ParentGroupedProductID: 2}},
			operation: func(r *ObservedRepository[*entity.Product]) error {
				_, err := r.Create(context.Background(), &entity.Product{})
				return err
			},
			gone: []string{"p1", "p2"},
			kept: []string{"p3"},
		},
		{
			name: "CreateMany",
			base: &stubRepository[*entity.Product]{createMany: []*entity.Product{{ID: 1}, {ID: 3}}},
			operation: func(r *ObservedRepository[*entity.Product]) error {
				_, err := r.CreateMany(context.Background(), nil)
				return err
			},
			gone: []string{"p1", "p3"},
			kept: []string{"p2"},
		},
		{
			name: "Update",
			base: &stubRepository[*entity.Product]{updateResult: &entity.Product{ID: 2}},
			operation: func(r *ObservedRepository[*entity.Product]) error {
				_, err := r.Update(context.Background(), &entity.Product{ID: 2})
				return err
			},
			gone: []string{"p2"},
			kept: []string{"p1", "p3"},
		},
		{
			name: "Delete",
			base: &stubRepository[*entity.Product]{},
			operation: func(r *ObservedRepository[*entity.Product]) error {
				return r.Delete(context.Background(), &entity.Product{ID: 3})
			},
			gone: []string{"p3"},
			kept: []string{"p1", "p2"},
		},
		{
			name: "DeleteWhere purges everything",
			base: &stubRepository[*entity.Product]{},
			operation: func(r *ObservedRepository[*entity.Product]) error {
				return r.DeleteWhere(context.Background())
			},
			gone: []string{"p1", "p2", "p3"},
		},
		{
			name: "failed write keeps cache",
			base: &stubRepository[*entity.Product]{updateResult: &entity.Product{ID: 2}, writeError: errors.New("db down")},
			operation: func(r *ObservedRepository[*entity.Product]) error {
				if _, err := r.Update(context.Background(), &entity.Product{ID: 2}); err == nil {
					return errors.New("expected error from base")
				}
				return nil
			},
			kept: []string{"p1", "p2", "p3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p, _ := newTestDispatcher(t, nil)
			for _, tag := range []string{"p1", "p2", "p3"} {
				store(t, p, tag, tag)
			}

			repo := NewObservedRepository[*entity.Product](tt.base, d, nil)
			if err := tt.operation(repo); err != nil {
				t.Fatalf("operation failed: %v", err)
			}

			for _, k := range tt.gone {
				if exists(t, p, k) {
					t.Errorf("expected %s to be invalidated", k)
				}
			}
			for _, k := range tt.kept {
				if !exists(t, p, k) {
					t.Errorf("expected %s to be kept", k)
				}
			}
		})
	}
}

func TestObservedRepository_DeleteResolvesTagsFirst(t *testing.T) {
	lookup := &stubLookup{byTag: map[int64][]int64{9: {1, 2}}}
	d, p, _ := newTestDispatcher(t, lookup)
	store(t, p, "p1", "p1")
	store(t, p, "p2", "p2")

	base := &stubRepository[*entity.ProductTag]{onDelete: func() {
		// mapping rows disappear with the tag
		lookup.byTag = nil
	}}
	repo := NewObservedRepository[*entity.ProductTag](base, d, nil)

	if err := repo.Delete(context.Background(), &entity.ProductTag{ID: 9}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if exists(t, p, "p1") || exists(t, p, "p2") {
		t.Error("expected products of the deleted tag to be invalidated")
	}
}

type stubLookup struct {
	tagging.Lookup
	byTag map[int64][]int64
}

func (s *stubLookup) ProductIDsByProductTag(_ context.Context, id int64) ([]int64, error) {
	return s.byTag[id], nil
}
