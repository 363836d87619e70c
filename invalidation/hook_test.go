package invalidation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-output-cache/entity"
	"github.com/goliatone/go-output-cache/internal/catalogdb"
	"github.com/goliatone/go-output-cache/internal/cacheinfra"
	"github.com/goliatone/go-output-cache/pkg/testsupport"
	"github.com/goliatone/go-output-cache/tagging"
)

func newHookedDB(t *testing.T) (*bun.DB, *cacheinfra.MemoryProvider) {
	t.Helper()
	db := testsupport.OpenCatalogDB(t, testsupport.DemoCatalog(t))
	p := newTestProvider(t)
	resolver := tagging.NewResolver(tagging.NewDefaultRegistry(), catalogdb.NewStore(db))
	db.AddQueryHook(NewQueryHook(NewDispatcher(p, resolver), nil))
	return db, p
}

func TestQueryHook_Insert(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "product-1", "p1")
	store(t, p, "category-11", "c11")
	store(t, p, "product-2", "p2")

	_, err := db.NewInsert().Model(&entity.ProductCategory{ProductID: 1, CategoryID: 11}).Exec(ctx)
	require.NoError(t, err)

	assert.False(t, exists(t, p, "product-1"))
	assert.False(t, exists(t, p, "category-11"))
	assert.True(t, exists(t, p, "product-2"))
}

func TestQueryHook_InsertSlice(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "c200", "c200")
	store(t, p, "c201", "c201")

	cats := []*entity.Category{{ID: 200, Name: "New"}, {ID: 201, Name: "Newer"}}
	_, err := db.NewInsert().Model(&cats).Exec(ctx)
	require.NoError(t, err)

	assert.False(t, exists(t, p, "c200"))
	assert.False(t, exists(t, p, "c201"))
}

func TestQueryHook_Update(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "product-2", "p2")
	store(t, p, "product-1", "p1")

	_, err := db.NewUpdate().
		Model(&entity.Product{ID: 2, Name: "Road Shoe II", Sku: "RS-2", Published: true}).
		WherePK().
		Exec(ctx)
	require.NoError(t, err)

	assert.False(t, exists(t, p, "product-2"))
	assert.True(t, exists(t, p, "product-1"))
}

// Deleting a tag removes its mappings' meaning, so products are resolved
// before the row goes away.
func TestQueryHook_DeleteResolvesBeforeStatement(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "product-1", "p1")
	store(t, p, "product-2", "p2")
	store(t, p, "product-3", "p3")

	_, err := db.NewDelete().Model(&entity.ProductTag{ID: 30}).WherePK().Exec(ctx)
	require.NoError(t, err)

	assert.False(t, exists(t, p, "product-1"))
	assert.False(t, exists(t, p, "product-2"))
	assert.True(t, exists(t, p, "product-3"))
}

func TestQueryHook_FailedQueryDoesNotInvalidate(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "category-10", "c10")

	_, err := db.NewDelete().Model(&entity.Category{ID: 10}).Where("no_such_column = 1").Exec(ctx)
	require.Error(t, err)

	assert.True(t, exists(t, p, "category-10"))
}

func TestQueryHook_SelectIsIgnored(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "category-10", "c10")

	c := &entity.Category{ID: 10}
	require.NoError(t, db.NewSelect().Model(c).WherePK().Scan(ctx))

	assert.True(t, exists(t, p, "category-10"))
}

func TestModelEntities(t *testing.T) {
	db := testsupport.OpenCatalogDB(t, nil)

	single := db.NewInsert().Model(&entity.Product{ID: 1}).GetModel()
	assert.Len(t, modelEntities(single), 1)

	values := []entity.Category{{ID: 1}, {ID: 2}}
	slice := db.NewInsert().Model(&values).GetModel()
	got := modelEntities(slice)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].GetID())

	assert.Empty(t, modelEntities(nil))
}

func TestQueryHook_CriteriaDeletePurgesAll(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "product-1", "p1")
	store(t, p, "category-10", "c10")

	_, err := db.NewDelete().Model((*entity.Product)(nil)).Where("id = ?", 4).Exec(ctx)
	require.NoError(t, err)

	assert.False(t, exists(t, p, "product-1"))
	assert.False(t, exists(t, p, "category-10"))
}

func TestQueryHook_CriteriaUpdatePurgesAll(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "product-1", "p1")
	store(t, p, "product-2", "p2")

	_, err := db.NewUpdate().
		Model((*entity.Product)(nil)).
		Set("published = ?", false).
		Where("id IN (?)", bun.In([]int64{1, 2})).
		Exec(ctx)
	require.NoError(t, err)

	assert.False(t, exists(t, p, "product-1"))
	assert.False(t, exists(t, p, "product-2"))
}

func TestQueryHook_CriteriaUpdateOfUntrackedTypeIsIgnored(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "product-1", "p1")

	_, err := db.NewUpdate().
		Model((*entity.ProductTagMapping)(nil)).
		Set("product_tag_id = product_tag_id").
		Where("product_tag_id = ?", 30).
		Exec(ctx)
	require.NoError(t, err)

	assert.True(t, exists(t, p, "product-1"))
}

func TestQueryHook_CriteriaDeleteOfMappingRowsIsIgnored(t *testing.T) {
	ctx := context.Background()
	db, p := newHookedDB(t)
	store(t, p, "product-1", "p1")

	_, err := db.NewDelete().Model((*entity.ProductTagMapping)(nil)).Where("product_tag_id = ?", 30).Exec(ctx)
	require.NoError(t, err)

	assert.True(t, exists(t, p, "product-1"))
}

func TestSetSample(t *testing.T) {
	db := testsupport.OpenCatalogDB(t, nil)

	model := db.NewDelete().Model((*entity.Category)(nil)).GetModel()
	sample, ok := setSample(model, modelEntities(model))
	require.True(t, ok)
	assert.Equal(t, "Category", sample.EntityName())

	transient := db.NewDelete().Model(&entity.Category{}).GetModel()
	_, ok = setSample(transient, modelEntities(transient))
	assert.True(t, ok)

	persisted := db.NewDelete().Model(&entity.Category{ID: 10}).GetModel()
	_, ok = setSample(persisted, modelEntities(persisted))
	assert.False(t, ok)

	mapping := db.NewDelete().Model((*entity.ProductTagMapping)(nil)).GetModel()
	_, ok = setSample(mapping, nil)
	assert.False(t, ok)
}
