package catalogdb

import (
	"context"
	"database/sql"
	"errors"

	perr "github.com/jmgilman/go/errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-output-cache/entity"
	"github.com/goliatone/go-output-cache/tagging"
)

var _ tagging.Lookup = (*Store)(nil)

// Store answers tagging lookups with bun queries.
type Store struct {
	db bun.IDB
}

func NewStore(db bun.IDB) *Store {
	return &Store{db: db}
}

// finders maps locale key groups to an empty model carrying the id.
var finders = map[string]func(id int64) entity.Entity{
	"Product":                      func(id int64) entity.Entity { return &entity.Product{ID: id} },
	"Category":                     func(id int64) entity.Entity { return &entity.Category{ID: id} },
	"Manufacturer":                 func(id int64) entity.Entity { return &entity.Manufacturer{ID: id} },
	"ProductTag":                   func(id int64) entity.Entity { return &entity.ProductTag{ID: id} },
	"SpecificationAttribute":       func(id int64) entity.Entity { return &entity.SpecificationAttribute{ID: id} },
	"SpecificationAttributeOption": func(id int64) entity.Entity { return &entity.SpecificationAttributeOption{ID: id} },
	"ProductVariantAttribute":      func(id int64) entity.Entity { return &entity.ProductVariantAttribute{ID: id} },
	"ProductVariantAttributeValue": func(id int64) entity.Entity { return &entity.ProductVariantAttributeValue{ID: id} },
	"Topic":                        func(id int64) entity.Entity { return &entity.Topic{ID: id} },
	"Menu":                         func(id int64) entity.Entity { return &entity.Menu{ID: id} },
	"MenuItem":                     func(id int64) entity.Entity { return &entity.MenuItem{ID: id} },
	"BlogPost":                     func(id int64) entity.Entity { return &entity.BlogPost{ID: id} },
	"NewsItem":                     func(id int64) entity.Entity { return &entity.NewsItem{ID: id} },
	"Discount":                     func(id int64) entity.Entity { return &entity.Discount{ID: id} },
}

func (s *Store) ProductIDsByProductTag(ctx context.Context, productTagID int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.NewSelect().
		Model((*entity.ProductTagMapping)(nil)).
		Column("product_id").
		Where("product_tag_id = ?", productTagID).
		Order("product_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeDatabase, "products of tag %d", productTagID)
	}
	return ids, nil
}

func (s *Store) ProductIDsBySpecificationAttribute(ctx context.Context, attributeID int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.NewSelect().
		Model((*entity.ProductSpecificationAttribute)(nil)).
		ColumnExpr("DISTINCT psa.product_id").
		Join("JOIN specification_attribute_options AS sao ON sao.id = psa.specification_attribute_option_id").
		Where("sao.specification_attribute_id = ?", attributeID).
		OrderExpr("psa.product_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeDatabase, "products of specification attribute %d", attributeID)
	}
	return ids, nil
}

func (s *Store) ProductIDsBySpecificationAttributeOption(ctx context.Context, optionID int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.NewSelect().
		Model((*entity.ProductSpecificationAttribute)(nil)).
		ColumnExpr("DISTINCT psa.product_id").
		Where("psa.specification_attribute_option_id = ?", optionID).
		OrderExpr("psa.product_id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeDatabase, "products of specification option %d", optionID)
	}
	return ids, nil
}

func (s *Store) ProductIDByVariantAttribute(ctx context.Context, variantAttributeID int64) (int64, error) {
	var productID int64
	err := s.db.NewSelect().
		Model((*entity.ProductVariantAttribute)(nil)).
		Column("product_id").
		Where("id = ?", variantAttributeID).
		Limit(1).
		Scan(ctx, &productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, perr.Wrapf(err, perr.CodeDatabase, "product of variant attribute %d", variantAttributeID)
	}
	return productID, nil
}

func (s *Store) DiscountCategoryIDs(ctx context.Context, discountID int64) ([]int64, error) {
	return s.mappedIDs(ctx, (*entity.DiscountCategoryMapping)(nil), "category_id", discountID)
}

func (s *Store) DiscountProductIDs(ctx context.Context, discountID int64) ([]int64, error) {
	return s.mappedIDs(ctx, (*entity.DiscountProductMapping)(nil), "product_id", discountID)
}

func (s *Store) DiscountManufacturerIDs(ctx context.Context, discountID int64) ([]int64, error) {
	return s.mappedIDs(ctx, (*entity.DiscountManufacturerMapping)(nil), "manufacturer_id", discountID)
}

func (s *Store) mappedIDs(ctx context.Context, model any, column string, discountID int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.NewSelect().
		Model(model).
		Column(column).
		Where("discount_id = ?", discountID).
		Order(column).
		Scan(ctx, &ids)
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeDatabase, "%s of discount %d", column, discountID)
	}
	return ids, nil
}

// FindEntity implements tagging.Lookup.FindEntity.
func (s *Store) FindEntity(ctx context.Context, group string, id int64) (entity.Entity, error) {
	newModel, ok := finders[group]
	if !ok || id <= 0 {
		return nil, nil
	}

	e := newModel(id)
	err := s.db.NewSelect().Model(e).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeDatabase, "find %s %d", group, id)
	}
	return e, nil
}

// ProductTagWithProducts loads a tag with its products association.
func (s *Store) ProductTagWithProducts(ctx context.Context, id int64) (*entity.ProductTag, error) {
	tag := &entity.ProductTag{ID: id}
	err := s.db.NewSelect().Model(tag).Relation("Products").WherePK().Scan(ctx)
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeDatabase, "load product tag %d", id)
	}
	return tag, nil
}

// DiscountWithAssignments loads a discount with every applied-to association.
func (s *Store) DiscountWithAssignments(ctx context.Context, id int64) (*entity.Discount, error) {
	d := &entity.Discount{ID: id}
	err := s.db.NewSelect().
		Model(d).
		Relation("AppliedToCategories").
		Relation("AppliedToProducts").
		Relation("AppliedToManufacturers").
		WherePK().
		Scan(ctx)
	if err != nil {
		return nil, perr.Wrapf(err, perr.CodeDatabase, "load discount %d", id)
	}
	return d, nil
}
