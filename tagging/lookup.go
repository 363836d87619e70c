package tagging

import (
	"context"

	"github.com/goliatone/go-output-cache/entity"
)

// Lookup is the read side of the catalog store used by handlers whose tags
// depend on rows other than the changed entity. Implementations return empty
// results, not errors, for unknown ids.
type Lookup interface {
	ProductIDsByProductTag(ctx context.Context, productTagID int64) ([]int64, error)
	ProductIDsBySpecificationAttribute(ctx context.Context, attributeID int64) ([]int64, error)
	ProductIDsBySpecificationAttributeOption(ctx context.Context, optionID int64) ([]int64, error)
	// ProductIDByVariantAttribute returns 0 when the variant attribute is unknown.
	ProductIDByVariantAttribute(ctx context.Context, variantAttributeID int64) (int64, error)

	DiscountCategoryIDs(ctx context.Context, discountID int64) ([]int64, error)
	DiscountProductIDs(ctx context.Context, discountID int64) ([]int64, error)
	DiscountManufacturerIDs(ctx context.Context, discountID int64) ([]int64, error)

	// FindEntity loads the entity named by a locale key group and id. It
	// returns nil, nil when the group is unknown or the row is missing.
	FindEntity(ctx context.Context, group string, id int64) (entity.Entity, error)
}
