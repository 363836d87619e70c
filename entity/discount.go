package entity

import "github.com/uptrace/bun"

// DiscountType decides which catalog objects a discount applies to.
type DiscountType int

const (
	DiscountAssignedToOrderTotal    DiscountType = 1
	DiscountAssignedToSkus          DiscountType = 2
	DiscountAssignedToCategories    DiscountType = 5
	DiscountAssignedToManufacturers DiscountType = 6
	DiscountAssignedToShipping      DiscountType = 10
	DiscountAssignedToOrderSubTotal DiscountType = 20
)

func (t DiscountType) String() string {
	switch t {
	case DiscountAssignedToOrderTotal:
		return "AssignedToOrderTotal"
	case DiscountAssignedToSkus:
		return "AssignedToSkus"
	case DiscountAssignedToCategories:
		return "AssignedToCategories"
	case DiscountAssignedToManufacturers:
		return "AssignedToManufacturers"
	case DiscountAssignedToShipping:
		return "AssignedToShipping"
	case DiscountAssignedToOrderSubTotal:
		return "AssignedToOrderSubTotal"
	}
	return "Unknown"
}

// Discount is a price reduction. The Applied* collections are nil unless the
// corresponding association was loaded.
type Discount struct {
	bun.BaseModel `bun:"table:discounts,alias:d"`

	ID                     int64           `bun:"id,pk,autoincrement" json:"id"`
	Name                   string          `bun:"name,notnull" json:"name"`
	DiscountType           DiscountType    `bun:"discount_type,notnull" json:"discount_type"`
	DiscountPercentage     float64         `bun:"discount_percentage,notnull,default:0" json:"discount_percentage"`
	AppliedToCategories    []*Category     `bun:"m2m:discount_category_mappings,join:Discount=Category" json:"applied_to_categories,omitempty"`
	AppliedToProducts      []*Product      `bun:"m2m:discount_product_mappings,join:Discount=Product" json:"applied_to_products,omitempty"`
	AppliedToManufacturers []*Manufacturer `bun:"m2m:discount_manufacturer_mappings,join:Discount=Manufacturer" json:"applied_to_manufacturers,omitempty"`
}

func (d *Discount) GetID() int64       { return d.ID }
func (d *Discount) EntityName() string { return "Discount" }

type DiscountCategoryMapping struct {
	bun.BaseModel `bun:"table:discount_category_mappings,alias:dcm"`

	DiscountID int64     `bun:"discount_id,pk" json:"discount_id"`
	Discount   *Discount `bun:"rel:belongs-to,join:discount_id=id" json:"-"`
	CategoryID int64     `bun:"category_id,pk" json:"category_id"`
	Category   *Category `bun:"rel:belongs-to,join:category_id=id" json:"-"`
}

type DiscountProductMapping struct {
	bun.BaseModel `bun:"table:discount_product_mappings,alias:dpm"`

	DiscountID int64     `bun:"discount_id,pk" json:"discount_id"`
	Discount   *Discount `bun:"rel:belongs-to,join:discount_id=id" json:"-"`
	ProductID  int64     `bun:"product_id,pk" json:"product_id"`
	Product    *Product  `bun:"rel:belongs-to,join:product_id=id" json:"-"`
}

type DiscountManufacturerMapping struct {
	bun.BaseModel `bun:"table:discount_manufacturer_mappings,alias:dmm"`

	DiscountID     int64         `bun:"discount_id,pk" json:"discount_id"`
	Discount       *Discount     `bun:"rel:belongs-to,join:discount_id=id" json:"-"`
	ManufacturerID int64         `bun:"manufacturer_id,pk" json:"manufacturer_id"`
	Manufacturer   *Manufacturer `bun:"rel:belongs-to,join:manufacturer_id=id" json:"-"`
}
