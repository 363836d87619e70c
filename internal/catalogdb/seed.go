package catalogdb

import (
	"context"
	"embed"
	"encoding/json"

	perr "github.com/jmgilman/go/errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-output-cache/entity"
)

//go:embed demo.json
var demoFS embed.FS

// Catalog is the JSON shape used for fixtures and the demo storefront.
type Catalog struct {
	Products                       []*entity.Product                       `json:"products"`
	Categories                     []*entity.Category                      `json:"categories"`
	Manufacturers                  []*entity.Manufacturer                  `json:"manufacturers"`
	ProductCategories              []*entity.ProductCategory               `json:"product_categories"`
	ProductManufacturers           []*entity.ProductManufacturer           `json:"product_manufacturers"`
	ProductTags                    []*entity.ProductTag                    `json:"product_tags"`
	ProductTagMappings             []*entity.ProductTagMapping             `json:"product_tag_mappings"`
	SpecificationAttributes        []*entity.SpecificationAttribute        `json:"specification_attributes"`
	SpecificationAttributeOptions  []*entity.SpecificationAttributeOption  `json:"specification_attribute_options"`
	ProductSpecificationAttributes []*entity.ProductSpecificationAttribute `json:"product_specification_attributes"`
	ProductVariantAttributes       []*entity.ProductVariantAttribute       `json:"product_variant_attributes"`
	ProductVariantAttributeValues  []*entity.ProductVariantAttributeValue  `json:"product_variant_attribute_values"`
	Discounts                      []*entity.Discount                      `json:"discounts"`
	DiscountCategoryMappings       []*entity.DiscountCategoryMapping       `json:"discount_category_mappings"`
	DiscountProductMappings        []*entity.DiscountProductMapping        `json:"discount_product_mappings"`
	DiscountManufacturerMappings   []*entity.DiscountManufacturerMapping   `json:"discount_manufacturer_mappings"`
	Topics                         []*entity.Topic                         `json:"topics"`
	Menus                          []*entity.Menu                          `json:"menus"`
	MenuItems                      []*entity.MenuItem                      `json:"menu_items"`
	LocalizedProperties            []*entity.LocalizedProperty             `json:"localized_properties"`
	Settings                       []*entity.Setting                       `json:"settings"`
}

// DemoCatalog returns the small catalog bundled with the binary.
func DemoCatalog() (*Catalog, error) {
	data, err := demoFS.ReadFile("demo.json")
	if err != nil {
		return nil, perr.Wrap(err, perr.CodeInternal, "read demo catalog")
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, perr.Wrap(err, perr.CodeInvalidInput, "decode demo catalog")
	}
	return &c, nil
}

// Seed inserts every row of c inside one transaction.
func Seed(ctx context.Context, db *bun.DB, c *Catalog) error {
	if c == nil {
		return nil
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, rows := range c.tables() {
			if rows.n == 0 {
				continue
			}
			if _, err := tx.NewInsert().Model(rows.model).Exec(ctx); err != nil {
				return perr.Wrapf(err, perr.CodeDatabase, "seed %s", rows.name)
			}
		}
		return nil
	})
}

type seedRows struct {
	name  string
	model any
	n     int
}

func (c *Catalog) tables() []seedRows {
	return []seedRows{
		{"products", &c.Products, len(c.Products)},
		{"categories", &c.Categories, len(c.Categories)},
		{"manufacturers", &c.Manufacturers, len(c.Manufacturers)},
		{"product_categories", &c.ProductCategories, len(c.ProductCategories)},
		{"product_manufacturers", &c.ProductManufacturers, len(c.ProductManufacturers)},
		{"product_tags", &c.ProductTags, len(c.ProductTags)},
		{"product_tag_mappings", &c.ProductTagMappings, len(c.ProductTagMappings)},
		{"specification_attributes", &c.SpecificationAttributes, len(c.SpecificationAttributes)},
		{"specification_attribute_options", &c.SpecificationAttributeOptions, len(c.SpecificationAttributeOptions)},
		{"product_specification_attributes", &c.ProductSpecificationAttributes, len(c.ProductSpecificationAttributes)},
		{"product_variant_attributes", &c.ProductVariantAttributes, len(c.ProductVariantAttributes)},
		{"product_variant_attribute_values", &c.ProductVariantAttributeValues, len(c.ProductVariantAttributeValues)},
		{"discounts", &c.Discounts, len(c.Discounts)},
		{"discount_category_mappings", &c.DiscountCategoryMappings, len(c.DiscountCategoryMappings)},
		{"discount_product_mappings", &c.DiscountProductMappings, len(c.DiscountProductMappings)},
		{"discount_manufacturer_mappings", &c.DiscountManufacturerMappings, len(c.DiscountManufacturerMappings)},
		{"topics", &c.Topics, len(c.Topics)},
		{"menus", &c.Menus, len(c.Menus)},
		{"menu_items", &c.MenuItems, len(c.MenuItems)},
		{"localized_properties", &c.LocalizedProperties, len(c.LocalizedProperties)},
		{"settings", &c.Settings, len(c.Settings)},
	}
}
