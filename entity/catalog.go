package entity

import "github.com/uptrace/bun"

// Product is a sellable catalog item. Grouped products carry the id of their
// parent in ParentGroupedProductID.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID                     int64  `bun:"id,pk,autoincrement" json:"id"`
	Name                   string `bun:"name,notnull" json:"name"`
	Sku                    string `bun:"sku" json:"sku"`
	ParentGroupedProductID int64  `bun:"parent_grouped_product_id,notnull,default:0" json:"parent_grouped_product_id"`
	Published              bool   `bun:"published,notnull,default:true" json:"published"`
}

func (p *Product) GetID() int64       { return p.ID }
func (p *Product) EntityName() string { return "Product" }

type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID               int64  `bun:"id,pk,autoincrement" json:"id"`
	Name             string `bun:"name,notnull" json:"name"`
	ParentCategoryID int64  `bun:"parent_category_id,notnull,default:0" json:"parent_category_id"`
}

func (c *Category) GetID() int64       { return c.ID }
func (c *Category) EntityName() string { return "Category" }

type Manufacturer struct {
	bun.BaseModel `bun:"table:manufacturers,alias:m"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

func (m *Manufacturer) GetID() int64       { return m.ID }
func (m *Manufacturer) EntityName() string { return "Manufacturer" }

// ProductCategory maps a product into a category.
type ProductCategory struct {
	bun.BaseModel `bun:"table:product_category_mappings,alias:pcm"`

	ID         int64 `bun:"id,pk,autoincrement" json:"id"`
	ProductID  int64 `bun:"product_id,notnull" json:"product_id"`
	CategoryID int64 `bun:"category_id,notnull" json:"category_id"`
}

func (pc *ProductCategory) GetID() int64       { return pc.ID }
func (pc *ProductCategory) EntityName() string { return "ProductCategory" }

// ProductManufacturer maps a product to a manufacturer.
type ProductManufacturer struct {
	bun.BaseModel `bun:"table:product_manufacturer_mappings,alias:pmm"`

	ID             int64 `bun:"id,pk,autoincrement" json:"id"`
	ProductID      int64 `bun:"product_id,notnull" json:"product_id"`
	ManufacturerID int64 `bun:"manufacturer_id,notnull" json:"manufacturer_id"`
}

func (pm *ProductManufacturer) GetID() int64       { return pm.ID }
func (pm *ProductManufacturer) EntityName() string { return "ProductManufacturer" }

// ProductTag is a free-form label. Products is only populated when the
// association has been loaded; nil means "not materialized".
type ProductTag struct {
	bun.BaseModel `bun:"table:product_tags,alias:pt"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id"`
	Name      string     `bun:"name,notnull" json:"name"`
	Published bool       `bun:"published,notnull,default:true" json:"published"`
	Products  []*Product `bun:"m2m:product_tag_mappings,join:ProductTag=Product" json:"products,omitempty"`
}

func (t *ProductTag) GetID() int64       { return t.ID }
func (t *ProductTag) EntityName() string { return "ProductTag" }

// ProductTagMapping is the join row between products and tags.
type ProductTagMapping struct {
	bun.BaseModel `bun:"table:product_tag_mappings,alias:ptm"`

	ProductID    int64       `bun:"product_id,pk" json:"product_id"`
	Product      *Product    `bun:"rel:belongs-to,join:product_id=id" json:"-"`
	ProductTagID int64       `bun:"product_tag_id,pk" json:"product_tag_id"`
	ProductTag   *ProductTag `bun:"rel:belongs-to,join:product_tag_id=id" json:"-"`
}

type SpecificationAttribute struct {
	bun.BaseModel `bun:"table:specification_attributes,alias:sa"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

func (a *SpecificationAttribute) GetID() int64       { return a.ID }
func (a *SpecificationAttribute) EntityName() string { return "SpecificationAttribute" }

type SpecificationAttributeOption struct {
	bun.BaseModel `bun:"table:specification_attribute_options,alias:sao"`

	ID                       int64  `bun:"id,pk,autoincrement" json:"id"`
	SpecificationAttributeID int64  `bun:"specification_attribute_id,notnull" json:"specification_attribute_id"`
	Name                     string `bun:"name,notnull" json:"name"`
}

func (o *SpecificationAttributeOption) GetID() int64       { return o.ID }
func (o *SpecificationAttributeOption) EntityName() string { return "SpecificationAttributeOption" }

// ProductSpecificationAttribute assigns a specification option to a product.
type ProductSpecificationAttribute struct {
	bun.BaseModel `bun:"table:product_specification_attributes,alias:psa"`

	ID                             int64 `bun:"id,pk,autoincrement" json:"id"`
	ProductID                      int64 `bun:"product_id,notnull" json:"product_id"`
	SpecificationAttributeOptionID int64 `bun:"specification_attribute_option_id,notnull" json:"specification_attribute_option_id"`
	ShowOnProductPage              bool  `bun:"show_on_product_page,notnull,default:true" json:"show_on_product_page"`
}

func (a *ProductSpecificationAttribute) GetID() int64       { return a.ID }
func (a *ProductSpecificationAttribute) EntityName() string { return "ProductSpecificationAttribute" }

type ProductVariantAttribute struct {
	bun.BaseModel `bun:"table:product_variant_attributes,alias:pva"`

	ID                 int64  `bun:"id,pk,autoincrement" json:"id"`
	ProductID          int64  `bun:"product_id,notnull" json:"product_id"`
	ProductAttributeID int64  `bun:"product_attribute_id,notnull" json:"product_attribute_id"`
	TextPrompt         string `bun:"text_prompt" json:"text_prompt"`
}

func (a *ProductVariantAttribute) GetID() int64       { return a.ID }
func (a *ProductVariantAttribute) EntityName() string { return "ProductVariantAttribute" }

// ProductVariantAttributeValue only knows its variant attribute; the owning
// product has to be looked up unless ProductVariantAttribute is loaded.
type ProductVariantAttributeValue struct {
	bun.BaseModel `bun:"table:product_variant_attribute_values,alias:pvav"`

	ID                        int64                    `bun:"id,pk,autoincrement" json:"id"`
	ProductVariantAttributeID int64                    `bun:"product_variant_attribute_id,notnull" json:"product_variant_attribute_id"`
	ProductVariantAttribute   *ProductVariantAttribute `bun:"rel:belongs-to,join:product_variant_attribute_id=id" json:"-"`
	Name                      string                   `bun:"name,notnull" json:"name"`
}

func (v *ProductVariantAttributeValue) GetID() int64       { return v.ID }
func (v *ProductVariantAttributeValue) EntityName() string { return "ProductVariantAttributeValue" }

// ProductBundleItem places ProductID inside the bundle BundleProductID.
type ProductBundleItem struct {
	bun.BaseModel `bun:"table:product_bundle_items,alias:pbi"`

	ID              int64 `bun:"id,pk,autoincrement" json:"id"`
	ProductID       int64 `bun:"product_id,notnull" json:"product_id"`
	BundleProductID int64 `bun:"bundle_product_id,notnull" json:"bundle_product_id"`
	Quantity        int   `bun:"quantity,notnull,default:1" json:"quantity"`
}

func (b *ProductBundleItem) GetID() int64       { return b.ID }
func (b *ProductBundleItem) EntityName() string { return "ProductBundleItem" }

type TierPrice struct {
	bun.BaseModel `bun:"table:tier_prices,alias:tp"`

	ID        int64   `bun:"id,pk,autoincrement" json:"id"`
	ProductID int64   `bun:"product_id,notnull" json:"product_id"`
	Quantity  int     `bun:"quantity,notnull" json:"quantity"`
	Price     float64 `bun:"price,notnull" json:"price"`
}

func (tp *TierPrice) GetID() int64       { return tp.ID }
func (tp *TierPrice) EntityName() string { return "TierPrice" }

type ProductMediaFile struct {
	bun.BaseModel `bun:"table:product_media_files,alias:pmf"`

	ID           int64 `bun:"id,pk,autoincrement" json:"id"`
	ProductID    int64 `bun:"product_id,notnull" json:"product_id"`
	MediaFileID  int64 `bun:"media_file_id,notnull" json:"media_file_id"`
	DisplayOrder int   `bun:"display_order,notnull,default:0" json:"display_order"`
}

func (f *ProductMediaFile) GetID() int64       { return f.ID }
func (f *ProductMediaFile) EntityName() string { return "ProductMediaFile" }
