package tagging

import (
	"context"

	"github.com/goliatone/go-output-cache/entity"
)

// localeGroupPrefixes maps locale key groups whose owner tag can be built
// directly from the localized property's EntityID.
var localeGroupPrefixes = map[string]string{
	"Product":      PrefixProduct,
	"Category":     PrefixCategory,
	"Manufacturer": PrefixManufacturer,
	"Topic":        PrefixTopic,
	"BlogPost":     PrefixBlogPost,
	"NewsItem":     PrefixNewsItem,
	"Menu":         PrefixMenu,
}

// NewDefaultRegistry returns a registry with the storefront handlers.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	return reg
}

// RegisterBuiltins adds the storefront handlers to reg.
func RegisterBuiltins(reg *Registry) {
	// Plain entities
	RegisterHandlerFor(reg, func(_ context.Context, p *entity.Product, _ *Resolver) ([]string, error) {
		return Tags(PrefixProduct, p.ID, p.ParentGroupedProductID), nil
	})
	RegisterHandlerFor(reg, selfTag[*entity.Category](PrefixCategory))
	RegisterHandlerFor(reg, selfTag[*entity.Manufacturer](PrefixManufacturer))
	RegisterHandlerFor(reg, selfTag[*entity.Topic](PrefixTopic))
	RegisterHandlerFor(reg, selfTag[*entity.BlogPost](PrefixBlogPost))
	RegisterHandlerFor(reg, selfTag[*entity.NewsItem](PrefixNewsItem))
	RegisterHandlerFor(reg, selfTag[*entity.Menu](PrefixMenu))

	// Children tagged by their parent
	RegisterHandlerFor(reg, func(_ context.Context, c *entity.BlogComment, _ *Resolver) ([]string, error) {
		return Tags(PrefixBlogPost, c.BlogPostID), nil
	})
	RegisterHandlerFor(reg, func(_ context.Context, c *entity.NewsComment, _ *Resolver) ([]string, error) {
		return Tags(PrefixNewsItem, c.NewsItemID), nil
	})
	RegisterHandlerFor(reg, func(_ context.Context, mi *entity.MenuItem, _ *Resolver) ([]string, error) {
		return Tags(PrefixMenu, mi.MenuID), nil
	})

	// Mappings
	RegisterHandlerFor(reg, func(_ context.Context, pc *entity.ProductCategory, _ *Resolver) ([]string, error) {
		return append(Tags(PrefixProduct, pc.ProductID), Tags(PrefixCategory, pc.CategoryID)...), nil
	})
	RegisterHandlerFor(reg, func(_ context.Context, pm *entity.ProductManufacturer, _ *Resolver) ([]string, error) {
		return append(Tags(PrefixProduct, pm.ProductID), Tags(PrefixManufacturer, pm.ManufacturerID)...), nil
	})

	// Product satellites
	RegisterHandlerFor(reg, func(_ context.Context, a *entity.ProductSpecificationAttribute, _ *Resolver) ([]string, error) {
		return Tags(PrefixProduct, a.ProductID), nil
	})
	RegisterHandlerFor(reg, func(_ context.Context, a *entity.ProductVariantAttribute, _ *Resolver) ([]string, error) {
		return Tags(PrefixProduct, a.ProductID), nil
	})
	RegisterHandlerFor(reg, func(_ context.Context, tp *entity.TierPrice, _ *Resolver) ([]string, error) {
		return Tags(PrefixProduct, tp.ProductID), nil
	})
	RegisterHandlerFor(reg, func(_ context.Context, f *entity.ProductMediaFile, _ *Resolver) ([]string, error) {
		return Tags(PrefixProduct, f.ProductID), nil
	})
	RegisterHandlerFor(reg, func(_ context.Context, b *entity.ProductBundleItem, _ *Resolver) ([]string, error) {
		return Tags(PrefixProduct, b.BundleProductID), nil
	})
	RegisterHandlerFor(reg, productVariantAttributeValueTags)

	// Fan-out through lookups
	RegisterHandlerFor(reg, productTagTags)
	RegisterHandlerFor(reg, func(ctx context.Context, a *entity.SpecificationAttribute, r *Resolver) ([]string, error) {
		return lookupTags(r, PrefixProduct, func(l Lookup) ([]int64, error) {
			return l.ProductIDsBySpecificationAttribute(ctx, a.ID)
		})
	})
	RegisterHandlerFor(reg, func(ctx context.Context, o *entity.SpecificationAttributeOption, r *Resolver) ([]string, error) {
		return lookupTags(r, PrefixProduct, func(l Lookup) ([]int64, error) {
			return l.ProductIDsBySpecificationAttributeOption(ctx, o.ID)
		})
	})
	RegisterHandlerFor(reg, discountTags)
	RegisterHandlerFor(reg, localizedPropertyTags)
}

func selfTag[T entity.Entity](prefix string) func(context.Context, T, *Resolver) ([]string, error) {
	return func(_ context.Context, e T, _ *Resolver) ([]string, error) {
		return Tags(prefix, e.GetID()), nil
	}
}

func productVariantAttributeValueTags(ctx context.Context, v *entity.ProductVariantAttributeValue, r *Resolver) ([]string, error) {
	if v.ProductVariantAttribute != nil && v.ProductVariantAttribute.ProductID > 0 {
		return Tags(PrefixProduct, v.ProductVariantAttribute.ProductID), nil
	}
	if v.ProductVariantAttributeID <= 0 {
		return nil, nil
	}
	l, err := r.Lookup()
	if err != nil {
		return nil, err
	}
	productID, err := l.ProductIDByVariantAttribute(ctx, v.ProductVariantAttributeID)
	if err != nil {
		return nil, err
	}
	return Tags(PrefixProduct, productID), nil
}

func productTagTags(ctx context.Context, t *entity.ProductTag, r *Resolver) ([]string, error) {
	if t.Products != nil {
		ids := make([]int64, 0, len(t.Products))
		for _, p := range t.Products {
			if p != nil {
				ids = append(ids, p.ID)
			}
		}
		return Tags(PrefixProduct, ids...), nil
	}
	return lookupTags(r, PrefixProduct, func(l Lookup) ([]int64, error) {
		return l.ProductIDsByProductTag(ctx, t.ID)
	})
}

// discountTags tags whatever the discount type targets. Loaded collections
// are used as is; otherwise the mapping rows are queried.
func discountTags(ctx context.Context, d *entity.Discount, r *Resolver) ([]string, error) {
	switch d.DiscountType {
	case entity.DiscountAssignedToCategories:
		if d.AppliedToCategories != nil {
			ids := make([]int64, 0, len(d.AppliedToCategories))
			for _, c := range d.AppliedToCategories {
				if c != nil {
					ids = append(ids, c.ID)
				}
			}
			return Tags(PrefixCategory, ids...), nil
		}
		return lookupTags(r, PrefixCategory, func(l Lookup) ([]int64, error) {
			return l.DiscountCategoryIDs(ctx, d.ID)
		})

	case entity.DiscountAssignedToSkus:
		if d.AppliedToProducts != nil {
			ids := make([]int64, 0, len(d.AppliedToProducts))
			for _, p := range d.AppliedToProducts {
				if p != nil {
					ids = append(ids, p.ID)
				}
			}
			return Tags(PrefixProduct, ids...), nil
		}
		return lookupTags(r, PrefixProduct, func(l Lookup) ([]int64, error) {
			return l.DiscountProductIDs(ctx, d.ID)
		})

	case entity.DiscountAssignedToManufacturers:
		if d.AppliedToManufacturers != nil {
			ids := make([]int64, 0, len(d.AppliedToManufacturers))
			for _, m := range d.AppliedToManufacturers {
				if m != nil {
					ids = append(ids, m.ID)
				}
			}
			return Tags(PrefixManufacturer, ids...), nil
		}
		return lookupTags(r, PrefixManufacturer, func(l Lookup) ([]int64, error) {
			return l.DiscountManufacturerIDs(ctx, d.ID)
		})
	}
	return nil, nil
}

func lookupTags(r *Resolver, prefix string, query func(Lookup) ([]int64, error)) ([]string, error) {
	l, err := r.Lookup()
	if err != nil {
		return nil, err
	}
	ids, err := query(l)
	if err != nil {
		return nil, err
	}
	return Tags(prefix, ids...), nil
}

func localizedPropertyTags(ctx context.Context, lp *entity.LocalizedProperty, r *Resolver) ([]string, error) {
	if lp.EntityID <= 0 {
		return nil, nil
	}
	if prefix, ok := localeGroupPrefixes[lp.LocaleKeyGroup]; ok {
		return Tags(prefix, lp.EntityID), nil
	}

	l, err := r.Lookup()
	if err != nil {
		return nil, err
	}
	owner, err := l.FindEntity(ctx, lp.LocaleKeyGroup, lp.EntityID)
	if err != nil {
		return nil, err
	}
	if entity.IsNil(owner) {
		return nil, nil
	}
	return r.TagsFor(ctx, owner)
}
