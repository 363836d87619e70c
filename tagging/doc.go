// Package tagging maps domain entities to output cache tags.
//
// A Registry binds entity runtime types to Handlers; a Resolver runs them
// and gives handlers access to a Lookup for rows the entity does not carry
// itself (products using a specification option, the owner of a localized
// property, ...). Tags have the form "{prefix}{id}" with one prefix per
// tracked kind:
//
//	reg := tagging.NewDefaultRegistry()
//	res := tagging.NewResolver(reg, db)
//	tags, err := res.TagsFor(ctx, &entity.Product{ID: 123, ParentGroupedProductID: 45})
//	// tags == []string{"p123", "p45"}
//
// Custom types are added with RegisterHandlerFor.
package tagging
