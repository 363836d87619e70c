package cache

import (
	"net/url"
	"strings"
	"testing"
)

func TestRouteSegment(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"Catalog.ProductDetails", "catalog_product_details"},
		{"blog/post-list", "blog_post_list"},
		{"HTMLPage", "html_page"},
		{"topic", "topic"},
		{"Product2Grid", "product2_grid"},
		{"  spaced   name ", "spaced_name"},
		{"", "_"},
		{"::", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			if got := routeSegment(tt.route); got != tt.want {
				t.Errorf("routeSegment(%q) = %q, want %q", tt.route, got, tt.want)
			}
		})
	}
}

func TestKeyBuilder_BuildKeyHasRoutePrefix(t *testing.T) {
	b := NewKeyBuilder("")
	key := b.BuildKey("Catalog.Product", url.Values{"id": {"1"}}, VaryContext{StoreID: 1})

	prefix := b.RoutePrefix("Catalog.Product")
	if prefix != "outputcache::catalog_product::" {
		t.Fatalf("unexpected prefix %q", prefix)
	}
	if !strings.HasPrefix(key, prefix) {
		t.Errorf("key %q does not start with %q", key, prefix)
	}
}

func TestKeyBuilder_QueryOrderDoesNotMatter(t *testing.T) {
	b := NewKeyBuilder("oc")

	a, _ := url.ParseQuery("page=2&sort=name&filter=red&filter=blue")
	c, _ := url.ParseQuery("filter=blue&sort=name&page=2&filter=red")

	if b.BuildKey("r", a, VaryContext{}) != b.BuildKey("r", c, VaryContext{}) {
		t.Error("expected identical keys for reordered query parameters")
	}
}

func TestKeyBuilder_IgnoredParams(t *testing.T) {
	b := NewKeyBuilder("oc", "utm_source")

	plain := b.BuildKey("r", url.Values{"q": {"shoes"}}, VaryContext{})
	tracked := b.BuildKey("r", url.Values{"q": {"shoes"}, "UTM_SOURCE": {"mail"}}, VaryContext{})

	if plain != tracked {
		t.Errorf("ignored parameter changed the key: %q vs %q", plain, tracked)
	}
}

func TestKeyBuilder_VaryContext(t *testing.T) {
	b := NewKeyBuilder("oc")
	q := url.Values{"id": {"7"}}

	base := VaryContext{StoreID: 1, LanguageID: 2, CurrencyID: 3, Theme: "flex", CustomerRoles: []string{"guests", "registered"}}
	reordered := base
	reordered.CustomerRoles = []string{"registered", "guests"}

	if b.BuildKey("r", q, base) != b.BuildKey("r", q, reordered) {
		t.Error("customer role order must not change the key")
	}

	variants := []VaryContext{
		{StoreID: 2, LanguageID: 2, CurrencyID: 3, Theme: "flex", CustomerRoles: base.CustomerRoles},
		{StoreID: 1, LanguageID: 5, CurrencyID: 3, Theme: "flex", CustomerRoles: base.CustomerRoles},
		{StoreID: 1, LanguageID: 2, CurrencyID: 9, Theme: "flex", CustomerRoles: base.CustomerRoles},
		{StoreID: 1, LanguageID: 2, CurrencyID: 3, Theme: "dark", CustomerRoles: base.CustomerRoles},
		{StoreID: 1, LanguageID: 2, CurrencyID: 3, Theme: "flex", CustomerRoles: []string{"guests"}},
	}
	want := b.BuildKey("r", q, base)
	for i, v := range variants {
		if got := b.BuildKey("r", q, v); got == want {
			t.Errorf("variant %d produced the same key as the base context", i)
		}
	}
}

func TestKeyBuilder_CanonicalQuery(t *testing.T) {
	b := NewKeyBuilder("oc")
	q := url.Values{"b": {"2", "1"}, "a": {"x y"}}

	if got, want := b.CanonicalQuery(q), "a=x+y&b=1&b=2"; got != want {
		t.Errorf("CanonicalQuery() = %q, want %q", got, want)
	}
	if got := b.CanonicalQuery(nil); got != "" {
		t.Errorf("CanonicalQuery(nil) = %q, want empty", got)
	}
}

func TestKeyBuilder_DistinctRoutesNeverShareKey(t *testing.T) {
	b := NewKeyBuilder("")
	q := url.Values{"id": {"1"}}

	pairs := [][2]string{
		{"商品", "类别"},
		{"Catalog.Product", "catalog-product"},
		{"/", "*"},
		{"a|", "a"},
	}
	for _, p := range pairs {
		k1 := b.BuildKey(p[0], q, VaryContext{})
		k2 := b.BuildKey(p[1], q, VaryContext{})
		if k1 == k2 {
			t.Errorf("routes %q and %q produced the same key %q", p[0], p[1], k1)
		}
	}

	if b.BuildKey("Catalog.Product", q, VaryContext{}) != b.BuildKey("Catalog.Product", q, VaryContext{}) {
		t.Error("same route must produce a stable key")
	}
}
