package cache

import (
	"strings"
	"unicode"
)

// routeSegment turns a route name such as "Catalog.ProductDetails" or
// "blog/post-list" into a snake_case key segment ("catalog_product_details",
// "blog_post_list"). Runs of separators collapse into one underscore.
func routeSegment(route string) string {
	if route == "" {
		return "_"
	}

	runes := []rune(strings.TrimSpace(route))
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	pendingSep := false
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 && i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					pendingSep = true
				}
			}
			writeSegmentRune(&b, unicode.ToLower(r), &pendingSep)
		case unicode.IsLower(r), unicode.IsDigit(r):
			writeSegmentRune(&b, r, &pendingSep)
		default:
			if b.Len() > 0 {
				pendingSep = true
			}
		}
	}

	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func writeSegmentRune(b *strings.Builder, r rune, pendingSep *bool) {
	if *pendingSep && b.Len() > 0 {
		b.WriteByte('_')
	}
	*pendingSep = false
	b.WriteRune(r)
}
