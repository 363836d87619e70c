package tagging

import "strconv"

// Tag prefixes. Each tracked entity kind owns exactly one prefix.
const (
	PrefixProduct      = "p"
	PrefixCategory     = "c"
	PrefixManufacturer = "m"
	PrefixTopic        = "t"
	PrefixBlogPost     = "b"
	PrefixNewsItem     = "n"
	PrefixMenu         = "mnu"
)

// Tag formats the cache tag for id under prefix, e.g. Tag("p", 123) == "p123".
func Tag(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

// Tags formats a tag per positive id.
func Tags(prefix string, ids ...int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, Tag(prefix, id))
		}
	}
	return out
}

// Dedupe drops repeated tags keeping first seen order.
func Dedupe(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0:0]
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
