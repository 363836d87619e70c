package cache

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// DefaultKeyNamespace prefixes every key built by a KeyBuilder.
const DefaultKeyNamespace = "outputcache"

// VaryContext carries the request dimensions that make otherwise identical
// URLs render differently.
type VaryContext struct {
	StoreID       int64
	LanguageID    int64
	CurrencyID    int64
	Theme         string
	CustomerRoles []string
}

// KeyBuilder derives output cache keys of the form
// "{namespace}::{route}::{hash}" where hash covers the raw route name, the
// query string and the vary context. Keys of one route share the RoutePrefix;
// the prefix segment is lossy, so distinct routes may share a prefix but
// never a key.
type KeyBuilder struct {
	namespace string
	// ignored query parameters never contribute to the key (tracking params etc.)
	ignored map[string]struct{}
}

// NewKeyBuilder creates a key builder. An empty namespace falls back to
// DefaultKeyNamespace.
func NewKeyBuilder(namespace string, ignoredParams ...string) *KeyBuilder {
	if namespace == "" {
		namespace = DefaultKeyNamespace
	}
	ignored := make(map[string]struct{}, len(ignoredParams))
	for _, p := range ignoredParams {
		ignored[strings.ToLower(p)] = struct{}{}
	}
	return &KeyBuilder{namespace: namespace, ignored: ignored}
}

// RoutePrefix returns the key prefix shared by every key of route.
func (b *KeyBuilder) RoutePrefix(route string) string {
	return b.namespace + KeySeparator + routeSegment(route) + KeySeparator
}

// BuildKey computes the cache key for route, query and vary.
func (b *KeyBuilder) BuildKey(route string, query url.Values, vary VaryContext) string {
	h := xxhash.New()
	_, _ = h.WriteString(strconv.Itoa(len(route)))
	_, _ = h.WriteString(":")
	_, _ = h.WriteString(route)
	_, _ = h.WriteString(b.CanonicalQuery(query))
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(serializeVary(vary))
	return b.RoutePrefix(route) + strconv.FormatUint(h.Sum64(), 16)
}

// CanonicalQuery renders query with sorted keys and values, skipping ignored
// parameters, so parameter order never changes the key.
func (b *KeyBuilder) CanonicalQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	names := make([]string, 0, len(query))
	for name := range query {
		if _, skip := b.ignored[strings.ToLower(name)]; skip {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		values := append([]string(nil), query[name]...)
		sort.Strings(values)
		for _, v := range values {
			parts = append(parts, url.QueryEscape(name)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func serializeVary(v VaryContext) string {
	roles := append([]string(nil), v.CustomerRoles...)
	sort.Strings(roles)
	return strings.Join([]string{
		"s:" + strconv.FormatInt(v.StoreID, 10),
		"l:" + strconv.FormatInt(v.LanguageID, 10),
		"c:" + strconv.FormatInt(v.CurrencyID, 10),
		"t:" + v.Theme,
		"r:" + strings.Join(roles, ","),
	}, ";")
}
