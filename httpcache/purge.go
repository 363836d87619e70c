package httpcache

import (
	"context"

	"github.com/goliatone/go-output-cache/cache"
)

// Purge applies every selector of req and returns removed counts per kind
// ("tag", "route", "prefix", "key").
func Purge(ctx context.Context, provider cache.OutputCacheProvider, keys *cache.KeyBuilder, req InvalidateRequest) (map[string]int, error) {
	removed := make(map[string]int)

	if len(req.Tags) > 0 {
		n, err := provider.InvalidateByTag(ctx, req.Tags...)
		if err != nil {
			return removed, err
		}
		removed["tag"] = n
	}
	if len(req.Routes) > 0 {
		n, err := provider.InvalidateByRoute(ctx, req.Routes...)
		if err != nil {
			return removed, err
		}
		removed["route"] = n
	}
	for _, route := range req.PrefixRoutes {
		n, err := provider.InvalidateByPrefix(ctx, keys.RoutePrefix(route))
		if err != nil {
			return removed, err
		}
		removed["prefix"] += n
	}
	if len(req.Keys) > 0 {
		n := 0
		for _, key := range req.Keys {
			ok, err := provider.Exists(ctx, key)
			if err != nil {
				return removed, err
			}
			if ok {
				n++
			}
		}
		if err := provider.Remove(ctx, req.Keys...); err != nil {
			return removed, err
		}
		removed["key"] = n
	}
	return removed, nil
}
