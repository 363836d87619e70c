package cache

import "time"

// OutputCacheItem is a rendered page or fragment stored in the output cache.
type OutputCacheItem struct {
	CacheKey    string            `msgpack:"key" json:"cache_key"`
	RouteKey    string            `msgpack:"route" json:"route_key"`
	QueryString string            `msgpack:"query" json:"query_string,omitempty"`
	Tags        []string          `msgpack:"tags" json:"tags"`
	CachedOnUTC time.Time         `msgpack:"cached_on" json:"cached_on_utc"`
	Duration    time.Duration     `msgpack:"duration" json:"duration"`
	Content     string            `msgpack:"content" json:"content,omitempty"`
	ContentType string            `msgpack:"content_type" json:"content_type,omitempty"`
	StatusCode  int               `msgpack:"status" json:"status_code"`
	Headers     map[string]string `msgpack:"headers,omitempty" json:"headers,omitempty"`
}

// ExpiresOnUTC returns the instant after which the item is no longer valid.
func (i *OutputCacheItem) ExpiresOnUTC() time.Time {
	return i.CachedOnUTC.Add(i.Duration)
}

// IsValid reports whether the item is still fresh at now.
func (i *OutputCacheItem) IsValid(now time.Time) bool {
	if i == nil {
		return false
	}
	return now.UTC().Before(i.ExpiresOnUTC())
}

// HasAnyTag reports whether the item carries at least one of tags.
func (i *OutputCacheItem) HasAnyTag(tags ...string) bool {
	for _, have := range i.Tags {
		for _, want := range tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Clone returns a copy that shares no slices or maps with i. When withContent
// is false the rendered body is dropped.
func (i *OutputCacheItem) Clone(withContent bool) *OutputCacheItem {
	if i == nil {
		return nil
	}
	c := *i
	c.Tags = append([]string(nil), i.Tags...)
	if i.Headers != nil {
		c.Headers = make(map[string]string, len(i.Headers))
		for k, v := range i.Headers {
			c.Headers[k] = v
		}
	}
	if !withContent {
		c.Content = ""
	}
	return &c
}
