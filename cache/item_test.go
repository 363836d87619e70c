package cache

import (
	"testing"
	"time"
)

func TestOutputCacheItem_IsValid(t *testing.T) {
	cachedOn := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	item := &OutputCacheItem{CachedOnUTC: cachedOn, Duration: time.Minute}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"at creation", cachedOn, true},
		{"just before expiry", cachedOn.Add(time.Minute - time.Nanosecond), true},
		{"at expiry", cachedOn.Add(time.Minute), false},
		{"long after", cachedOn.Add(time.Hour), false},
		{"non utc clock", cachedOn.Add(30 * time.Second).In(time.FixedZone("X", 3600)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := item.IsValid(tt.now); got != tt.want {
				t.Errorf("IsValid(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}

	var nilItem *OutputCacheItem
	if nilItem.IsValid(cachedOn) {
		t.Error("nil item must never be valid")
	}
}

func TestOutputCacheItem_HasAnyTag(t *testing.T) {
	item := &OutputCacheItem{Tags: []string{"p1", "c2"}}

	if !item.HasAnyTag("x", "c2") {
		t.Error("expected match on c2")
	}
	if item.HasAnyTag("p2", "c1") {
		t.Error("unexpected match")
	}
	if item.HasAnyTag() {
		t.Error("no tags given must not match")
	}
}

func TestOutputCacheItem_Clone(t *testing.T) {
	item := &OutputCacheItem{
		CacheKey: "k",
		Tags:     []string{"p1"},
		Content:  "<html/>",
		Headers:  map[string]string{"X": "1"},
	}

	c := item.Clone(false)
	if c.Content != "" {
		t.Errorf("expected content to be stripped, got %q", c.Content)
	}
	c.Tags[0] = "changed"
	c.Headers["X"] = "2"
	if item.Tags[0] != "p1" || item.Headers["X"] != "1" {
		t.Error("clone shares state with the original")
	}

	if full := item.Clone(true); full.Content != "<html/>" {
		t.Errorf("expected content to be kept, got %q", full.Content)
	}
}

func TestPage_TotalPages(t *testing.T) {
	if got := (Page{Total: 21, PageSize: 10}).TotalPages(); got != 3 {
		t.Errorf("TotalPages() = %d, want 3", got)
	}
	if got := (Page{Total: 5}).TotalPages(); got != 0 {
		t.Errorf("TotalPages() with zero size = %d, want 0", got)
	}
}
