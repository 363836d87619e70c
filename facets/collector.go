// Package facets collects search facets for display, keeping every selected
// facet and the most frequent non-selected ones.
package facets

import "sort"

// Facet is one filter choice with the number of matching documents.
type Facet struct {
	Value    string `json:"value"`
	Label    string `json:"label,omitempty"`
	HitCount int    `json:"hit_count"`
	Selected bool   `json:"selected,omitempty"`
}

// Collector is a bounded top-K over non-selected facets where entries tied
// at the minimum hit count are evicted together. It is not safe for
// concurrent use.
type Collector struct {
	selectedValues map[string]struct{}
	maxChoices     int

	selected    []Facet
	nonSelected []Facet
	minCount    int
}

// NewCollector creates a collector. Facets whose Value is in selectedValues
// count as selected. maxChoices <= 0 keeps every non-selected facet.
func NewCollector(selectedValues []string, maxChoices int) *Collector {
	set := make(map[string]struct{}, len(selectedValues))
	for _, v := range selectedValues {
		set[v] = struct{}{}
	}
	return &Collector{selectedValues: set, maxChoices: maxChoices}
}

// Add offers f to the collector.
func (c *Collector) Add(f Facet) {
	if _, ok := c.selectedValues[f.Value]; ok {
		f.Selected = true
	}
	if f.Selected {
		c.selected = append(c.selected, f)
		return
	}

	if c.maxChoices <= 0 || len(c.nonSelected) < c.maxChoices {
		if len(c.nonSelected) == 0 || f.HitCount < c.minCount {
			c.minCount = f.HitCount
		}
		c.nonSelected = append(c.nonSelected, f)
		return
	}

	switch {
	case f.HitCount < c.minCount:
		return
	case f.HitCount == c.minCount:
		c.nonSelected = append(c.nonSelected, f)
	default:
		tied := 0
		for _, have := range c.nonSelected {
			if have.HitCount == c.minCount {
				tied++
			}
		}
		if len(c.nonSelected)-tied+1 >= c.maxChoices {
			kept := c.nonSelected[:0]
			for _, have := range c.nonSelected {
				if have.HitCount != c.minCount {
					kept = append(kept, have)
				}
			}
			c.nonSelected = append(kept, f)
			c.minCount = minHitCount(c.nonSelected)
			return
		}
		c.nonSelected = append(c.nonSelected, f)
	}
}

// AddRange offers each facet in order.
func (c *Collector) AddRange(fs ...Facet) {
	for _, f := range fs {
		c.Add(f)
	}
}

// Facets returns the selected facets in insertion order followed by the
// non-selected ones by descending hit count. Equal counts keep insertion order.
func (c *Collector) Facets() []Facet {
	out := make([]Facet, 0, len(c.selected)+len(c.nonSelected))
	out = append(out, c.selected...)

	rest := append([]Facet(nil), c.nonSelected...)
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].HitCount > rest[j].HitCount })
	return append(out, rest...)
}

// MinCountForNonSelected is the smallest hit count among kept non-selected
// facets, 0 when there are none.
func (c *Collector) MinCountForNonSelected() int {
	if len(c.nonSelected) == 0 {
		return 0
	}
	return c.minCount
}

// HasMinimumCount reports whether the non-selected list is full, so new
// candidates must beat MinCountForNonSelected.
func (c *Collector) HasMinimumCount() bool {
	return c.maxChoices > 0 && len(c.nonSelected) >= c.maxChoices
}

// Len returns the number of kept facets.
func (c *Collector) Len() int { return len(c.selected) + len(c.nonSelected) }

func minHitCount(fs []Facet) int {
	if len(fs) == 0 {
		return 0
	}
	m := fs[0].HitCount
	for _, f := range fs[1:] {
		if f.HitCount < m {
			m = f.HitCount
		}
	}
	return m
}
