package facets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func hits(fs []Facet) []int {
	out := make([]int, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.HitCount)
	}
	return out
}

func facet(value string, n int) Facet {
	return Facet{Value: value, HitCount: n}
}

func TestCollector_TiesAreKeptAndEvictedTogether(t *testing.T) {
	c := NewCollector(nil, 2)

	c.AddRange(facet("a", 5), facet("b", 3), facet("c", 3), facet("d", 1))
	assert.Equal(t, []int{5, 3, 3}, hits(c.Facets()))
	assert.Equal(t, 3, c.MinCountForNonSelected())
	assert.True(t, c.HasMinimumCount())

	c.Add(facet("e", 4))
	assert.Equal(t, []int{5, 4}, hits(c.Facets()))
	assert.Equal(t, 4, c.MinCountForNonSelected())
}

func TestCollector_SelectedAlwaysKept(t *testing.T) {
	c := NewCollector([]string{"red"}, 1)

	c.AddRange(facet("blue", 10), facet("red", 0), facet("green", 2))
	c.Add(Facet{Value: "black", HitCount: 1, Selected: true})

	got := c.Facets()
	assert.Equal(t, []string{"red", "black", "blue"}, []string{got[0].Value, got[1].Value, got[2].Value})
	assert.True(t, got[0].Selected)
	assert.Equal(t, 3, c.Len())
}

func TestCollector_BelowMinimumDropped(t *testing.T) {
	c := NewCollector(nil, 2)
	c.AddRange(facet("a", 4), facet("b", 6), facet("c", 1))

	assert.Equal(t, []int{6, 4}, hits(c.Facets()))
}

func TestCollector_EvictionNeedsCapacity(t *testing.T) {
	c := NewCollector(nil, 3)
	c.AddRange(facet("a", 5), facet("b", 3), facet("c", 3))

	// evicting both 3s would leave two entries for three slots
	c.Add(facet("d", 4))
	assert.Equal(t, []int{5, 4, 3, 3}, hits(c.Facets()))
	assert.Equal(t, 3, c.MinCountForNonSelected())

	c.Add(facet("e", 6))
	assert.Equal(t, []int{6, 5, 4}, hits(c.Facets()))
	assert.Equal(t, 4, c.MinCountForNonSelected())
}

func TestCollector_Unbounded(t *testing.T) {
	c := NewCollector(nil, 0)
	c.AddRange(facet("a", 1), facet("b", 9), facet("c", 1), facet("d", 0))

	assert.Equal(t, []int{9, 1, 1, 0}, hits(c.Facets()))
	assert.False(t, c.HasMinimumCount())
	assert.Equal(t, 0, c.MinCountForNonSelected())
}

func TestCollector_StableOrderForEqualCounts(t *testing.T) {
	c := NewCollector(nil, 5)
	c.AddRange(facet("x", 2), facet("y", 2), facet("z", 2))

	got := c.Facets()
	assert.Equal(t, []string{"x", "y", "z"}, []string{got[0].Value, got[1].Value, got[2].Value})
}

func TestCollector_Empty(t *testing.T) {
	c := NewCollector(nil, 2)
	assert.Empty(t, c.Facets())
	assert.Zero(t, c.MinCountForNonSelected())
	assert.False(t, c.HasMinimumCount())
}
