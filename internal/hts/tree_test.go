package hts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeInsertFirstSeenOrder(t *testing.T) {
	tree := NewTree()
	a := tree.Insert([]string{"A", "x"})
	b := tree.Insert([]string{"B", "y"})
	z := tree.Insert([]string{"A", "z"})

	// Re-inserting returns the existing node.
	assert.Equal(t, a, tree.Insert([]string{"A", "x"}))

	require.Len(t, tree.Nodes, 6) // root, A, A/x, B, B/y, A/z
	assert.Equal(t, []string{"A", "x"}, tree.Path(a))
	assert.Equal(t, []string{"B", "y"}, tree.Path(b))
	assert.Equal(t, []string{"A", "z"}, tree.Path(z))
	assert.Nil(t, tree.Path(0))
	assert.Equal(t, 2, tree.Depth())

	levels := tree.Levels()
	require.Len(t, levels, 3)
	assert.Equal(t, []int{0}, levels[0])

	// Sibling order under A is first-seen: x before z, even though B/y was
	// inserted in between. Level order is parent-major.
	var level1, level2 []string
	for _, n := range levels[1] {
		level1 = append(level1, tree.Nodes[n].Label)
	}
	for _, n := range levels[2] {
		level2 = append(level2, tree.Nodes[n].Label)
	}
	assert.Equal(t, []string{"A", "B"}, level1)
	assert.Equal(t, []string{"x", "z", "y"}, level2)
}

func TestTreeEmptyHierarchy(t *testing.T) {
	tree := NewTree()
	assert.Equal(t, 0, tree.Insert(nil))
	assert.Equal(t, 0, tree.Depth())
	assert.Equal(t, [][]int{{0}}, tree.Levels())
}

func TestGroupCatalogFirstSeenOrder(t *testing.T) {
	c := NewGroupCatalog("sector")
	assert.Equal(t, 0, c.Add("Industry"))
	assert.Equal(t, 1, c.Add("Agriculture"))
	assert.Equal(t, 0, c.Add("Industry"))

	assert.Equal(t, []string{"Industry", "Agriculture"}, c.Values)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Lookup("Agriculture"))
	assert.Equal(t, -1, c.Lookup("Services"))
}
