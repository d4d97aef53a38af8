package hts

import (
	"strconv"
	"strings"
)

// keySep joins path segments for internal map keys. It is a control
// character so it cannot collide with category values; the user-facing label
// separator is configured independently.
const keySep = "\x1f"

// TreeNode is one hierarchy node stored in the arena. The root has Parent -1
// and an empty Label; every other node's Label is its last path segment.
type TreeNode struct {
	Parent   int
	Depth    int
	Label    string
	Children []int
}

// Tree is the hierarchy of path prefixes observed in the bottom-level data,
// stored as an arena addressed by index. Node 0 is always the root. Sibling
// order is first-seen order among the rows under the shared parent.
type Tree struct {
	Nodes  []TreeNode
	byPath map[string]int
}

// NewTree returns a tree holding only the root.
func NewTree() *Tree {
	t := &Tree{byPath: make(map[string]int)}
	t.Nodes = append(t.Nodes, TreeNode{Parent: -1})
	t.byPath[""] = 0
	return t
}

// Insert adds every prefix of path that is not yet present and returns the
// arena index of the full path's node. Inserting an empty path returns the
// root.
func (t *Tree) Insert(path []string) int {
	node := 0
	key := ""
	for depth, segment := range path {
		if key == "" {
			key = segment
		} else {
			key = key + keySep + segment
		}
		child, ok := t.byPath[key]
		if !ok {
			child = len(t.Nodes)
			t.Nodes = append(t.Nodes, TreeNode{Parent: node, Depth: depth + 1, Label: segment})
			t.Nodes[node].Children = append(t.Nodes[node].Children, child)
			t.byPath[key] = child
		}
		node = child
	}
	return node
}

// Depth returns the maximum node depth (the number of hierarchy levels).
func (t *Tree) Depth() int {
	max := 0
	for i := range t.Nodes {
		if t.Nodes[i].Depth > max {
			max = t.Nodes[i].Depth
		}
	}
	return max
}

// Path returns the path segments from the root down to node (empty for the
// root itself).
func (t *Tree) Path(node int) []string {
	if node == 0 {
		return nil
	}
	segments := make([]string, 0, t.Nodes[node].Depth)
	for i := node; i != 0; i = t.Nodes[i].Parent {
		segments = append(segments, t.Nodes[i].Label)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return segments
}

// Levels returns, per depth 0..Depth(), the node indices at that depth in
// tree order: each level is the concatenation of the previous level's child
// lists, so sibling order is preserved level by level.
func (t *Tree) Levels() [][]int {
	levels := [][]int{{0}}
	for {
		prev := levels[len(levels)-1]
		var next []int
		for _, n := range prev {
			next = append(next, t.Nodes[n].Children...)
		}
		if len(next) == 0 {
			return levels
		}
		levels = append(levels, next)
	}
}

// GroupCatalog holds the distinct values of one group column in first-seen
// order.
type GroupCatalog struct {
	Column string
	Values []string
	index  map[string]int
}

func NewGroupCatalog(column string) *GroupCatalog {
	return &GroupCatalog{Column: column, index: make(map[string]int)}
}

// Add records value if unseen and returns its catalog index.
func (c *GroupCatalog) Add(value string) int {
	if i, ok := c.index[value]; ok {
		return i
	}
	i := len(c.Values)
	c.index[value] = i
	c.Values = append(c.Values, value)
	return i
}

// Lookup returns the catalog index of value, or -1 if never seen.
func (c *GroupCatalog) Lookup(value string) int {
	if i, ok := c.index[value]; ok {
		return i
	}
	return -1
}

func (c *GroupCatalog) Len() int { return len(c.Values) }

// BottomSeries identifies one bottom-level series by its full hierarchy node
// and one catalog index per group column, in spec order.
type BottomSeries struct {
	Node   int
	Groups []int
}

func (s BottomSeries) key() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.Node))
	for _, g := range s.Groups {
		b.WriteString(keySep)
		b.WriteString(strconv.Itoa(g))
	}
	return b.String()
}
