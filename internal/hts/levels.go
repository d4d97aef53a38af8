package hts

import (
	"sort"
	"strings"
)

// Aggregated marks a category column left free by an aggregate node in the
// long-form output.
const Aggregated = "<aggregated>"

// DefaultSeparator joins path segments in row/column labels. Category values
// containing the configured separator are rejected at build time.
const DefaultSeparator = "/"

// GroupCrossing selects how multiple group columns combine with the
// hierarchy. With a single group column both modes produce the same result.
// With two or more, only CrossFull makes the deepest enumerated block biject
// with the bottom-series list; under CrossPerColumn each node in that block
// still aggregates over all but one group column.
type GroupCrossing int

const (
	// CrossPerColumn crosses each group column with the hierarchy
	// independently, one column at a time per level.
	CrossPerColumn GroupCrossing = iota
	// CrossFull additionally emits, at every depth, nodes with all group
	// columns bound at once (observed combinations only), so the deepest
	// block matches the bottom-level series even with several group columns.
	CrossFull
)

// AggregateNode is one aggregate series: a hierarchy node plus an optional
// constraint per group column (-1 means the column is aggregated over).
type AggregateNode struct {
	Node   int
	Groups []int
}

// enumerateNodes produces the full ordered aggregate-node list. For each
// depth 0..K it emits the hierarchy nodes at that depth in tree order, then
// per group column (spec order) the node×value cross, node-major and
// catalog-minor. A combination with no consistent bottom series is skipped,
// which makes the deepest grouped block coincide with the bottom-series list.
func enumerateNodes(tree *Tree, catalogs []*GroupCatalog, series []BottomSeries, seriesUnder [][]int, mode GroupCrossing) []AggregateNode {
	nGroups := len(catalogs)
	free := make([]int, nGroups)
	for i := range free {
		free[i] = -1
	}
	unconstrained := func(node int) AggregateNode {
		n := AggregateNode{Node: node, Groups: make([]int, nGroups)}
		copy(n.Groups, free)
		return n
	}

	var nodes []AggregateNode
	for _, level := range tree.Levels() {
		for _, hn := range level {
			nodes = append(nodes, unconstrained(hn))
		}
		for g := range catalogs {
			for _, hn := range level {
				for v := range catalogs[g].Values {
					if coveredBy(series, seriesUnder[hn], g, v) {
						n := unconstrained(hn)
						n.Groups[g] = v
						nodes = append(nodes, n)
					}
				}
			}
		}
		if mode == CrossFull && nGroups > 1 {
			for _, hn := range level {
				nodes = append(nodes, fullTuples(series, seriesUnder[hn], hn, nGroups)...)
			}
		}
	}
	return nodes
}

// coveredBy reports whether any of the given bottom series carries value v
// for group column g.
func coveredBy(series []BottomSeries, under []int, g, v int) bool {
	for _, si := range under {
		if series[si].Groups[g] == v {
			return true
		}
	}
	return false
}

// fullTuples returns one fully-bound aggregate node per distinct group tuple
// observed under the hierarchy node, in lexicographic catalog order.
func fullTuples(series []BottomSeries, under []int, node, nGroups int) []AggregateNode {
	seen := make(map[string]bool)
	var tuples [][]int
	for _, si := range under {
		k := BottomSeries{Groups: series[si].Groups}.key()
		if !seen[k] {
			seen[k] = true
			tuple := make([]int, nGroups)
			copy(tuple, series[si].Groups)
			tuples = append(tuples, tuple)
		}
	}
	sort.Slice(tuples, func(i, j int) bool {
		for g := 0; g < nGroups; g++ {
			if tuples[i][g] != tuples[j][g] {
				return tuples[i][g] < tuples[j][g]
			}
		}
		return false
	})
	nodes := make([]AggregateNode, len(tuples))
	for i, tuple := range tuples {
		nodes[i] = AggregateNode{Node: node, Groups: tuple}
	}
	return nodes
}

// Label derives the display label of an aggregate node: path segments joined
// by the separator, the bound group value alone when the path is empty, both
// joined when both are set, and "Total" for the fully unconstrained root.
func (m *Model) Label(n AggregateNode) string {
	segments := m.Tree.Path(n.Node)
	for g, v := range n.Groups {
		if v >= 0 {
			segments = append(segments, m.Catalogs[g].Values[v])
		}
	}
	if len(segments) == 0 {
		return "Total"
	}
	return strings.Join(segments, m.Opts.Separator)
}

// SeriesLabel derives the label of a bottom-level series.
func (m *Model) SeriesLabel(s BottomSeries) string {
	segments := m.Tree.Path(s.Node)
	for g, v := range s.Groups {
		segments = append(segments, m.Catalogs[g].Values[v])
	}
	if len(segments) == 0 {
		return "Total"
	}
	return strings.Join(segments, m.Opts.Separator)
}
