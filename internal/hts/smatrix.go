package hts

// SummationMatrix maps bottom-level series to every aggregate series: rows
// follow the aggregate-node enumeration, columns follow the bottom-series
// order, entries are 0 or 1. The Total row is all ones and every bottom-level
// row has exactly one 1.
type SummationMatrix struct {
	Rows      int      `json:"rows"`
	Cols      int      `json:"cols"`
	Data      []uint8  `json:"data"`
	RowLabels []string `json:"row_labels"`
	ColLabels []string `json:"col_labels"`
}

// At returns the entry at row i, column j.
func (s *SummationMatrix) At(i, j int) uint8 {
	return s.Data[i*s.Cols+j]
}

// Row returns row i as a slice backed by the matrix.
func (s *SummationMatrix) Row(i int) []uint8 {
	return s.Data[i*s.Cols : (i+1)*s.Cols]
}

// SummationMatrix builds the matrix with its index-aligned labels. The
// result is deterministic: it depends only on the model's node and series
// ordering.
func (m *Model) SummationMatrix() *SummationMatrix {
	rows, cols := len(m.Nodes), len(m.Series)
	sm := &SummationMatrix{
		Rows:      rows,
		Cols:      cols,
		Data:      make([]uint8, rows*cols),
		RowLabels: make([]string, rows),
		ColLabels: make([]string, cols),
	}
	for j, s := range m.Series {
		sm.ColLabels[j] = m.SeriesLabel(s)
	}
	for i, node := range m.Nodes {
		sm.RowLabels[i] = m.Label(node)
		row := sm.Row(i)
		for _, j := range m.seriesUnder[node.Node] {
			if groupsMatch(node, m.Series[j]) {
				row[j] = 1
			}
		}
	}
	return sm
}

// groupsMatch reports whether the series satisfies every bound group
// constraint of the node. The hierarchy-prefix condition is already encoded
// in seriesUnder.
func groupsMatch(n AggregateNode, s BottomSeries) bool {
	for g, v := range n.Groups {
		if v >= 0 && s.Groups[g] != v {
			return false
		}
	}
	return true
}
