package hts

// HierarchySpec declares the cross-sectional structure of a panel: hierarchy
// columns have strict parent-child nesting ordered from top to bottom, group
// columns are flat and cross the hierarchy at every level. Either list may be
// empty, not both.
type HierarchySpec struct {
	Hierarchy []string `json:"hierarchy"`
	Groups    []string `json:"groups"`
}

// NewHierarchySpec validates and returns a spec. It fails with SpecError on
// empty or duplicate names and on a column listed in both roles.
func NewHierarchySpec(hierarchy, groups []string) (*HierarchySpec, error) {
	seen := make(map[string]bool, len(hierarchy)+len(groups))
	for _, col := range hierarchy {
		if col == "" {
			return nil, &SpecError{Reason: "empty hierarchy column name"}
		}
		if seen[col] {
			return nil, &SpecError{Column: col, Reason: "duplicate column name"}
		}
		seen[col] = true
	}
	for _, col := range groups {
		if col == "" {
			return nil, &SpecError{Reason: "empty group column name"}
		}
		if seen[col] {
			return nil, &SpecError{Column: col, Reason: "column appears in both hierarchy and groups, or twice"}
		}
		seen[col] = true
	}
	return &HierarchySpec{Hierarchy: hierarchy, Groups: groups}, nil
}

// Hierarchical returns a spec with only hierarchy columns.
func Hierarchical(columns []string) (*HierarchySpec, error) {
	return NewHierarchySpec(columns, nil)
}

// Grouped returns a spec with only group columns.
func Grouped(columns []string) (*HierarchySpec, error) {
	return NewHierarchySpec(nil, columns)
}

// Columns returns all category columns, hierarchy first, in spec order.
func (s *HierarchySpec) Columns() []string {
	out := make([]string, 0, len(s.Hierarchy)+len(s.Groups))
	out = append(out, s.Hierarchy...)
	out = append(out, s.Groups...)
	return out
}

// Depth returns the number of hierarchy levels.
func (s *HierarchySpec) Depth() int { return len(s.Hierarchy) }
