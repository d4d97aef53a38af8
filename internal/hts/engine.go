package hts

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Record is one schema-agnostic bottom-level row, as produced by ingestion.
type Record map[string]any

// Options tunes the engine. The zero value is usable: "/" separator,
// per-column group crossing, single-threaded aggregation.
type Options struct {
	Separator     string        `json:"separator"`
	GroupCrossing GroupCrossing `json:"group_crossing"`
	Workers       int           `json:"workers"`
}

func (o Options) withDefaults() Options {
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// Model is a fully built hierarchical time-series structure: the hierarchy
// tree, group catalogs, bottom-series index, aggregate-node list and the
// observed panel. It is immutable after Build and safe for concurrent reads.
type Model struct {
	Spec     *HierarchySpec
	Opts     Options
	Tree     *Tree
	Catalogs []*GroupCatalog
	Series   []BottomSeries
	Nodes    []AggregateNode
	Index    *TimeIndex

	timeCol  string
	valueCol string
	// values[i] holds the observations of bottom series i by period.
	values []map[Period]float64
	// seriesUnder[n] lists the bottom series whose path passes through tree
	// node n, ascending by series index.
	seriesUnder [][]int
}

// AggregatedRecord is one row of the long-form aggregated output: every
// category column carries either its concrete value or the Aggregated marker.
type AggregatedRecord struct {
	Categories map[string]string `json:"categories"`
	Period     string            `json:"period"`
	Value      float64           `json:"value"`
}

// Build validates the spec against the rows, derives the hierarchy tree,
// group catalogs, bottom-series index and aggregate-node list, and indexes
// the observed values. It is a pure function of its input: rebuilding from
// the same rows yields an identical model. On any error no partial model is
// returned.
func Build(rows []Record, spec *HierarchySpec, timeCol, valueCol string, opts Options) (*Model, error) {
	opts = opts.withDefaults()
	if spec == nil {
		return nil, &SpecError{Reason: "nil spec"}
	}
	if timeCol == "" || valueCol == "" {
		return nil, &SpecError{Reason: "time and value column names are required"}
	}
	for _, col := range spec.Columns() {
		if col == timeCol || col == valueCol {
			return nil, &SpecError{Column: col, Reason: "category column clashes with time or value column"}
		}
	}
	if len(rows) == 0 {
		return nil, &SpecError{Reason: "cannot validate spec against an empty dataset"}
	}
	for _, col := range append(spec.Columns(), timeCol, valueCol) {
		if _, ok := rows[0][col]; !ok {
			return nil, &SpecError{Column: col, Reason: "column absent from bottom-level schema"}
		}
	}

	m := &Model{
		Spec:     spec,
		Opts:     opts,
		Tree:     NewTree(),
		Catalogs: make([]*GroupCatalog, len(spec.Groups)),
		Index:    NewTimeIndex(),
		timeCol:  timeCol,
		valueCol: valueCol,
	}
	for g, col := range spec.Groups {
		m.Catalogs[g] = NewGroupCatalog(col)
	}

	seriesIdx := make(map[string]int)
	for i, row := range rows {
		path := make([]string, len(spec.Hierarchy))
		for l, col := range spec.Hierarchy {
			v, err := categoryValue(row, i, col, opts.Separator)
			if err != nil {
				return nil, err
			}
			path[l] = v
		}
		groups := make([]int, len(spec.Groups))
		groupVals := make([]string, len(spec.Groups))
		for g, col := range spec.Groups {
			v, err := categoryValue(row, i, col, opts.Separator)
			if err != nil {
				return nil, err
			}
			groups[g] = m.Catalogs[g].Add(v)
			groupVals[g] = v
		}

		raw, ok := row[timeCol]
		if !ok || raw == nil {
			return nil, &SchemaError{Row: i, Column: timeCol, Reason: "missing time value"}
		}
		period, err := m.Index.Add(FormatValue(raw))
		if err != nil {
			return nil, err
		}

		value, err := numericValue(row, i, valueCol)
		if err != nil {
			return nil, err
		}

		node := m.Tree.Insert(path)
		s := BottomSeries{Node: node, Groups: groups}
		idx, ok := seriesIdx[s.key()]
		if !ok {
			idx = len(m.Series)
			seriesIdx[s.key()] = idx
			m.Series = append(m.Series, s)
			m.values = append(m.values, make(map[Period]float64))
		}
		if _, dup := m.values[idx][period]; dup {
			label := strings.Join(append(append([]string{}, path...), groupVals...), opts.Separator)
			return nil, &InconsistentPanelError{Series: label, Period: period.String()}
		}
		m.values[idx][period] = value
	}

	m.canonicalizeSeries()
	m.indexSeriesUnder()
	m.Nodes = enumerateNodes(m.Tree, m.Catalogs, m.Series, m.seriesUnder, opts.GroupCrossing)
	return m, nil
}

// canonicalizeSeries fixes the bottom-series order to the product order of
// its first-seen constituents: full-depth tree nodes in tree order, then
// group catalog indices lexicographically. This is the column order of the
// summation matrix and the order the deepest enumerated block reproduces.
func (m *Model) canonicalizeSeries() {
	levels := m.Tree.Levels()
	bottom := levels[len(levels)-1]
	rank := make(map[int]int, len(bottom))
	for pos, n := range bottom {
		rank[n] = pos
	}

	perm := make([]int, len(m.Series))
	for i := range perm {
		perm[i] = i
	}
	sort.Slice(perm, func(a, b int) bool {
		sa, sb := m.Series[perm[a]], m.Series[perm[b]]
		if sa.Node != sb.Node {
			return rank[sa.Node] < rank[sb.Node]
		}
		for g := range sa.Groups {
			if sa.Groups[g] != sb.Groups[g] {
				return sa.Groups[g] < sb.Groups[g]
			}
		}
		return false
	})

	series := make([]BottomSeries, len(m.Series))
	values := make([]map[Period]float64, len(m.values))
	for newIdx, oldIdx := range perm {
		series[newIdx] = m.Series[oldIdx]
		values[newIdx] = m.values[oldIdx]
	}
	m.Series = series
	m.values = values
}

func (m *Model) indexSeriesUnder() {
	m.seriesUnder = make([][]int, len(m.Tree.Nodes))
	for i, s := range m.Series {
		for n := s.Node; ; n = m.Tree.Nodes[n].Parent {
			m.seriesUnder[n] = append(m.seriesUnder[n], i)
			if n == 0 {
				break
			}
		}
	}
}

// NSeries returns the total number of series across all aggregation levels.
func (m *Model) NSeries() int { return len(m.Nodes) }

// NBottom returns the number of bottom-level series.
func (m *Model) NBottom() int { return len(m.Series) }

// NPeriods returns the number of distinct time periods.
func (m *Model) NPeriods() int { return m.Index.Len() }

// Periods returns the distinct periods in chronological order.
func (m *Model) Periods() []Period { return m.Index.Periods() }

// BottomVector returns the bottom-level value vector for one period, aligned
// with the summation matrix columns, with 0 for series absent in the period.
func (m *Model) BottomVector(p Period) []float64 {
	vec := make([]float64, len(m.Series))
	for i := range m.Series {
		vec[i] = m.values[i][p]
	}
	return vec
}

// AggregatedSeries computes the long-form aggregated table: one record per
// (aggregate node, period) pair that has at least one contributing
// observation, in node enumeration order then chronological order. Nodes are
// summed in parallel across Options.Workers; the output order does not
// depend on the worker count.
func (m *Model) AggregatedSeries() []AggregatedRecord {
	periods := m.Periods()
	perNode := make([][]AggregatedRecord, len(m.Nodes))

	var wg sync.WaitGroup
	next := make(chan int)
	for w := 0; w < m.Opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				perNode[i] = m.aggregateNode(m.Nodes[i], periods)
			}
		}()
	}
	for i := range m.Nodes {
		next <- i
	}
	close(next)
	wg.Wait()

	var out []AggregatedRecord
	for _, recs := range perNode {
		out = append(out, recs...)
	}
	return out
}

func (m *Model) aggregateNode(node AggregateNode, periods []Period) []AggregatedRecord {
	categories := m.nodeCategories(node)
	var recs []AggregatedRecord
	for _, p := range periods {
		sum, contributed := 0.0, false
		for _, si := range m.seriesUnder[node.Node] {
			if !groupsMatch(node, m.Series[si]) {
				continue
			}
			if v, ok := m.values[si][p]; ok {
				sum += v
				contributed = true
			}
		}
		if contributed {
			recs = append(recs, AggregatedRecord{Categories: categories, Period: p.String(), Value: sum})
		}
	}
	return recs
}

// nodeCategories maps every category column to its concrete value where the
// node fixes it, and to the Aggregated marker where it does not.
func (m *Model) nodeCategories(node AggregateNode) map[string]string {
	out := make(map[string]string, len(m.Spec.Hierarchy)+len(m.Spec.Groups))
	path := m.Tree.Path(node.Node)
	for l, col := range m.Spec.Hierarchy {
		if l < len(path) {
			out[col] = path[l]
		} else {
			out[col] = Aggregated
		}
	}
	for g, col := range m.Spec.Groups {
		if node.Groups[g] >= 0 {
			out[col] = m.Catalogs[g].Values[node.Groups[g]]
		} else {
			out[col] = Aggregated
		}
	}
	return out
}

func categoryValue(row Record, i int, col, sep string) (string, error) {
	raw, ok := row[col]
	if !ok || raw == nil {
		return "", &SchemaError{Row: i, Column: col, Reason: "missing category value"}
	}
	v := FormatValue(raw)
	if v == "" {
		return "", &SchemaError{Row: i, Column: col, Reason: "empty category value"}
	}
	if strings.Contains(v, sep) {
		return "", &SchemaError{Row: i, Column: col, Reason: fmt.Sprintf("category value contains label separator %q", sep)}
	}
	return v, nil
}

func numericValue(row Record, i int, col string) (float64, error) {
	raw, ok := row[col]
	if !ok || raw == nil {
		return 0, &SchemaError{Row: i, Column: col, Reason: "missing value"}
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, &SchemaError{Row: i, Column: col, Reason: fmt.Sprintf("non-numeric value %q", n)}
		}
		v = parsed
	default:
		return 0, &SchemaError{Row: i, Column: col, Reason: fmt.Sprintf("non-numeric value of type %T", raw)}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &SchemaError{Row: i, Column: col, Reason: "value is NaN or infinite"}
	}
	return v, nil
}

// FormatValue renders any ingested scalar as its category/period string.
// Upstream stages use the same coercion so a row they accept is a row Build
// accepts.
func FormatValue(raw any) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", raw)
	}
}
