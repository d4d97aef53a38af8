package hts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gdpRows is the quarterly GDP panel from the domain documentation: two
// hierarchy levels (state, city), one group (sector), two quarters, eight
// bottom-level series.
func gdpRows() []Record {
	type obs struct {
		state, city, sector, quarter string
		gdp                          float64
	}
	data := []obs{
		{"Rio de Janeiro", "Rio de Janeiro", "Industry", "2024 Q1", 1500},
		{"Rio de Janeiro", "Duque de Caxias", "Industry", "2024 Q1", 270},
		{"São Paulo", "São Paulo", "Industry", "2024 Q1", 2800},
		{"São Paulo", "Campinas", "Industry", "2024 Q1", 500},
		{"Rio de Janeiro", "Rio de Janeiro", "Agriculture", "2024 Q1", 2300},
		{"Rio de Janeiro", "Duque de Caxias", "Agriculture", "2024 Q1", 350},
		{"São Paulo", "São Paulo", "Agriculture", "2024 Q1", 3100},
		{"São Paulo", "Campinas", "Agriculture", "2024 Q1", 700},
		{"Rio de Janeiro", "Rio de Janeiro", "Industry", "2024 Q2", 1700},
		{"Rio de Janeiro", "Duque de Caxias", "Industry", "2024 Q2", 310},
		{"São Paulo", "São Paulo", "Industry", "2024 Q2", 2950},
		{"São Paulo", "Campinas", "Industry", "2024 Q2", 540},
		{"Rio de Janeiro", "Rio de Janeiro", "Agriculture", "2024 Q2", 2450},
		{"Rio de Janeiro", "Duque de Caxias", "Agriculture", "2024 Q2", 380},
		{"São Paulo", "São Paulo", "Agriculture", "2024 Q2", 3250},
		{"São Paulo", "Campinas", "Agriculture", "2024 Q2", 740},
	}
	rows := make([]Record, len(data))
	for i, d := range data {
		rows[i] = Record{"state": d.state, "city": d.city, "sector": d.sector, "quarter": d.quarter, "gdp": d.gdp}
	}
	return rows
}

func gdpModel(t *testing.T, opts Options) *Model {
	t.Helper()
	spec, err := NewHierarchySpec([]string{"state", "city"}, []string{"sector"})
	require.NoError(t, err)
	m, err := Build(gdpRows(), spec, "quarter", "gdp", opts)
	require.NoError(t, err)
	return m
}

// recordKey indexes an aggregated record by its category assignment and
// period, independent of record order.
func recordKey(spec *HierarchySpec, rec AggregatedRecord) string {
	parts := make([]string, 0, len(spec.Hierarchy)+len(spec.Groups)+1)
	for _, col := range spec.Columns() {
		parts = append(parts, rec.Categories[col])
	}
	parts = append(parts, rec.Period)
	return strings.Join(parts, "|")
}

func TestBuildSummaryCounts(t *testing.T) {
	m := gdpModel(t, Options{})

	assert.Equal(t, 21, m.NSeries())
	assert.Equal(t, 8, m.NBottom())
	assert.Equal(t, 2, m.NPeriods())
	assert.Equal(t, Quarterly, m.Index.Frequency())
}

func TestAggregatedSeriesWorkedExample(t *testing.T) {
	m := gdpModel(t, Options{})
	records := m.AggregatedSeries()

	// Complete panel: every node has data in both quarters.
	assert.Len(t, records, 42)

	byKey := make(map[string]float64, len(records))
	for _, rec := range records {
		byKey[recordKey(m.Spec, rec)] = rec.Value
	}

	agg := Aggregated
	assert.Equal(t, 11520.0, byKey[agg+"|"+agg+"|"+agg+"|2024 Q1"], "Total 2024 Q1")
	assert.Equal(t, 12320.0, byKey[agg+"|"+agg+"|"+agg+"|2024 Q2"], "Total 2024 Q2")
	assert.Equal(t, 5500.0, byKey[agg+"|"+agg+"|Industry|2024 Q2"], "Industry, hierarchy aggregated, 2024 Q2")
	assert.Equal(t, 4420.0, byKey["Rio de Janeiro|"+agg+"|"+agg+"|2024 Q1"], "Rio de Janeiro state 2024 Q1")
	assert.Equal(t, 2450.0, byKey["Rio de Janeiro|Rio de Janeiro|Agriculture|2024 Q2"])
}

func TestAggregationMatchesMatrixVectorProduct(t *testing.T) {
	m := gdpModel(t, Options{})
	sm := m.SummationMatrix()

	byKey := make(map[string]float64)
	for _, rec := range m.AggregatedSeries() {
		byKey[recordKey(m.Spec, rec)] = rec.Value
	}

	for _, p := range m.Periods() {
		b := m.BottomVector(p)
		for i, node := range m.Nodes {
			var product float64
			for j := range b {
				product += float64(sm.At(i, j)) * b[j]
			}
			var parts []string
			for _, col := range m.Spec.Columns() {
				parts = append(parts, m.nodeCategories(node)[col])
			}
			key := strings.Join(append(parts, p.String()), "|")
			assert.Equal(t, product, byKey[key], "node %s period %s", sm.RowLabels[i], p)
		}
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	first := gdpModel(t, Options{})
	second := gdpModel(t, Options{})

	assert.Equal(t, first.SummationMatrix(), second.SummationMatrix())
	assert.Equal(t, first.AggregatedSeries(), second.AggregatedSeries())
}

func TestAggregationDeterministicAcrossWorkerCounts(t *testing.T) {
	serial := gdpModel(t, Options{Workers: 1})
	parallel := gdpModel(t, Options{Workers: 8})

	assert.Equal(t, serial.AggregatedSeries(), parallel.AggregatedSeries())
}

func TestBuildRejectsMixedFrequencies(t *testing.T) {
	spec, err := Hierarchical([]string{"region"})
	require.NoError(t, err)

	rows := []Record{
		{"region": "North", "period": "2024", "value": 1.0},
		{"region": "South", "period": "2024 Q1", "value": 2.0},
	}
	_, err = Build(rows, spec, "period", "value", Options{})
	require.Error(t, err)
	var perr *TimeParseError
	assert.ErrorAs(t, err, &perr)
}

func TestBuildRejectsDuplicateObservations(t *testing.T) {
	spec, err := NewHierarchySpec([]string{"state", "city"}, []string{"sector"})
	require.NoError(t, err)

	rows := append(gdpRows(), Record{
		"state": "Rio de Janeiro", "city": "Rio de Janeiro", "sector": "Industry",
		"quarter": "2024 Q1", "gdp": 99.0,
	})
	_, err = Build(rows, spec, "quarter", "gdp", Options{})
	require.Error(t, err)
	var derr *InconsistentPanelError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "Rio de Janeiro/Rio de Janeiro/Industry", derr.Series)
	assert.Equal(t, "2024 Q1", derr.Period)
}

func TestBuildSchemaAndSpecErrors(t *testing.T) {
	region, err := Hierarchical([]string{"region"})
	require.NoError(t, err)
	okRow := Record{"region": "North", "period": "2024", "value": 1.0}

	t.Run("column absent from schema", func(t *testing.T) {
		missing, err := Hierarchical([]string{"region", "area"})
		require.NoError(t, err)
		_, err = Build([]Record{okRow}, missing, "period", "value", Options{})
		var serr *SpecError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "area", serr.Column)
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, err := Build(nil, region, "period", "value", Options{})
		var serr *SpecError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("category clashes with value column", func(t *testing.T) {
		clash, err := Hierarchical([]string{"value"})
		require.NoError(t, err)
		_, err = Build([]Record{okRow}, clash, "period", "value", Options{})
		var serr *SpecError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("row missing category value", func(t *testing.T) {
		rows := []Record{okRow, {"region": nil, "period": "2025", "value": 2.0}}
		_, err := Build(rows, region, "period", "value", Options{})
		var scherr *SchemaError
		require.ErrorAs(t, err, &scherr)
		assert.Equal(t, 1, scherr.Row)
		assert.Equal(t, "region", scherr.Column)
	})

	t.Run("non-numeric value", func(t *testing.T) {
		rows := []Record{{"region": "North", "period": "2024", "value": "lots"}}
		_, err := Build(rows, region, "period", "value", Options{})
		var scherr *SchemaError
		require.ErrorAs(t, err, &scherr)
		assert.Contains(t, scherr.Reason, "non-numeric")
	})

	t.Run("separator inside category value", func(t *testing.T) {
		rows := []Record{{"region": "North/East", "period": "2024", "value": 1.0}}
		_, err := Build(rows, region, "period", "value", Options{})
		var scherr *SchemaError
		require.ErrorAs(t, err, &scherr)

		// A custom separator makes the same value acceptable.
		m, err := Build(rows, region, "period", "value", Options{Separator: "|"})
		require.NoError(t, err)
		assert.Equal(t, "North/East", m.SummationMatrix().ColLabels[0])
	})

	t.Run("numeric string values are coerced", func(t *testing.T) {
		rows := []Record{{"region": "North", "period": "2024", "value": "12.5"}}
		m, err := Build(rows, region, "period", "value", Options{})
		require.NoError(t, err)
		assert.Equal(t, 12.5, m.AggregatedSeries()[0].Value)
	})
}

func TestZeroFillForSeriesAbsentInAPeriod(t *testing.T) {
	spec, err := Hierarchical([]string{"region"})
	require.NoError(t, err)
	rows := []Record{
		{"region": "North", "period": "2024 Q1", "value": 10.0},
		{"region": "South", "period": "2024 Q1", "value": 5.0},
		{"region": "North", "period": "2024 Q2", "value": 7.0},
	}
	m, err := Build(rows, spec, "period", "value", Options{})
	require.NoError(t, err)

	byKey := make(map[string]float64)
	for _, rec := range m.AggregatedSeries() {
		byKey[recordKey(m.Spec, rec)] = rec.Value
	}

	// The root aggregates with zero substituted for the missing series.
	assert.Equal(t, 15.0, byKey[Aggregated+"|2024 Q1"])
	assert.Equal(t, 7.0, byKey[Aggregated+"|2024 Q2"])
	assert.Equal(t, 5.0, byKey["South|2024 Q1"])

	// South has no observation in Q2, so no record is emitted for it.
	_, present := byKey["South|2024 Q2"]
	assert.False(t, present)
}

func TestGroupsOnlyPanel(t *testing.T) {
	spec, err := Grouped([]string{"sector"})
	require.NoError(t, err)
	rows := []Record{
		{"sector": "Industry", "period": "2024", "value": 3.0},
		{"sector": "Agriculture", "period": "2024", "value": 4.0},
	}
	m, err := Build(rows, spec, "period", "value", Options{})
	require.NoError(t, err)

	sm := m.SummationMatrix()
	assert.Equal(t, []string{"Total", "Industry", "Agriculture"}, sm.RowLabels)
	assert.Equal(t, []string{"Industry", "Agriculture"}, sm.ColLabels)

	byKey := make(map[string]float64)
	for _, rec := range m.AggregatedSeries() {
		byKey[recordKey(m.Spec, rec)] = rec.Value
	}
	assert.Equal(t, 7.0, byKey[Aggregated+"|2024"])
	assert.Equal(t, 3.0, byKey["Industry|2024"])
}

func TestMultipleGroupColumns(t *testing.T) {
	spec, err := Grouped([]string{"sector", "channel"})
	require.NoError(t, err)
	rows := []Record{
		{"sector": "a", "channel": "u", "period": "2024", "value": 1.0},
		{"sector": "a", "channel": "v", "period": "2024", "value": 2.0},
		{"sector": "b", "channel": "u", "period": "2024", "value": 4.0},
		{"sector": "b", "channel": "v", "period": "2024", "value": 8.0},
	}

	t.Run("per-column crossing", func(t *testing.T) {
		m, err := Build(rows, spec, "period", "value", Options{GroupCrossing: CrossPerColumn})
		require.NoError(t, err)

		sm := m.SummationMatrix()
		// Total, sector values, channel values: the columns cross the
		// (empty) hierarchy one at a time.
		assert.Equal(t, []string{"Total", "a", "b", "u", "v"}, sm.RowLabels)
		assert.Equal(t, []string{"a/u", "a/v", "b/u", "b/v"}, sm.ColLabels)
		assert.Equal(t, []uint8{1, 1, 0, 0}, sm.Row(1)) // sector a
		assert.Equal(t, []uint8{1, 0, 1, 0}, sm.Row(3)) // channel u

		byKey := make(map[string]float64)
		for _, rec := range m.AggregatedSeries() {
			byKey[recordKey(m.Spec, rec)] = rec.Value
		}
		assert.Equal(t, 15.0, byKey[Aggregated+"|"+Aggregated+"|2024"])
		assert.Equal(t, 3.0, byKey["a|"+Aggregated+"|2024"])
		assert.Equal(t, 5.0, byKey[Aggregated+"|u|2024"])
	})

	t.Run("full crossing appends bound tuples", func(t *testing.T) {
		m, err := Build(rows, spec, "period", "value", Options{GroupCrossing: CrossFull})
		require.NoError(t, err)

		sm := m.SummationMatrix()
		assert.Equal(t, []string{"Total", "a", "b", "u", "v", "a/u", "a/v", "b/u", "b/v"}, sm.RowLabels)

		// The final block is the bottom series themselves.
		for offset, col := range sm.ColLabels {
			row := sm.Row(5 + offset)
			for j := range row {
				if j == offset {
					assert.Equal(t, uint8(1), row[j], "row %s", col)
				} else {
					assert.Equal(t, uint8(0), row[j], "row %s", col)
				}
			}
		}
	})
}
