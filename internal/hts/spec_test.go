package hts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHierarchySpec(t *testing.T) {
	tests := []struct {
		name      string
		hierarchy []string
		groups    []string
		wantErr   string
	}{
		{name: "hierarchy and groups", hierarchy: []string{"state", "city"}, groups: []string{"sector"}},
		{name: "hierarchy only", hierarchy: []string{"state", "city"}},
		{name: "groups only", groups: []string{"sector", "product"}},
		{name: "both empty", hierarchy: nil, groups: nil},
		{name: "empty hierarchy name", hierarchy: []string{"state", ""}, wantErr: "empty"},
		{name: "empty group name", groups: []string{""}, wantErr: "empty"},
		{name: "duplicate hierarchy column", hierarchy: []string{"state", "state"}, wantErr: "duplicate"},
		{name: "column in both roles", hierarchy: []string{"state"}, groups: []string{"state"}, wantErr: "both"},
		{name: "duplicate group column", groups: []string{"sector", "sector"}, wantErr: "both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewHierarchySpec(tt.hierarchy, tt.groups)
			if tt.wantErr != "" {
				require.Error(t, err)
				var serr *SpecError
				assert.ErrorAs(t, err, &serr)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.hierarchy), spec.Depth())
			assert.Equal(t, len(tt.hierarchy)+len(tt.groups), len(spec.Columns()))
		})
	}
}

func TestSpecConvenienceConstructors(t *testing.T) {
	h, err := Hierarchical([]string{"state", "city"})
	require.NoError(t, err)
	assert.Empty(t, h.Groups)
	assert.Equal(t, 2, h.Depth())

	g, err := Grouped([]string{"sector"})
	require.NoError(t, err)
	assert.Empty(t, g.Hierarchy)
	assert.Equal(t, []string{"sector"}, g.Columns())
}
