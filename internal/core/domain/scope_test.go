package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScope(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	empty := NewTableState(10)

	filtered := NewTableState(10)
	filtered.SetFilter(Criteria{Field: "city", Operator: OpEquals, Value: "Nowhere"})

	selected := NewTableState(10)
	selected.Selection = map[string]bool{"1": true}

	grouped := NewTableState(10)
	grouped.Grouping = []string{"city"}

	tests := []struct {
		name    string
		scope   Scope
		state   TableState
		rows    []Row
		valid   bool
		message string
	}{
		{"all with data", ScopeAll, empty, rows, true, ""},
		{"all without data", ScopeAll, empty, nil, false, "No data available"},
		{"filtered no match", ScopeFiltered, filtered, rows, false, "No rows match the current filters"},
		{"selected none", ScopeSelected, empty, rows, false, "No rows selected"},
		{"selected some", ScopeSelected, selected, rows, true, ""},
		{"visible", ScopeVisible, empty, rows, true, ""},
		{"grouped inactive", ScopeGrouped, empty, rows, false, "No grouping is active"},
		{"grouped active", ScopeGrouped, grouped, rows, true, ""},
		{"unknown", Scope("everything"), empty, rows, false, "Unknown scope: everything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateScope(tt.scope, tt.state, tt.rows)
			assert.Equal(t, tt.valid, v.Valid)
			if !tt.valid {
				assert.Contains(t, v.Message, tt.message)
				assert.Error(t, v.Err(tt.scope))
			}
		})
	}
}

func TestScopeValidation_Err(t *testing.T) {
	t.Parallel()
	v := ValidateScope(ScopeSelected, NewTableState(10), cityRows())
	assert.ErrorIs(t, v.Err(ScopeSelected), ErrEmptyScope)

	v = ValidateScope(Scope("x"), NewTableState(10), cityRows())
	assert.ErrorIs(t, v.Err(Scope("x")), ErrUnknownScope)
}

func TestRowsByScope(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	state := NewTableState(2)
	state.SetFilter(Criteria{Field: "averagePricePerM2", Operator: OpGreaterThan, Value: 3000})
	state.Sorting = []SortSpec{{Field: "averagePricePerM2", Direction: SortAsc}}
	state.Selection = map[string]bool{"1": true, "2": false}
	state.Grouping = []string{"city"}

	assert.Len(t, RowsByScope(ScopeAll, state, rows), 3)
	assert.Equal(t, []string{"Brussels", "Leuven"}, cities(RowsByScope(ScopeFiltered, state, rows)))
	assert.Equal(t, []string{"Antwerp"}, cities(RowsByScope(ScopeSelected, state, rows)), "selection reads the full dataset")
	assert.Equal(t, []string{"Leuven", "Brussels"}, cities(RowsByScope(ScopeVisible, state, rows)))
	assert.Equal(t, cities(RowsByScope(ScopeFiltered, state, rows)), cities(RowsByScope(ScopeGrouped, state, rows)),
		"grouped resolves to the filtered rows")
	assert.Empty(t, RowsByScope(Scope("nope"), state, rows))
}

func TestClearFilters_FilteredEqualsAll(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	state := NewTableState(10)
	state.SetFilter(Criteria{Field: "city", Operator: OpEquals, Value: "Leuven"})
	require.Len(t, RowsByScope(ScopeFiltered, state, rows), 1)

	_, err := state.Apply(ClearFiltersOperation{}, rows, DefaultCatalog(), nil)
	require.NoError(t, err)
	assert.Equal(t, len(RowsByScope(ScopeAll, state, rows)), len(RowsByScope(ScopeFiltered, state, rows)))
}

func TestDescribeScope(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	state := NewTableState(10)

	m := DescribeScope(ScopeAll, state, rows)
	assert.Equal(t, "All 3 records", m.Description)
	assert.Equal(t, 3, m.Count)
	assert.False(t, m.HasFilters)

	assert.Equal(t, "All 3 records", DescribeScope(ScopeFiltered, state, rows).Description)

	state.SetFilter(Criteria{Field: "population", Operator: OpGreaterThan, Value: 200000})
	state.Selection = map[string]bool{"0": true}
	state.Sorting = []SortSpec{{Field: "city", Direction: SortAsc}}
	m = DescribeScope(ScopeFiltered, state, rows)
	assert.Equal(t, "2 filtered records", m.Description)
	assert.True(t, m.HasFilters)
	assert.True(t, m.HasSelection)
	assert.True(t, m.HasSorting)
	assert.False(t, m.HasGrouping)

	assert.Equal(t, "1 selected record", DescribeScope(ScopeSelected, state, rows).Description)

	state.Grouping = []string{"city"}
	assert.Equal(t, "2 records grouped by city", DescribeScope(ScopeGrouped, state, rows).Description)
}

func TestTableState_SortedRowsMultiKey(t *testing.T) {
	t.Parallel()
	rows := NewDataset([]map[string]any{
		{"a": "x", "b": 2.0},
		{"a": "y", "b": 1.0},
		{"a": "x", "b": 1.0},
		{"b": 0.0},
	}, nil).Rows()
	sorted := SortRows(rows, []SortSpec{{Field: "a", Direction: SortAsc}, {Field: "b", Direction: SortDesc}})
	var ids []string
	for _, r := range sorted {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"0", "2", "1", "3"}, ids, "missing cells sort last")
}

func TestPageRows(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	assert.Len(t, PageRows(rows, Pagination{PageIndex: 0, PageSize: 2}), 2)
	assert.Len(t, PageRows(rows, Pagination{PageIndex: 1, PageSize: 2}), 1)
	assert.Empty(t, PageRows(rows, Pagination{PageIndex: 5, PageSize: 2}))
	assert.Equal(t, 2, Pagination{PageSize: 2}.PageCount(3))
}

func TestTableState_CloneIsDeep(t *testing.T) {
	t.Parallel()
	s := NewTableState(10)
	s.Selection["0"] = true
	s.Expanded.Keys = map[string]bool{"city:Leuven": true}
	c := s.Clone()
	c.Selection["1"] = true
	c.Expanded.Keys["city:Antwerp"] = true
	assert.False(t, s.IsSelected("1"))
	assert.Len(t, s.Expanded.Keys, 1)
}
