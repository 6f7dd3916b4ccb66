package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyUtterance(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want VerbClass
	}{
		{"Show arrondissements above 10000 €/m²", VerbFilter},
		{"only keep apartments", VerbFilter},
		{"Hiding the small sections please", VerbFilter},
		{"removed rows with no sales", VerbFilter},
		{"Highlight the 5 most expensive sections", VerbSelection},
		{"select rows where population > 100000", VerbSelection},
		{"Which ones should I pick?", VerbSelection},
		{"mark Paris 7e", VerbSelection},
		{"what is the market average", VerbNone},
		{"average price per m2", VerbNone},
		{"highlight and then show only those", VerbSelection},
		{"", VerbNone},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyUtterance(tt.text))
		})
	}
}

func TestDisambiguate(t *testing.T) {
	t.Parallel()
	crit := Criteria{Field: "averagePricePerM2", Operator: OpGreaterThan, Value: 10000}
	filter := FilterOperation{Filters: []Criteria{crit}}
	where := SelectionOperation{Action: SelectWhere, Criteria: &crit}
	sort := SortOperation{Sorts: []SortSpec{{Field: "city", Direction: SortAsc}}}

	t.Run("filter under selection verb", func(t *testing.T) {
		out := Disambiguate(VerbSelection, []Operation{sort, filter})
		require.Len(t, out, 2)
		assert.Equal(t, sort, out[0])
		sel, ok := out[1].(SelectionOperation)
		require.True(t, ok)
		assert.Equal(t, SelectWhere, sel.Action)
		assert.Equal(t, crit, *sel.Criteria)
	})

	t.Run("selectWhere under filter verb", func(t *testing.T) {
		out := Disambiguate(VerbFilter, []Operation{where})
		require.Len(t, out, 1)
		assert.Equal(t, filter, out[0])
	})

	t.Run("matching verbs pass through", func(t *testing.T) {
		assert.Equal(t, []Operation{filter}, Disambiguate(VerbFilter, []Operation{filter}))
		assert.Equal(t, []Operation{where}, Disambiguate(VerbSelection, []Operation{where}))
		assert.Equal(t, []Operation{filter, where}, Disambiguate(VerbNone, []Operation{filter, where}))
	})

	t.Run("multi-criteria filter kept", func(t *testing.T) {
		multi := FilterOperation{Filters: []Criteria{crit, crit}}
		assert.Equal(t, []Operation{multi}, Disambiguate(VerbSelection, []Operation{multi}))
	})

	t.Run("other selection actions untouched", func(t *testing.T) {
		top := SelectionOperation{Action: SelectTop, Count: 3}
		assert.Equal(t, []Operation{top}, Disambiguate(VerbFilter, []Operation{top}))
	})
}
