package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCardinality(t *testing.T) {
	tests := []struct {
		name     string
		distinct int
		total    int
		want     Cardinality
	}{
		{"all unique", 1000, 1000, CardinalityUnique},
		{"near unique (95%)", 950, 1000, CardinalityNearUnique},
		{"near unique threshold (90%)", 900, 1000, CardinalityNearUnique},
		{"high cardinality (50%)", 500, 1000, CardinalityHigh},
		{"enum-like (20 distinct)", 20, 1000, CardinalityEnumLike},
		{"low cardinality (200 distinct)", 200, 1000, CardinalityLow},
		{"zero rows zero distinct", 0, 0, CardinalityEnumLike},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCardinality(tt.distinct, tt.total))
		})
	}
}

func TestCardinality_Groupable(t *testing.T) {
	assert.True(t, CardinalityEnumLike.Groupable())
	assert.True(t, CardinalityLow.Groupable())
	assert.False(t, CardinalityUnique.Groupable())
	assert.False(t, CardinalityHigh.Groupable())
}

func TestProfileFields(t *testing.T) {
	ds := NewDataset([]map[string]any{
		{"arrondissement": "75001", "averagePricePerM2": 12000.0, "note": nil},
		{"arrondissement": "75001", "averagePricePerM2": "10000"},
		{"arrondissement": "75002", "averagePricePerM2": 11000},
	}, DefaultCatalog())

	profiles := ProfileFields(ds, DefaultCatalog())
	byName := map[string]FieldProfile{}
	for _, p := range profiles {
		byName[p.Name] = p
	}

	arr := byName["arrondissement"]
	assert.Equal(t, FieldText, arr.Kind)
	assert.Equal(t, 2, arr.DistinctCount)
	assert.Equal(t, []string{"75001", "75002"}, arr.SampleValues)

	price := byName["averagePricePerM2"]
	assert.Equal(t, FieldNumeric, price.Kind)
	assert.Equal(t, CardinalityUnique, price.Cardinality)
	require.NotNil(t, price.Min)
	require.NotNil(t, price.Max)
	assert.InDelta(t, 10000, *price.Min, 1e-9)
	assert.InDelta(t, 12000, *price.Max, 1e-9)

	note := byName["note"]
	assert.Equal(t, FieldText, note.Kind, "columns outside the catalog are text")
	assert.Equal(t, 3, note.NullCount, "missing cells count as null")
}
