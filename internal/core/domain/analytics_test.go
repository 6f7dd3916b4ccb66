package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func cityRows() []Row {
	return NewDataset([]map[string]any{
		{"city": "Brussels", "postalCode": 1000, "averagePricePerM2": 3500, "population": 1200000},
		{"city": "Antwerp", "postalCode": 2000, "averagePricePerM2": 2800, "population": 500000},
		{"city": "Leuven", "postalCode": 3000, "averagePricePerM2": 3200, "population": 100000},
	}, DefaultCatalog()).Rows()
}

func cities(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Get("city").(string))
	}
	return out
}

func TestAnalytics_Scenario(t *testing.T) {
	t.Parallel()
	rows := cityRows()

	assert.InDelta(t, 9500, Sum(rows, "averagePricePerM2"), 1e-9)
	assert.InDelta(t, 3166.67, Average(rows, "averagePricePerM2"), 0.01)
	assert.InDelta(t, 6300, SumWhere(rows, "averagePricePerM2", "population", CmpGT, 200000), 1e-9)
	assert.Equal(t, 3, Count(rows))
	assert.InDelta(t, 2800, Min(rows, "averagePricePerM2"), 1e-9)
	assert.InDelta(t, 3500, Max(rows, "averagePricePerM2"), 1e-9)
}

func TestAnalytics_SumEqualsAverageTimesCount(t *testing.T) {
	t.Parallel()
	sets := [][]map[string]any{
		{{"v": 1.5}, {"v": 2.25}, {"v": -7.0}},
		{{"v": 1e9}, {"v": 3.0}},
		{{"v": 0.1}, {"v": 0.2}, {"v": 0.3}, {"v": "x"}},
		{{"v": 42}},
	}
	for _, recs := range sets {
		rows := NewDataset(recs, nil).Rows()
		assert.InDelta(t, Sum(rows, "v"), Average(rows, "v")*float64(Count(rows)), 1e-6)
	}
}

func TestAnalytics_EmptyInputIsZero(t *testing.T) {
	t.Parallel()
	var rows []Row
	assert.Zero(t, Sum(rows, "averagePricePerM2"))
	assert.Zero(t, Average(rows, "averagePricePerM2"))
	assert.Zero(t, Min(rows, "averagePricePerM2"))
	assert.Zero(t, Max(rows, "averagePricePerM2"))
	assert.Zero(t, Count(rows))
}

func TestAnalytics_NonNumericCountsAsZero(t *testing.T) {
	t.Parallel()
	rows := NewDataset([]map[string]any{
		{"v": 10.0}, {"v": "n/a"}, {}, {"v": nil},
	}, nil).Rows()
	assert.InDelta(t, 10, Sum(rows, "v"), 1e-9)
	assert.InDelta(t, 2.5, Average(rows, "v"), 1e-9)
	assert.Zero(t, Min(rows, "v"))
}

func TestComparator_Compare(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		op    Comparator
		cell  any
		value any
		want  bool
	}{
		{"gt numeric", CmpGT, 5.0, 3, true},
		{"gt numeric string value", CmpGT, 5.0, "3", true},
		{"gt on text", CmpGT, "Paris", 3, false},
		{"lt", CmpLT, 2.0, 3.0, true},
		{"gte equal", CmpGTE, 3.0, 3, true},
		{"lte equal", CmpLTE, 3.0, 3, true},
		{"eq same number different int types", CmpEQ, 3.0, 3, true},
		{"eq is strict on strings", CmpEQ, "Paris", "paris", false},
		{"eq does not coerce", CmpEQ, "3", 3.0, false},
		{"eq nil", CmpEQ, nil, nil, true},
		{"unknown", Comparator("ne"), 1.0, 2.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.Compare(tt.cell, tt.value))
		})
	}
}

func TestAverageWhere(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	assert.InDelta(t, 3150, AverageWhere(rows, "averagePricePerM2", "population", CmpGTE, 500000), 1e-9)
	assert.Zero(t, AverageWhere(rows, "averagePricePerM2", "population", CmpGT, 1e9))
	assert.InDelta(t, 2800, SumWhere(rows, "averagePricePerM2", "city", CmpEQ, "Antwerp"), 1e-9)
}

func TestAggregate_Unknown(t *testing.T) {
	t.Parallel()
	_, err := Aggregate(cityRows(), "averagePricePerM2", AnalyticsTopN)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "9,500", FormatNumber(9500))
	assert.Equal(t, "3,166.67", FormatNumber(9500.0/3))
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "75th", Ordinal(75))
	assert.Equal(t, "1st", Ordinal(1))
	assert.Equal(t, "12th", Ordinal(12))
	assert.Equal(t, "23rd", Ordinal(23))
}
