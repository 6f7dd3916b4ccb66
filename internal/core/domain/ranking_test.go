package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopN_Scenario(t *testing.T) {
	t.Parallel()
	rows := cityRows()

	assert.Equal(t, []string{"Brussels", "Leuven"}, cities(TopN(rows, "averagePricePerM2", 2)))
	assert.Equal(t, []string{"Antwerp", "Leuven"}, cities(BottomN(rows, "averagePricePerM2", 2)))

	p, err := Percentile(rows, "averagePricePerM2", 75)
	require.NoError(t, err)
	assert.InDelta(t, 3350, p, 1e-9)
}

func TestTopN_FullLengthIsDescendingPermutation(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	top := TopN(rows, "averagePricePerM2", len(rows))
	require.Len(t, top, len(rows))
	assert.ElementsMatch(t, rows, top)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, numberOrZero(top[i-1], "averagePricePerM2"), numberOrZero(top[i], "averagePricePerM2"))
	}
}

func TestTopN_CoversExtremes(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	top := TopN(rows, "averagePricePerM2", 1)
	bottom := BottomN(rows, "averagePricePerM2", 1)
	assert.InDelta(t, Max(rows, "averagePricePerM2"), numberOrZero(top[0], "averagePricePerM2"), 1e-9)
	assert.InDelta(t, Min(rows, "averagePricePerM2"), numberOrZero(bottom[0], "averagePricePerM2"), 1e-9)
}

func TestTopN_StableOnTies(t *testing.T) {
	t.Parallel()
	rows := NewDataset([]map[string]any{
		{"name": "a", "v": 1.0},
		{"name": "b", "v": 2.0},
		{"name": "c", "v": 2.0},
		{"name": "d", "v": 1.0},
	}, nil).Rows()

	ids := func(rs []Row) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"1", "2", "0", "3"}, ids(TopN(rows, "v", 4)))
	assert.Equal(t, []string{"0", "3", "1", "2"}, ids(BottomN(rows, "v", 4)))
}

func TestTopN_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	before := cities(rows)
	_ = TopN(rows, "averagePricePerM2", 3)
	_ = AddRankings(rows, "averagePricePerM2", true)
	assert.Equal(t, before, cities(rows))
}

func TestTopN_CountBounds(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	assert.Empty(t, TopN(rows, "averagePricePerM2", 0))
	assert.Len(t, TopN(rows, "averagePricePerM2", 50), 3)
}

func TestPercentile_Bounds(t *testing.T) {
	t.Parallel()
	rows := cityRows()

	p0, err := Percentile(rows, "averagePricePerM2", 0)
	require.NoError(t, err)
	p100, err := Percentile(rows, "averagePricePerM2", 100)
	require.NoError(t, err)
	assert.InDelta(t, Min(rows, "averagePricePerM2"), p0, 1e-9)
	assert.InDelta(t, Max(rows, "averagePricePerM2"), p100, 1e-9)

	empty, err := Percentile(nil, "averagePricePerM2", 50)
	require.NoError(t, err)
	assert.Zero(t, empty)

	for _, p := range []float64{-1, 100.5, 150} {
		_, err := Percentile(rows, "averagePricePerM2", p)
		assert.ErrorIs(t, err, ErrPercentileRange, "p=%v", p)
	}
}

func TestTopAndBottomPercentile(t *testing.T) {
	t.Parallel()
	rows := cityRows()

	top, err := TopPercentile(rows, "averagePricePerM2", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"Brussels", "Leuven"}, cities(top), "threshold is inclusive")

	bottom, err := BottomPercentile(rows, "averagePricePerM2", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"Antwerp", "Leuven"}, cities(bottom))

	_, err = TopPercentile(rows, "averagePricePerM2", 120)
	assert.ErrorIs(t, err, ErrPercentileRange)
}

func TestAddRankings(t *testing.T) {
	t.Parallel()
	rows := NewDataset([]map[string]any{
		{"v": 5.0}, {"v": 7.0}, {"v": 5.0},
	}, nil).Rows()

	ranked := AddRankings(rows, "v", false)
	require.Len(t, ranked, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
	assert.Equal(t, "1", ranked[0].ID)
	assert.Equal(t, "0", ranked[1].ID, "ties keep input order with distinct ranks")
	assert.Equal(t, "2", ranked[2].ID)
}

func TestRankOfValue(t *testing.T) {
	t.Parallel()
	rows := cityRows()
	assert.Equal(t, 1, RankOfValue(rows, "averagePricePerM2", 3500, false))
	assert.Equal(t, 3, RankOfValue(rows, "averagePricePerM2", 3500, true))
	assert.Equal(t, 2, RankOfValue(rows, "averagePricePerM2", 3200, false))
	assert.Equal(t, 0, RankOfValue(rows, "averagePricePerM2", 9999, false), "absent value is 0, not 1")
}

func TestCompareGroups(t *testing.T) {
	t.Parallel()
	rows := cityRows()

	c, err := CompareGroups(rows[:1], rows[1:], "averagePricePerM2", AnalyticsAverage)
	require.NoError(t, err)
	assert.InDelta(t, 3500, c.Group1, 1e-9)
	assert.InDelta(t, 3000, c.Group2, 1e-9)
	assert.InDelta(t, 500, c.Difference, 1e-9)
	assert.InDelta(t, 3500.0/3000.0, c.Ratio, 1e-9)

	zero, err := CompareGroups(rows, nil, "averagePricePerM2", AnalyticsSum)
	require.NoError(t, err)
	assert.Zero(t, zero.Ratio, "ratio is 0 when the second group is 0")

	_, err = CompareGroups(rows, rows, "averagePricePerM2", AnalyticsPercentile)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}
