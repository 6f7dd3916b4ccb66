package domain

import (
	"cmp"
	"math"
	"slices"
)

// sortedByField returns a stably sorted copy; ties keep input order.
func sortedByField(rows []Row, field string, ascending bool) []Row {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b Row) int {
		c := cmp.Compare(numberOrZero(a, field), numberOrZero(b, field))
		if ascending {
			return c
		}
		return -c
	})
	return out
}

// TopN returns the n rows with the highest field values.
func TopN(rows []Row, field string, n int) []Row {
	return firstN(sortedByField(rows, field, false), n)
}

// BottomN returns the n rows with the lowest field values.
func BottomN(rows []Row, field string, n int) []Row {
	return firstN(sortedByField(rows, field, true), n)
}

func firstN(rows []Row, n int) []Row {
	if n < 0 {
		n = 0
	}
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n:n]
}

// Percentile returns the linearly interpolated p-th percentile of field.
// It is 0 for no rows and rejects p outside [0, 100].
func Percentile(rows []Row, field string, p float64) (float64, error) {
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, ErrPercentileRange
	}
	if len(rows) == 0 {
		return 0, nil
	}
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		values = append(values, numberOrZero(r, field))
	}
	slices.Sort(values)

	idx := p / 100 * float64(len(values)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	if lo == hi {
		return values[lo], nil
	}
	return values[lo] + (values[hi]-values[lo])*(idx-float64(lo)), nil
}

// TopPercentile returns the rows at or above the (100-p)-th percentile.
func TopPercentile(rows []Row, field string, p float64) ([]Row, error) {
	if p < 0 || p > 100 {
		return nil, ErrPercentileRange
	}
	threshold, err := Percentile(rows, field, 100-p)
	if err != nil {
		return nil, err
	}
	return keep(rows, func(r Row) bool { return numberOrZero(r, field) >= threshold }), nil
}

// BottomPercentile returns the rows at or below the p-th percentile.
func BottomPercentile(rows []Row, field string, p float64) ([]Row, error) {
	threshold, err := Percentile(rows, field, p)
	if err != nil {
		return nil, err
	}
	return keep(rows, func(r Row) bool { return numberOrZero(r, field) <= threshold }), nil
}

func keep(rows []Row, pred func(Row) bool) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// RankedRow is a row with its 1-based position.
type RankedRow struct {
	Row
	Rank int `json:"rank"`
}

// AddRankings sorts rows by field and numbers them 1..n. Ties receive
// distinct sequential ranks.
func AddRankings(rows []Row, field string, ascending bool) []RankedRow {
	sorted := sortedByField(rows, field, ascending)
	out := make([]RankedRow, len(sorted))
	for i, r := range sorted {
		out[i] = RankedRow{Row: r, Rank: i + 1}
	}
	return out
}

// RankOfValue returns the 1-based rank of the first row whose field equals
// value, or 0 when no row does.
func RankOfValue(rows []Row, field string, value float64, ascending bool) int {
	for i, r := range sortedByField(rows, field, ascending) {
		if v, ok := r.Number(field); ok && v == value {
			return i + 1
		}
	}
	return 0
}

// Comparison is the result of comparing one aggregate across two groups.
type Comparison struct {
	Group1     float64 `json:"group1"`
	Group2     float64 `json:"group2"`
	Difference float64 `json:"difference"`
	Ratio      float64 `json:"ratio"`
}

// CompareGroups aggregates field over both groups. Ratio is 0 when the
// second group aggregates to 0.
func CompareGroups(group1, group2 []Row, field string, op AnalyticsOp) (Comparison, error) {
	v1, err := Aggregate(group1, field, op)
	if err != nil {
		return Comparison{}, err
	}
	v2, err := Aggregate(group2, field, op)
	if err != nil {
		return Comparison{}, err
	}
	c := Comparison{Group1: v1, Group2: v2, Difference: v1 - v2}
	if v2 != 0 {
		c.Ratio = v1 / v2
	}
	return c, nil
}
