package domain

import "fmt"

// Sum adds field across rows. Missing and non-numeric cells count as 0.
func Sum(rows []Row, field string) float64 {
	var total float64
	for _, r := range rows {
		total += numberOrZero(r, field)
	}
	return total
}

// Average returns the mean of field, or 0 for no rows.
func Average(rows []Row, field string) float64 {
	if len(rows) == 0 {
		return 0
	}
	return Sum(rows, field) / float64(len(rows))
}

func Count(rows []Row) int {
	return len(rows)
}

// Min returns the smallest value of field. An empty input yields 0, which
// cannot be told apart from a genuine zero minimum without the row count.
func Min(rows []Row, field string) float64 {
	if len(rows) == 0 {
		return 0
	}
	m := numberOrZero(rows[0], field)
	for _, r := range rows[1:] {
		if v := numberOrZero(r, field); v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value of field, or 0 for no rows.
func Max(rows []Row, field string) float64 {
	if len(rows) == 0 {
		return 0
	}
	m := numberOrZero(rows[0], field)
	for _, r := range rows[1:] {
		if v := numberOrZero(r, field); v > m {
			m = v
		}
	}
	return m
}

// Where returns the rows whose conditionField satisfies op against value.
func Where(rows []Row, conditionField string, op Comparator, value any) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if op.Compare(r.Get(conditionField), value) {
			out = append(out, r)
		}
	}
	return out
}

func SumWhere(rows []Row, field, conditionField string, op Comparator, value any) float64 {
	return Sum(Where(rows, conditionField, op, value), field)
}

func AverageWhere(rows []Row, field, conditionField string, op Comparator, value any) float64 {
	return Average(Where(rows, conditionField, op, value), field)
}

// Aggregate applies one of sum, average, count, min or max.
func Aggregate(rows []Row, field string, op AnalyticsOp) (float64, error) {
	switch op {
	case AnalyticsSum:
		return Sum(rows, field), nil
	case AnalyticsAverage:
		return Average(rows, field), nil
	case AnalyticsCount:
		return float64(Count(rows)), nil
	case AnalyticsMin:
		return Min(rows, field), nil
	case AnalyticsMax:
		return Max(rows, field), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
}

// AggregateFunc maps a grouping aggregation to its analytics operation.
func AggregateFunc(fn AggregationFunc) AnalyticsOp {
	if fn == AggAvg {
		return AnalyticsAverage
	}
	return AnalyticsOp(fn)
}
