package domain

import (
	"fmt"
	"strings"
)

// Analyze runs one analytics request against the live state. The scope is
// resolved and checked first, then field eligibility, then the matching
// engine function. It always returns a result.
func Analyze(req AnalyticsOperation, state TableState, original []Row, catalog *Catalog) *AnalyticsResult {
	scope := req.EffectiveScope()
	if v := ValidateScope(scope, state, original); !v.Valid {
		return ErrorResult(req, DescribeScope(scope, state, original).Description, v.Err(scope), v.Message)
	}
	a := analysis{
		req:     req,
		rows:    RowsByScope(scope, state, original),
		meta:    DescribeScope(scope, state, original),
		catalog: catalog,
	}
	return a.run()
}

type analysis struct {
	req     AnalyticsOperation
	rows    []Row
	meta    ScopeMetadata
	catalog *Catalog
}

func (a analysis) run() *AnalyticsResult {
	req := a.req
	switch req.Operation {
	case AnalyticsCount:
		n := float64(Count(a.rows))
		return a.value(n, fmt.Sprintf("Count (%s): %s", a.meta.Description, FormatNumber(n)))

	case AnalyticsSum, AnalyticsAverage, AnalyticsMin, AnalyticsMax:
		if err := a.catalog.ValidateNumericOperation(req.Field); err != nil {
			return a.fail(err, "")
		}
		v, _ := Aggregate(a.rows, req.Field, req.Operation)
		return a.value(v, fmt.Sprintf("%s of %s (%s): %s", title(req.Operation), req.Field, a.meta.Description, FormatNumber(v)))

	case AnalyticsSumWhere, AnalyticsAverageWhere:
		return a.conditional()

	case AnalyticsTopN, AnalyticsBottomN:
		if err := a.catalog.ValidateRankingOperation(req.Field); err != nil {
			return a.fail(err, "")
		}
		n := req.EffectiveCount()
		ascending := req.Operation == AnalyticsBottomN
		var data []Row
		word := "Top"
		if ascending {
			data, word = BottomN(a.rows, req.Field, n), "Bottom"
		} else {
			data = TopN(a.rows, req.Field, n)
		}
		msg := fmt.Sprintf("%s %d by %s (%s): %s", word, len(data), req.Field, a.meta.Description,
			a.rankingList(data, req.Field, ascending))
		return a.data(data, msg)

	case AnalyticsPercentile:
		if err := a.catalog.ValidateRankingOperation(req.Field); err != nil {
			return a.fail(err, "")
		}
		p, res := a.percentileParam()
		if res != nil {
			return res
		}
		v, err := Percentile(a.rows, req.Field, p)
		if err != nil {
			return a.fail(err, fmt.Sprintf("Percentile must be between 0 and 100, got %s", FormatNumber(p)))
		}
		return a.value(v, fmt.Sprintf("%s percentile of %s (%s): %s", Ordinal(p), req.Field, a.meta.Description, FormatNumber(v)))

	case AnalyticsTopPercentile, AnalyticsBottomPercentile:
		if err := a.catalog.ValidateRankingOperation(req.Field); err != nil {
			return a.fail(err, "")
		}
		p, res := a.percentileParam()
		if res != nil {
			return res
		}
		fn, word := TopPercentile, "Top"
		if req.Operation == AnalyticsBottomPercentile {
			fn, word = BottomPercentile, "Bottom"
		}
		data, err := fn(a.rows, req.Field, p)
		if err != nil {
			return a.fail(err, fmt.Sprintf("Percentile must be between 0 and 100, got %s", FormatNumber(p)))
		}
		return a.data(data, fmt.Sprintf("%s %s%% by %s (%s): %d rows", word, FormatNumber(p), req.Field, a.meta.Description, len(data)))

	case AnalyticsRank:
		if err := a.catalog.ValidateRankingOperation(req.Field); err != nil {
			return a.fail(err, "")
		}
		v, ok := toFloat(req.Value)
		if !ok {
			return a.fail(fmt.Errorf("%w: rank requires a numeric value", ErrMissingParameter), "rank requires a numeric value")
		}
		rank := RankOfValue(a.rows, req.Field, v, req.Ascending)
		if rank == 0 {
			return a.value(0, fmt.Sprintf("%s not found in %s (%s)", FormatNumber(v), req.Field, a.meta.Description))
		}
		order := "highest first"
		if req.Ascending {
			order = "lowest first"
		}
		return a.value(float64(rank), fmt.Sprintf("Rank of %s by %s (%s, %s): %d of %d",
			FormatNumber(v), req.Field, order, a.meta.Description, rank, len(a.rows)))

	case AnalyticsCompare:
		return a.compare()
	}
	return a.fail(fmt.Errorf("%w: %s", ErrUnknownOperation, req.Operation), fmt.Sprintf("Unknown operation: %s", req.Operation))
}

func (a analysis) conditional() *AnalyticsResult {
	req := a.req
	if req.SecondaryField == "" || req.Operator == "" || req.Value == nil {
		detail := fmt.Sprintf("%s requires secondaryField, operator, and value", req.Operation)
		return a.fail(fmt.Errorf("%w: %s", ErrMissingParameter, detail), detail)
	}
	if !req.Operator.Valid() {
		detail := fmt.Sprintf("Unknown operator: %s", req.Operator)
		return a.fail(fmt.Errorf("%w: operator %s", ErrInvalidOperation, req.Operator), detail)
	}
	if err := a.catalog.ValidateNumericOperation(req.Field); err != nil {
		return a.fail(err, "")
	}
	matched := Where(a.rows, req.SecondaryField, req.Operator, req.Value)
	op := AnalyticsSum
	if req.Operation == AnalyticsAverageWhere {
		op = AnalyticsAverage
	}
	v, _ := Aggregate(matched, req.Field, op)
	res := a.value(v, fmt.Sprintf("%s of %s where %s %s %s (%s): %s",
		title(op), req.Field, req.SecondaryField, req.Operator.Symbol(), displayValue(req.Value),
		a.meta.Description, FormatNumber(v)))
	res.Metadata.Count = len(matched)
	return res
}

func (a analysis) compare() *AnalyticsResult {
	req := a.req
	if req.SecondaryField == "" || req.Value == nil {
		detail := "compare requires secondaryField and value"
		return a.fail(fmt.Errorf("%w: %s", ErrMissingParameter, detail), detail)
	}
	if err := a.catalog.ValidateNumericOperation(req.Field); err != nil {
		return a.fail(err, "")
	}
	op := req.Aggregation
	if op == "" {
		op = AnalyticsAverage
	}
	var group1, group2 []Row
	for _, r := range a.rows {
		if looseEqual(r.Get(req.SecondaryField), req.Value) {
			group1 = append(group1, r)
		} else {
			group2 = append(group2, r)
		}
	}
	c, err := CompareGroups(group1, group2, req.Field, op)
	if err != nil {
		return a.fail(err, fmt.Sprintf("Unknown aggregation: %s", op))
	}
	msg := fmt.Sprintf("%s of %s (%s): %s = %s: %s vs others: %s (difference %s, ratio %s)",
		title(op), req.Field, a.meta.Description,
		req.SecondaryField, displayValue(req.Value),
		FormatNumber(c.Group1), FormatNumber(c.Group2), FormatNumber(c.Difference), FormatNumber(c.Ratio))
	return &AnalyticsResult{
		Type:       ResultComparison,
		Comparison: &c,
		Message:    msg,
		Metadata:   a.metadata(len(group1) + len(group2)),
	}
}

func (a analysis) percentileParam() (float64, *AnalyticsResult) {
	p, ok := toFloat(a.req.Value)
	if !ok {
		detail := fmt.Sprintf("%s requires value (0-100)", a.req.Operation)
		return 0, a.fail(fmt.Errorf("%w: %s", ErrMissingParameter, detail), detail)
	}
	return p, nil
}

func (a analysis) rankingList(rows []Row, field string, ascending bool) string {
	ranked := AddRankings(rows, field, ascending)
	parts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		parts = append(parts, fmt.Sprintf("%d. %s (%s)", r.Rank, RowLabel(r.Row, a.catalog), FormatNumber(numberOrZero(r.Row, field))))
	}
	return strings.Join(parts, ", ")
}

func (a analysis) value(v float64, msg string) *AnalyticsResult {
	return &AnalyticsResult{
		Type:     ResultValue,
		Value:    v,
		Message:  msg,
		Metadata: a.metadata(len(a.rows)),
	}
}

func (a analysis) data(rows []Row, msg string) *AnalyticsResult {
	return &AnalyticsResult{
		Type:     ResultData,
		Data:     rows,
		Message:  msg,
		Metadata: a.metadata(len(rows)),
	}
}

func (a analysis) fail(err error, detail string) *AnalyticsResult {
	return ErrorResult(a.req, a.meta.Description, err, detail)
}

func (a analysis) metadata(count int) ResultMetadata {
	return ResultMetadata{
		Operation: a.req.Operation,
		Field:     a.req.Field,
		Scope:     a.meta.Description,
		Count:     count,
	}
}

func title(op AnalyticsOp) string {
	s := string(op)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// RowLabel names a row for messages: its first populated text field, then
// identifier field, falling back to "#<id>".
func RowLabel(r Row, catalog *Catalog) string {
	if catalog != nil {
		for _, kind := range []FieldKind{FieldText, FieldIdentifier} {
			for _, f := range catalog.fields {
				if f.Kind != kind {
					continue
				}
				if v := r.Get(f.Name); v != nil && displayValue(v) != "" {
					return displayValue(v)
				}
			}
		}
	}
	return "#" + r.ID
}
