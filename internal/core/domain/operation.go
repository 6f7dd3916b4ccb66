package domain

// OperationKind tags the variants of the operation algebra.
type OperationKind string

const (
	KindSort           OperationKind = "sort"
	KindFilter         OperationKind = "filter"
	KindClearFilters   OperationKind = "clearFilters"
	KindSelection      OperationKind = "selection"
	KindClearSelection OperationKind = "clearSelection"
	KindGroup          OperationKind = "group"
	KindClearGrouping  OperationKind = "clearGrouping"
	KindAnalytics      OperationKind = "analytics"
)

// Operation is one parsed, typed instruction ready for execution. Batches
// are applied in order.
type Operation interface {
	Kind() OperationKind
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type SortSpec struct {
	Field     string        `json:"field" validate:"required"`
	Direction SortDirection `json:"direction" validate:"required,oneof=asc desc"`
}

type SortOperation struct {
	Sorts []SortSpec `json:"sorts" validate:"required,min=1,dive"`
}

func (SortOperation) Kind() OperationKind { return KindSort }

type FilterOperator string

const (
	OpEquals             FilterOperator = "equals"
	OpContains           FilterOperator = "contains"
	OpStartsWith         FilterOperator = "startsWith"
	OpEndsWith           FilterOperator = "endsWith"
	OpGreaterThan        FilterOperator = "greaterThan"
	OpLessThan           FilterOperator = "lessThan"
	OpGreaterThanOrEqual FilterOperator = "greaterThanOrEqual"
	OpLessThanOrEqual    FilterOperator = "lessThanOrEqual"
	OpBetween            FilterOperator = "between"
	OpIn                 FilterOperator = "in"
	OpNotIn              FilterOperator = "notIn"
)

// FilterOperators lists every operator in schema order.
var FilterOperators = []FilterOperator{
	OpEquals, OpContains, OpStartsWith, OpEndsWith,
	OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
	OpBetween, OpIn, OpNotIn,
}

// Criteria is a single field predicate, shared by filters and selectWhere.
// Between bounds are used as given and never reordered. Under selectTop
// and selectBottom only Field is read, as the ranking field.
type Criteria struct {
	Field       string         `json:"field" validate:"required"`
	Operator    FilterOperator `json:"operator" validate:"omitempty,oneof=equals contains startsWith endsWith greaterThan lessThan greaterThanOrEqual lessThanOrEqual between in notIn"`
	Value       any            `json:"value"`
	SecondValue any            `json:"secondValue,omitempty"`
}

type FilterOperation struct {
	Filters []Criteria `json:"filters" validate:"required,min=1,dive"`
}

func (FilterOperation) Kind() OperationKind { return KindFilter }

type ClearFiltersOperation struct{}

func (ClearFiltersOperation) Kind() OperationKind { return KindClearFilters }

type SelectionAction string

const (
	SelectAll       SelectionAction = "selectAll"
	SelectNone      SelectionAction = "selectNone"
	SelectWhere     SelectionAction = "selectWhere"
	SelectTop       SelectionAction = "selectTop"
	SelectBottom    SelectionAction = "selectBottom"
	SelectRandom    SelectionAction = "selectRandom"
	InvertSelection SelectionAction = "invertSelection"
)

var SelectionActions = []SelectionAction{
	SelectAll, SelectNone, SelectWhere, SelectTop, SelectBottom, SelectRandom, InvertSelection,
}

const (
	DefaultRankCount   = 10
	DefaultRandomCount = 5
)

type SelectionOperation struct {
	Action   SelectionAction `json:"action" validate:"required,oneof=selectAll selectNone selectWhere selectTop selectBottom selectRandom invertSelection"`
	Criteria *Criteria       `json:"criteria,omitempty"`
	Count    int             `json:"count,omitempty"`
}

func (SelectionOperation) Kind() OperationKind { return KindSelection }

// EffectiveCount substitutes the action default for a missing or
// non-positive count.
func (o SelectionOperation) EffectiveCount() int {
	if o.Count > 0 {
		return o.Count
	}
	if o.Action == SelectRandom {
		return DefaultRandomCount
	}
	return DefaultRankCount
}

type ClearSelectionOperation struct{}

func (ClearSelectionOperation) Kind() OperationKind { return KindClearSelection }

type GroupingAction string

const (
	GroupBy       GroupingAction = "groupBy"
	ClearGrouping GroupingAction = "clearGrouping"
	ExpandAll     GroupingAction = "expandAll"
	CollapseAll   GroupingAction = "collapseAll"
)

var GroupingActions = []GroupingAction{GroupBy, ClearGrouping, ExpandAll, CollapseAll}

type AggregationFunc string

const (
	AggCount AggregationFunc = "count"
	AggSum   AggregationFunc = "sum"
	AggAvg   AggregationFunc = "avg"
	AggMin   AggregationFunc = "min"
	AggMax   AggregationFunc = "max"
)

var AggregationFuncs = []AggregationFunc{AggCount, AggSum, AggAvg, AggMin, AggMax}

type Aggregation struct {
	Field    string          `json:"field" validate:"required"`
	Function AggregationFunc `json:"aggregation" validate:"required,oneof=count sum avg min max"`
}

type GroupOperation struct {
	Action       GroupingAction `json:"action" validate:"required,oneof=groupBy clearGrouping expandAll collapseAll"`
	Field        string         `json:"groupByField,omitempty"`
	Aggregations []Aggregation  `json:"aggregations,omitempty" validate:"omitempty,dive"`
}

func (GroupOperation) Kind() OperationKind { return KindGroup }

type ClearGroupingOperation struct{}

func (ClearGroupingOperation) Kind() OperationKind { return KindClearGrouping }

type AnalyticsOp string

const (
	AnalyticsSum          AnalyticsOp = "sum"
	AnalyticsAverage      AnalyticsOp = "average"
	AnalyticsCount        AnalyticsOp = "count"
	AnalyticsMin          AnalyticsOp = "min"
	AnalyticsMax          AnalyticsOp = "max"
	AnalyticsTopN         AnalyticsOp = "topN"
	AnalyticsBottomN      AnalyticsOp = "bottomN"
	AnalyticsPercentile   AnalyticsOp = "percentile"
	AnalyticsSumWhere     AnalyticsOp = "sumWhere"
	AnalyticsAverageWhere AnalyticsOp = "averageWhere"
	AnalyticsCompare      AnalyticsOp = "compare"

	AnalyticsTopPercentile    AnalyticsOp = "topPercentile"
	AnalyticsBottomPercentile AnalyticsOp = "bottomPercentile"
	AnalyticsRank             AnalyticsOp = "rank"
)

var AnalyticsOps = []AnalyticsOp{
	AnalyticsSum, AnalyticsAverage, AnalyticsCount, AnalyticsMin, AnalyticsMax,
	AnalyticsTopN, AnalyticsBottomN, AnalyticsPercentile,
	AnalyticsSumWhere, AnalyticsAverageWhere, AnalyticsCompare,
	AnalyticsTopPercentile, AnalyticsBottomPercentile, AnalyticsRank,
}

// Comparator is the condition operator of sumWhere and averageWhere.
type Comparator string

const (
	CmpGT  Comparator = "gt"
	CmpLT  Comparator = "lt"
	CmpEQ  Comparator = "eq"
	CmpGTE Comparator = "gte"
	CmpLTE Comparator = "lte"
)

var Comparators = []Comparator{CmpGT, CmpLT, CmpEQ, CmpGTE, CmpLTE}

// AnalyticsOperation is the analytics request. Aggregation picks the
// function compare applies to each group (default average). Ascending
// orders rank lookups; the default ranks the highest value first.
type AnalyticsOperation struct {
	Operation      AnalyticsOp `json:"operation" validate:"required,oneof=sum average count min max topN bottomN percentile sumWhere averageWhere compare topPercentile bottomPercentile rank"`
	Field          string      `json:"field" validate:"required"`
	SecondaryField string      `json:"secondaryField,omitempty"`
	Value          any         `json:"value,omitempty"`
	Count          int         `json:"count,omitempty" validate:"gte=0"`
	Operator       Comparator  `json:"operator,omitempty" validate:"omitempty,oneof=gt lt eq gte lte"`
	Aggregation    AnalyticsOp `json:"aggregation,omitempty" validate:"omitempty,oneof=sum average count min max"`
	Ascending      bool        `json:"ascending,omitempty"`
	Scope          Scope       `json:"scope,omitempty" validate:"omitempty,oneof=all filtered selected visible grouped"`
}

func (AnalyticsOperation) Kind() OperationKind { return KindAnalytics }

// EffectiveScope returns the requested scope or the filtered default.
func (o AnalyticsOperation) EffectiveScope() Scope {
	if o.Scope == "" {
		return DefaultScope
	}
	return o.Scope
}

// EffectiveCount substitutes DefaultRankCount for a non-positive count.
func (o AnalyticsOperation) EffectiveCount() int {
	if o.Count > 0 {
		return o.Count
	}
	return DefaultRankCount
}

// Envelope tags an operation with its kind for serialization.
type Envelope struct {
	Kind      OperationKind `json:"kind"`
	Operation Operation     `json:"operation"`
}

// Envelopes wraps a batch for logging and audit.
func Envelopes(ops []Operation) []Envelope {
	out := make([]Envelope, 0, len(ops))
	for _, op := range ops {
		out = append(out, Envelope{Kind: op.Kind(), Operation: op})
	}
	return out
}
