package tool

import (
	"fmt"
	"strings"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
)

func directionWord(d domain.SortDirection) string {
	if d == domain.SortDesc {
		return "descending"
	}
	return "ascending"
}

func describeSort(op domain.SortOperation) string {
	parts := make([]string, 0, len(op.Sorts))
	for _, s := range op.Sorts {
		parts = append(parts, fmt.Sprintf("%s (%s)", s.Field, directionWord(s.Direction)))
	}
	return "Sorting by " + strings.Join(parts, ", then ")
}

func describeCriteria(filters []domain.Criteria) string {
	parts := make([]string, 0, len(filters))
	for _, c := range filters {
		parts = append(parts, c.Describe())
	}
	return strings.Join(parts, " and ")
}

func describeSelection(op domain.SelectionOperation) string {
	switch op.Action {
	case domain.SelectAll:
		return "Selecting all rows"
	case domain.SelectNone:
		return "Clearing selection"
	case domain.SelectWhere:
		if op.Criteria == nil {
			return "Selecting rows"
		}
		return "Selecting rows where " + op.Criteria.Describe()
	case domain.SelectTop, domain.SelectBottom:
		end := "top"
		if op.Action == domain.SelectBottom {
			end = "bottom"
		}
		by := "the active sort"
		if op.Criteria != nil && op.Criteria.Field != "" {
			by = op.Criteria.Field
		}
		return fmt.Sprintf("Selecting %s %d rows by %s", end, op.EffectiveCount(), by)
	case domain.SelectRandom:
		return fmt.Sprintf("Selecting %d random rows", op.EffectiveCount())
	case domain.InvertSelection:
		return "Inverting selection"
	}
	return "Updating selection"
}

func describeGroup(op domain.GroupOperation) string {
	switch op.Action {
	case domain.GroupBy:
		if len(op.Aggregations) == 0 {
			return "Grouping by " + op.Field
		}
		labels := make([]string, 0, len(op.Aggregations))
		for _, a := range op.Aggregations {
			labels = append(labels, a.Label())
		}
		return fmt.Sprintf("Grouping by %s with %s", op.Field, strings.Join(labels, ", "))
	case domain.ClearGrouping:
		return "Clearing grouping"
	case domain.ExpandAll:
		return "Expanding all groups"
	case domain.CollapseAll:
		return "Collapsing all groups"
	}
	return "Updating grouping"
}

func describeAnalytics(op domain.AnalyticsOperation) string {
	return fmt.Sprintf("Calculating %s of %s over %s rows", op.Operation, op.Field, op.EffectiveScope())
}
