package domain

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Apply mutates the state for one non-analytics operation and returns the
// message describing its effect. Selections and grouping work over the full
// original dataset. rnd drives selectRandom; nil uses the global source.
func (s *TableState) Apply(op Operation, original []Row, catalog *Catalog, rnd *rand.Rand) (string, error) {
	switch o := op.(type) {
	case SortOperation:
		return s.applySort(o, original)
	case FilterOperation:
		return s.applyFilter(o, original)
	case ClearFiltersOperation:
		s.Filters = nil
		s.Pagination.PageIndex = 0
		return fmt.Sprintf("Cleared filters (%s shown)", records(len(original))), nil
	case SelectionOperation:
		return s.applySelection(o, original, catalog, rnd)
	case ClearSelectionOperation:
		s.Selection = map[string]bool{}
		return "Cleared selection", nil
	case GroupOperation:
		return s.applyGroup(o, original, catalog)
	case ClearGroupingOperation:
		s.clearGrouping()
		return "Cleared grouping", nil
	case nil:
		return "", fmt.Errorf("%w: nil operation", ErrInvalidOperation)
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownOperation, op.Kind())
}

// Reset clears every piece of state except the page size.
func (s *TableState) Reset() {
	*s = NewTableState(s.Pagination.PageSize)
}

func (s *TableState) applySort(op SortOperation, original []Row) (string, error) {
	for _, spec := range op.Sorts {
		if err := requireColumn(original, spec.Field); err != nil {
			return "", err
		}
	}
	s.Sorting = append([]SortSpec(nil), op.Sorts...)
	parts := make([]string, 0, len(op.Sorts))
	for _, spec := range op.Sorts {
		dir := "ascending"
		if spec.Direction == SortDesc {
			dir = "descending"
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", spec.Field, dir))
	}
	return "Sorted by " + strings.Join(parts, ", then "), nil
}

func (s *TableState) applyFilter(op FilterOperation, original []Row) (string, error) {
	for _, c := range op.Filters {
		if err := requireColumn(original, c.Field); err != nil {
			return "", err
		}
	}
	descs := make([]string, 0, len(op.Filters))
	for _, c := range op.Filters {
		s.SetFilter(c)
		descs = append(descs, c.Describe())
	}
	n := len(s.FilteredRows(original))
	return fmt.Sprintf("Filtered to %d of %s (%s)", n, records(len(original)), strings.Join(descs, " and ")), nil
}

func (s *TableState) applySelection(op SelectionOperation, original []Row, catalog *Catalog, rnd *rand.Rand) (string, error) {
	switch op.Action {
	case SelectAll:
		s.Selection = SelectionFromRows(original)
		return fmt.Sprintf("Selected all %s", records(len(original))), nil

	case SelectNone:
		s.Selection = map[string]bool{}
		return "Cleared selection", nil

	case SelectWhere:
		if op.Criteria == nil {
			return "", fmt.Errorf("%w: selectWhere requires criteria", ErrMissingParameter)
		}
		if err := requireColumn(original, op.Criteria.Field); err != nil {
			return "", err
		}
		matched := FilterRows(original, []Criteria{*op.Criteria})
		s.Selection = SelectionFromRows(matched)
		return fmt.Sprintf("Selected %s where %s", records(len(matched)), op.Criteria.Describe()), nil

	case SelectTop, SelectBottom:
		field := s.rankField(op)
		if field == "" {
			return "", fmt.Errorf("%w: %s requires criteria.field or an active sort", ErrMissingParameter, op.Action)
		}
		if err := catalog.ValidateRankingOperation(field); err != nil {
			return "", err
		}
		n := op.EffectiveCount()
		rows, word := TopN(original, field, n), "top"
		if op.Action == SelectBottom {
			rows, word = BottomN(original, field, n), "bottom"
		}
		s.Selection = SelectionFromRows(rows)
		return fmt.Sprintf("Selected %s %s by %s", word, records(len(rows)), field), nil

	case SelectRandom:
		n := min(op.EffectiveCount(), len(original))
		var perm []int
		if rnd != nil {
			perm = rnd.Perm(len(original))
		} else {
			perm = rand.Perm(len(original))
		}
		sel := make(map[string]bool, n)
		for _, i := range perm[:n] {
			sel[original[i].ID] = true
		}
		s.Selection = sel
		return fmt.Sprintf("Selected %d random %s", n, plural(n)), nil

	case InvertSelection:
		sel := make(map[string]bool, len(original))
		for _, r := range original {
			if !s.IsSelected(r.ID) {
				sel[r.ID] = true
			}
		}
		s.Selection = sel
		return fmt.Sprintf("Inverted selection (%s selected)", records(len(sel))), nil
	}
	return "", fmt.Errorf("%w: selection action %s", ErrUnknownOperation, op.Action)
}

// rankField picks the ranking field of selectTop/selectBottom: the criteria
// field, else the primary sort field.
func (s *TableState) rankField(op SelectionOperation) string {
	if op.Criteria != nil && op.Criteria.Field != "" {
		return op.Criteria.Field
	}
	if len(s.Sorting) > 0 {
		return s.Sorting[0].Field
	}
	return ""
}

func (s *TableState) applyGroup(op GroupOperation, original []Row, catalog *Catalog) (string, error) {
	switch op.Action {
	case GroupBy:
		if op.Field == "" {
			return "", fmt.Errorf("%w: groupBy requires groupByField", ErrMissingParameter)
		}
		if err := requireColumn(original, op.Field); err != nil {
			return "", err
		}
		for _, agg := range op.Aggregations {
			if agg.Function == AggCount {
				continue
			}
			if err := catalog.ValidateNumericOperation(agg.Field); err != nil {
				return "", err
			}
		}
		s.Grouping = []string{op.Field}
		s.Aggregations = append([]Aggregation(nil), op.Aggregations...)
		keys := make(map[string]bool)
		for _, v := range DistinctValues(original, op.Field) {
			keys[ExpandedKey(op.Field, v)] = true
		}
		s.Expanded = Expanded{Keys: keys}
		groups := SummarizeGroups(s.FilteredRows(original), op.Field, s.Aggregations)
		msg := fmt.Sprintf("Grouped by %s (%d groups)", op.Field, len(groups))
		if len(s.Aggregations) > 0 {
			msg += ": " + describeGroups(groups, maxDescribedGroups)
		}
		return msg, nil

	case ClearGrouping:
		s.clearGrouping()
		return "Cleared grouping", nil

	case ExpandAll:
		s.Expanded = Expanded{All: true}
		return "Expanded all groups", nil

	case CollapseAll:
		s.Expanded = Expanded{}
		return "Collapsed all groups", nil
	}
	return "", fmt.Errorf("%w: grouping action %s", ErrUnknownOperation, op.Action)
}

func (s *TableState) clearGrouping() {
	s.Grouping = nil
	s.Aggregations = nil
	s.Expanded = Expanded{}
}

func requireColumn(original []Row, field string) error {
	if len(original) == 0 {
		return nil
	}
	for _, r := range original {
		if _, ok := r.Values[field]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, field)
}
