package domain

import (
	"cmp"
	"maps"
	"slices"
	"strings"
)

const DefaultPageSize = 10

// Expanded is the group expansion state: either every group (All) or the
// listed "field:value" keys.
type Expanded struct {
	All  bool            `json:"all"`
	Keys map[string]bool `json:"keys,omitempty"`
}

type Pagination struct {
	PageIndex int `json:"page_index"`
	PageSize  int `json:"page_size"`
}

// TableState is the live sort, filter, selection, grouping and pagination
// state the scopes are computed from.
type TableState struct {
	Sorting      []SortSpec      `json:"sorting"`
	Filters      []Criteria      `json:"filters"`
	Selection    map[string]bool `json:"selection"`
	Grouping     []string        `json:"grouping"`
	Aggregations []Aggregation   `json:"aggregations,omitempty"`
	Expanded     Expanded        `json:"expanded"`
	Pagination   Pagination      `json:"pagination"`
}

// NewTableState returns an empty state with the given page size.
func NewTableState(pageSize int) TableState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return TableState{
		Selection:  map[string]bool{},
		Pagination: Pagination{PageSize: pageSize},
	}
}

// Clone deep-copies the state.
func (s TableState) Clone() TableState {
	out := s
	out.Sorting = slices.Clone(s.Sorting)
	out.Filters = slices.Clone(s.Filters)
	out.Selection = maps.Clone(s.Selection)
	if out.Selection == nil {
		out.Selection = map[string]bool{}
	}
	out.Grouping = slices.Clone(s.Grouping)
	out.Aggregations = slices.Clone(s.Aggregations)
	out.Expanded.Keys = maps.Clone(s.Expanded.Keys)
	return out
}

// IsSelected treats an absent entry as not selected.
func (s TableState) IsSelected(id string) bool {
	return s.Selection[id]
}

func (s TableState) HasFilters() bool  { return len(s.Filters) > 0 }
func (s TableState) HasGrouping() bool { return len(s.Grouping) > 0 }
func (s TableState) HasSorting() bool  { return len(s.Sorting) > 0 }

func (s TableState) HasSelection() bool {
	for _, v := range s.Selection {
		if v {
			return true
		}
	}
	return false
}

// SelectedCount returns the number of selected IDs.
func (s TableState) SelectedCount() int {
	n := 0
	for _, v := range s.Selection {
		if v {
			n++
		}
	}
	return n
}

// SetFilter replaces any filter on the same field.
func (s *TableState) SetFilter(c Criteria) {
	s.Filters = slices.DeleteFunc(s.Filters, func(f Criteria) bool { return f.Field == c.Field })
	s.Filters = append(s.Filters, c)
	s.Pagination.PageIndex = 0
}

// FilteredRows applies the column filters.
func (s TableState) FilteredRows(original []Row) []Row {
	return FilterRows(original, s.Filters)
}

// SortedRows applies filters then sorting.
func (s TableState) SortedRows(original []Row) []Row {
	return SortRows(s.FilteredRows(original), s.Sorting)
}

// VisibleRows applies filters, sorting and the current page.
func (s TableState) VisibleRows(original []Row) []Row {
	return PageRows(s.SortedRows(original), s.Pagination)
}

// SelectedRows returns the selected rows of the full dataset in ingestion order.
func (s TableState) SelectedRows(original []Row) []Row {
	return keep(original, func(r Row) bool { return s.IsSelected(r.ID) })
}

// SortRows returns a stably sorted copy by the given keys. Numbers compare
// numerically, everything else case-insensitively; missing cells sort last.
func SortRows(rows []Row, sorting []SortSpec) []Row {
	out := slices.Clone(rows)
	if len(sorting) == 0 {
		return out
	}
	slices.SortStableFunc(out, func(a, b Row) int {
		for _, spec := range sorting {
			c := compareCells(a.Get(spec.Field), b.Get(spec.Field))
			if c == 0 {
				continue
			}
			if spec.Direction == SortDesc {
				c = -c
			}
			return c
		}
		return 0
	})
	return out
}

func compareCells(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return cmp.Compare(fa, fb)
	}
	return strings.Compare(strings.ToLower(displayValue(a)), strings.ToLower(displayValue(b)))
}

// PageRows slices out one page.
func PageRows(rows []Row, p Pagination) []Row {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	start := p.PageIndex * size
	if start < 0 || start >= len(rows) {
		return []Row{}
	}
	end := min(start+size, len(rows))
	return slices.Clone(rows[start:end])
}

// PageCount returns the number of pages for n rows.
func (p Pagination) PageCount(n int) int {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return (n + size - 1) / size
}

// SelectionFromRows marks every row as selected.
func SelectionFromRows(rows []Row) map[string]bool {
	sel := make(map[string]bool, len(rows))
	for _, r := range rows {
		sel[r.ID] = true
	}
	return sel
}
