package domain

import (
	"fmt"
	"strings"
)

// Scope names a view over the live table state.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeFiltered Scope = "filtered"
	ScopeSelected Scope = "selected"
	ScopeVisible  Scope = "visible"
	ScopeGrouped  Scope = "grouped"

	DefaultScope = ScopeFiltered
)

var Scopes = []Scope{ScopeAll, ScopeFiltered, ScopeSelected, ScopeVisible, ScopeGrouped}

func (s Scope) Valid() bool {
	switch s {
	case ScopeAll, ScopeFiltered, ScopeSelected, ScopeVisible, ScopeGrouped:
		return true
	}
	return false
}

// ScopeValidation is the outcome of ValidateScope. Message explains an
// invalid scope and is surfaced verbatim in analytics errors.
type ScopeValidation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Err converts a failed validation into an error wrapping ErrEmptyScope
// (or ErrUnknownScope).
func (v ScopeValidation) Err(scope Scope) error {
	if v.Valid {
		return nil
	}
	if !scope.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownScope, scope)
	}
	return fmt.Errorf("%w: %s", ErrEmptyScope, v.Message)
}

// ValidateScope checks that scope resolves to a usable row set.
func ValidateScope(scope Scope, state TableState, original []Row) ScopeValidation {
	switch scope {
	case ScopeAll:
		if len(original) == 0 {
			return ScopeValidation{Message: "No data available"}
		}
	case ScopeFiltered:
		if len(state.FilteredRows(original)) == 0 {
			return ScopeValidation{Message: "No rows match the current filters"}
		}
	case ScopeSelected:
		if len(state.SelectedRows(original)) == 0 {
			return ScopeValidation{Message: "No rows selected. Select some rows first"}
		}
	case ScopeVisible:
		if len(state.VisibleRows(original)) == 0 {
			return ScopeValidation{Message: "No visible rows"}
		}
	case ScopeGrouped:
		if !state.HasGrouping() {
			return ScopeValidation{Message: "No grouping is active. Group the data first"}
		}
	default:
		return ScopeValidation{Message: fmt.Sprintf("Unknown scope: %s", scope)}
	}
	return ScopeValidation{Valid: true}
}

// RowsByScope resolves scope to rows. The grouped scope resolves to the
// filtered rows; per-group iteration is left to the caller.
func RowsByScope(scope Scope, state TableState, original []Row) []Row {
	switch scope {
	case ScopeAll:
		return cloneRows(original)
	case ScopeSelected:
		return state.SelectedRows(original)
	case ScopeVisible:
		return state.VisibleRows(original)
	case ScopeFiltered, ScopeGrouped:
		return state.FilteredRows(original)
	}
	return []Row{}
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

// ScopeMetadata describes a resolved scope.
type ScopeMetadata struct {
	Scope        Scope  `json:"scope"`
	Count        int    `json:"count"`
	HasFilters   bool   `json:"has_filters"`
	HasSelection bool   `json:"has_selection"`
	HasGrouping  bool   `json:"has_grouping"`
	HasSorting   bool   `json:"has_sorting"`
	Description  string `json:"description"`
}

// DescribeScope resolves scope and builds the phrase used in result
// messages, e.g. "All 12 records" or "3 filtered records".
func DescribeScope(scope Scope, state TableState, original []Row) ScopeMetadata {
	n := len(RowsByScope(scope, state, original))
	m := ScopeMetadata{
		Scope:        scope,
		Count:        n,
		HasFilters:   state.HasFilters(),
		HasSelection: state.HasSelection(),
		HasGrouping:  state.HasGrouping(),
		HasSorting:   state.HasSorting(),
	}
	switch scope {
	case ScopeAll:
		m.Description = fmt.Sprintf("All %s", records(n))
	case ScopeFiltered:
		if m.HasFilters {
			m.Description = fmt.Sprintf("%d filtered %s", n, plural(n))
		} else {
			m.Description = fmt.Sprintf("All %s", records(n))
		}
	case ScopeSelected:
		m.Description = fmt.Sprintf("%d selected %s", n, plural(n))
	case ScopeVisible:
		m.Description = fmt.Sprintf("%d visible %s", n, plural(n))
	case ScopeGrouped:
		m.Description = fmt.Sprintf("%s grouped by %s", records(n), strings.Join(state.Grouping, ", "))
	default:
		m.Description = fmt.Sprintf("%s in unknown scope %s", records(n), scope)
	}
	return m
}

func records(n int) string {
	return fmt.Sprintf("%d %s", n, plural(n))
}

func plural(n int) string {
	if n == 1 {
		return "record"
	}
	return "records"
}
