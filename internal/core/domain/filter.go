package domain

import (
	"fmt"
	"strings"
)

// Matches reports whether row satisfies the criteria. String operators are
// case-insensitive; ordering operators compare numerically and never match
// non-numeric cells.
func (c Criteria) Matches(row Row) bool {
	cell := row.Get(c.Field)
	switch c.Operator {
	case OpEquals:
		return looseEqual(cell, c.Value)
	case OpContains:
		return cell != nil && strings.Contains(lower(cell), lower(c.Value))
	case OpStartsWith:
		return cell != nil && strings.HasPrefix(lower(cell), lower(c.Value))
	case OpEndsWith:
		return cell != nil && strings.HasSuffix(lower(cell), lower(c.Value))
	case OpGreaterThan:
		return compareNumbers(cell, c.Value, func(a, b float64) bool { return a > b })
	case OpLessThan:
		return compareNumbers(cell, c.Value, func(a, b float64) bool { return a < b })
	case OpGreaterThanOrEqual:
		return compareNumbers(cell, c.Value, func(a, b float64) bool { return a >= b })
	case OpLessThanOrEqual:
		return compareNumbers(cell, c.Value, func(a, b float64) bool { return a <= b })
	case OpBetween:
		return compareNumbers(cell, c.Value, func(a, b float64) bool { return a >= b }) &&
			compareNumbers(cell, c.SecondValue, func(a, b float64) bool { return a <= b })
	case OpIn:
		return inList(cell, c.Value)
	case OpNotIn:
		return !inList(cell, c.Value)
	}
	return false
}

// Describe renders the criteria for result messages, e.g. "population > 200000".
func (c Criteria) Describe() string {
	switch c.Operator {
	case OpBetween:
		return fmt.Sprintf("%s between %s and %s", c.Field, displayValue(c.Value), displayValue(c.SecondValue))
	case OpIn, OpNotIn:
		vals := listValues(c.Value)
		parts := make([]string, 0, len(vals))
		for _, v := range vals {
			parts = append(parts, displayValue(v))
		}
		word := "in"
		if c.Operator == OpNotIn {
			word = "not in"
		}
		return fmt.Sprintf("%s %s [%s]", c.Field, word, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s %s %s", c.Field, operatorSymbols[c.Operator], displayValue(c.Value))
}

var operatorSymbols = map[FilterOperator]string{
	OpEquals:             "=",
	OpContains:           "contains",
	OpStartsWith:         "starts with",
	OpEndsWith:           "ends with",
	OpGreaterThan:        ">",
	OpLessThan:           "<",
	OpGreaterThanOrEqual: ">=",
	OpLessThanOrEqual:    "<=",
}

// FilterRows returns the rows matching every criteria, in input order.
func FilterRows(rows []Row, filters []Criteria) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if matchesAll(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func matchesAll(r Row, filters []Criteria) bool {
	for _, f := range filters {
		if !f.Matches(r) {
			return false
		}
	}
	return true
}

// Compare applies the comparator to a cell and a condition value. eq is a
// strict typed equality; the others are numeric.
func (c Comparator) Compare(cell, value any) bool {
	switch c {
	case CmpEQ:
		return strictEqual(cell, value)
	case CmpGT:
		return compareNumbers(cell, value, func(a, b float64) bool { return a > b })
	case CmpLT:
		return compareNumbers(cell, value, func(a, b float64) bool { return a < b })
	case CmpGTE:
		return compareNumbers(cell, value, func(a, b float64) bool { return a >= b })
	case CmpLTE:
		return compareNumbers(cell, value, func(a, b float64) bool { return a <= b })
	}
	return false
}

// Symbol returns the comparator as an infix symbol.
func (c Comparator) Symbol() string {
	switch c {
	case CmpGT:
		return ">"
	case CmpLT:
		return "<"
	case CmpEQ:
		return "="
	case CmpGTE:
		return ">="
	case CmpLTE:
		return "<="
	}
	return string(c)
}

func (c Comparator) Valid() bool {
	switch c {
	case CmpGT, CmpLT, CmpEQ, CmpGTE, CmpLTE:
		return true
	}
	return false
}

func compareNumbers(cell, value any, fn func(a, b float64) bool) bool {
	a, ok := toFloat(cell)
	if !ok {
		return false
	}
	b, ok := toFloat(value)
	if !ok {
		return false
	}
	return fn(a, b)
}

// looseEqual compares numerically when both sides read as numbers and
// case-insensitively otherwise.
func looseEqual(cell, value any) bool {
	if cell == nil || value == nil {
		return cell == nil && value == nil
	}
	if a, ok := toFloat(cell); ok {
		if b, ok := toFloat(value); ok {
			return a == b
		}
	}
	return strings.EqualFold(displayValue(cell), displayValue(value))
}

// strictEqual requires both sides to be of the same family: numbers equal
// numbers, strings equal strings with exact case.
func strictEqual(cell, value any) bool {
	if isNumeric(cell) && isNumeric(value) {
		a, _ := toFloat(cell)
		b, _ := toFloat(value)
		return a == b
	}
	switch a := cell.(type) {
	case nil:
		return value == nil
	case string:
		b, ok := value.(string)
		return ok && a == b
	case bool:
		b, ok := value.(bool)
		return ok && a == b
	}
	return false
}

func inList(cell, list any) bool {
	if cell == nil {
		return false
	}
	for _, v := range listValues(list) {
		if looseEqual(cell, v) {
			return true
		}
	}
	return false
}

// listValues accepts a JSON array or a comma-separated string.
func listValues(v any) []any {
	switch l := v.(type) {
	case nil:
		return nil
	case []any:
		return l
	case []string:
		out := make([]any, 0, len(l))
		for _, s := range l {
			out = append(out, s)
		}
		return out
	case []float64:
		out := make([]any, 0, len(l))
		for _, f := range l {
			out = append(out, f)
		}
		return out
	case string:
		parts := strings.Split(l, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return []any{v}
}

func lower(v any) string {
	if v == nil {
		return ""
	}
	return strings.ToLower(displayValue(v))
}
