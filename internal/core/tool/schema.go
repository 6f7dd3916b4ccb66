package tool

import (
	"strings"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
)

func enum[T ~string](vals []T) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func str(desc string, values ...string) map[string]any {
	s := map[string]any{"type": "string", "description": desc}
	if len(values) > 0 {
		s["enum"] = values
	}
	return s
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc, "minimum": 0}
}

func array(desc string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": desc, "items": items, "minItems": 1}
}

func scalar(desc string) map[string]any {
	return map[string]any{
		"description": desc,
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "number"},
		},
	}
}

func anyValue(desc string) map[string]any {
	return map[string]any{
		"description": desc,
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "number"},
			map[string]any{"type": "array", "items": map[string]any{"anyOf": []any{
				map[string]any{"type": "string"},
				map[string]any{"type": "number"},
			}}},
		},
	}
}

func (s *Set) field(desc string) map[string]any {
	return str(desc, s.fieldNames()...)
}

func (s *Set) criteria() map[string]any {
	return object(map[string]any{
		"field":       s.field("Column the condition applies to"),
		"operator":    str("Comparison operator. greaterThan/lessThan/between are numeric; text operators are case-insensitive", enum(domain.FilterOperators)...),
		"value":       anyValue("Value to compare with. For in/notIn an array or a comma-separated string"),
		"secondValue": scalar("Upper bound, required for between"),
	}, "field", "operator", "value")
}

func (s *Set) buildSpecs() []port.ToolSpec {
	numeric := s.catalog.NumericFields()
	numericHint := "Numeric fields: " + strings.Join(numeric, ", ")

	return []port.ToolSpec{
		{
			Name:        SortTable,
			Description: "Sort the table by one or more columns. Replaces the current sort.",
			Parameters: object(map[string]any{
				"sorts": array("Sort keys in priority order", object(map[string]any{
					"field":     s.field("Column to sort by"),
					"direction": str("Sort direction", enum([]domain.SortDirection{domain.SortAsc, domain.SortDesc})...),
				}, "field", "direction")),
			}, "sorts"),
		},
		{
			Name: FilterTable,
			Description: "Narrow the visible rows with column filters (show, keep, only, hide, exclude, remove). " +
				"A filter replaces any existing filter on the same column. Set clearExisting to drop all filters first; " +
				"clearExisting with no filters just clears them.",
			Parameters: object(map[string]any{
				"filters":       map[string]any{"type": "array", "description": "Conditions, all of which must hold", "items": s.criteria()},
				"clearExisting": map[string]any{"type": "boolean", "description": "Clear every current filter before applying these"},
			}),
		},
		{
			Name: SelectRows,
			Description: "Select (highlight, pick, mark) rows without hiding the others. selectWhere needs criteria; " +
				"selectTop/selectBottom rank by criteria.field or the current sort (default count 10); selectRandom defaults to 5 rows.",
			Parameters: object(map[string]any{
				"action":   str("Selection action", enum(domain.SelectionActions)...),
				"criteria": s.criteria(),
				"count":    integer("Number of rows for selectTop, selectBottom and selectRandom"),
			}, "action"),
		},
		{
			Name:        GroupRows,
			Description: "Group rows by a column, optionally with per-group aggregations, or change group expansion.",
			Parameters: object(map[string]any{
				"action":       str("Grouping action", enum(domain.GroupingActions)...),
				"groupByField": s.field("Column to group by, required for groupBy"),
				"aggregations": map[string]any{
					"type":        "array",
					"description": "Per-group aggregations. " + numericHint,
					"items": object(map[string]any{
						"field":       s.field("Column to aggregate"),
						"aggregation": str("Aggregation function", enum(domain.AggregationFuncs)...),
					}, "field", "aggregation"),
				},
			}, "action"),
		},
		{
			Name: AnalyzeData,
			Description: "Compute statistics over a scope of the table: sum, average, count, min, max, topN, bottomN, " +
				"percentile, sumWhere, averageWhere, compare, topPercentile, bottomPercentile, rank. " + numericHint,
			Parameters: object(map[string]any{
				"operation":      str("Analytics operation", enum(domain.AnalyticsOps)...),
				"field":          s.field("Field to compute on"),
				"secondaryField": s.field("Condition field for sumWhere/averageWhere, group field for compare"),
				"operator":       str("Condition operator for sumWhere/averageWhere", enum(domain.Comparators)...),
				"value":          scalar("Condition value, percentile (0-100), compared group value, or value to rank"),
				"count":          integer("Number of rows for topN/bottomN (default 10)"),
				"aggregation":    str("Aggregation compare applies to each group (default average)", "sum", "average", "count", "min", "max"),
				"ascending":      map[string]any{"type": "boolean", "description": "Rank lowest values first"},
				"scope":          str("Rows to analyze (default filtered)", enum(domain.Scopes)...),
			}, "operation", "field"),
		},
	}
}
