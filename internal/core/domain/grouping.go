package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

const maxDescribedGroups = 5

// ExpandedKey is the expansion-state key of one group.
func ExpandedKey(field string, value any) string {
	return field + ":" + displayValue(value)
}

// DistinctValues returns the values of field in order of first appearance.
func DistinctValues(rows []Row, field string) []any {
	seen := make(map[string]struct{})
	var out []any
	for _, r := range rows {
		v := r.Get(field)
		k := displayValue(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Label renders an aggregation as "avg(averagePricePerM2)".
func (a Aggregation) Label() string {
	return fmt.Sprintf("%s(%s)", a.Function, a.Field)
}

// GroupSummary is one group of a groupBy with its requested aggregates.
type GroupSummary struct {
	Key        string             `json:"key"`
	Count      int                `json:"count"`
	Aggregates map[string]float64 `json:"aggregates,omitempty"`
}

// SummarizeGroups partitions rows by field, in order of first appearance.
func SummarizeGroups(rows []Row, field string, aggs []Aggregation) []GroupSummary {
	index := make(map[string]int)
	var keys []string
	var parts [][]Row
	for _, r := range rows {
		k := displayValue(r.Get(field))
		i, ok := index[k]
		if !ok {
			i = len(keys)
			index[k] = i
			keys = append(keys, k)
			parts = append(parts, nil)
		}
		parts[i] = append(parts[i], r)
	}
	out := make([]GroupSummary, 0, len(keys))
	for i, k := range keys {
		g := GroupSummary{Key: k, Count: len(parts[i])}
		if len(aggs) > 0 {
			g.Aggregates = make(map[string]float64, len(aggs))
			for _, a := range aggs {
				v, err := Aggregate(parts[i], a.Field, AggregateFunc(a.Function))
				if err != nil {
					continue
				}
				g.Aggregates[a.Label()] = v
			}
		}
		out = append(out, g)
	}
	return out
}

func describeGroups(groups []GroupSummary, limit int) string {
	parts := make([]string, 0, min(len(groups), limit))
	for i, g := range groups {
		if i == limit {
			parts = append(parts, fmt.Sprintf("and %d more", len(groups)-limit))
			break
		}
		var aggs []string
		for _, label := range slices.Sorted(maps.Keys(g.Aggregates)) {
			aggs = append(aggs, fmt.Sprintf("%s=%s", label, FormatNumber(g.Aggregates[label])))
		}
		parts = append(parts, fmt.Sprintf("%s [%s: %s]", g.Key, records(g.Count), strings.Join(aggs, ", ")))
	}
	return strings.Join(parts, ", ")
}
