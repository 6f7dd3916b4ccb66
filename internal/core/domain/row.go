package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Row is one record of the working set. ID is assigned at ingestion and
// never changes, so selection and ranking never depend on content equality.
type Row struct {
	ID     string         `json:"id"`
	Values map[string]any `json:"values"`
}

// Get returns the raw value of field, or nil when absent.
func (r Row) Get(field string) any {
	return r.Values[field]
}

// Number returns the numeric value of field. ok is false for missing or
// non-numeric values.
func (r Row) Number(field string) (float64, bool) {
	return toFloat(r.Values[field])
}

// numberOrZero is the numeric reading used by every aggregation: missing
// and non-numeric values count as 0.
func numberOrZero(r Row, field string) float64 {
	f, _ := r.Number(field)
	return f
}

// Dataset is the immutable, ingested working set.
type Dataset struct {
	rows []Row
	byID map[string]int
}

// NewDataset assigns IDs ("0", "1", ...) in ingestion order and normalizes
// numeric catalog fields to float64. Unknown fields are kept as-is.
func NewDataset(records []map[string]any, catalog *Catalog) *Dataset {
	rows := make([]Row, 0, len(records))
	byID := make(map[string]int, len(records))
	for i, rec := range records {
		values := make(map[string]any, len(rec))
		for k, v := range rec {
			if catalog != nil && catalog.IsNumeric(k) {
				values[k] = normalizeNumber(v)
				continue
			}
			values[k] = v
		}
		id := strconv.Itoa(i)
		byID[id] = i
		rows = append(rows, Row{ID: id, Values: values})
	}
	return &Dataset{rows: rows, byID: byID}
}

// Rows returns a fresh slice over the dataset rows.
func (d *Dataset) Rows() []Row {
	if d == nil {
		return nil
	}
	return slices.Clone(d.rows)
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Lookup returns the row with the given ID.
func (d *Dataset) Lookup(id string) (Row, bool) {
	if d == nil {
		return Row{}, false
	}
	i, ok := d.byID[id]
	if !ok {
		return Row{}, false
	}
	return d.rows[i], true
}

// Fields returns the union of column names across all rows, sorted.
func (d *Dataset) Fields() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, r := range d.rows {
		for k := range r.Values {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// HasField reports whether any row carries field.
func (d *Dataset) HasField(field string) bool {
	if d == nil {
		return false
	}
	for _, r := range d.rows {
		if _, ok := r.Values[field]; ok {
			return true
		}
	}
	return false
}

// normalizeNumber converts source values (strings with either decimal
// separator, integers, json numbers, driver numerics exposing Float64) to
// float64. Values that cannot be read as numbers are returned unchanged.
func normalizeNumber(v any) any {
	if v == nil {
		return nil
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	if fv, ok := v.(interface{ Float64() float64 }); ok {
		return fv.Float64()
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return parseNumber(n)
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

// displayValue renders a cell value for messages and group keys.
func displayValue(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
