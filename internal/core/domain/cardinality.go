package domain

// Cardinality describes how many distinct values a field takes across the
// working set, which decides whether it is a sensible group or filter key.
type Cardinality string

const (
	CardinalityUnique     Cardinality = "unique"
	CardinalityNearUnique Cardinality = "near_unique"
	CardinalityHigh       Cardinality = "high_cardinality"
	CardinalityLow        Cardinality = "low_cardinality"
	CardinalityEnumLike   Cardinality = "enum_like"
)

const (
	nearUniqueRatio = 0.9
	enumLikeMax     = 20
	lowMax          = 200
)

// ClassifyCardinality maps distinct and total value counts to a class.
func ClassifyCardinality(distinct, total int) Cardinality {
	switch {
	case total > 0 && distinct == total:
		return CardinalityUnique
	case total > 0 && float64(distinct)/float64(total) >= nearUniqueRatio:
		return CardinalityNearUnique
	case distinct <= enumLikeMax:
		return CardinalityEnumLike
	case distinct <= lowMax:
		return CardinalityLow
	default:
		return CardinalityHigh
	}
}

// Groupable reports whether grouping by a field of this class produces a
// readable number of groups.
func (c Cardinality) Groupable() bool {
	return c == CardinalityEnumLike || c == CardinalityLow
}

// FieldProfile summarizes one column of the working set.
type FieldProfile struct {
	Name          string      `json:"name"`
	Kind          FieldKind   `json:"kind"`
	Label         string      `json:"label,omitempty"`
	DistinctCount int         `json:"distinct_count"`
	NullCount     int         `json:"null_count"`
	Cardinality   Cardinality `json:"cardinality"`
	Min           *float64    `json:"min,omitempty"`
	Max           *float64    `json:"max,omitempty"`
	SampleValues  []string    `json:"sample_values,omitempty"`
}

const maxSampleValues = 5

// ProfileFields profiles every dataset column. Columns missing from the
// catalog are reported as text.
func ProfileFields(ds *Dataset, catalog *Catalog) []FieldProfile {
	rows := ds.Rows()
	names := ds.Fields()
	out := make([]FieldProfile, 0, len(names))
	for _, name := range names {
		p := FieldProfile{Name: name, Kind: FieldText}
		if f, ok := catalog.Field(name); ok {
			p.Kind = f.Kind
			p.Label = f.Label
		}
		seen := make(map[string]struct{})
		for _, r := range rows {
			v := r.Get(name)
			if v == nil {
				p.NullCount++
				continue
			}
			key := displayValue(v)
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				if len(p.SampleValues) < maxSampleValues {
					p.SampleValues = append(p.SampleValues, key)
				}
			}
		}
		p.DistinctCount = len(seen)
		p.Cardinality = ClassifyCardinality(p.DistinctCount, len(rows)-p.NullCount)
		if p.Kind == FieldNumeric && len(rows) > 0 {
			lo, hi := Min(rows, name), Max(rows, name)
			p.Min, p.Max = &lo, &hi
		}
		out = append(out, p)
	}
	return out
}
