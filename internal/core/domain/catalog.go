package domain

import (
	"fmt"
	"slices"
)

// FieldKind classifies a column for operation eligibility.
type FieldKind string

const (
	FieldNumeric    FieldKind = "numeric"
	FieldText       FieldKind = "text"
	FieldIdentifier FieldKind = "identifier"
)

// Valid reports whether k is a known kind.
func (k FieldKind) Valid() bool {
	switch k {
	case FieldNumeric, FieldText, FieldIdentifier:
		return true
	}
	return false
}

// Field describes one known column of the dataset.
type Field struct {
	Name        string    `json:"name"`
	Kind        FieldKind `json:"kind"`
	Label       string    `json:"label,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Catalog is the set of known fields. It is the only place numeric
// eligibility is defined; the analytics and ranking checks both read it.
type Catalog struct {
	fields []Field
	byName map[string]Field
}

// NewCatalog validates and indexes fields, preserving their order.
func NewCatalog(fields []Field) (*Catalog, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyFieldCatalog
	}
	byName := make(map[string]Field, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d: %w", i, ErrMissingFieldName)
		}
		if !f.Kind.Valid() {
			return nil, fmt.Errorf("field %q: %w: %q", f.Name, ErrInvalidFieldKind, f.Kind)
		}
		if _, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		byName[f.Name] = f
	}
	return &Catalog{fields: slices.Clone(fields), byName: byName}, nil
}

// DefaultCatalog returns the built-in catalog for the Paris DVF aggregates.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Field{
		{Name: "codeInsee", Kind: FieldIdentifier, Label: "INSEE code", Description: "Commune identifier used as geographic join key"},
		{Name: "commune", Kind: FieldText, Label: "Commune"},
		{Name: "arrondissement", Kind: FieldText, Label: "Arrondissement", Description: "Paris arrondissement (1 to 20)"},
		{Name: "section", Kind: FieldIdentifier, Label: "Cadastral section"},
		{Name: "postalCode", Kind: FieldIdentifier, Label: "Postal code"},
		{Name: "city", Kind: FieldText, Label: "City"},
		{Name: "propertyType", Kind: FieldText, Label: "Property type", Description: "Appartement, Maison, ..."},
		{Name: "year", Kind: FieldText, Label: "Year"},
		{Name: "averagePricePerM2", Kind: FieldNumeric, Label: "Average price per m²", Description: "Mean transaction price per square meter in euros"},
		{Name: "medianPricePerM2", Kind: FieldNumeric, Label: "Median price per m²"},
		{Name: "averagePrice", Kind: FieldNumeric, Label: "Average price", Description: "Mean transaction price in euros"},
		{Name: "transactionCount", Kind: FieldNumeric, Label: "Transactions"},
		{Name: "averageSurface", Kind: FieldNumeric, Label: "Average surface", Description: "Mean surface in m²"},
		{Name: "population", Kind: FieldNumeric, Label: "Population"},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Fields returns the catalog fields in declaration order.
func (c *Catalog) Fields() []Field {
	return slices.Clone(c.fields)
}

// Field looks up a field by name.
func (c *Catalog) Field(name string) (Field, bool) {
	f, ok := c.byName[name]
	return f, ok
}

// Names returns every field name in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.fields))
	for _, f := range c.fields {
		out = append(out, f.Name)
	}
	return out
}

// NumericFields returns the names of numeric-eligible fields.
func (c *Catalog) NumericFields() []string {
	var out []string
	for _, f := range c.fields {
		if f.Kind == FieldNumeric {
			out = append(out, f.Name)
		}
	}
	return out
}

func (c *Catalog) IsNumeric(name string) bool {
	f, ok := c.byName[name]
	return ok && f.Kind == FieldNumeric
}

// ValidateNumericOperation fails when field cannot take part in an aggregation.
func (c *Catalog) ValidateNumericOperation(field string) error {
	return c.requireNumeric(field)
}

// ValidateRankingOperation fails when field cannot be ranked. It accepts
// exactly the fields ValidateNumericOperation accepts.
func (c *Catalog) ValidateRankingOperation(field string) error {
	return c.requireNumeric(field)
}

func (c *Catalog) requireNumeric(field string) error {
	if !c.IsNumeric(field) {
		return fmt.Errorf("%w: %s", ErrNonNumericField, field)
	}
	return nil
}
