// Package catalog loads the field catalog from an operator-supplied YAML file.
package catalog

import (
	"fmt"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog.
//
//	extends: default            # start from the built-in fields (optional)
//	fields:
//	  population: "Inhabitants"  # short form: description only
//	  pricePerRoom:
//	    kind: numeric
//	    label: Price per room
type File struct {
	Extends string    `yaml:"extends"`
	Fields  fieldList `yaml:"fields"`
}

// FieldEntry is one field as written in the file. Empty values inherit from
// the extended catalog.
type FieldEntry struct {
	Name        string           `yaml:"-"`
	Kind        domain.FieldKind `yaml:"kind,omitempty"`
	Label       string           `yaml:"label,omitempty"`
	Description string           `yaml:"description,omitempty"`
}

// UnmarshalYAML accepts both the plain-string and the struct form.
func (fe *FieldEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		fe.Description = value.Value
		return nil
	}
	type alias FieldEntry
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding field entry: %w", err)
	}
	*fe = FieldEntry(a)
	return nil
}

// fieldList keeps the mapping in file order; the catalog order is the
// column order shown to the model.
type fieldList []FieldEntry

func (fl *fieldList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping of field name to definition", value.Line)
	}
	out := make(fieldList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var fe FieldEntry
		if err := value.Content[i+1].Decode(&fe); err != nil {
			return fmt.Errorf("field %q: %w", value.Content[i].Value, err)
		}
		fe.Name = value.Content[i].Value
		out = append(out, fe)
	}
	*fl = out
	return nil
}
