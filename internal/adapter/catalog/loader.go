package catalog

import (
	"fmt"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const extendsDefault = "default"

// LoadFromFile reads a YAML catalog and returns the validated field catalog.
func LoadFromFile(fs afero.Fs, path string) (*domain.Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}

	var base *domain.Catalog
	switch f.Extends {
	case "":
	case extendsDefault:
		base = domain.DefaultCatalog()
	default:
		return nil, fmt.Errorf("extends: invalid value %q (allowed: default)", f.Extends)
	}

	cat, err := Merge(base, f.Fields)
	if err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return cat, nil
}

// Merge overlays entries on base. Known fields take the entry's non-empty
// values; new fields are appended and must name a kind.
func Merge(base *domain.Catalog, entries []FieldEntry) (*domain.Catalog, error) {
	var fields []domain.Field
	index := make(map[string]int)
	if base != nil {
		fields = base.Fields()
		for i, f := range fields {
			index[f.Name] = i
		}
	}

	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("fields contains an empty key")
		}
		i, known := index[e.Name]
		if !known {
			if e.Kind == "" {
				return nil, fmt.Errorf("fields[%q].kind is required for a new field", e.Name)
			}
			fields = append(fields, domain.Field{Name: e.Name})
			i = len(fields) - 1
			index[e.Name] = i
		}
		if e.Kind != "" {
			fields[i].Kind = e.Kind
		}
		if e.Label != "" {
			fields[i].Label = e.Label
		}
		if e.Description != "" {
			fields[i].Description = e.Description
		}
	}
	return domain.NewCatalog(fields)
}
