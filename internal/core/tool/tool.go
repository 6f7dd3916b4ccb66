// Package tool is the boundary between a language model and the table.
// Each tool decodes and validates its arguments, then describes the
// operations it stands for. No tool touches table state; the table service
// applies the returned operations.
package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/guillermoBallester/tabletalk/internal/core/domain"
	"github.com/guillermoBallester/tabletalk/internal/core/port"
)

const (
	SortTable   = "sort_table"
	FilterTable = "filter_table"
	SelectRows  = "select_rows"
	GroupRows   = "group_rows"
	AnalyzeData = "analyze_data"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Output is the result of one tool call: the validated input echoed back,
// a confirmation message, and the operations to apply.
type Output struct {
	Tool       string             `json:"tool"`
	Input      any                `json:"input"`
	Message    string             `json:"message"`
	Operations []domain.Operation `json:"-"`
}

// FilterInput is the argument object of filter_table.
type FilterInput struct {
	Filters       []domain.Criteria `json:"filters,omitempty"`
	ClearExisting bool              `json:"clearExisting,omitempty"`
}

// Set is the tool catalogue for one dataset.
type Set struct {
	catalog *domain.Catalog
	columns []string
	known   map[string]bool
	specs   []port.ToolSpec
}

// NewSet builds the tools for a dataset with the given columns. With no
// columns the catalog field names are used.
func NewSet(catalog *domain.Catalog, columns []string) *Set {
	if len(columns) == 0 {
		columns = catalog.Names()
	}
	columns = slices.Clone(columns)
	slices.Sort(columns)
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	s := &Set{catalog: catalog, columns: columns, known: known}
	s.specs = s.buildSpecs()
	return s
}

// Specs returns the tool declarations handed to the language model.
func (s *Set) Specs() []port.ToolSpec {
	return slices.Clone(s.specs)
}

// Spec looks up one tool declaration.
func (s *Set) Spec(name string) (port.ToolSpec, bool) {
	for _, spec := range s.specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return port.ToolSpec{}, false
}

func (s *Set) fieldNames() []string {
	return s.columns
}

// Run decodes and validates one tool call. Malformed calls are rejected
// here and never reach the executor.
func (s *Set) Run(call port.ToolCall) (*Output, error) {
	var (
		out *Output
		err error
	)
	switch call.Name {
	case SortTable:
		out, err = s.runSort(call.Arguments)
	case FilterTable:
		out, err = s.runFilter(call.Arguments)
	case SelectRows:
		out, err = s.runSelect(call.Arguments)
	case GroupRows:
		out, err = s.runGroup(call.Arguments)
	case AnalyzeData:
		out, err = s.runAnalyze(call.Arguments)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	if err != nil {
		return nil, err
	}
	out.Tool = call.Name
	return out, nil
}

// Operations flattens a batch of outputs in call order.
func Operations(outs []*Output) []domain.Operation {
	var ops []domain.Operation
	for _, o := range outs {
		ops = append(ops, o.Operations...)
	}
	return ops
}

func decode(args map[string]any, v any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	return nil
}

func (s *Set) checkFields(fields ...string) error {
	for _, f := range fields {
		if f == "" {
			continue
		}
		if !s.known[f] {
			return fmt.Errorf("%w: %s (known fields: %s)", domain.ErrUnknownField, f, strings.Join(s.columns, ", "))
		}
	}
	return nil
}

func (s *Set) finish(input any, msg string, ops ...domain.Operation) (*Output, error) {
	if err := domain.ValidateOperations(ops); err != nil {
		return nil, err
	}
	return &Output{Input: input, Message: msg, Operations: ops}, nil
}

func (s *Set) runSort(args map[string]any) (*Output, error) {
	var in domain.SortOperation
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	for _, spec := range in.Sorts {
		if err := s.checkFields(spec.Field); err != nil {
			return nil, err
		}
	}
	return s.finish(in, describeSort(in), in)
}

func (s *Set) runFilter(args map[string]any) (*Output, error) {
	var in FilterInput
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	if len(in.Filters) == 0 {
		if !in.ClearExisting {
			return nil, fmt.Errorf("%w: filters is required unless clearExisting is set", domain.ErrMissingParameter)
		}
		return s.finish(in, "Clearing all filters", domain.ClearFiltersOperation{})
	}
	for _, c := range in.Filters {
		if err := s.checkFields(c.Field); err != nil {
			return nil, err
		}
	}
	filter := domain.FilterOperation{Filters: in.Filters}
	desc := describeCriteria(in.Filters)
	if in.ClearExisting {
		return s.finish(in, "Clearing filters, then filtering: "+desc, domain.ClearFiltersOperation{}, filter)
	}
	return s.finish(in, "Filtering: "+desc, filter)
}

func (s *Set) runSelect(args map[string]any) (*Output, error) {
	var in domain.SelectionOperation
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	if in.Criteria != nil {
		if err := s.checkFields(in.Criteria.Field); err != nil {
			return nil, err
		}
	}
	if in.Action == domain.SelectNone {
		if err := domain.ValidateOperation(in); err != nil {
			return nil, err
		}
		return s.finish(in, describeSelection(in), domain.ClearSelectionOperation{})
	}
	return s.finish(in, describeSelection(in), in)
}

func (s *Set) runGroup(args map[string]any) (*Output, error) {
	var in domain.GroupOperation
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	if err := s.checkFields(in.Field); err != nil {
		return nil, err
	}
	for _, a := range in.Aggregations {
		if err := s.checkFields(a.Field); err != nil {
			return nil, err
		}
	}
	if in.Action == domain.ClearGrouping {
		if err := domain.ValidateOperation(in); err != nil {
			return nil, err
		}
		return s.finish(in, describeGroup(in), domain.ClearGroupingOperation{})
	}
	return s.finish(in, describeGroup(in), in)
}

func (s *Set) runAnalyze(args map[string]any) (*Output, error) {
	var in domain.AnalyticsOperation
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	if err := s.checkFields(in.Field, in.SecondaryField); err != nil {
		return nil, err
	}
	return s.finish(in, describeAnalytics(in), in)
}
