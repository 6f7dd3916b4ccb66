package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(criteriaRules, Criteria{})
	v.RegisterStructValidation(selectionRules, SelectionOperation{})
	v.RegisterStructValidation(groupRules, GroupOperation{})
	return v
}

// ValidateOperation rejects malformed operations before they reach the
// executor. The error lists every failed field.
func ValidateOperation(op Operation) error {
	if op == nil {
		return fmt.Errorf("%w: nil operation", ErrInvalidOperation)
	}
	if err := validate.Struct(op); err != nil {
		return fmt.Errorf("%w: %s %s", ErrInvalidOperation, op.Kind(), describeValidation(err))
	}
	return nil
}

// ValidateOperations validates a batch, stopping at the first failure.
func ValidateOperations(ops []Operation) error {
	for i, op := range ops {
		if err := ValidateOperation(op); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

func criteriaRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(Criteria)
	if rankingCriteria(sl) {
		return
	}
	if c.Operator == "" {
		sl.ReportError(c.Operator, "operator", "Operator", "required", "")
	}
	if c.Value == nil {
		sl.ReportError(c.Value, "value", "Value", "required", "")
	}
	if c.Operator == OpBetween && c.SecondValue == nil {
		sl.ReportError(c.SecondValue, "secondValue", "SecondValue", "required_for_between", "")
	}
	switch c.Operator {
	case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpBetween:
		if c.Value != nil {
			if _, ok := toFloat(c.Value); !ok {
				sl.ReportError(c.Value, "value", "Value", "numeric", "")
			}
		}
		if c.Operator == OpBetween && c.SecondValue != nil {
			if _, ok := toFloat(c.SecondValue); !ok {
				sl.ReportError(c.SecondValue, "secondValue", "SecondValue", "numeric", "")
			}
		}
	}
}

// rankingCriteria reports whether the criteria being validated belongs to a
// selectTop or selectBottom, where it only names the ranking field.
func rankingCriteria(sl validator.StructLevel) bool {
	parent := sl.Parent()
	if parent.Kind() == reflect.Ptr {
		parent = parent.Elem()
	}
	if !parent.IsValid() || parent.Type() != reflect.TypeOf(SelectionOperation{}) {
		return false
	}
	op := parent.Interface().(SelectionOperation)
	return op.Action == SelectTop || op.Action == SelectBottom
}

func selectionRules(sl validator.StructLevel) {
	op := sl.Current().Interface().(SelectionOperation)
	if op.Action == SelectWhere && op.Criteria == nil {
		sl.ReportError(op.Criteria, "criteria", "Criteria", "required_for_selectWhere", "")
	}
	if op.Count < 0 {
		sl.ReportError(op.Count, "count", "Count", "gte", "0")
	}
}

func groupRules(sl validator.StructLevel) {
	op := sl.Current().Interface().(GroupOperation)
	if op.Action == GroupBy && op.Field == "" {
		sl.ReportError(op.Field, "groupByField", "Field", "required_for_groupBy", "")
	}
}

// describeValidation renders validator errors as one sentence per field.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describeFieldError(fe))
	}
	return strings.Join(parts, "; ")
}

func describeFieldError(fe validator.FieldError) string {
	name := fe.Namespace()
	if _, rest, ok := strings.Cut(name, "."); ok {
		name = rest
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", name, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", name, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be a number, got %v", name, fe.Value())
	case "required_for_between":
		return name + " is required for between"
	case "required_for_selectWhere":
		return name + " is required for selectWhere"
	case "required_for_groupBy":
		return name + " is required for groupBy"
	}
	return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
}
