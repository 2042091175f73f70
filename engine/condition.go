package engine

import (
	"fmt"
	"strings"

	"github.com/TarikAI/RevoForms-sub004/config"
)

// Warning codes surfaced to the form author's debugging view.
const (
	warnConditionTypeMismatch = "condition.type_mismatch"
	warnConditionBadOperator  = "condition.unsupported_operator"
	warnCalcMissingOperand    = "calculate.missing_operand"
	warnCalcDivideByZero      = "calculate.divide_by_zero"
	warnCalcFailed            = "calculate.failed"
	warnActionInvalidValue    = "action.invalid_value"
)

// compiledCondition is one comparison with its field reference resolved at
// compile time.
type compiledCondition struct {
	cfg   config.ConditionConfig
	field *config.FieldConfig
}

// evaluate decides whether the comparison holds against the snapshot. It
// never errors: operator or type mismatches evaluate to false and produce a
// warning instead.
func (c *compiledCondition) evaluate(snapshot Snapshot) (bool, *Warning) {
	raw, touched := snapshot[c.cfg.Field]

	switch c.cfg.Operator {
	case config.OperatorIsEmpty:
		return !touched || isEmptyValue(raw), nil
	case config.OperatorIsNotEmpty:
		return touched && !isEmptyValue(raw), nil
	}

	// Every other operator fails closed on an untouched field.
	if !touched {
		return false, nil
	}

	switch c.cfg.Operator {
	case config.OperatorEquals:
		return c.compareEqual(raw)
	case config.OperatorNotEquals:
		equal, warning := c.compareEqual(raw)
		if warning != nil {
			return false, warning
		}
		return !equal, nil
	case config.OperatorContains:
		return c.compareContains(raw)
	case config.OperatorNotContains:
		contains, warning := c.compareContains(raw)
		if warning != nil {
			return false, warning
		}
		return !contains, nil
	case config.OperatorStartsWith:
		return c.compareAffix(raw, strings.HasPrefix)
	case config.OperatorEndsWith:
		return c.compareAffix(raw, strings.HasSuffix)
	case config.OperatorGreaterThan:
		return c.compareOrder(raw, false)
	case config.OperatorLessThan:
		return c.compareOrder(raw, true)
	case config.OperatorIsSelected:
		return c.compareSelected(raw)
	case config.OperatorIsNotSelected:
		selected, warning := c.compareSelected(raw)
		if warning != nil {
			return false, warning
		}
		return !selected, nil
	default:
		return false, c.warn(warnConditionBadOperator, fmt.Sprintf("unsupported operator %q", c.cfg.Operator))
	}
}

func (c *compiledCondition) compareEqual(raw interface{}) (bool, *Warning) {
	switch c.field.Type {
	case config.FieldTypeNumber:
		actual, err := coerceDecimal(raw)
		if err != nil {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("field value: %v", err))
		}
		expected, err := coerceDecimal(c.cfg.Value)
		if err != nil {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("comparison value: %v", err))
		}
		return actual.Equal(expected), nil
	case config.FieldTypeCheckbox:
		actual, ok := boolValue(raw)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected bool value, got %T", raw))
		}
		expected, ok := boolValue(c.cfg.Value)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected bool comparison value, got %T", c.cfg.Value))
		}
		return actual == expected, nil
	case config.FieldTypeMultiSelect:
		actual, ok := stringSet(raw)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected option list, got %T", raw))
		}
		expected, ok := stringSet(c.cfg.Value)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected option list comparison value, got %T", c.cfg.Value))
		}
		return equalStringSets(actual, expected), nil
	case config.FieldTypeDate:
		actual, err := parseDate(raw)
		if err != nil {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("field value: %v", err))
		}
		expected, err := parseDate(c.cfg.Value)
		if err != nil {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("comparison value: %v", err))
		}
		return actual.Equal(expected), nil
	default:
		actual, ok := stringValue(raw)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected string value, got %T", raw))
		}
		expected, ok := stringValue(c.cfg.Value)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected string comparison value, got %T", c.cfg.Value))
		}
		return actual == expected, nil
	}
}

func (c *compiledCondition) compareContains(raw interface{}) (bool, *Warning) {
	expected, ok := stringValue(c.cfg.Value)
	if !ok {
		return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected string comparison value, got %T", c.cfg.Value))
	}
	if c.field.Type == config.FieldTypeMultiSelect {
		set, ok := stringSet(raw)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected option list, got %T", raw))
		}
		for _, option := range set {
			if option == expected {
				return true, nil
			}
		}
		return false, nil
	}
	actual, ok := stringValue(raw)
	if !ok {
		return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected string value, got %T", raw))
	}
	return strings.Contains(actual, expected), nil
}

func (c *compiledCondition) compareAffix(raw interface{}, match func(string, string) bool) (bool, *Warning) {
	actual, ok := stringValue(raw)
	if !ok {
		return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected string value, got %T", raw))
	}
	expected, ok := stringValue(c.cfg.Value)
	if !ok {
		return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected string comparison value, got %T", c.cfg.Value))
	}
	return match(actual, expected), nil
}

func (c *compiledCondition) compareOrder(raw interface{}, less bool) (bool, *Warning) {
	if c.field.Type == config.FieldTypeDate {
		actual, err := parseDate(raw)
		if err != nil {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("field value: %v", err))
		}
		expected, err := parseDate(c.cfg.Value)
		if err != nil {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("comparison value: %v", err))
		}
		if less {
			return actual.Before(expected), nil
		}
		return actual.After(expected), nil
	}

	actual, err := coerceDecimal(raw)
	if err != nil {
		return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("field value: %v", err))
	}
	expected, err := coerceDecimal(c.cfg.Value)
	if err != nil {
		return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("comparison value: %v", err))
	}
	if less {
		return actual.LessThan(expected), nil
	}
	return actual.GreaterThan(expected), nil
}

func (c *compiledCondition) compareSelected(raw interface{}) (bool, *Warning) {
	if !isChoiceField(c.field.Type) {
		return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("%s is not a choice field", c.cfg.Field))
	}
	switch c.field.Type {
	case config.FieldTypeCheckbox:
		checked, ok := boolValue(raw)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected bool value, got %T", raw))
		}
		return checked, nil
	case config.FieldTypeMultiSelect:
		set, ok := stringSet(raw)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected option list, got %T", raw))
		}
		expected, ok := stringValue(c.cfg.Value)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected option id, got %T", c.cfg.Value))
		}
		for _, option := range set {
			if option == expected {
				return true, nil
			}
		}
		return false, nil
	default:
		actual, ok := stringValue(raw)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected option id value, got %T", raw))
		}
		expected, ok := stringValue(c.cfg.Value)
		if !ok {
			return false, c.warn(warnConditionTypeMismatch, fmt.Sprintf("expected option id, got %T", c.cfg.Value))
		}
		return actual == expected, nil
	}
}

func (c *compiledCondition) warn(code, message string) *Warning {
	return &Warning{
		Condition: c.cfg.ID,
		Field:     c.cfg.Field,
		Code:      code,
		Message:   message,
	}
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, item := range a {
		seen[item]++
	}
	for _, item := range b {
		seen[item]--
		if seen[item] < 0 {
			return false
		}
	}
	return true
}
