package engine

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TarikAI/RevoForms-sub004/config"
)

// coerceDecimal converts a snapshot value into a decimal for numeric
// comparison. Strings are parsed; booleans map to 0/1.
func coerceDecimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, fmt.Errorf("decimal pointer is nil")
		}
		return *v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int8:
		return decimal.NewFromInt(int64(v)), nil
	case int16:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint:
		return decimal.NewFromInt(int64(v)), nil
	case uint8:
		return decimal.NewFromInt(int64(v)), nil
	case uint16:
		return decimal.NewFromInt(int64(v)), nil
	case uint32:
		return decimal.NewFromInt(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return decimal.Zero, fmt.Errorf("value %d overflows supported range", v)
		}
		return decimal.NewFromInt(int64(v)), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("invalid float value %v", v)
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		return coerceDecimal(float64(v))
	case bool:
		if v {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	case string:
		dec, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse decimal from string: %w", err)
		}
		return dec, nil
	default:
		return decimal.Zero, fmt.Errorf("expected number-compatible value, got %T", value)
	}
}

// coerceFloat converts a snapshot value into a float64 for calculation
// environments.
func coerceFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("invalid float value %v", v)
		}
		return v, nil
	case float32:
		return coerceFloat(float64(v))
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("parse float from string: %w", err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("expected number-compatible value, got %T", value)
	}
}

// stringValue renders a scalar snapshot value in its string form.
func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case decimal.Decimal:
		return v.String(), true
	default:
		return "", false
	}
}

// stringSet renders a multi-select snapshot value as a slice of option ids.
func stringSet(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := stringValue(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		if v == "" {
			return nil, true
		}
		return []string{v}, true
	default:
		return nil, false
	}
}

func boolValue(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return false, false
		}
		return parsed, true
	case int:
		return v != 0, true
	case float64:
		return v != 0, true
	default:
		return false, false
	}
}

// isEmptyValue reports whether a value counts as empty: nil, empty string or
// empty collection.
func isEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	default:
		return false
	}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", time.RFC3339Nano}

// parseDate converts a date field value into a time.Time.
func parseDate(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, fmt.Errorf("date string is empty")
		}
		for _, layout := range dateLayouts {
			parsed, err := time.Parse(layout, v)
			if err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("parse date value %q: unsupported format", v)
	default:
		return time.Time{}, fmt.Errorf("expected date-compatible value, got %T", value)
	}
}

// coerceFieldValue converts an action or calculation result into the target
// field's value type.
func coerceFieldValue(field *config.FieldConfig, value interface{}) (interface{}, error) {
	switch field.Type {
	case config.FieldTypeNumber:
		return coerceFloat(value)
	case config.FieldTypeCheckbox:
		b, ok := boolValue(value)
		if !ok {
			return nil, fmt.Errorf("expected bool-compatible value, got %T", value)
		}
		return b, nil
	case config.FieldTypeMultiSelect:
		set, ok := stringSet(value)
		if !ok {
			return nil, fmt.Errorf("expected option list, got %T", value)
		}
		for _, option := range set {
			if !hasOption(field, option) {
				return nil, fmt.Errorf("field %s has no option %q", field.ID, option)
			}
		}
		return set, nil
	case config.FieldTypeSelect, config.FieldTypeRadio:
		s, ok := stringValue(value)
		if !ok {
			return nil, fmt.Errorf("expected option id, got %T", value)
		}
		if !hasOption(field, s) {
			return nil, fmt.Errorf("field %s has no option %q", field.ID, s)
		}
		return s, nil
	case config.FieldTypeDate:
		return parseDate(value)
	default:
		s, ok := stringValue(value)
		if !ok {
			return nil, fmt.Errorf("expected string-compatible value, got %T", value)
		}
		return s, nil
	}
}
