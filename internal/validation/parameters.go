package validation

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"query-registry-mcp/pkg/models"
)

// BoundParams is the validated, type-correct bind set for one execution.
// Names preserve schema order so binding and template rendering are
// deterministic.
type BoundParams struct {
	names  []string
	values map[string]any
}

func newBoundParams() *BoundParams {
	return &BoundParams{values: make(map[string]any)}
}

func (b *BoundParams) set(name string, value any) {
	if _, ok := b.values[name]; !ok {
		b.names = append(b.names, name)
	}
	b.values[name] = value
}

// Get returns the bound value for name.
func (b *BoundParams) Get(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Names returns the bound parameter names in schema order.
func (b *BoundParams) Names() []string {
	return append([]string(nil), b.names...)
}

// Values returns a copy of the bind map, safe to hand to the store driver.
func (b *BoundParams) Values() map[string]any {
	out := make(map[string]any, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Len returns the number of bound parameters.
func (b *BoundParams) Len() int {
	return len(b.names)
}

// Validate type-checks and coerces caller-supplied values against the
// declared schema, applying defaults for omitted optional parameters.
// Any raw key not declared in the schema is rejected: only declared, typed
// binds ever reach a statement.
func Validate(schema []models.ParameterSpec, raw map[string]any) (*BoundParams, error) {
	declared := make(map[string]bool, len(schema))
	for _, spec := range schema {
		declared[spec.Name] = true
	}
	var unknown []string
	for name := range raw {
		if !declared[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &Error{
			Kind:   UnknownParameter,
			Param:  unknown[0],
			Detail: fmt.Sprintf("not declared by this query (declared parameters: %d)", len(schema)),
		}
	}

	bound := newBoundParams()
	for _, spec := range schema {
		value, supplied := raw[spec.Name]
		if !supplied {
			if spec.Required {
				return nil, &Error{
					Kind:   MissingParameter,
					Param:  spec.Name,
					Detail: "missing required parameter",
				}
			}
			if spec.Default == nil {
				continue
			}
			value = spec.Default
		}

		coerced, err := coerce(spec.Name, spec.Type, value)
		if err != nil {
			return nil, err
		}

		if spec.AllowedValues != nil && !inAllowedSet(coerced, spec.AllowedValues) {
			return nil, &Error{
				Kind:   DisallowedValue,
				Param:  spec.Name,
				Detail: fmt.Sprintf("must be one of %v, got %v", spec.AllowedValues, coerced),
			}
		}

		bound.set(spec.Name, coerced)
	}
	return bound, nil
}

// coerce converts value to the declared type. Each type tag has exactly one
// coercion path; extending the type system means adding a case here.
func coerce(name string, typ models.ParamType, value any) (any, error) {
	switch typ {
	case models.ParamTypeNumber:
		return coerceNumber(name, value)
	case models.ParamTypeText:
		return coerceText(name, value)
	case models.ParamTypeDate:
		return coerceDate(name, value)
	case models.ParamTypeTimestamp:
		return coerceTimestamp(name, value)
	default:
		return nil, &Error{
			Kind:   TypeMismatch,
			Param:  name,
			Detail: fmt.Sprintf("declared type %q is not supported", typ),
		}
	}
}

func coerceNumber(name string, value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return nil, mismatch(name, models.ParamTypeNumber, "bool")
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
		return nil, mismatch(name, models.ParamTypeNumber, fmt.Sprintf("string %q", v))
	default:
		return nil, mismatch(name, models.ParamTypeNumber, typeName(value))
	}
}

func coerceText(name string, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		// structural or numeric values never pass as TEXT
		return nil, mismatch(name, models.ParamTypeText, typeName(value))
	}
	return s, nil
}

func coerceDate(name string, value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, &Error{
				Kind:   TypeMismatch,
				Param:  name,
				Detail: fmt.Sprintf("expects an ISO date (YYYY-MM-DD), got %q", v),
			}
		}
		return t, nil
	default:
		return nil, mismatch(name, models.ParamTypeDate, typeName(value))
	}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func coerceTimestamp(name string, value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, &Error{
			Kind:   TypeMismatch,
			Param:  name,
			Detail: fmt.Sprintf("expects an ISO datetime, got %q", v),
		}
	default:
		return nil, mismatch(name, models.ParamTypeTimestamp, typeName(value))
	}
}

func mismatch(name string, expected models.ParamType, got string) *Error {
	return &Error{
		Kind:   TypeMismatch,
		Param:  name,
		Detail: fmt.Sprintf("expects %s, got %s", expected, got),
	}
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

// inAllowedSet compares the coerced value against the declared closed set.
// Numeric members compare by value regardless of integer/decimal form.
func inAllowedSet(value any, allowed []any) bool {
	for _, a := range allowed {
		if equalValue(value, a) {
			return true
		}
	}
	return false
}

func equalValue(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
