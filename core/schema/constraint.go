package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/property"
)

// Constraint narrows the validator of a declared property.
type Constraint struct {
	// Type is the constraint type (min, max, min_length, max_length, pattern, etc.)
	Type ConstraintType `yaml:"type" json:"type"`

	// Value is the constraint parameter (number, regex pattern, list of values).
	Value any `yaml:"value" json:"value,omitempty"`
}

// ConstraintType identifies the type of constraint.
type ConstraintType string

const (
	// Numeric constraints
	ConstraintMin ConstraintType = "min" // Minimum numeric value
	ConstraintMax ConstraintType = "max" // Maximum numeric value

	// Length constraints, on strings and containers
	ConstraintMinLength ConstraintType = "min_length"
	ConstraintMaxLength ConstraintType = "max_length"
	ConstraintNotEmpty  ConstraintType = "not_empty"

	// String constraints
	ConstraintPattern ConstraintType = "pattern" // Regex pattern match
	ConstraintOneOf   ConstraintType = "one_of"  // Value must be one of list

	// Boolean expression over `value`, e.g. "value % 2 == 0"
	ConstraintExpr ConstraintType = "expr"
)

// Valid reports whether t is a known constraint type.
func (t ConstraintType) Valid() bool {
	switch t {
	case ConstraintMin, ConstraintMax, ConstraintMinLength, ConstraintMaxLength,
		ConstraintNotEmpty, ConstraintPattern, ConstraintOneOf, ConstraintExpr:
		return true
	}
	return false
}

// ApplyConstraints folds constraints into v. Bounds combine into a single
// Interval or Len; pattern and one_of replace a String validator; expr
// constraints wrap the result in a Check. A Nullable validator is narrowed
// inside and stays nullable.
func ApplyConstraints(v *property.Validator, cs []Constraint) (*property.Validator, error) {
	if len(cs) == 0 {
		return v, nil
	}
	if v.Kind() == property.KindNullable {
		inner, err := ApplyConstraints(v.Elems()[0], cs)
		if err != nil {
			return nil, err
		}
		return property.Nullable(inner), nil
	}

	lo, hi := math.Inf(-1), math.Inf(1)
	minLen, maxLen := 0, -1
	var bounded, lengthed bool
	var checks []*exprCheck

	for _, c := range cs {
		switch c.Type {
		case ConstraintMin, ConstraintMax:
			if !isNumeric(v) {
				return nil, fmt.Errorf("%s applies to numbers, not %s", c.Type, v)
			}
			f, err := toFloat64(c.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", c.Type, err)
			}
			if c.Type == ConstraintMin {
				lo = f
			} else {
				hi = f
			}
			bounded = true

		case ConstraintMinLength, ConstraintMaxLength, ConstraintNotEmpty:
			if !hasLength(v) {
				return nil, fmt.Errorf("%s applies to strings and containers, not %s", c.Type, v)
			}
			switch c.Type {
			case ConstraintNotEmpty:
				minLen = max(minLen, 1)
			default:
				n, err := toInt(c.Value)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", c.Type, err)
				}
				if n < 0 {
					return nil, fmt.Errorf("%s must not be negative", c.Type)
				}
				if c.Type == ConstraintMinLength {
					minLen = max(minLen, n)
				} else {
					maxLen = n
				}
			}
			lengthed = true

		case ConstraintPattern:
			if v.Kind() != property.KindString {
				return nil, fmt.Errorf("pattern applies to String, not %s", v)
			}
			pattern, ok := c.Value.(string)
			if !ok {
				return nil, fmt.Errorf("pattern must be a string")
			}
			re, err := property.Regex(pattern)
			if err != nil {
				return nil, err
			}
			v = re

		case ConstraintOneOf:
			if v.Kind() != property.KindString {
				return nil, fmt.Errorf("one_of applies to String, not %s", v)
			}
			values, ok := c.Value.([]any)
			if !ok {
				return nil, fmt.Errorf("one_of must be a list")
			}
			e, err := enum.FromAny(values)
			if err != nil {
				return nil, fmt.Errorf("one_of: %w", err)
			}
			v = property.Enum(e)

		case ConstraintExpr:
			src, ok := c.Value.(string)
			if !ok || strings.TrimSpace(src) == "" {
				return nil, fmt.Errorf("expr must be a non-empty string")
			}
			check, err := compileCheck(src)
			if err != nil {
				return nil, err
			}
			checks = append(checks, check)

		default:
			return nil, fmt.Errorf("unknown constraint %q", c.Type)
		}
	}

	if bounded {
		if lo > hi {
			return nil, fmt.Errorf("min %v exceeds max %v", lo, hi)
		}
		v = property.Interval(v, lo, hi)
	}
	if lengthed {
		if maxLen >= 0 && minLen > maxLen {
			return nil, fmt.Errorf("min_length %d exceeds max_length %d", minLen, maxLen)
		}
		v = property.Len(v, minLen, maxLen)
	}
	for _, check := range checks {
		v = property.Check(v, check.source, check.eval)
	}
	return v, nil
}

// exprEnv holds the functions available to expr constraints besides the
// language builtins.
var exprEnv = []expr.Option{
	expr.Function("lower", func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("lower requires 1 argument")
		}
		return strings.ToLower(fmt.Sprint(params[0])), nil
	}),
	expr.Function("upper", func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("upper requires 1 argument")
		}
		return strings.ToUpper(fmt.Sprint(params[0])), nil
	}),
}

type exprCheck struct {
	source  string
	program *vm.Program
}

func compileCheck(src string) (*exprCheck, error) {
	opts := append([]expr.Option{
		expr.Env(map[string]any{"value": nil}),
		expr.AsBool(),
	}, exprEnv...)
	program, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("expr %q: %w", src, err)
	}
	return &exprCheck{source: src, program: program}, nil
}

func (c *exprCheck) eval(x any) error {
	out, err := expr.Run(c.program, map[string]any{"value": x})
	if err != nil {
		return err
	}
	if ok, _ := out.(bool); !ok {
		return fmt.Errorf("expression is false")
	}
	return nil
}

func isNumeric(v *property.Validator) bool {
	k := v.Kind()
	return k == property.KindInt || k == property.KindFloat
}

func hasLength(v *property.Validator) bool {
	switch v.Kind() {
	case property.KindString, property.KindRegex, property.KindSeq, property.KindDict:
		return true
	}
	return false
}

// ConstraintError represents a validation failure.
type ConstraintError struct {
	Property   string `json:"property"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
	Message    string `json:"message"`
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Property, e.Message)
}

// ValidationResult holds all validation errors for a property map.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ConstraintError `json:"errors,omitempty"`
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(prop, constraint string, value any, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ConstraintError{
		Property:   prop,
		Constraint: constraint,
		Value:      value,
		Message:    message,
	})
}

// Error returns a combined error message.
func (r ValidationResult) Error() string {
	if r.Valid {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// toFloat64 converts various numeric types to float64.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

// toInt converts various types to int.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}
