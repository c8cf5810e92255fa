package property

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/vizprops/core/encoding"
	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/errs"
)

// Kind identifies a validator variant.
type Kind int

const (
	KindAny Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindEnum
	KindRegex
	KindSeq
	KindDict
	KindTuple
	KindEither
	KindNullable
	KindInterval
	KindNonNegative
	KindPositive
	KindLen
	KindColor
	KindDashPattern
	KindDatetime
	KindTimedelta
	KindInstance
	KindCheck
)

var kindNames = [...]string{
	KindAny:         "Any",
	KindBool:        "Bool",
	KindInt:         "Int",
	KindFloat:       "Float",
	KindString:      "String",
	KindEnum:        "Enum",
	KindRegex:       "Regex",
	KindSeq:         "Seq",
	KindDict:        "Dict",
	KindTuple:       "Tuple",
	KindEither:      "Either",
	KindNullable:    "Nullable",
	KindInterval:    "Interval",
	KindNonNegative: "NonNegative",
	KindPositive:    "Positive",
	KindLen:         "Len",
	KindColor:       "Color",
	KindDashPattern: "DashPattern",
	KindDatetime:    "Datetime",
	KindTimedelta:   "Timedelta",
	KindInstance:    "Instance",
	KindCheck:       "Check",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Instance is implemented by schema object instances so that Instance
// validators can check references without depending on the model package.
// Implementations must tolerate nil receivers.
type Instance interface {
	ID() string
	TypeName() string
	// IsA reports whether the instance's type is name or derives from it.
	IsA(name string) bool
}

// Validator is a closed sum of validator kinds. Composite kinds hold their
// operands in elems: Seq [item], Dict [key, value], Tuple and Either their
// members, the wrapping kinds (Nullable, Interval, NonNegative, Positive,
// Len, Check) [inner].
//
// Validators are immutable once constructed and may be shared.
type Validator struct {
	kind     Kind
	elems    []*Validator
	enum     *enum.Enumeration
	enumName string
	pattern  *regexp.Regexp
	lo, hi   float64
	minLen   int
	maxLen   int
	typeName string
	check    Predicate
	source   string
}

// Predicate reports why x is rejected, or returns nil.
type Predicate func(x any) error

func Any() *Validator         { return &Validator{kind: KindAny} }
func Bool() *Validator        { return &Validator{kind: KindBool} }
func Int() *Validator         { return &Validator{kind: KindInt} }
func Float() *Validator       { return &Validator{kind: KindFloat} }
func String() *Validator      { return &Validator{kind: KindString} }
func Color() *Validator       { return &Validator{kind: KindColor} }
func DashPattern() *Validator { return &Validator{kind: KindDashPattern} }

// Datetime accepts time.Time values and RFC 3339 strings. The wire form is
// milliseconds since the Unix epoch.
func Datetime() *Validator { return &Validator{kind: KindDatetime} }

// Timedelta accepts time.Duration values. The wire form is milliseconds.
func Timedelta() *Validator { return &Validator{kind: KindTimedelta} }

// Enum accepts the tokens of an anonymous enumeration.
func Enum(e *enum.Enumeration) *Validator {
	return &Validator{kind: KindEnum, enum: e}
}

// NamedEnum accepts the tokens of a catalogued enumeration; the name is
// kept for documentation and type expressions.
func NamedEnum(name string, e *enum.Enumeration) *Validator {
	return &Validator{kind: KindEnum, enum: e, enumName: name}
}

// Regex accepts strings matching pattern.
func Regex(pattern string) (*Validator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errs.Definition("regex %q: %v", pattern, err)
	}
	return &Validator{kind: KindRegex, pattern: re}, nil
}

func MustRegex(pattern string) *Validator {
	v, err := Regex(pattern)
	if err != nil {
		panic(err)
	}
	return v
}

func Seq(item *Validator) *Validator {
	return &Validator{kind: KindSeq, elems: []*Validator{item}}
}

// Dict accepts maps with string keys matching key and values matching value.
func Dict(key, value *Validator) *Validator {
	return &Validator{kind: KindDict, elems: []*Validator{key, value}}
}

func Tuple(items ...*Validator) *Validator {
	return &Validator{kind: KindTuple, elems: items}
}

// Either accepts a value matching any branch. Branches are tried in
// declaration order and the first match decides the wire form.
func Either(branches ...*Validator) *Validator {
	return &Validator{kind: KindEither, elems: branches}
}

func Nullable(inner *Validator) *Validator {
	return &Validator{kind: KindNullable, elems: []*Validator{inner}}
}

// Interval accepts numbers matching inner within [lo, hi].
func Interval(inner *Validator, lo, hi float64) *Validator {
	return &Validator{kind: KindInterval, elems: []*Validator{inner}, lo: lo, hi: hi}
}

func NonNegative(inner *Validator) *Validator {
	return &Validator{kind: KindNonNegative, elems: []*Validator{inner}}
}

func Positive(inner *Validator) *Validator {
	return &Validator{kind: KindPositive, elems: []*Validator{inner}}
}

// Percent accepts numbers in [0, 1].
func Percent() *Validator { return Interval(Float(), 0, 1) }

// Byte accepts integers in [0, 255].
func Byte() *Validator { return Interval(Int(), 0, 255) }

// Len bounds the length of strings and sequences matching inner. A negative
// max leaves the length unbounded above.
func Len(inner *Validator, min, max int) *Validator {
	return &Validator{kind: KindLen, elems: []*Validator{inner}, minLen: min, maxLen: max}
}

// InstanceOf accepts schema object instances of typeName or its subtypes.
func InstanceOf(typeName string) *Validator {
	return &Validator{kind: KindInstance, typeName: typeName}
}

// Check accepts values matching inner that also satisfy pred. source names
// the predicate; it appears in String and so in type fingerprints.
func Check(inner *Validator, source string, pred Predicate) *Validator {
	return &Validator{kind: KindCheck, elems: []*Validator{inner}, check: pred, source: source}
}

func (v *Validator) Kind() Kind { return v.kind }

// Elems returns the operand validators of a composite kind.
func (v *Validator) Elems() []*Validator { return v.elems }

// Enumeration returns the token set of an Enum validator.
func (v *Validator) Enumeration() *enum.Enumeration { return v.enum }

// TypeName returns the referenced type of an Instance validator.
func (v *Validator) TypeName() string { return v.typeName }

// Bounds returns the limits of an Interval validator.
func (v *Validator) Bounds() (lo, hi float64) { return v.lo, v.hi }

// LenBounds returns the limits of a Len validator.
func (v *Validator) LenBounds() (min, max int) { return v.minLen, v.maxLen }

// Pattern returns the expression of a Regex validator.
func (v *Validator) Pattern() string {
	if v.pattern == nil {
		return ""
	}
	return v.pattern.String()
}

// IsValid reports whether x is accepted. It never mutates x.
func (v *Validator) IsValid(x any) bool {
	return v.Validate(x) == nil
}

// Validate returns an error wrapping errs.ErrTypeMismatch when x is rejected.
func (v *Validator) Validate(x any) error {
	switch v.kind {
	case KindAny:
		return nil

	case KindBool:
		if _, ok := x.(bool); ok {
			return nil
		}

	case KindInt:
		if _, ok := encoding.AsInt(x); ok {
			return nil
		}

	case KindFloat:
		if _, ok := encoding.AsFloat(x); ok {
			return nil
		}

	case KindString:
		if _, ok := x.(string); ok {
			return nil
		}

	case KindEnum:
		if s, ok := x.(string); ok {
			if v.enum.Contains(s) {
				return nil
			}
			return errs.TypeMismatch("%q is not one of %s", s, v.enum)
		}

	case KindRegex:
		if s, ok := x.(string); ok {
			if v.pattern.MatchString(s) {
				return nil
			}
			return errs.TypeMismatch("%q does not match %s", s, v.pattern)
		}

	case KindSeq:
		items, ok := encoding.AsSlice(x)
		if !ok {
			break
		}
		for i, item := range items {
			if err := v.elems[0].Validate(item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil

	case KindDict:
		m, ok := encoding.AsMap(x)
		if !ok {
			break
		}
		for key, val := range m {
			if err := v.elems[0].Validate(key); err != nil {
				return fmt.Errorf("key %q: %w", key, err)
			}
			if err := v.elems[1].Validate(val); err != nil {
				return fmt.Errorf("value of %q: %w", key, err)
			}
		}
		return nil

	case KindTuple:
		items, ok := encoding.AsSlice(x)
		if !ok {
			break
		}
		if len(items) != len(v.elems) {
			return errs.TypeMismatch("%s expects %d items, got %d", v, len(v.elems), len(items))
		}
		for i, item := range items {
			if err := v.elems[i].Validate(item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil

	case KindEither:
		if v.branch(x) != nil {
			return nil
		}

	case KindNullable:
		if x == nil {
			return nil
		}
		return v.elems[0].Validate(x)

	case KindInterval:
		if err := v.elems[0].Validate(x); err != nil {
			return err
		}
		f, ok := encoding.AsFloat(x)
		if !ok {
			break
		}
		if f < v.lo || f > v.hi {
			return errs.TypeMismatch("%v is outside [%s, %s]", x, formatBound(v.lo), formatBound(v.hi))
		}
		return nil

	case KindNonNegative, KindPositive:
		if err := v.elems[0].Validate(x); err != nil {
			return err
		}
		f, ok := encoding.AsFloat(x)
		if !ok {
			break
		}
		if f < 0 || (v.kind == KindPositive && f == 0) {
			return errs.TypeMismatch("%v is not %s", x, strings.ToLower(v.kind.String()))
		}
		return nil

	case KindLen:
		if err := v.elems[0].Validate(x); err != nil {
			return err
		}
		n, ok := length(x)
		if !ok {
			break
		}
		if n < v.minLen || (v.maxLen >= 0 && n > v.maxLen) {
			return errs.TypeMismatch("length %d is outside [%d, %s]", n, v.minLen, formatMaxLen(v.maxLen))
		}
		return nil

	case KindCheck:
		if err := v.elems[0].Validate(x); err != nil {
			return err
		}
		if err := v.check(x); err != nil {
			return errs.TypeMismatch("%s fails %s: %v", describe(x), v.source, err)
		}
		return nil

	case KindColor:
		_, err := encoding.EncodeColor(x)
		return err

	case KindDashPattern:
		_, err := encoding.EncodeDash(x)
		return err

	case KindDatetime:
		if _, ok := asTime(x); ok {
			return nil
		}

	case KindTimedelta:
		if _, ok := x.(time.Duration); ok {
			return nil
		}

	case KindInstance:
		inst, ok := x.(Instance)
		if !ok || inst == nil {
			break
		}
		if inst.IsA(v.typeName) {
			return nil
		}
		return errs.TypeMismatch("%s is not an instance of %s", inst.TypeName(), v.typeName)
	}

	return errs.TypeMismatch("expected %s, got %s", v, describe(x))
}

// branch returns the first Either branch accepting x.
func (v *Validator) branch(x any) *Validator {
	for _, b := range v.elems {
		if b.IsValid(x) {
			return b
		}
	}
	return nil
}

// IsContainer reports whether accepted values may be sequences or mappings
// that need copying before being handed to an instance.
func (v *Validator) IsContainer() bool {
	switch v.kind {
	case KindSeq, KindDict, KindTuple, KindDashPattern:
		return true
	case KindAny:
		return false
	}
	for _, e := range v.elems {
		if e.IsContainer() {
			return true
		}
	}
	return false
}

// HasRefs reports whether accepted values may reference other instances.
func (v *Validator) HasRefs() bool {
	if v.kind == KindInstance {
		return true
	}
	for _, e := range v.elems {
		if e.HasRefs() {
			return true
		}
	}
	return false
}

// Serialize returns the wire form of x. Values the validator rejects are
// returned unchanged.
func (v *Validator) Serialize(x any) any {
	switch v.kind {
	case KindColor:
		if s, err := encoding.EncodeColor(x); err == nil {
			return s
		}
	case KindDashPattern:
		if d, err := encoding.EncodeDash(x); err == nil {
			return d
		}
	case KindDatetime:
		if t, ok := asTime(x); ok {
			return float64(t.UnixNano()) / 1e6
		}
	case KindTimedelta:
		if d, ok := x.(time.Duration); ok {
			return float64(d) / float64(time.Millisecond)
		}
	case KindInstance:
		if inst, ok := x.(Instance); ok && inst != nil {
			return map[string]any{"id": inst.ID()}
		}
	case KindSeq:
		if items, ok := encoding.AsSlice(x); ok {
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = v.elems[0].Serialize(item)
			}
			return out
		}
	case KindTuple:
		if items, ok := encoding.AsSlice(x); ok && len(items) == len(v.elems) {
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = v.elems[i].Serialize(item)
			}
			return out
		}
	case KindDict:
		if m, ok := encoding.AsMap(x); ok {
			out := make(map[string]any, len(m))
			for k, val := range m {
				out[k] = v.elems[1].Serialize(val)
			}
			return out
		}
	case KindEither:
		if b := v.branch(x); b != nil {
			return b.Serialize(x)
		}
	case KindNullable, KindInterval, KindNonNegative, KindPositive, KindLen, KindCheck:
		if x != nil {
			return v.elems[0].Serialize(x)
		}
	}
	return x
}

// Zero returns the implicit default of a property declared without one, or
// nil when the kind has no natural zero value.
func (v *Validator) Zero() any {
	switch v.kind {
	case KindBool:
		return false
	case KindInt:
		return 0
	case KindFloat:
		return 0.0
	case KindString:
		return ""
	case KindEnum:
		return v.enum.Default()
	case KindSeq:
		return []any{}
	case KindDict:
		return map[string]any{}
	case KindColor:
		return "black"
	case KindDashPattern:
		return "solid"
	case KindTimedelta:
		return time.Duration(0)
	case KindTuple:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			out[i] = e.Zero()
		}
		if v.IsValid(out) {
			return out
		}
	case KindEither:
		if len(v.elems) > 0 {
			return v.elems[0].Zero()
		}
	case KindInterval:
		isInt := v.elems[0].kind == KindInt
		switch {
		case !math.IsInf(v.lo, -1):
			if isInt {
				return int(math.Ceil(v.lo))
			}
			return v.lo
		case v.IsValid(v.elems[0].Zero()):
			return v.elems[0].Zero()
		case !math.IsInf(v.hi, 1):
			if isInt {
				return int(math.Floor(v.hi))
			}
			return v.hi
		}
	case KindRegex:
		if v.pattern.MatchString("") {
			return ""
		}
	case KindNonNegative, KindLen, KindCheck:
		if z := v.elems[0].Zero(); z != nil && v.IsValid(z) {
			return z
		}
	}
	return nil
}

// String renders the validator as a type expression understood by ParseType.
func (v *Validator) String() string {
	switch v.kind {
	case KindEnum:
		if v.enumName != "" {
			return "Enum(" + v.enumName + ")"
		}
		quoted := make([]string, 0, v.enum.Len())
		for tok := range v.enum.All() {
			quoted = append(quoted, strconv.Quote(tok))
		}
		return "Enum(" + strings.Join(quoted, ", ") + ")"
	case KindRegex:
		return "Regex(" + strconv.Quote(v.pattern.String()) + ")"
	case KindInstance:
		return "Instance(" + v.typeName + ")"
	case KindInterval:
		if v.lo == 0 && v.hi == 1 && v.elems[0].kind == KindFloat {
			return "Percent"
		}
		if v.lo == 0 && v.hi == 255 && v.elems[0].kind == KindInt {
			return "Byte"
		}
		return fmt.Sprintf("Interval(%s, %s, %s)", v.elems[0], formatBound(v.lo), formatBound(v.hi))
	case KindLen:
		return fmt.Sprintf("Len(%s, %d, %d)", v.elems[0], v.minLen, v.maxLen)
	case KindCheck:
		// Not understood by ParseType.
		return fmt.Sprintf("Check(%s, %s)", v.elems[0], strconv.Quote(v.source))
	}

	if len(v.elems) == 0 {
		return v.kind.String()
	}
	parts := make([]string, len(v.elems))
	for i, e := range v.elems {
		parts[i] = e.String()
	}
	return v.kind.String() + "(" + strings.Join(parts, ", ") + ")"
}

func length(x any) (int, bool) {
	if s, ok := x.(string); ok {
		return len([]rune(s)), true
	}
	if items, ok := encoding.AsSlice(x); ok {
		return len(items), true
	}
	if m, ok := encoding.AsMap(x); ok {
		return len(m), true
	}
	return 0, false
}

func asTime(x any) (time.Time, bool) {
	switch t := x.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatMaxLen(n int) string {
	if n < 0 {
		return "inf"
	}
	return strconv.Itoa(n)
}

func describe(x any) string {
	if x == nil {
		return "null"
	}
	switch x.(type) {
	case string:
		return fmt.Sprintf("string %q", x)
	case bool:
		return fmt.Sprintf("bool %v", x)
	}
	if _, ok := encoding.AsFloat(x); ok {
		return fmt.Sprintf("number %v", x)
	}
	return fmt.Sprintf("%T", x)
}
