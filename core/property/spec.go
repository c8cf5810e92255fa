package property

import (
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/artpar/vizprops/core/convention"
	"github.com/artpar/vizprops/core/encoding"
	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/errs"
)

// SpecKind names a family of spec properties.
type SpecKind int

const (
	NumberSpec SpecKind = iota + 1
	StringSpec
	NullStringSpec
	ColorSpec
	AlphaSpec
	SizeSpec
	FontSizeSpec
	DashPatternSpec
	MarkerSpec
	AngleSpec
	DistanceSpec
	NullDistanceSpec
	// DataSpec carries a caller-supplied value validator.
	DataSpec
)

var specNames = map[SpecKind]string{
	NumberSpec:       "NumberSpec",
	StringSpec:       "StringSpec",
	NullStringSpec:   "NullStringSpec",
	ColorSpec:        "ColorSpec",
	AlphaSpec:        "AlphaSpec",
	SizeSpec:         "SizeSpec",
	FontSizeSpec:     "FontSizeSpec",
	DashPatternSpec:  "DashPatternSpec",
	MarkerSpec:       "MarkerSpec",
	AngleSpec:        "AngleSpec",
	DistanceSpec:     "DistanceSpec",
	NullDistanceSpec: "NullDistanceSpec",
	DataSpec:         "DataSpec",
}

func (k SpecKind) String() string {
	if s, ok := specNames[k]; ok {
		return s
	}
	return fmt.Sprintf("SpecKind(%d)", int(k))
}

// ParseSpecKind resolves a spec kind by name.
func ParseSpecKind(name string) (SpecKind, bool) {
	for k, s := range specNames {
		if s == name {
			return k, true
		}
	}
	return 0, false
}

// SpecKinds returns the names of every spec kind in sorted order.
func SpecKinds() []string {
	out := make([]string, 0, len(specNames))
	for _, s := range specNames {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// StringPolicy decides how a spec interprets a bare string assignment.
type StringPolicy int

const (
	// StringsAsFields treats every bare string as a field reference.
	StringsAsFields StringPolicy = iota
	// StringsAsValues treats every bare string as a literal value.
	StringsAsValues
	// StringsAsValuesIfValid treats strings the validator accepts as values
	// and anything else as a field reference.
	StringsAsValuesIfValid
)

const fontSizePattern = `(?i)^[0-9]+(\.[0-9]+)?(%|em|ex|ch|ic|rem|vw|vh|vi|vb|vmin|vmax|cm|mm|q|in|pc|pt|px)$`

type specKindInfo struct {
	validator    func() *Validator
	strings      StringPolicy
	def          any
	unitsEnum    string
	unitsDefault string
}

var specKinds = map[SpecKind]specKindInfo{
	NumberSpec:     {validator: Float},
	StringSpec:     {validator: String},
	NullStringSpec: {validator: func() *Validator { return Nullable(String()) }},
	ColorSpec: {
		validator: func() *Validator { return Nullable(Color()) },
		strings:   StringsAsValuesIfValid,
		def:       "black",
	},
	AlphaSpec: {validator: Percent, def: 1.0},
	SizeSpec:  {validator: func() *Validator { return NonNegative(Float()) }},
	FontSizeSpec: {
		validator: func() *Validator { return MustRegex(fontSizePattern) },
		strings:   StringsAsValuesIfValid,
		def:       "16px",
	},
	DashPatternSpec: {validator: DashPattern, strings: StringsAsValuesIfValid},
	MarkerSpec: {
		validator: func() *Validator { return NamedEnum("MarkerType", enum.MarkerType) },
		strings:   StringsAsValuesIfValid,
	},
	AngleSpec: {validator: Float, unitsEnum: "AngleUnits", unitsDefault: "rad"},
	DistanceSpec: {
		validator:    func() *Validator { return NonNegative(Float()) },
		unitsEnum:    "SpatialUnits",
		unitsDefault: "data",
	},
	NullDistanceSpec: {
		validator:    func() *Validator { return Nullable(NonNegative(Float())) },
		unitsEnum:    "SpatialUnits",
		unitsDefault: "data",
	},
}

type specConfig struct {
	kind    SpecKind
	strings StringPolicy
}

// NewSpec declares a spec property of a built-in kind.
func NewSpec(name string, kind SpecKind, opts ...Option) (*Descriptor, error) {
	info, ok := specKinds[kind]
	if !ok {
		return nil, errs.Definition("property %q: %s needs an explicit validator", name, kind)
	}
	return newSpec(name, kind, info.validator(), info, opts)
}

func MustNewSpec(name string, kind SpecKind, opts ...Option) *Descriptor {
	d, err := NewSpec(name, kind, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDataSpec declares a spec property whose values are checked by v.
func NewDataSpec(name string, v *Validator, opts ...Option) (*Descriptor, error) {
	if v == nil {
		return nil, errs.Definition("property %q has no validator", name)
	}
	return newSpec(name, DataSpec, v, specKindInfo{}, opts)
}

func newSpec(name string, kind SpecKind, v *Validator, info specKindInfo, opts []Option) (*Descriptor, error) {
	c := newConfig(opts)
	if c.set&optOverrideHelp != 0 {
		return nil, errs.Definition("property %q: OverrideHelp outside an override", name)
	}
	if c.set&optDatetime != 0 {
		v = Either(v, Datetime())
	}
	if c.set&optTimedelta != 0 {
		v = Either(v, Timedelta())
	}

	d, err := newDescriptor(name, v, c)
	if err != nil {
		return nil, err
	}
	d.spec = &specConfig{kind: kind, strings: info.strings}
	if c.set&optStrings != 0 {
		d.spec.strings = c.strings
	}

	switch {
	case info.unitsEnum != "":
		units := info.unitsDefault
		if c.set&optUnits != 0 {
			units = c.unitsDefault
		}
		e, _ := enum.Lookup(info.unitsEnum)
		d.units, err = New(convention.UnitsName(name), NamedEnum(info.unitsEnum, e),
			WithDefault(units),
			NotSerialized(),
			WithHelp("Units to use for the associated property: "+e.String()),
		)
		if err != nil {
			return nil, errs.Definition("property %q: units: %v", name, err)
		}
	case c.set&optUnits != 0:
		return nil, errs.Definition("property %q: %s has no units", name, kind)
	}

	switch {
	case c.set&optDefault != 0:
		sv, siblings, err := d.prepareSpec(c.def)
		if err != nil {
			return nil, errs.Definition("property %q: invalid default: %v", name, err)
		}
		if u, ok := siblings[d.unitsName()]; ok {
			d.units.def = u
		}
		d.def = sv
	case c.set&optDefaultFunc != 0:
	case info.def != nil:
		d.def = SpecValue{mode: ValueMode, value: info.def}
	default:
		d.def = SpecValue{mode: ValueMode, value: v.Zero()}
	}
	return d, nil
}

func (d *Descriptor) unitsName() string {
	if d.units == nil {
		return ""
	}
	return d.units.name
}

// StringPolicy returns how the spec interprets bare strings.
func (d *Descriptor) StringPolicy() StringPolicy {
	if d.spec == nil {
		return StringsAsValues
	}
	return d.spec.strings
}

func (d *Descriptor) prepareSpec(x any) (SpecValue, map[string]any, error) {
	switch v := x.(type) {
	case SpecValue:
		if v.mode == DictMode {
			return d.prepareDict(v.dict)
		}
		if v.mode == FieldMode {
			return d.fieldRef(v.field)
		}
		if err := d.validator.Validate(v.value); err != nil {
			return SpecValue{}, nil, err
		}
		return v.clone(), nil, nil
	case string:
		return d.prepareString(v)
	}

	if m, ok := encoding.AsMap(x); ok {
		return d.prepareDict(m)
	}
	if err := d.validator.Validate(x); err != nil {
		return SpecValue{}, nil, err
	}
	return SpecValue{mode: ValueMode, value: Clone(x)}, nil, nil
}

func (d *Descriptor) prepareString(s string) (SpecValue, map[string]any, error) {
	switch d.spec.strings {
	case StringsAsValues:
		if err := d.validator.Validate(s); err != nil {
			return SpecValue{}, nil, err
		}
		return SpecValue{mode: ValueMode, value: s}, nil, nil
	case StringsAsValuesIfValid:
		if d.validator.IsValid(s) {
			return SpecValue{mode: ValueMode, value: s}, nil, nil
		}
	}
	return d.fieldRef(s)
}

func (d *Descriptor) fieldRef(name string) (SpecValue, map[string]any, error) {
	if name == "" {
		return SpecValue{}, nil, errs.TypeMismatch("field reference of %q is empty", d.name)
	}
	return SpecValue{mode: FieldMode, field: name}, nil, nil
}

func (d *Descriptor) prepareDict(m map[string]any) (SpecValue, map[string]any, error) {
	value, hasValue := m["value"]
	field, hasField := m["field"]
	if hasValue == hasField {
		return SpecValue{}, nil, errs.Shape("%s: spec dictionary needs exactly one of \"value\" or \"field\"", d.name)
	}
	for k := range m {
		switch k {
		case "value", "field", "transform":
		case "units":
			if d.units == nil {
				return SpecValue{}, nil, errs.Shape("%s: %s has no units", d.name, d.spec.kind)
			}
		default:
			return SpecValue{}, nil, errs.Shape("%s: unexpected key %q in spec dictionary", d.name, k)
		}
	}

	if hasValue {
		if err := d.validator.Validate(value); err != nil {
			return SpecValue{}, nil, err
		}
	} else if s, ok := field.(string); !ok || s == "" {
		return SpecValue{}, nil, errs.TypeMismatch("%s: field must be a non-empty string, got %s", d.name, describe(field))
	}

	var siblings map[string]any
	if u, ok := m["units"]; ok {
		if err := d.units.validator.Validate(u); err != nil {
			return SpecValue{}, nil, fmt.Errorf("%s: %w", d.units.name, err)
		}
		siblings = map[string]any{d.units.name: u}
	}

	dict := make(map[string]any, len(m))
	for k, v := range m {
		if k != "units" {
			dict[k] = Clone(v)
		}
	}
	return SpecValue{mode: DictMode, dict: dict}, siblings, nil
}

func (d *Descriptor) prepareSpecWire(x, current any) (any, map[string]any, error) {
	next, siblings, err := d.prepareSpec(x)
	if err != nil {
		return nil, nil, err
	}
	cur, ok := current.(SpecValue)
	if !ok {
		return next, siblings, nil
	}
	switch {
	case cur.mode == DictMode && next.mode != DictMode:
		next = cur.withPayload(next)
	case cur.mode != DictMode && next.mode == DictMode:
		if bare, ok := next.bare(); ok {
			next = bare
		}
	}
	return next, siblings, nil
}

func (d *Descriptor) serializeSpec(owner Owner, stored any) any {
	var out map[string]any
	switch s := stored.(type) {
	case SpecValue:
		switch s.mode {
		case ValueMode:
			out = map[string]any{"value": d.validator.Serialize(s.value)}
		case FieldMode:
			out = map[string]any{"field": s.field}
		default:
			out = maps.Clone(s.dict)
			if v, ok := out["value"]; ok {
				out["value"] = d.validator.Serialize(v)
			}
			if t, ok := out["transform"].(Instance); ok && t != nil {
				out["transform"] = map[string]any{"id": t.ID()}
			}
		}
	default:
		if m, ok := encoding.AsMap(stored); ok {
			out = maps.Clone(m)
		} else {
			out = map[string]any{"value": d.validator.Serialize(stored)}
		}
	}

	if d.units != nil && owner != nil {
		if _, ok := out["units"]; !ok {
			if u, ok := owner.Value(d.units.name); ok && !Equal(u, d.units.def) {
				out["units"] = u
			}
		}
	}
	return out
}

// Mode is the representation kind of a SpecValue.
type Mode int

const (
	ValueMode Mode = iota
	FieldMode
	DictMode
)

func (m Mode) String() string {
	switch m {
	case ValueMode:
		return "value"
	case FieldMode:
		return "field"
	case DictMode:
		return "dict"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// SpecValue is the stored form of a spec property: a literal applied to
// every row, a reference to a named data column, or an explicit dictionary.
type SpecValue struct {
	mode  Mode
	value any
	field string
	dict  map[string]any
}

// Value returns an explicit {"value": v} dictionary.
func Value(v any) SpecValue {
	return SpecValue{mode: DictMode, dict: map[string]any{"value": v}}
}

// Field returns an explicit {"field": name} dictionary.
func Field(name string) SpecValue {
	return SpecValue{mode: DictMode, dict: map[string]any{"field": name}}
}

// Transformed returns a field reference with a transform applied on the
// rendering side.
func Transformed(name string, transform any) SpecValue {
	return SpecValue{mode: DictMode, dict: map[string]any{"field": name, "transform": transform}}
}

func (s SpecValue) Mode() Mode { return s.mode }

// Value returns the literal payload of value mode or a {"value"} dictionary.
func (s SpecValue) Value() (any, bool) {
	switch s.mode {
	case ValueMode:
		return s.value, true
	case DictMode:
		v, ok := s.dict["value"]
		return v, ok
	}
	return nil, false
}

// Field returns the column name of field mode or a {"field"} dictionary.
func (s SpecValue) Field() (string, bool) {
	switch s.mode {
	case FieldMode:
		return s.field, true
	case DictMode:
		f, ok := s.dict["field"].(string)
		return f, ok
	}
	return "", false
}

// Dict returns a copy of the dictionary of dict mode, or nil.
func (s SpecValue) Dict() map[string]any {
	if s.mode != DictMode {
		return nil
	}
	return Clone(s.dict).(map[string]any)
}

func (s SpecValue) String() string {
	switch s.mode {
	case FieldMode:
		return "field(" + s.field + ")"
	case DictMode:
		keys := make([]string, 0, len(s.dict))
		for k := range s.dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %v", k, s.dict[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(s.value)
}

func (s SpecValue) clone() SpecValue {
	out := s
	out.value = Clone(s.value)
	if s.dict != nil {
		out.dict = Clone(s.dict).(map[string]any)
	}
	return out
}

func (s SpecValue) equal(o SpecValue) bool {
	if s.mode != o.mode {
		return false
	}
	switch s.mode {
	case ValueMode:
		return Equal(s.value, o.value)
	case FieldMode:
		return s.field == o.field
	}
	return Equal(s.dict, o.dict)
}

// bare collapses a dictionary carrying nothing but a payload.
func (s SpecValue) bare() (SpecValue, bool) {
	if len(s.dict) != 1 {
		return s, false
	}
	if v, ok := s.dict["value"]; ok {
		return SpecValue{mode: ValueMode, value: v}, true
	}
	if f, ok := s.dict["field"].(string); ok {
		return SpecValue{mode: FieldMode, field: f}, true
	}
	return s, false
}

// withPayload keeps the dictionary of s and swaps in the payload of p.
func (s SpecValue) withPayload(p SpecValue) SpecValue {
	dict := Clone(s.dict).(map[string]any)
	delete(dict, "value")
	delete(dict, "field")
	if p.mode == FieldMode {
		dict["field"] = p.field
	} else {
		dict["value"] = p.value
	}
	return SpecValue{mode: DictMode, dict: dict}
}
