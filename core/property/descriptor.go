package property

import (
	"fmt"
	"strings"

	"github.com/artpar/vizprops/core/convention"
	"github.com/artpar/vizprops/core/errs"
)

// Owner gives serialization read access to the other values of the
// instance that holds a property.
type Owner interface {
	Value(name string) (any, bool)
}

// Descriptor declares one typed attribute. A descriptor is shared by every
// instance of the types that declare or inherit it; instances hold only
// the values that deviate from its default.
type Descriptor struct {
	name       string
	validator  *Validator
	def        any
	defFunc    func() any
	help       string
	serialized bool
	readonly   bool

	spec  *specConfig
	units *Descriptor
}

// New declares a plain property.
func New(name string, v *Validator, opts ...Option) (*Descriptor, error) {
	c := newConfig(opts)
	if c.set&(specOnly|optOverrideHelp) != 0 {
		return nil, errs.Definition("property %q: spec or override option on a plain property", name)
	}
	d, err := newDescriptor(name, v, c)
	if err != nil {
		return nil, err
	}

	switch {
	case c.set&optDefault != 0:
		if err := v.Validate(c.def); err != nil {
			return nil, errs.Definition("property %q: invalid default: %v", name, err)
		}
		d.def = Clone(c.def)
	case c.set&optDefaultFunc == 0:
		d.def = v.Zero()
	}
	return d, nil
}

// MustNew is New for package-level declarations.
func MustNew(name string, v *Validator, opts ...Option) *Descriptor {
	d, err := New(name, v, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func newDescriptor(name string, v *Validator, c *config) (*Descriptor, error) {
	if !convention.IsIdentifier(name) {
		return nil, errs.Definition("%q is not a valid property name", name)
	}
	if v == nil {
		return nil, errs.Definition("property %q has no validator", name)
	}
	if c.set&optDefault != 0 && c.set&optDefaultFunc != 0 {
		return nil, errs.Definition("property %q has both a fixed and a computed default", name)
	}
	return &Descriptor{
		name:       name,
		validator:  v,
		defFunc:    c.defFunc,
		help:       c.help,
		serialized: c.serialized,
		readonly:   c.readonly,
	}, nil
}

func (d *Descriptor) Name() string          { return d.name }
func (d *Descriptor) Validator() *Validator { return d.validator }
func (d *Descriptor) Help() string          { return d.help }
func (d *Descriptor) Serialized() bool      { return d.serialized }
func (d *Descriptor) Readonly() bool        { return d.readonly }

// IsSpec reports whether the property stores a SpecValue.
func (d *Descriptor) IsSpec() bool { return d.spec != nil }

// SpecKind returns the spec kind, or 0 for plain properties.
func (d *Descriptor) SpecKind() SpecKind {
	if d.spec == nil {
		return 0
	}
	return d.spec.kind
}

// Units returns the units companion of a units spec.
func (d *Descriptor) Units() *Descriptor { return d.units }

func (d *Descriptor) IsContainer() bool { return d.validator.IsContainer() }
func (d *Descriptor) HasRefs() bool     { return d.validator.HasRefs() }

// HasComputedDefault reports whether the default is produced per instance.
func (d *Descriptor) HasComputedDefault() bool { return d.defFunc != nil }

// FixedDefault returns the type-level default. The returned value is shared
// and must not be mutated.
func (d *Descriptor) FixedDefault() (any, bool) {
	if d.defFunc != nil {
		return nil, false
	}
	return d.def, true
}

// NewDefault returns a default value owned by the caller: a copy of the
// fixed default, or a fresh result of the producer.
func (d *Descriptor) NewDefault() any {
	if d.defFunc == nil {
		return Clone(d.def)
	}
	v := d.defFunc()
	if d.spec != nil {
		if sv, _, err := d.prepareSpec(v); err == nil {
			return sv
		}
	}
	return v
}

// IsValid reports whether x may be assigned.
func (d *Descriptor) IsValid(x any) bool {
	_, _, err := d.Prepare(x)
	return err == nil
}

// Prepare validates an ordinary assignment of x and returns the value to
// store. Spec properties may also return updates for sibling properties.
// Nothing is stored when an error is returned.
func (d *Descriptor) Prepare(x any) (stored any, siblings map[string]any, err error) {
	if d.spec != nil {
		return d.prepareSpec(x)
	}
	if err := d.validator.Validate(x); err != nil {
		return nil, nil, err
	}
	return Clone(x), nil, nil
}

// PrepareWire is Prepare for updates that arrive in wire form. It keeps the
// representation of current where the incoming payload allows it.
func (d *Descriptor) PrepareWire(x, current any) (stored any, siblings map[string]any, err error) {
	if d.spec != nil {
		return d.prepareSpecWire(x, current)
	}
	return d.Prepare(x)
}

// SerializableValue returns the wire form of stored. It never fails:
// values that no longer validate are emitted as they are.
func (d *Descriptor) SerializableValue(owner Owner, stored any) any {
	if d.spec != nil {
		return d.serializeSpec(owner, stored)
	}
	return d.validator.Serialize(stored)
}

// Grafted returns a copy renamed for an Include, with the group description
// substituted into the help text. The units companion follows the rename.
func (d *Descriptor) Grafted(name, group string) *Descriptor {
	nd := *d
	nd.name = name
	nd.help = convention.ExpandHelp(d.help, group)
	if d.units != nil {
		nd.units = d.units.Grafted(convention.UnitsName(name), group)
	}
	return &nd
}

// Overridden returns a copy with the default, and optionally the help text,
// replaced by o. Everything else is inherited unchanged.
func (d *Descriptor) Overridden(o *Override) (*Descriptor, error) {
	nd := *d
	switch {
	case o.set&optDefault != 0:
		def, err := d.checkDefault(o.def)
		if err != nil {
			return nil, errs.Definition("override of %q: invalid default: %v", d.name, err)
		}
		nd.def, nd.defFunc = def, nil
	case o.set&optDefaultFunc != 0:
		nd.def, nd.defFunc = nil, o.defFunc
	}
	if o.set&optOverrideHelp != 0 {
		nd.help = o.help
	}
	return &nd, nil
}

func (d *Descriptor) checkDefault(v any) (any, error) {
	if d.spec != nil {
		sv, _, err := d.prepareSpec(v)
		return sv, err
	}
	if err := d.validator.Validate(v); err != nil {
		return nil, err
	}
	return Clone(v), nil
}

// Signature is a stable textual rendering of everything that defines the
// descriptor, used to fingerprint type declarations.
func (d *Descriptor) Signature() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s", d.name, d.validator)
	if d.spec != nil {
		fmt.Fprintf(&b, " spec=%s", d.spec.kind)
	}
	if d.defFunc != nil {
		b.WriteString(" default=<computed>")
	} else {
		fmt.Fprintf(&b, " default=%#v", d.def)
	}
	fmt.Fprintf(&b, " serialized=%t readonly=%t help=%q", d.serialized, d.readonly, d.help)
	if d.units != nil {
		fmt.Fprintf(&b, " units=(%s)", d.units.Signature())
	}
	return b.String()
}

func (d *Descriptor) String() string {
	return d.name + ": " + d.TypeString()
}

// TypeString renders the declared type, e.g. "ColorSpec" or "Seq(Int)".
func (d *Descriptor) TypeString() string {
	if d.spec != nil {
		if d.spec.kind == DataSpec {
			return "DataSpec(" + d.validator.String() + ")"
		}
		return d.spec.kind.String()
	}
	return d.validator.String()
}
