package property

import (
	"fmt"

	"github.com/artpar/vizprops/core/convention"
	"github.com/artpar/vizprops/core/errs"
)

// Override redeclares an inherited property in a subtype, replacing its
// default and, with OverrideHelp, its help text. The validator and flags
// stay those of the inherited descriptor.
type Override struct {
	name    string
	set     optFlag
	def     any
	defFunc func() any
	help    string
}

// NewOverride accepts WithDefault, WithDefaultFunc and OverrideHelp.
func NewOverride(name string, opts ...Option) (*Override, error) {
	if !convention.IsIdentifier(name) {
		return nil, errs.Definition("%q is not a valid property name", name)
	}
	c := newConfig(opts)
	if c.set&^(optDefault|optDefaultFunc|optOverrideHelp) != 0 {
		return nil, errs.Definition("override of %q may only change the default and help", name)
	}
	if c.set&optDefault != 0 && c.set&optDefaultFunc != 0 {
		return nil, errs.Definition("override of %q has both a fixed and a computed default", name)
	}
	if c.set == 0 {
		return nil, errs.Definition("override of %q changes nothing", name)
	}
	return &Override{name: name, set: c.set, def: c.def, defFunc: c.defFunc, help: c.help}, nil
}

func MustOverride(name string, opts ...Option) *Override {
	o, err := NewOverride(name, opts...)
	if err != nil {
		panic(err)
	}
	return o
}

func (o *Override) Name() string { return o.name }

func (o *Override) Signature() string {
	s := "override " + o.name
	switch {
	case o.set&optDefault != 0:
		s += fmt.Sprintf(" default=%#v", o.def)
	case o.set&optDefaultFunc != 0:
		s += " default=<computed>"
	}
	if o.set&optOverrideHelp != 0 {
		s += fmt.Sprintf(" help=%q", o.help)
	}
	return s
}
