package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// File is one parsed definition file.
type File struct {
	Path  string   `yaml:"-"`
	Enums EnumDefs `yaml:"enums"`
	Types TypeDefs `yaml:"types"`
}

// EnumDef declares a named enumeration. The short form is a plain list of
// values.
type EnumDef struct {
	Name            string   `yaml:"-"`
	Values          []string `yaml:"values"`
	CaseInsensitive bool     `yaml:"case_insensitive"`
	Quoted          bool     `yaml:"quoted"`
	Line            int      `yaml:"-"`
}

func (e *EnumDef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		return n.Decode(&e.Values)
	}
	type plain EnumDef
	return n.Decode((*plain)(e))
}

// TypeDef declares one type or bundle.
type TypeDef struct {
	Name       string       `yaml:"-"`
	Doc        string       `yaml:"doc"`
	Bundle     bool         `yaml:"bundle"`
	Extends    Names        `yaml:"extends"`
	Include    []IncludeDef `yaml:"include"`
	Properties PropertyDefs `yaml:"properties"`
	Overrides  OverrideDefs `yaml:"overrides"`
	Line       int          `yaml:"-"`
}

// Dependencies returns the names of the bases and bundles the type needs,
// in declaration order.
func (t *TypeDef) Dependencies() []string {
	deps := append([]string(nil), t.Extends...)
	for _, inc := range t.Include {
		deps = append(deps, inc.Bundle)
	}
	return deps
}

// IncludeDef grafts a bundle's properties under a prefix.
type IncludeDef struct {
	Bundle string `yaml:"bundle"`
	Prefix string `yaml:"prefix"`
	Help   string `yaml:"help"`
}

// PropertyDef declares one property. A scalar node is shorthand for a type
// expression.
type PropertyDef struct {
	Name            string       `yaml:"-"`
	Type            string       `yaml:"type"`
	Spec            string       `yaml:"spec"`
	Default         any          `yaml:"default"`
	HasDefault      bool         `yaml:"-"`
	Help            string       `yaml:"help"`
	Readonly        bool         `yaml:"readonly"`
	Serialized      *bool        `yaml:"serialized"`
	Units           string       `yaml:"units"`
	Strings         string       `yaml:"strings"`
	AcceptDatetime  bool         `yaml:"accept_datetime"`
	AcceptTimedelta bool         `yaml:"accept_timedelta"`
	Constraints     []Constraint `yaml:"constraints"`
	Line            int          `yaml:"-"`
}

func (p *PropertyDef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		p.Type = n.Value
		return nil
	}
	type plain PropertyDef
	if err := n.Decode((*plain)(p)); err != nil {
		return err
	}
	p.HasDefault = hasKey(n, "default")
	return nil
}

// OverrideDef replaces the default or help of an inherited property.
type OverrideDef struct {
	Name       string `yaml:"-"`
	Default    any    `yaml:"default"`
	HasDefault bool   `yaml:"-"`
	Help       string `yaml:"help"`
	Line       int    `yaml:"-"`
}

func (o *OverrideDef) UnmarshalYAML(n *yaml.Node) error {
	type plain OverrideDef
	if err := n.Decode((*plain)(o)); err != nil {
		return err
	}
	o.HasDefault = hasKey(n, "default")
	return nil
}

// Names is a list of names that may be written as a single scalar.
type Names []string

func (ns *Names) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*ns = Names{n.Value}
		return nil
	}
	var list []string
	if err := n.Decode(&list); err != nil {
		return err
	}
	*ns = list
	return nil
}

// EnumDefs keeps enumerations in file order.
type EnumDefs []*EnumDef

func (es *EnumDefs) UnmarshalYAML(n *yaml.Node) error {
	return eachEntry(n, "enums", func(key, value *yaml.Node) error {
		e := &EnumDef{}
		if err := value.Decode(e); err != nil {
			return err
		}
		e.Name, e.Line = key.Value, key.Line
		*es = append(*es, e)
		return nil
	})
}

// TypeDefs keeps types in file order.
type TypeDefs []*TypeDef

func (ts *TypeDefs) UnmarshalYAML(n *yaml.Node) error {
	return eachEntry(n, "types", func(key, value *yaml.Node) error {
		t := &TypeDef{}
		if err := value.Decode(t); err != nil {
			return err
		}
		t.Name, t.Line = key.Value, key.Line
		*ts = append(*ts, t)
		return nil
	})
}

// PropertyDefs keeps properties in declaration order.
type PropertyDefs []*PropertyDef

func (ps *PropertyDefs) UnmarshalYAML(n *yaml.Node) error {
	return eachEntry(n, "properties", func(key, value *yaml.Node) error {
		p := &PropertyDef{}
		if err := value.Decode(p); err != nil {
			return err
		}
		p.Name, p.Line = key.Value, key.Line
		*ps = append(*ps, p)
		return nil
	})
}

// OverrideDefs keeps overrides in declaration order.
type OverrideDefs []*OverrideDef

func (ods *OverrideDefs) UnmarshalYAML(n *yaml.Node) error {
	return eachEntry(n, "overrides", func(key, value *yaml.Node) error {
		o := &OverrideDef{}
		if err := value.Decode(o); err != nil {
			return err
		}
		o.Name, o.Line = key.Value, key.Line
		*ods = append(*ods, o)
		return nil
	})
}

// eachEntry walks a mapping node in order, rejecting repeated keys.
func eachEntry(n *yaml.Node, section string, fn func(key, value *yaml.Node) error) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %s must be a mapping", n.Line, section)
	}
	seen := make(map[string]int, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if first, ok := seen[key.Value]; ok {
			return fmt.Errorf("line %d: %s: %q already defined at line %d", key.Line, section, key.Value, first)
		}
		seen[key.Value] = key.Line
		if err := fn(key, value); err != nil {
			return fmt.Errorf("%s.%s: %w", section, key.Value, err)
		}
	}
	return nil
}

func hasKey(n *yaml.Node, key string) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}
