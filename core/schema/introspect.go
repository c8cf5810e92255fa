package schema

import (
	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/model"
)

// TypeListResponse is returned by GET /types
type TypeListResponse struct {
	Types []TypeSummary `json:"types" yaml:"types"`
	Count int           `json:"count" yaml:"count"`
}

// TypeSummary provides a brief overview of a type.
type TypeSummary struct {
	Name        string   `json:"name" yaml:"name"`
	Doc         string   `json:"doc,omitempty" yaml:"doc,omitempty"`
	Bundle      bool     `json:"bundle,omitempty" yaml:"bundle,omitempty"`
	Bases       []string `json:"bases,omitempty" yaml:"bases,omitempty"`
	Properties  int      `json:"properties" yaml:"properties"`
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
}

// TypeSchema is returned by GET /types/{name}
type TypeSchema struct {
	Type        string           `json:"type" yaml:"type"`
	Doc         string           `json:"doc,omitempty" yaml:"doc,omitempty"`
	Bundle      bool             `json:"bundle,omitempty" yaml:"bundle,omitempty"`
	Bases       []string         `json:"bases,omitempty" yaml:"bases,omitempty"`
	Fingerprint string           `json:"fingerprint" yaml:"fingerprint"`
	Properties  []PropertySchema `json:"properties" yaml:"properties"`
	Includes    []IncludeSchema  `json:"includes,omitempty" yaml:"includes,omitempty"`
	Overrides   []string         `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	Containers  []string         `json:"containers,omitempty" yaml:"containers,omitempty"`
	Refs        []string         `json:"refs,omitempty" yaml:"refs,omitempty"`
	Specs       []string         `json:"specs,omitempty" yaml:"specs,omitempty"`
}

// PropertySchema describes a property for introspection.
type PropertySchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Computed    bool   `json:"computed_default,omitempty" yaml:"computed_default,omitempty"`
	Help        string `json:"help,omitempty" yaml:"help,omitempty"`
	Serialized  bool   `json:"serialized" yaml:"serialized"`
	Readonly    bool   `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Units       string `json:"units,omitempty" yaml:"units,omitempty"` // companion property name
	DeclaredBy  string `json:"declared_by" yaml:"declared_by"`
	GraftedFrom string `json:"grafted_from,omitempty" yaml:"grafted_from,omitempty"`
}

// IncludeSchema describes a bundle grafted into a type.
type IncludeSchema struct {
	Bundle string `json:"bundle" yaml:"bundle"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Help   string `json:"help,omitempty" yaml:"help,omitempty"`
}

// EnumSchema describes a named enumeration.
type EnumSchema struct {
	Name          string   `json:"name" yaml:"name"`
	Values        []string `json:"values" yaml:"values"`
	Default       string   `json:"default" yaml:"default"`
	CaseSensitive bool     `json:"case_sensitive" yaml:"case_sensitive"`
}

// SummarizeType returns the list entry for t.
func SummarizeType(t *model.Type) TypeSummary {
	return TypeSummary{
		Name:        t.Name(),
		Doc:         t.Doc(),
		Bundle:      t.IsBundle(),
		Bases:       baseNames(t),
		Properties:  len(t.Descriptors()),
		Fingerprint: t.Fingerprint(),
	}
}

// ListTypes summarizes types in the order given.
func ListTypes(types []*model.Type) TypeListResponse {
	resp := TypeListResponse{Types: make([]TypeSummary, 0, len(types))}
	for _, t := range types {
		resp.Types = append(resp.Types, SummarizeType(t))
	}
	resp.Count = len(resp.Types)
	return resp
}

// DescribeType returns the full description of t, properties in table order.
func DescribeType(t *model.Type) TypeSchema {
	ts := TypeSchema{
		Type:        t.Name(),
		Doc:         t.Doc(),
		Bundle:      t.IsBundle(),
		Bases:       baseNames(t),
		Fingerprint: t.Fingerprint(),
		Overrides:   t.Overrides(),
		Containers:  t.Containers(),
		Refs:        t.Refs(),
		Specs:       t.Specs(),
	}

	for _, d := range t.Descriptors() {
		ps := PropertySchema{
			Name:        d.Name(),
			Type:        d.TypeString(),
			Computed:    d.HasComputedDefault(),
			Help:        d.Help(),
			Serialized:  d.Serialized(),
			Readonly:    d.Readonly(),
			DeclaredBy:  t.DeclaredBy(d.Name()),
			GraftedFrom: t.GraftedFrom(d.Name()),
		}
		if def, ok := d.FixedDefault(); ok {
			ps.Default = d.SerializableValue(nil, def)
		}
		if u := d.Units(); u != nil {
			ps.Units = u.Name()
		}
		ts.Properties = append(ts.Properties, ps)
	}

	for _, inc := range t.Includes() {
		ts.Includes = append(ts.Includes, IncludeSchema{Bundle: inc.Bundle, Prefix: inc.Prefix, Help: inc.Help})
	}
	return ts
}

// DescribeEnum returns the description of a named enumeration.
func DescribeEnum(name string, e *enum.Enumeration) EnumSchema {
	return EnumSchema{
		Name:          name,
		Values:        e.Values(),
		Default:       e.Default(),
		CaseSensitive: e.CaseSensitive(),
	}
}

func baseNames(t *model.Type) []string {
	var names []string
	for _, b := range t.Bases() {
		names = append(names, b.Name())
	}
	return names
}
