// Package schemaexport describes the wire form of types as JSON Schema
// (draft 2020-12) and checks serialized output against it.
//
// A type exports as the schema of its "attributes" object: one entry per
// serialized property, no required keys, no other keys allowed.
package schemaexport

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/property"
)

// Draft is the $schema of exported documents.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Type returns the schema of the attributes of t.
func Type(t *model.Type) *jsonschema.Schema {
	s := attributes(t)
	s.Schema = Draft
	return s
}

func attributes(t *model.Type) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:                 "object",
		Title:                t.Name(),
		Description:          t.Doc(),
		Properties:           make(map[string]*jsonschema.Schema),
		AdditionalProperties: falseSchema(),
	}
	for _, d := range t.Descriptors() {
		if !d.Serialized() {
			continue
		}
		s.Properties[d.Name()] = Property(d)
	}
	return s
}

// Document returns the schema of a serialized document whose objects have
// one of types. Each type becomes a $defs entry.
func Document(types []*model.Type) *jsonschema.Schema {
	defs := make(map[string]*jsonschema.Schema, len(types))
	var objects []*jsonschema.Schema
	for _, t := range types {
		if t.IsBundle() {
			continue
		}
		defs[t.Name()] = attributes(t)
		objects = append(objects, &jsonschema.Schema{
			Type:     "object",
			Required: []string{"type", "id", "attributes"},
			Properties: map[string]*jsonschema.Schema{
				"type":       {Enum: []any{t.Name()}},
				"id":         {Type: "string"},
				"attributes": {Ref: "#/$defs/" + t.Name()},
			},
			AdditionalProperties: falseSchema(),
		})
	}

	items := &jsonschema.Schema{AnyOf: objects}
	if len(objects) == 0 {
		items = falseSchema()
	}
	return &jsonschema.Schema{
		Schema:   Draft,
		Type:     "object",
		Required: []string{"roots", "objects"},
		Defs:     defs,
		Properties: map[string]*jsonschema.Schema{
			"roots":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"objects": {Type: "array", Items: items},
		},
		AdditionalProperties: falseSchema(),
	}
}

// Property returns the wire schema of one property.
func Property(d *property.Descriptor) *jsonschema.Schema {
	var s *jsonschema.Schema
	if d.IsSpec() {
		s = spec(d)
	} else {
		s = Validator(d.Validator())
	}
	s.Description = d.Help()
	s.ReadOnly = d.Readonly()
	if def, ok := d.FixedDefault(); ok {
		if raw, err := json.Marshal(d.SerializableValue(nil, def)); err == nil {
			s.Default = raw
		}
	}
	return s
}

// spec describes the dictionary form every spec property serializes to.
func spec(d *property.Descriptor) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"value":     Validator(d.Validator()),
		"field":     {Type: "string", MinLength: ptr(1)},
		"transform": {},
	}
	if u := d.Units(); u != nil {
		props["units"] = Validator(u.Validator())
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: falseSchema(),
		OneOf: []*jsonschema.Schema{
			{Required: []string{"value"}},
			{Required: []string{"field"}},
		},
	}
}

// Validator returns the schema of the wire form of values accepted by v.
func Validator(v *property.Validator) *jsonschema.Schema {
	elems := v.Elems()

	switch v.Kind() {
	case property.KindAny:
		return &jsonschema.Schema{}
	case property.KindBool:
		return &jsonschema.Schema{Type: "boolean"}
	case property.KindInt:
		return &jsonschema.Schema{Type: "integer"}
	case property.KindFloat:
		return &jsonschema.Schema{Type: "number"}
	case property.KindString:
		return &jsonschema.Schema{Type: "string"}

	case property.KindEnum:
		e := v.Enumeration()
		s := &jsonschema.Schema{Type: "string"}
		if e.CaseSensitive() {
			for _, tok := range e.Values() {
				s.Enum = append(s.Enum, tok)
			}
		} else {
			s.Comment = "case-insensitive: " + e.String()
		}
		return s

	case property.KindRegex:
		return &jsonschema.Schema{Type: "string", Pattern: v.Pattern()}

	case property.KindSeq:
		return &jsonschema.Schema{Type: "array", Items: Validator(elems[0])}

	case property.KindDict:
		s := &jsonschema.Schema{Type: "object", AdditionalProperties: Validator(elems[1])}
		if k := elems[0]; k.Kind() != property.KindString && k.Kind() != property.KindAny {
			s.PropertyNames = Validator(k)
		}
		return s

	case property.KindTuple:
		items := make([]*jsonschema.Schema, len(elems))
		for i, e := range elems {
			items[i] = Validator(e)
		}
		return &jsonschema.Schema{
			Type:        "array",
			PrefixItems: items,
			MinItems:    ptr(len(items)),
			MaxItems:    ptr(len(items)),
		}

	case property.KindEither:
		branches := make([]*jsonschema.Schema, len(elems))
		for i, e := range elems {
			branches[i] = Validator(e)
		}
		return &jsonschema.Schema{AnyOf: branches}

	case property.KindNullable:
		return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{{Type: "null"}, Validator(elems[0])}}

	case property.KindInterval:
		s := Validator(elems[0])
		lo, hi := v.Bounds()
		if !math.IsInf(lo, -1) {
			s.Minimum = ptr(lo)
		}
		if !math.IsInf(hi, 1) {
			s.Maximum = ptr(hi)
		}
		return s

	case property.KindNonNegative:
		s := Validator(elems[0])
		s.Minimum = ptr(0.0)
		return s

	case property.KindPositive:
		s := Validator(elems[0])
		s.ExclusiveMinimum = ptr(0.0)
		return s

	case property.KindLen:
		s := Validator(elems[0])
		lo, hi := v.LenBounds()
		var maxp *int
		if hi >= 0 {
			maxp = ptr(hi)
		}
		switch s.Type {
		case "array":
			s.MinItems, s.MaxItems = ptr(lo), maxp
		case "object":
			s.MinProperties, s.MaxProperties = ptr(lo), maxp
		default:
			s.MinLength, s.MaxLength = ptr(lo), maxp
		}
		return s

	case property.KindCheck:
		s := Validator(elems[0])
		s.Comment = "also checked: " + v.String()
		return s

	case property.KindColor:
		return &jsonschema.Schema{Type: "string"}

	case property.KindDashPattern:
		return &jsonschema.Schema{
			Type:  "array",
			Items: &jsonschema.Schema{Type: "integer", Minimum: ptr(0.0)},
		}

	case property.KindDatetime:
		return &jsonschema.Schema{Type: "number", Comment: "milliseconds since the Unix epoch"}

	case property.KindTimedelta:
		return &jsonschema.Schema{Type: "number", Comment: "milliseconds"}

	case property.KindInstance:
		return &jsonschema.Schema{
			Type:       "object",
			Required:   []string{"id"},
			Properties: map[string]*jsonschema.Schema{"id": {Type: "string"}},
			Comment:    "reference to an instance of " + v.TypeName(),
		}
	}
	panic(fmt.Sprintf("schemaexport: unhandled validator kind %s", v.Kind()))
}

func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func ptr[T any](v T) *T { return &v }
