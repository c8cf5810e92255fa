package model

import (
	"reflect"
	"slices"

	"github.com/artpar/vizprops/core/property"
)

// Document is the wire form handed to a rendering runtime: the root ids and
// every object reachable from them, each listed once.
type Document struct {
	Roots   []string    `json:"roots" yaml:"roots"`
	Objects []ObjectRep `json:"objects" yaml:"objects"`
}

// ObjectRep is the wire form of one object. References to other objects
// inside Attributes appear as {"id": ...}.
type ObjectRep struct {
	Type       string         `json:"type" yaml:"type"`
	ID         string         `json:"id" yaml:"id"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
}

// Serializer turns object graphs into wire documents.
type Serializer struct {
	// IncludeDefaults emits every serialized property instead of only the
	// assigned ones.
	IncludeDefaults bool
}

// Serialize uses a Serializer that emits assigned values only.
func Serialize(roots ...*Object) *Document {
	return Serializer{}.Serialize(roots...)
}

// Serialize lists the roots and everything they reference, in discovery
// order. Reference cycles are followed once.
func (s Serializer) Serialize(roots ...*Object) *Document {
	doc := &Document{Roots: make([]string, 0, len(roots)), Objects: []ObjectRep{}}
	for _, obj := range References(roots...) {
		doc.Objects = append(doc.Objects, ObjectRep{
			Type:       obj.typ.name,
			ID:         obj.id,
			Attributes: obj.Attributes(s.IncludeDefaults),
		})
	}
	for _, r := range roots {
		if r != nil {
			doc.Roots = append(doc.Roots, r.id)
		}
	}
	return doc
}

// Encode renders obj with referenced objects nested in place the first time
// they are reached and as {"id": ...} afterwards.
func (s Serializer) Encode(obj *Object) map[string]any {
	known := make(map[string]*Object)
	for _, o := range References(obj) {
		known[o.id] = o
	}
	visited := make(map[string]bool)
	return s.encode(obj, known, visited)
}

// Encode uses a Serializer that emits assigned values only.
func Encode(obj *Object) map[string]any {
	return Serializer{}.Encode(obj)
}

func (s Serializer) encode(obj *Object, known map[string]*Object, visited map[string]bool) map[string]any {
	visited[obj.id] = true
	attrs := obj.Attributes(s.IncludeDefaults)
	for _, e := range obj.typ.table {
		n := e.desc.Name()
		if v, ok := attrs[n]; ok {
			attrs[n] = s.nest(v, known, visited)
		}
	}
	return map[string]any{
		"type":       obj.typ.name,
		"id":         obj.id,
		"attributes": attrs,
	}
}

// nest returns v with first-reached references expanded. Containers are
// rebuilt so the object's stored values are left untouched.
func (s Serializer) nest(v any, known map[string]*Object, visited map[string]bool) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = s.nest(x[i], known, visited)
		}
		return out
	case map[string]any:
		if id, ok := refID(x); ok {
			if obj := known[id]; obj != nil && !visited[id] {
				return s.encode(obj, known, visited)
			}
			return map[string]any{"id": id}
		}
		out := make(map[string]any, len(x))
		for _, k := range sortedKeys(x) {
			out[k] = s.nest(x[k], known, visited)
		}
		return out
	}
	return v
}

func refID(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	id, ok := m["id"].(string)
	return id, ok
}

// References returns roots followed by every object reachable from them
// through property values, depth first, without duplicates.
func References(roots ...*Object) []*Object {
	var out []*Object
	seen := make(map[*Object]bool)
	var visit func(o *Object)
	visit = func(o *Object) {
		if o == nil || seen[o] {
			return
		}
		seen[o] = true
		out = append(out, o)
		for _, e := range o.typ.table {
			if !e.desc.Serialized() {
				continue
			}
			walkInstances(o.current(e.desc), visit)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return out
}

// walkInstances calls fn for every *Object inside v, including objects
// held in spec dictionaries such as transforms.
func walkInstances(v any, fn func(*Object)) {
	switch x := v.(type) {
	case nil:
		return
	case *Object:
		fn(x)
		return
	case property.SpecValue:
		if val, ok := x.Value(); ok {
			walkInstances(val, fn)
		}
		if x.Mode() == property.DictMode {
			walkInstances(x.Dict(), fn)
		}
		return
	case []any:
		for _, e := range x {
			walkInstances(e, fn)
		}
		return
	case map[string]any:
		for _, k := range sortedKeys(x) {
			walkInstances(x[k], fn)
		}
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			walkInstances(rv.Index(i).Interface(), fn)
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			walkInstances(iter.Value().Interface(), fn)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
