package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/model"
)

// ObjectsFile lists object instances to materialize. A mapping with the
// single key ref inside props links to another object by id:
//
//	roots: [plot]
//	objects:
//	  - id: plot
//	    type: Plot
//	    props:
//	      title: demo
//	      renderers: [{ ref: circles }]
//	  - id: circles
//	    type: Circle
//	    props: { radius: 5 }
//
// Without roots, every object is a root.
type ObjectsFile struct {
	Roots   []string    `yaml:"roots"`
	Objects []ObjectDef `yaml:"objects"`
}

// ObjectDef declares one instance.
type ObjectDef struct {
	ID    string         `yaml:"id"`
	Type  string         `yaml:"type"`
	Props map[string]any `yaml:"props"`
}

// ObjectSet is the result of LoadObjects.
type ObjectSet struct {
	Roots   []*model.Object
	Objects []*model.Object
	byID    map[string]*model.Object
}

// Get returns an object by id.
func (s *ObjectSet) Get(id string) (*model.Object, bool) {
	o, ok := s.byID[id]
	return o, ok
}

// TypeLookup finds a type by name. *registry.Registry satisfies it.
type TypeLookup interface {
	Get(name string) (*model.Type, bool)
}

// LoadObjectsFile reads and materializes an objects file.
func LoadObjectsFile(path string, types TypeLookup, opts ...model.ObjectOption) (*ObjectSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	set, err := LoadObjects(data, types, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// LoadObjects creates every declared object, then assigns their properties
// with references resolved. Each object's properties are assigned all or
// nothing; errors from every object are joined.
func LoadObjects(data []byte, types TypeLookup, opts ...model.ObjectOption) (*ObjectSet, error) {
	var f ObjectsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Definition("parse yaml: %v", err)
	}

	set := &ObjectSet{byID: make(map[string]*model.Object, len(f.Objects))}
	for i, od := range f.Objects {
		if od.ID == "" {
			return nil, errs.Definition("object %d: id is required", i)
		}
		if _, dup := set.byID[od.ID]; dup {
			return nil, errs.Conflict("object %q declared twice", od.ID)
		}
		t, ok := types.Get(od.Type)
		if !ok {
			return nil, errs.NotFound("object %q: unknown type %q", od.ID, od.Type)
		}
		obj, err := t.New(append([]model.ObjectOption{model.WithID(od.ID)}, opts...)...)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", od.ID, err)
		}
		set.byID[od.ID] = obj
		set.Objects = append(set.Objects, obj)
	}

	var problems []error
	for _, od := range f.Objects {
		props, err := set.resolveProps(od.Props)
		if err != nil {
			problems = append(problems, fmt.Errorf("object %q: %w", od.ID, err))
			continue
		}
		if err := set.byID[od.ID].Update(props); err != nil {
			problems = append(problems, fmt.Errorf("object %q: %w", od.ID, err))
		}
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	if len(f.Roots) == 0 {
		set.Roots = set.Objects
		return set, nil
	}
	for _, id := range f.Roots {
		obj, ok := set.byID[id]
		if !ok {
			return nil, errs.NotFound("root %q is not a declared object", id)
		}
		set.Roots = append(set.Roots, obj)
	}
	return set, nil
}

// resolveProps replaces {ref: id} mappings with the objects they name.
func (s *ObjectSet) resolveProps(props map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(props))
	for k, item := range props {
		r, err := s.resolveItem(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = r
	}
	return out, nil
}

func (s *ObjectSet) resolveItem(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if id, ok := refTarget(x); ok {
			obj, found := s.byID[id]
			if !found {
				return nil, errs.NotFound("reference to unknown object %q", id)
			}
			return obj, nil
		}
		return s.resolveProps(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			r, err := s.resolveItem(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}

func refTarget(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	id, ok := m["ref"].(string)
	return id, ok
}
