package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/vizprops/core/convention"
	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/property"
)

// ParseFile parses a definition file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse parses definitions from YAML bytes. Unknown top-level keys are
// rejected.
func Parse(data []byte) (*File, error) {
	f := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Definition("parse yaml: %v", err)
	}

	if err := Validate(f); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseDir parses every .yaml and .yml file under dir, including
// subdirectories, in lexical order.
func ParseDir(dir string) ([]*File, error) {
	var files []*File

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
			continue
		}

		if !isDefinitionFile(entry.Name()) {
			continue
		}

		f, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	return files, nil
}

func isDefinitionFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// Validate checks a parsed file for errors that need no other file to
// detect: malformed names, conflicting keys and unknown spec kinds.
func Validate(f *File) error {
	var problems []string

	for _, e := range f.Enums {
		if !convention.IsTypeName(e.Name) {
			problems = append(problems, fmt.Sprintf("enum name %q is not a valid type name", e.Name))
		}
		if len(e.Values) == 0 {
			problems = append(problems, fmt.Sprintf("enum %q has no values", e.Name))
		}
	}

	for _, t := range f.Types {
		if !convention.IsTypeName(t.Name) {
			problems = append(problems, fmt.Sprintf("type name %q is not a valid type name", t.Name))
		}
		for _, inc := range t.Include {
			if inc.Bundle == "" {
				problems = append(problems, fmt.Sprintf("type %q: include requires a bundle", t.Name))
			}
		}
		for _, p := range t.Properties {
			if err := validateProperty(p); err != nil {
				problems = append(problems, fmt.Sprintf("type %q: %v", t.Name, err))
			}
		}
		for _, o := range t.Overrides {
			if !o.HasDefault && o.Help == "" {
				problems = append(problems, fmt.Sprintf("type %q: override %q changes nothing", t.Name, o.Name))
			}
		}
	}

	if len(problems) > 0 {
		return errs.Definition("validation errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// validateProperty checks a single property definition.
func validateProperty(p *PropertyDef) error {
	if !convention.IsIdentifier(p.Name) {
		return fmt.Errorf("property name %q is not a valid identifier", p.Name)
	}

	switch p.Spec {
	case "":
		if p.Type == "" {
			return fmt.Errorf("property %q: type or spec is required", p.Name)
		}
		if p.Units != "" || p.Strings != "" || p.AcceptDatetime || p.AcceptTimedelta {
			return fmt.Errorf("property %q: units, strings and accept_* apply to specs only", p.Name)
		}
	case property.DataSpec.String():
		if p.Type == "" {
			return fmt.Errorf("property %q: DataSpec requires a type", p.Name)
		}
	default:
		if _, ok := property.ParseSpecKind(p.Spec); !ok {
			return fmt.Errorf("property %q: unknown spec %q (want one of %s)",
				p.Name, p.Spec, strings.Join(property.SpecKinds(), ", "))
		}
		if p.Type != "" {
			return fmt.Errorf("property %q: spec %s does not take a type", p.Name, p.Spec)
		}
		if len(p.Constraints) > 0 {
			return fmt.Errorf("property %q: constraints need a type", p.Name)
		}
	}

	if p.Strings != "" {
		if _, ok := stringPolicies[p.Strings]; !ok {
			return fmt.Errorf("property %q: strings must be fields, values or values_if_valid", p.Name)
		}
	}

	for _, c := range p.Constraints {
		if !c.Type.Valid() {
			return fmt.Errorf("property %q: unknown constraint %q", p.Name, c.Type)
		}
	}
	return nil
}

var stringPolicies = map[string]property.StringPolicy{
	"fields":          property.StringsAsFields,
	"values":          property.StringsAsValues,
	"values_if_valid": property.StringsAsValuesIfValid,
}
