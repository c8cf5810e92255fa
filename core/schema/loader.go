package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/property"
)

// Resolver finds types and enumerations declared outside the files being
// loaded. *registry.Registry satisfies it.
type Resolver interface {
	Get(name string) (*model.Type, bool)
	Enums() *enum.Catalog
}

// Loader builds types from definition files.
type Loader struct {
	resolver Resolver
	logger   zerolog.Logger
}

// NewLoader returns a loader that resolves outside names through r.
func NewLoader(r Resolver, logger zerolog.Logger) *Loader {
	return &Loader{resolver: r, logger: logger}
}

// LoadDirs parses every definition file under dirs and builds the types.
func (l *Loader) LoadDirs(dirs ...string) ([]*model.Type, error) {
	var files []*File
	for _, dir := range dirs {
		fs, err := ParseDir(dir)
		if err != nil {
			return nil, err
		}
		for _, f := range fs {
			l.logger.Debug().
				Str("file", f.Path).
				Int("types", len(f.Types)).
				Int("enums", len(f.Enums)).
				Msg("definition file parsed")
		}
		files = append(files, fs...)
	}
	return l.Build(files...)
}

// Build registers the declared enumerations and builds every declared type,
// bases and bundles before the types that use them. The result is in that
// dependency order, so it can be passed to Registry.RegisterAll.
func (l *Loader) Build(files ...*File) ([]*model.Type, error) {
	if err := l.registerEnums(files); err != nil {
		return nil, err
	}

	defs := make(map[string]*TypeDef)
	where := make(map[string]string)
	var order []string
	for _, f := range files {
		for _, td := range f.Types {
			if prev, ok := where[td.Name]; ok {
				return nil, errs.Definition("type %s declared in %s and %s", td.Name, prev, location(f, td.Line))
			}
			defs[td.Name] = td
			where[td.Name] = location(f, td.Line)
			order = append(order, td.Name)
		}
	}

	b := &build{
		loader:   l,
		defs:     defs,
		built:    make(map[string]*model.Type, len(defs)),
		visiting: make(map[string]bool),
	}
	for _, name := range order {
		if _, err := b.visit(name, nil); err != nil {
			return nil, err
		}
	}

	l.logger.Debug().Int("types", len(b.out)).Msg("definitions built")
	return b.out, nil
}

func location(f *File, line int) string {
	if f.Path == "" {
		return fmt.Sprintf("line %d", line)
	}
	return fmt.Sprintf("%s:%d", f.Path, line)
}

// registerEnums adds declared enumerations to the catalog. Redeclaring an
// enumeration with the same values is allowed, so a reload can run again.
func (l *Loader) registerEnums(files []*File) error {
	catalog := l.resolver.Enums()
	for _, f := range files {
		for _, ed := range f.Enums {
			var opts []enum.Option
			if ed.CaseInsensitive {
				opts = append(opts, enum.CaseInsensitive())
			}
			if ed.Quoted {
				opts = append(opts, enum.Quoted())
			}
			e, err := enum.New(ed.Values, opts...)
			if err != nil {
				return fmt.Errorf("%s: enum %s: %w", location(f, ed.Line), ed.Name, err)
			}
			if existing, ok := catalog.Lookup(ed.Name); ok {
				if sameEnum(existing, e) {
					continue
				}
				return errs.Definition("%s: enum %s already defined with values %s",
					location(f, ed.Line), ed.Name, existing)
			}
			if err := catalog.Register(ed.Name, e); err != nil {
				return fmt.Errorf("%s: %w", location(f, ed.Line), err)
			}
		}
	}
	return nil
}

func sameEnum(a, b *enum.Enumeration) bool {
	return a.CaseSensitive() == b.CaseSensitive() && slices.Equal(a.Values(), b.Values())
}

// build is the state of one dependency-ordered Build.
type build struct {
	loader   *Loader
	defs     map[string]*TypeDef
	built    map[string]*model.Type
	visiting map[string]bool
	out      []*model.Type
}

func (b *build) visit(name string, path []string) (*model.Type, error) {
	if t, ok := b.built[name]; ok {
		return t, nil
	}
	td, ok := b.defs[name]
	if !ok {
		if t, ok := b.loader.resolver.Get(name); ok {
			return t, nil
		}
		return nil, errs.Definition("unknown type %q", name)
	}
	if b.visiting[name] {
		return nil, errs.Definition("dependency cycle: %s", strings.Join(append(path, name), " -> "))
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	next := append(slices.Clone(path), name)
	deps := make(map[string]*model.Type)
	for _, dep := range td.Dependencies() {
		t, err := b.visit(dep, next)
		if err != nil {
			if path == nil {
				return nil, fmt.Errorf("type %s: %w", name, err)
			}
			return nil, err
		}
		deps[dep] = t
	}

	t, err := b.loader.buildType(td, deps)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", name, err)
	}
	b.built[name] = t
	b.out = append(b.out, t)
	return t, nil
}

func (l *Loader) buildType(td *TypeDef, deps map[string]*model.Type) (*model.Type, error) {
	bases := make([]*model.Type, 0, len(td.Extends))
	for _, name := range td.Extends {
		bases = append(bases, deps[name])
	}

	var tb *model.Builder
	if td.Bundle {
		tb = model.DefineBundle(td.Name, bases...)
	} else {
		tb = model.NewType(td.Name, bases...)
	}
	tb.Doc(td.Doc)

	for _, p := range td.Properties {
		d, err := l.descriptor(p)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p.Name, err)
		}
		tb.Add(d)
	}
	for _, inc := range td.Include {
		tb.Include(deps[inc.Bundle], inc.Prefix, inc.Help)
	}
	for _, od := range td.Overrides {
		o, err := override(od)
		if err != nil {
			return nil, err
		}
		tb.Override(o)
	}
	return tb.Build()
}

// descriptor turns a property definition into a descriptor.
func (l *Loader) descriptor(p *PropertyDef) (*property.Descriptor, error) {
	var opts []property.Option
	if p.HasDefault {
		opts = append(opts, property.WithDefault(p.Default))
	}
	if p.Help != "" {
		opts = append(opts, property.WithHelp(p.Help))
	}
	if p.Readonly {
		opts = append(opts, property.Readonly())
	}
	if p.Serialized != nil && !*p.Serialized {
		opts = append(opts, property.NotSerialized())
	}
	if p.Units != "" {
		opts = append(opts, property.WithUnitsDefault(p.Units))
	}
	if p.Strings != "" {
		opts = append(opts, property.WithStrings(stringPolicies[p.Strings]))
	}
	if p.AcceptDatetime {
		opts = append(opts, property.AcceptDatetime())
	}
	if p.AcceptTimedelta {
		opts = append(opts, property.AcceptTimedelta())
	}

	if p.Spec != "" && p.Spec != property.DataSpec.String() {
		kind, ok := property.ParseSpecKind(p.Spec)
		if !ok {
			return nil, errs.Definition("unknown spec %q", p.Spec)
		}
		return property.NewSpec(p.Name, kind, opts...)
	}

	v, err := property.ParseType(p.Type, l.resolver.Enums())
	if err != nil {
		return nil, err
	}
	if v, err = ApplyConstraints(v, p.Constraints); err != nil {
		return nil, errs.Definition("%v", err)
	}
	if p.Spec != "" {
		return property.NewDataSpec(p.Name, v, opts...)
	}
	return property.New(p.Name, v, opts...)
}

func override(od *OverrideDef) (*property.Override, error) {
	var opts []property.Option
	if od.HasDefault {
		opts = append(opts, property.WithDefault(od.Default))
	}
	if od.Help != "" {
		opts = append(opts, property.OverrideHelp(od.Help))
	}
	return property.NewOverride(od.Name, opts...)
}
