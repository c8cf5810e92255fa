package model

import (
	"errors"
	"slices"
	"strings"

	"github.com/artpar/vizprops/core/convention"
	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/property"
)

// Builder collects the declarations of one type. Methods chain; the first
// misuse is remembered and reported by Build.
type Builder struct {
	name      string
	bundle    bool
	doc       string
	bases     []*Type
	steps     []step
	overrides []*property.Override
	errs      []error
}

// step is either an explicit declaration or an Include, kept in the order
// they were added so the flattened table follows declaration order.
type step struct {
	desc    *property.Descriptor
	include *inclusion
}

type inclusion struct {
	bundle *Type
	prefix string
	help   string
}

// NewType starts the declaration of an instantiable type.
func NewType(name string, bases ...*Type) *Builder {
	return &Builder{name: name, bases: bases}
}

// DefineBundle starts the declaration of an include bundle: a group of
// properties meant to be grafted onto other types with Include.
func DefineBundle(name string, bases ...*Type) *Builder {
	return &Builder{name: name, bases: bases, bundle: true}
}

func (b *Builder) Doc(doc string) *Builder {
	b.doc = doc
	return b
}

// Add declares properties on the type.
func (b *Builder) Add(descs ...*property.Descriptor) *Builder {
	for _, d := range descs {
		if d == nil {
			b.errs = append(b.errs, errs.Definition("%s: nil property declaration", b.name))
			continue
		}
		b.steps = append(b.steps, step{desc: d})
	}
	return b
}

// Include grafts every property of bundle onto the type under prefix.
// help, or the prefix when help is empty, fills the {prop} placeholder in
// the grafted help texts.
func (b *Builder) Include(bundle *Type, prefix, help string) *Builder {
	if bundle == nil {
		b.errs = append(b.errs, errs.Definition("%s: malformed Include: nil bundle", b.name))
		return b
	}
	b.steps = append(b.steps, step{include: &inclusion{bundle: bundle, prefix: prefix, help: help}})
	return b
}

// Override replaces the default, and optionally the help, of an inherited
// property.
func (b *Builder) Override(overrides ...*property.Override) *Builder {
	for _, o := range overrides {
		if o == nil {
			b.errs = append(b.errs, errs.Definition("%s: nil override", b.name))
			continue
		}
		b.overrides = append(b.overrides, o)
	}
	return b
}

// MustBuild is Build for package-level declarations.
func (b *Builder) MustBuild() *Type {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// Build validates the declarations and flattens them into a Type.
func (b *Builder) Build() (*Type, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if err := b.checkHeader(); err != nil {
		return nil, err
	}

	own, err := b.ownEntries()
	if err != nil {
		return nil, err
	}

	table, conflicts := flattenBases(b.bases)
	ownNames := make(map[string]bool, len(own))
	for _, e := range own {
		n := e.desc.Name()
		ownNames[n] = true
		delete(conflicts, n)
		table = table.put(e)
	}

	var overridden []string
	seen := make(map[string]bool, len(b.overrides))
	for _, o := range b.overrides {
		n := o.Name()
		switch {
		case seen[n]:
			return nil, errs.Definition("%s: %q is overridden twice", b.name, n)
		case ownNames[n]:
			return nil, errs.Definition("%s: %q is both declared and overridden", b.name, n)
		case conflicts[n] != nil:
			return nil, errs.Definition("%s: cannot override ambiguous property %q inherited from %s; redeclare it",
				b.name, n, strings.Join(conflicts[n], " and "))
		}
		seen[n] = true

		i, ok := table.index[n]
		if !ok {
			return nil, errs.Definition("%s: override of %q matches no inherited property", b.name, n)
		}
		prev := table.rows[i]
		d, err := prev.desc.Overridden(o)
		if err != nil {
			return nil, errs.Enrich(err, "in %s", b.name)
		}
		table.rows[i] = entry{desc: d, origin: d, owner: b.name, kind: prev.kind, source: prev.source}
		overridden = append(overridden, n)
	}

	if len(conflicts) > 0 {
		names := make([]string, 0, len(conflicts))
		for n := range conflicts {
			names = append(names, n)
		}
		slices.Sort(names)
		list := make([]error, 0, len(names))
		for _, n := range names {
			list = append(list, errs.Definition("%s: ambiguous property %q inherited from %s; redeclare it",
				b.name, n, strings.Join(conflicts[n], " and ")))
		}
		return nil, errors.Join(list...)
	}

	t := &Type{
		name:      b.name,
		doc:       b.doc,
		bundle:    b.bundle,
		bases:     slices.Clone(b.bases),
		table:     table.rows,
		index:     table.index,
		overrides: overridden,
	}
	for _, e := range table.rows {
		if e.owner == b.name && !seen[e.desc.Name()] {
			t.own = append(t.own, e.desc.Name())
		}
	}
	for _, s := range b.steps {
		if s.include != nil {
			t.includes = append(t.includes, Inclusion{Bundle: s.include.bundle.name, Prefix: s.include.prefix, Help: s.include.help})
		}
	}
	for _, o := range b.overrides {
		t.signatures = append(t.signatures, o.Signature())
	}
	t.computeFingerprint()
	return t, nil
}

func (b *Builder) checkHeader() error {
	if !convention.IsTypeName(b.name) {
		return errs.Definition("%q is not a valid type name", b.name)
	}
	seen := make(map[string]bool, len(b.bases))
	for _, base := range b.bases {
		switch {
		case base == nil:
			return errs.Definition("%s: nil base type", b.name)
		case seen[base.name]:
			return errs.Definition("%s: base %s listed twice", b.name, base.name)
		case b.bundle && !base.bundle:
			return errs.Definition("bundle %s can only extend bundles, not %s", b.name, base.name)
		case base.IsA(b.name):
			return errs.Definition("%s cannot extend itself", b.name)
		}
		seen[base.name] = true
	}
	return nil
}

// ownEntries resolves the type's own declarations: explicit properties,
// grafted bundle properties and the units companions of both. Explicit
// declarations win over grafted and generated names.
func (b *Builder) ownEntries() ([]entry, error) {
	var order []string
	byName := make(map[string]entry)
	explicit := make(map[string]bool)

	for _, s := range b.steps {
		if d := s.desc; d != nil {
			n := d.Name()
			if explicit[n] {
				return nil, errs.Definition("%s: property %q declared twice", b.name, n)
			}
			explicit[n] = true
			if _, ok := byName[n]; !ok {
				order = append(order, n)
			}
			byName[n] = entry{desc: d, origin: d, owner: b.name, kind: declExplicit}
			continue
		}

		inc := s.include
		if !inc.bundle.bundle {
			return nil, errs.Definition("%s: malformed Include: %s is not a bundle", b.name, inc.bundle.name)
		}
		if inc.prefix != "" && !convention.IsIdentifier(inc.prefix) {
			return nil, errs.Definition("%s: malformed Include of %s: bad prefix %q", b.name, inc.bundle.name, inc.prefix)
		}
		group := convention.GroupDescription(inc.help, inc.prefix, b.name)
		for _, e := range inc.bundle.table {
			if e.kind == declCompanion {
				continue
			}
			n := convention.Prefixed(inc.prefix, e.desc.Name())
			if prev, ok := byName[n]; ok {
				if prev.kind == declExplicit || prev.origin == e.origin {
					continue
				}
				return nil, errs.Definition("%s: includes of %s and %s both produce %q",
					b.name, prev.source, inc.bundle.name, n)
			}
			order = append(order, n)
			byName[n] = entry{
				desc:   e.desc.Grafted(n, group),
				origin: e.origin,
				owner:  b.name,
				kind:   declGrafted,
				source: inc.bundle.name,
			}
		}
	}

	out := make([]entry, 0, len(order))
	for _, n := range order {
		e := byName[n]
		out = append(out, e)

		u := e.desc.Units()
		if u == nil {
			continue
		}
		origin := e.origin.Units()
		if origin == nil {
			origin = u
		}
		if prev, ok := byName[u.Name()]; ok {
			if prev.kind == declExplicit || prev.origin == origin {
				continue
			}
			return nil, errs.Definition("%s: units companion %q of %q collides with another declaration",
				b.name, u.Name(), n)
		}
		c := entry{desc: u, origin: origin, owner: b.name, kind: declCompanion, source: e.source}
		byName[u.Name()] = c
		out = append(out, c)
	}
	return out, nil
}

type flatTable struct {
	rows  []entry
	index map[string]int
}

func (ft flatTable) put(e entry) flatTable {
	n := e.desc.Name()
	if i, ok := ft.index[n]; ok {
		ft.rows[i] = e
		return ft
	}
	ft.index[n] = len(ft.rows)
	ft.rows = append(ft.rows, e)
	return ft
}

// flattenBases merges the base tables in order. When a name is reached
// through two bases from different declarations, the declaration of the
// more derived type wins; if neither declaring type derives from the other
// the name is reported as a conflict, keyed by property name, listing the
// declaring types.
func flattenBases(bases []*Type) (flatTable, map[string][]string) {
	ft := flatTable{index: make(map[string]int)}
	conflicts := make(map[string][]string)
	derives := func(owner, ancestor string) bool {
		t := findType(bases, owner)
		return t != nil && t.IsA(ancestor)
	}
	for _, base := range bases {
		for _, e := range base.table {
			n := e.desc.Name()
			i, ok := ft.index[n]
			if !ok {
				ft = ft.put(e)
				continue
			}
			prev := ft.rows[i]
			switch {
			case prev.origin == e.origin, derives(prev.owner, e.owner):
				continue
			case derives(e.owner, prev.owner):
				ft.rows[i] = e
				if c := conflicts[n]; c != nil && !slices.ContainsFunc(c, func(o string) bool { return !derives(e.owner, o) }) {
					delete(conflicts, n)
				}
				continue
			}
			if conflicts[n] == nil {
				conflicts[n] = []string{prev.owner}
			}
			if !slices.Contains(conflicts[n], e.owner) {
				conflicts[n] = append(conflicts[n], e.owner)
			}
		}
	}
	return ft, conflicts
}

// findType looks name up among bases and their ancestors.
func findType(bases []*Type, name string) *Type {
	for _, b := range bases {
		if b.name == name {
			return b
		}
		if t := findType(b.bases, name); t != nil {
			return t
		}
	}
	return nil
}
