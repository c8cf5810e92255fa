// Package model holds schema object types and their instances.
//
// A Type is built once from its bases, its own declarations, the bundles
// it includes and the overrides it applies. Building flattens everything
// into one ordered property table; the derived views (all names,
// containers, references, specs) are computed on first use and then
// shared read-only.
//
// An Object stores only the values assigned to it. Defaults are
// materialized per instance on first read, so container defaults are
// never shared between instances.
package model

import (
	"encoding/hex"
	"slices"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/artpar/vizprops/core/property"
)

type declKind int

const (
	declExplicit declKind = iota
	declGrafted
	declCompanion
)

// entry is one row of a flattened property table.
type entry struct {
	desc *property.Descriptor
	// origin identifies the declaration the row descends from. Rows with
	// the same origin reached through different bases are not collisions.
	origin *property.Descriptor
	owner  string
	kind   declKind
	source string
}

// Inclusion records one Include applied to a type.
type Inclusion struct {
	Bundle string
	Prefix string
	Help   string
}

// Type is an immutable schema object type.
type Type struct {
	name       string
	doc        string
	bundle     bool
	bases      []*Type
	table      []entry
	index      map[string]int
	own        []string
	includes   []Inclusion
	overrides  []string
	signatures []string

	fingerprint string

	once  sync.Once
	views *views
}

type views struct {
	names      []string
	containers []string
	refs       []string
	specs      []string
}

func (t *Type) Name() string { return t.name }
func (t *Type) Doc() string  { return t.doc }

// IsBundle reports whether the type is an include bundle. Bundles are
// grafted onto other types and never instantiated.
func (t *Type) IsBundle() bool { return t.bundle }

func (t *Type) Bases() []*Type { return slices.Clone(t.bases) }

// IsA reports whether t is name or derives from it.
func (t *Type) IsA(name string) bool {
	if t.name == name {
		return true
	}
	for _, b := range t.bases {
		if b.IsA(name) {
			return true
		}
	}
	return false
}

// Lookup returns the descriptor in effect for name.
func (t *Type) Lookup(name string) (*property.Descriptor, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.table[i].desc, true
}

// DeclaredBy returns the type whose declaration of name is in effect.
func (t *Type) DeclaredBy(name string) string {
	if i, ok := t.index[name]; ok {
		return t.table[i].owner
	}
	return ""
}

// GraftedFrom returns the bundle a property was included from, if any.
func (t *Type) GraftedFrom(name string) string {
	if i, ok := t.index[name]; ok {
		return t.table[i].source
	}
	return ""
}

// Descriptors returns the flattened table in declaration order.
func (t *Type) Descriptors() []*property.Descriptor {
	out := make([]*property.Descriptor, len(t.table))
	for i, e := range t.table {
		out[i] = e.desc
	}
	return out
}

// Properties returns the property names of t. With withBases, names
// inherited from bases are included; without, only names t declares
// itself, including grafted names and units companions. Names t only
// overrides are inherited and left out.
func (t *Type) Properties(withBases bool) []string {
	if !withBases {
		return slices.Clone(t.own)
	}
	return slices.Clone(t.view().names)
}

// Containers returns the names of properties holding sequences or mappings.
func (t *Type) Containers() []string { return slices.Clone(t.view().containers) }

// Refs returns the names of properties that may reference other objects.
func (t *Type) Refs() []string { return slices.Clone(t.view().refs) }

// Specs returns the names of spec properties.
func (t *Type) Specs() []string { return slices.Clone(t.view().specs) }

func (t *Type) Includes() []Inclusion { return slices.Clone(t.includes) }
func (t *Type) Overrides() []string   { return slices.Clone(t.overrides) }

// Fingerprint is a digest of everything that defines the type. Two builds
// of the same declarations have the same fingerprint.
func (t *Type) Fingerprint() string { return t.fingerprint }

func (t *Type) String() string { return t.name }

func (t *Type) view() *views {
	t.once.Do(func() {
		v := &views{names: make([]string, 0, len(t.table))}
		for _, e := range t.table {
			n := e.desc.Name()
			v.names = append(v.names, n)
			if e.desc.IsContainer() {
				v.containers = append(v.containers, n)
			}
			if e.desc.HasRefs() {
				v.refs = append(v.refs, n)
			}
			if e.desc.IsSpec() {
				v.specs = append(v.specs, n)
			}
		}
		t.views = v
	})
	return t.views
}

func (t *Type) computeFingerprint() {
	h, _ := blake2b.New256(nil)
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}

	write("type " + t.name)
	if t.bundle {
		write("bundle")
	}
	for _, b := range t.bases {
		write("base " + b.name + " " + b.fingerprint)
	}
	for _, e := range t.table {
		write(e.owner + " " + e.desc.Signature())
	}
	for _, s := range t.signatures {
		write(s)
	}
	t.fingerprint = hex.EncodeToString(h.Sum(nil))
}
