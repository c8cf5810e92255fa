// Package registry holds the schema object types known to a process.
// It rejects conflicting registrations, keeps bases registered ahead of
// the types that extend them and reports references to unknown types.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/property"
)

// Registry manages registered types and the enumerations they use.
type Registry struct {
	mu sync.RWMutex

	// types by name
	types map[string]*model.Type

	enums  *enum.Catalog
	logger zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithEnums shares an enumeration catalog with the registry.
func WithEnums(c *enum.Catalog) Option {
	return func(r *Registry) { r.enums = c }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		types:  make(map[string]*model.Type),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.enums == nil {
		r.enums = enum.NewCatalog()
	}
	return r
}

// Enums returns the catalog of user-defined enumerations.
func (r *Registry) Enums() *enum.Catalog { return r.enums }

// Register adds a type. Registering an identical declaration again is a
// no-op; a different declaration under a taken name is a conflict. Every
// base must already be registered.
func (r *Registry) Register(t *model.Type) error {
	if t == nil {
		return errs.Definition("nil type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.types[t.Name()]; ok {
		if existing.Fingerprint() == t.Fingerprint() {
			r.logger.Debug().Str("type", t.Name()).Msg("type already registered")
			return nil
		}
		return &ConflictError{Conflicts: []Conflict{newConflict(existing, t)}}
	}
	if err := r.checkBases(t, nil); err != nil {
		return err
	}

	r.types[t.Name()] = t
	r.logger.Debug().
		Str("type", t.Name()).
		Str("fingerprint", t.Fingerprint()[:12]).
		Int("properties", len(t.Descriptors())).
		Msg("type registered")
	return nil
}

// RegisterAll adds types in order, all or nothing. Conflicts are collected
// across the whole batch.
func (r *Registry) RegisterAll(types []*model.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make(map[string]*model.Type, len(types))
	var conflicts []Conflict
	for _, t := range types {
		if t == nil {
			return errs.Definition("nil type")
		}
		if prev, ok := batch[t.Name()]; ok {
			if prev.Fingerprint() != t.Fingerprint() {
				conflicts = append(conflicts, newConflict(prev, t))
			}
			continue
		}
		if existing, ok := r.types[t.Name()]; ok && existing.Fingerprint() != t.Fingerprint() {
			conflicts = append(conflicts, newConflict(existing, t))
			continue
		}
		if err := r.checkBases(t, batch); err != nil {
			return err
		}
		batch[t.Name()] = t
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	added := 0
	for _, t := range types {
		if _, ok := r.types[t.Name()]; !ok {
			r.types[t.Name()] = t
			added++
		}
	}
	r.logger.Debug().Int("types", added).Msg("types registered")
	return nil
}

// Replace swaps the registered set for types. Nothing changes if types do
// not form a consistent set on their own.
func (r *Registry) Replace(types []*model.Type) error {
	next := New(WithLogger(r.logger), WithEnums(r.enums))
	if err := next.RegisterAll(types); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = next.types
	r.logger.Info().Int("types", len(r.types)).Msg("type registry replaced")
	return nil
}

// checkBases requires every base of t in the registry or in pending, with
// the same declaration.
func (r *Registry) checkBases(t *model.Type, pending map[string]*model.Type) error {
	for _, base := range t.Bases() {
		registered, ok := r.types[base.Name()]
		if !ok {
			registered, ok = pending[base.Name()]
		}
		if !ok {
			return errs.NotFound("base %s of %s is not registered", base.Name(), t.Name())
		}
		if registered.Fingerprint() != base.Fingerprint() {
			return &ConflictError{Conflicts: []Conflict{newConflict(registered, base)}}
		}
	}
	return nil
}

// Unregister removes a type. Types still extended by others stay.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; !exists {
		return errs.NotFound("type %q not registered", name)
	}
	var dependents []string
	for other, t := range r.types {
		for _, b := range t.Bases() {
			if b.Name() == name {
				dependents = append(dependents, other)
			}
		}
	}
	if len(dependents) > 0 {
		sort.Strings(dependents)
		return errs.Conflict("type %q is extended by %s", name, strings.Join(dependents, ", "))
	}

	delete(r.types, name)
	return nil
}

// Get returns a registered type by name.
func (r *Registry) Get(name string) (*model.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// List returns all registered types sorted by name.
func (r *Registry) List() []*model.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]*model.Type, 0, len(r.types))
	for _, t := range r.types {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool {
		return types[i].Name() < types[j].Name()
	})

	return types
}

// All returns all registered types keyed by name.
func (r *Registry) All() map[string]*model.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*model.Type, len(r.types))
	for name, t := range r.types {
		result[name] = t
	}
	return result
}

// Subtypes returns the registered types that are name or derive from it,
// sorted by name.
func (r *Registry) Subtypes(name string) []*model.Type {
	var out []*model.Type
	for _, t := range r.List() {
		if t.IsA(name) {
			out = append(out, t)
		}
	}
	return out
}

// Dangling is a reference-typed property naming a type that is not
// registered.
type Dangling struct {
	Type     string
	Property string
	Target   string
}

func (d Dangling) String() string {
	return fmt.Sprintf("%s.%s references unknown type %s", d.Type, d.Property, d.Target)
}

// Unresolved lists reference-typed properties whose target type is not
// registered.
func (r *Registry) Unresolved() []Dangling {
	var out []Dangling
	for _, t := range r.List() {
		for _, d := range t.Descriptors() {
			for _, target := range instanceTargets(d.Validator()) {
				if _, ok := r.Get(target); !ok {
					out = append(out, Dangling{Type: t.Name(), Property: d.Name(), Target: target})
				}
			}
		}
	}
	return out
}

func instanceTargets(v *property.Validator) []string {
	if v.Kind() == property.KindInstance {
		return []string{v.TypeName()}
	}
	var out []string
	for _, e := range v.Elems() {
		out = append(out, instanceTargets(e)...)
	}
	return out
}

// Conflict is a type name claimed by two different declarations.
type Conflict struct {
	Name     string
	Existing string
	Incoming string
}

func newConflict(existing, incoming *model.Type) Conflict {
	return Conflict{Name: existing.Name(), Existing: existing.Fingerprint(), Incoming: incoming.Fingerprint()}
}

func (c Conflict) Error() string {
	return fmt.Sprintf("type %s already registered with a different declaration (%.12s != %.12s)",
		c.Name, c.Existing, c.Incoming)
}

// ConflictError represents one or more conflicting registrations.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	var msgs []string
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("type conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Unwrap makes errors.Is(err, errs.ErrConflict) hold.
func (e *ConflictError) Unwrap() error { return errs.ErrConflict }

// HasConflicts returns true if there are any conflicts.
func (e *ConflictError) HasConflicts() bool {
	return len(e.Conflicts) > 0
}
