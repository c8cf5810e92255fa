// Package validation checks property values against a type without
// touching any object. Every problem in a batch is reported, not only the
// first.
package validation

import (
	"fmt"
	"slices"
	"sync"

	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/schema"
)

// Failure classes recorded in schema.ConstraintError.Constraint.
const (
	FailUnknown  = "unknown"
	FailReadonly = "readonly"
	FailType     = "type"
	FailShape    = "shape"
	FailOther    = "invalid"
)

// Validator validates property maps against registered types.
type Validator struct {
	mu    sync.RWMutex
	types schema.TypeLookup
}

// New creates a validator that resolves type names through types.
func New(types schema.TypeLookup) *Validator {
	return &Validator{types: types}
}

// UpdateTypes swaps the type source, e.g. after a definitions reload.
func (v *Validator) UpdateTypes(types schema.TypeLookup) {
	v.mu.Lock()
	v.types = types
	v.mu.Unlock()
}

// ValidateUpdate checks data as a batch of ordinary assignments: unknown
// names and readonly properties are rejected.
func (v *Validator) ValidateUpdate(typeName string, data map[string]any) schema.ValidationResult {
	t, result, ok := v.resolve(typeName)
	if !ok {
		return result
	}
	return Check(t, data, false)
}

// ValidateWire checks data as a wire update, which may carry readonly
// properties.
func (v *Validator) ValidateWire(typeName string, data map[string]any) schema.ValidationResult {
	t, result, ok := v.resolve(typeName)
	if !ok {
		return result
	}
	return Check(t, data, true)
}

func (v *Validator) resolve(typeName string) (*model.Type, schema.ValidationResult, bool) {
	result := schema.ValidationResult{Valid: true}

	v.mu.RLock()
	types := v.types
	v.mu.RUnlock()

	if types == nil {
		result.AddError("_type", FailUnknown, typeName, "no types loaded")
		return nil, result, false
	}
	t, ok := types.Get(typeName)
	if !ok {
		result.AddError("_type", FailUnknown, typeName, fmt.Sprintf("unknown type: %s", typeName))
		return nil, result, false
	}
	if t.IsBundle() {
		result.AddError("_type", FailUnknown, typeName, fmt.Sprintf("%s is a bundle and has no instances", typeName))
		return nil, result, false
	}
	return t, result, true
}

// Check validates every entry of data against t. Entries are visited in
// name order so results are stable.
func Check(t *model.Type, data map[string]any, wire bool) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}

	for _, name := range sortedNames(data) {
		checkOne(&result, t, name, data[name], wire)
	}
	return result
}

// ValidateProperty checks a single ordinary assignment.
func ValidateProperty(t *model.Type, name string, value any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}
	checkOne(&result, t, name, value, false)
	return result
}

func checkOne(result *schema.ValidationResult, t *model.Type, name string, value any, wire bool) {
	d, ok := t.Lookup(name)
	if !ok {
		result.AddError(name, FailUnknown, value,
			fmt.Sprintf("unknown property '%s' - not declared by %s", name, t.Name()))
		return
	}
	if d.Readonly() && !wire {
		result.AddError(name, FailReadonly, value, "property is readonly")
		return
	}

	var (
		siblings map[string]any
		err      error
	)
	if wire {
		_, siblings, err = d.PrepareWire(value, d.NewDefault())
	} else {
		_, siblings, err = d.Prepare(value)
	}
	if err != nil {
		result.AddError(name, classify(err), value, err.Error())
		return
	}

	for _, sn := range sortedNames(siblings) {
		sd, ok := t.Lookup(sn)
		if !ok {
			result.AddError(sn, FailUnknown, siblings[sn], fmt.Sprintf("set by %s but not declared", name))
			continue
		}
		if err := sd.Validator().Validate(siblings[sn]); err != nil {
			result.AddError(sn, classify(err), siblings[sn], err.Error())
		}
	}
}

func classify(err error) string {
	switch errs.Kind(err) {
	case errs.ErrUnknownProperty:
		return FailUnknown
	case errs.ErrReadonly:
		return FailReadonly
	case errs.ErrTypeMismatch:
		return FailType
	case errs.ErrShape:
		return FailShape
	}
	return FailOther
}

func sortedNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
