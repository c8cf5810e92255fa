package schemaexport

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/model"
)

// Checker validates wire output against exported schemas. Resolved schemas
// are cached by type fingerprint, so a redefined type is re-exported.
type Checker struct {
	mu    sync.Mutex
	cache map[string]*jsonschema.Resolved
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{cache: make(map[string]*jsonschema.Resolved)}
}

// CheckAttributes validates the wire attributes of an instance of t.
func (c *Checker) CheckAttributes(t *model.Type, attrs map[string]any) error {
	resolved, err := c.resolved(t)
	if err != nil {
		return err
	}
	return validate(resolved, attrs)
}

// CheckObject serializes obj and validates every object of the result.
func (c *Checker) CheckObject(obj *model.Object) error {
	doc := model.Serialize(obj)
	for _, rep := range doc.Objects {
		t := obj.Type()
		if rep.ID != obj.ID() {
			ref := findObject(obj, rep.ID)
			if ref == nil {
				return errs.NotFound("object %q in document", rep.ID)
			}
			t = ref.Type()
		}
		if err := c.CheckAttributes(t, rep.Attributes); err != nil {
			return fmt.Errorf("%s %s: %w", rep.Type, rep.ID, err)
		}
	}
	return nil
}

func findObject(root *model.Object, id string) *model.Object {
	for _, o := range model.References(root) {
		if o.ID() == id {
			return o
		}
	}
	return nil
}

func (c *Checker) resolved(t *model.Type) (*jsonschema.Resolved, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := t.Name() + "@" + t.Fingerprint()
	if r, ok := c.cache[key]; ok {
		return r, nil
	}
	r, err := Type(t).Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, fmt.Errorf("resolve schema of %s: %w", t.Name(), err)
	}
	c.cache[key] = r
	return r, nil
}

// CheckDocument validates a whole document against the schema of types.
func CheckDocument(types []*model.Type, doc *model.Document) error {
	resolved, err := Document(types).Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return fmt.Errorf("resolve document schema: %w", err)
	}
	return validate(resolved, doc)
}

// validate round-trips v through JSON so the validator sees exactly what
// a client would.
func validate(r *jsonschema.Resolved, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal instance: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal instance: %w", err)
	}
	if err := r.Validate(instance); err != nil {
		return errs.Enrich(errs.ErrTypeMismatch, "JSON validation failed: %v", err)
	}
	return nil
}
