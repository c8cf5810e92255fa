package model

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/events"
	"github.com/artpar/vizprops/core/property"
)

// Change actions carried by property change events.
const (
	ActionSet  = "set"
	ActionWire = "wire"
)

// Publisher receives a change event for every assignment that changes a
// value. *events.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Observer is told about every attempted assignment.
type Observer interface {
	ObserveAssignment(typeName, property string, err error)
}

// ObjectOption configures a new Object.
type ObjectOption func(*Object)

// WithID sets the object id instead of generating one.
func WithID(id string) ObjectOption {
	return func(o *Object) { o.id = id }
}

func WithPublisher(p Publisher) ObjectOption {
	return func(o *Object) { o.publisher = p }
}

func WithObserver(obs Observer) ObjectOption {
	return func(o *Object) { o.observer = obs }
}

// Object is an instance of a Type. It is not safe for concurrent use.
type Object struct {
	id  string
	typ *Type

	// values holds explicit assignments; defaults holds defaults
	// materialized by a read.
	values   map[string]any
	defaults map[string]any

	publisher Publisher
	observer  Observer
}

// New creates an instance of t. Bundles cannot be instantiated.
func (t *Type) New(opts ...ObjectOption) (*Object, error) {
	if t.bundle {
		return nil, errs.Definition("%s is an include bundle and cannot be instantiated", t.name)
	}
	o := &Object{
		typ:      t,
		values:   make(map[string]any),
		defaults: make(map[string]any),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	return o, nil
}

// MustNew is New for types known to be instantiable.
func (t *Type) MustNew(opts ...ObjectOption) *Object {
	o, err := t.New(opts...)
	if err != nil {
		panic(err)
	}
	return o
}

func (o *Object) ID() string {
	if o == nil {
		return ""
	}
	return o.id
}

func (o *Object) TypeName() string {
	if o == nil {
		return ""
	}
	return o.typ.name
}

func (o *Object) IsA(name string) bool {
	return o != nil && o.typ.IsA(name)
}

func (o *Object) Type() *Type { return o.typ }

func (o *Object) String() string {
	return o.typ.name + "(" + o.id + ")"
}

// Get returns the current value of name. A default is materialized on first
// read and kept, so a container default read once and mutated stays
// mutated on this instance only.
func (o *Object) Get(name string) (any, error) {
	d, ok := o.typ.Lookup(name)
	if !ok {
		return nil, o.unknown(name, nil)
	}
	return o.current(d), nil
}

// MustGet is Get for names known to exist.
func (o *Object) MustGet(name string) any {
	v, err := o.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Value implements property.Owner.
func (o *Object) Value(name string) (any, bool) {
	d, ok := o.typ.Lookup(name)
	if !ok {
		return nil, false
	}
	return o.current(d), true
}

// IsSet reports whether name holds an explicit value.
func (o *Object) IsSet(name string) bool {
	_, ok := o.values[name]
	return ok
}

// Set assigns v to name after validating it. A rejected value leaves the
// object unchanged.
func (o *Object) Set(name string, v any) error {
	d, ok := o.typ.Lookup(name)
	if !ok {
		return o.unknown(name, v)
	}
	if d.Readonly() {
		return o.reject(name, v, errs.ErrReadonly)
	}
	stored, siblings, err := d.Prepare(v)
	if err != nil {
		return o.reject(name, v, err)
	}
	return o.apply(name, v, stored, siblings, ActionSet)
}

// SetFromWire applies an update that arrived in wire form. Readonly
// properties accept it, and spec properties keep their current
// representation where the payload allows.
func (o *Object) SetFromWire(name string, v any) error {
	d, ok := o.typ.Lookup(name)
	if !ok {
		return o.unknown(name, v)
	}
	stored, siblings, err := d.PrepareWire(v, o.current(d))
	if err != nil {
		return o.reject(name, v, err)
	}
	return o.apply(name, v, stored, siblings, ActionWire)
}

// Update assigns several values at once. Every value is validated first;
// when any is rejected nothing is stored and all rejections are returned.
func (o *Object) Update(values map[string]any) error {
	type prepared struct {
		name     string
		raw      any
		stored   any
		siblings map[string]any
	}

	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	slices.Sort(names)

	var (
		batch  []prepared
		failed []error
	)
	for _, n := range names {
		v := values[n]
		d, ok := o.typ.Lookup(n)
		if !ok {
			failed = append(failed, o.unknown(n, v))
			continue
		}
		if d.Readonly() {
			failed = append(failed, o.reject(n, v, errs.ErrReadonly))
			continue
		}
		stored, siblings, err := d.Prepare(v)
		if err != nil {
			failed = append(failed, o.reject(n, v, err))
			continue
		}
		if err := o.checkSiblings(n, v, siblings); err != nil {
			failed = append(failed, err)
			continue
		}
		batch = append(batch, prepared{n, v, stored, siblings})
	}
	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	for _, p := range batch {
		o.store(p.name, p.stored, ActionSet)
		for sn, sv := range p.siblings {
			o.store(sn, sv, ActionSet)
		}
		o.observe(p.name, nil)
	}
	return nil
}

// SerializableValue returns the wire form of the current value of name.
func (o *Object) SerializableValue(name string) (any, error) {
	d, ok := o.typ.Lookup(name)
	if !ok {
		return nil, o.unknown(name, nil)
	}
	return d.SerializableValue(o, o.current(d)), nil
}

// PropertiesWithValues returns the current values of the serialized
// properties. Without includeDefaults only explicitly assigned values are
// returned, plus materialized fixed defaults that were mutated in place and
// specs whose units companion alone was assigned.
func (o *Object) PropertiesWithValues(includeDefaults bool) map[string]any {
	out := make(map[string]any)
	for _, e := range o.typ.table {
		d := e.desc
		if !d.Serialized() {
			continue
		}
		n := d.Name()
		if v, ok := o.values[n]; ok {
			out[n] = v
			continue
		}
		if includeDefaults || o.unitsAssigned(d) {
			out[n] = o.current(d)
			continue
		}
		if v, ok := o.defaults[n]; ok {
			if fixed, ok := d.FixedDefault(); ok && !property.Equal(v, fixed) {
				out[n] = v
			}
		}
	}
	return out
}

// unitsAssigned reports whether d has a generated units companion holding
// an explicit value. The companion is not serialized on its own, so the
// spec carries it.
func (o *Object) unitsAssigned(d *property.Descriptor) bool {
	u := d.Units()
	if u == nil {
		return false
	}
	if cd, ok := o.typ.Lookup(u.Name()); !ok || cd.Serialized() {
		return false
	}
	_, ok := o.values[u.Name()]
	return ok
}

// Attributes is PropertiesWithValues in wire form. The result shares no
// containers with the object.
func (o *Object) Attributes(includeDefaults bool) map[string]any {
	values := o.PropertiesWithValues(includeDefaults)
	out := make(map[string]any, len(values))
	for n, v := range values {
		d, _ := o.typ.Lookup(n)
		out[n] = property.Clone(d.SerializableValue(o, v))
	}
	return out
}

func (o *Object) current(d *property.Descriptor) any {
	n := d.Name()
	if v, ok := o.values[n]; ok {
		return v
	}
	if v, ok := o.defaults[n]; ok {
		return v
	}
	v := d.NewDefault()
	o.defaults[n] = v
	return v
}

func (o *Object) apply(name string, raw, stored any, siblings map[string]any, action string) error {
	if err := o.checkSiblings(name, raw, siblings); err != nil {
		return err
	}
	o.store(name, stored, action)
	for sn, sv := range siblings {
		o.store(sn, sv, action)
	}
	o.observe(name, nil)
	return nil
}

// checkSiblings validates sibling updates against the descriptors in effect
// on this type, which may be explicit redeclarations of a units companion.
func (o *Object) checkSiblings(name string, raw any, siblings map[string]any) error {
	for sn, sv := range siblings {
		sd, ok := o.typ.Lookup(sn)
		if !ok {
			return o.reject(name, raw, errs.Enrich(errs.ErrUnknownProperty, "%s", sn))
		}
		if err := sd.Validator().Validate(sv); err != nil {
			return o.reject(name, raw, errs.Enrich(err, "%s", sn))
		}
	}
	return nil
}

// store records stored as the explicit value of name. Assigning the value
// the property already holds, explicitly or by default, is a no-op.
func (o *Object) store(name string, stored any, action string) {
	d, _ := o.typ.Lookup(name)
	old := o.current(d)
	if property.Equal(old, stored) {
		return
	}
	o.values[name] = stored

	if o.publisher == nil {
		return
	}
	o.publisher.Publish(context.Background(), events.Event{
		Name:   o.typ.name + "." + name,
		Type:   o.typ.name,
		Action: action,
		Data: map[string]any{
			"id":       o.id,
			"property": name,
			"old":      old,
			"new":      stored,
		},
	})
}

func (o *Object) unknown(name string, v any) error {
	err := &errs.PropertyError{Type: o.typ.name, Property: name, Value: v, Err: errs.ErrUnknownProperty}
	o.observe(name, err)
	return err
}

func (o *Object) reject(name string, v any, cause error) error {
	err := &errs.PropertyError{Type: o.typ.name, Property: name, Value: v, Err: cause}
	o.observe(name, err)
	return err
}

func (o *Object) observe(name string, err error) {
	if o.observer != nil {
		o.observer.ObserveAssignment(o.typ.name, name, err)
	}
}
