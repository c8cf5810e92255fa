package model_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/events"
	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/property"
)

func axisType(t *testing.T) *model.Type {
	t.Helper()
	return model.NewType("Axis").
		Add(
			property.MustNew("label", property.Nullable(property.String())),
			property.MustNew("ticks", property.Seq(property.Int()), property.WithDefault([]any{1, 2})),
			property.MustNew("width", property.Float(), property.WithDefault(1.0)),
			property.MustNew("bounds", property.Dict(property.String(), property.Float())),
			property.MustNew("revision", property.Int(), property.Readonly()),
			property.MustNew("cache", property.Any(), property.NotSerialized()),
			property.MustNewSpec("line_color", property.ColorSpec),
		).
		MustBuild()
}

type assignment struct {
	property string
	err      error
}

type observer struct{ seen []assignment }

func (o *observer) ObserveAssignment(_, property string, err error) {
	o.seen = append(o.seen, assignment{property, err})
}

func TestObjectIDs(t *testing.T) {
	axis := axisType(t)

	a, b := axis.MustNew(), axis.MustNew()
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())

	c := axis.MustNew(model.WithID("x-axis"))
	assert.Equal(t, "x-axis", c.ID())
	assert.Equal(t, "Axis", c.TypeName())
	assert.True(t, c.IsA("Axis"))

	var missing *model.Object
	assert.Equal(t, "", missing.ID())
	assert.False(t, missing.IsA("Axis"))
}

func TestGetDefaults(t *testing.T) {
	obj := axisType(t).MustNew()

	assert.Nil(t, obj.MustGet("label"))
	assert.Equal(t, 1.0, obj.MustGet("width"))
	assert.Equal(t, []any{1, 2}, obj.MustGet("ticks"))
	assert.Equal(t, map[string]any{}, obj.MustGet("bounds"))

	color := obj.MustGet("line_color").(property.SpecValue)
	v, ok := color.Value()
	assert.True(t, ok)
	assert.Equal(t, "black", v)
	assert.False(t, obj.IsSet("width"))
}

func TestContainerDefaultsAreNotShared(t *testing.T) {
	axis := axisType(t)
	a, b := axis.MustNew(), axis.MustNew()

	ticks := a.MustGet("ticks").([]any)
	ticks[0] = 99
	bounds := a.MustGet("bounds").(map[string]any)
	bounds["start"] = 0.0

	assert.Equal(t, []any{99, 2}, a.MustGet("ticks"), "the first read is kept and mutable")
	assert.Equal(t, []any{1, 2}, b.MustGet("ticks"))
	assert.Empty(t, b.MustGet("bounds"))

	c := axis.MustNew()
	assert.Equal(t, []any{1, 2}, c.MustGet("ticks"), "the type default is untouched")

	changed := a.PropertiesWithValues(false)
	assert.Equal(t, []any{99, 2}, changed["ticks"])
	assert.Equal(t, map[string]any{"start": 0.0}, changed["bounds"])
}

func TestComputedDefaultMemoizedPerInstance(t *testing.T) {
	calls := 0
	typ := model.NewType("Source").
		Add(property.MustNew("columns", property.Seq(property.String()), property.WithDefaultFunc(func() any {
			calls++
			return []any{"x", "y"}
		}))).
		MustBuild()

	a := typ.MustNew()
	assert.Equal(t, 0, calls, "defaults are lazy")

	a.MustGet("columns")
	a.MustGet("columns")
	assert.Equal(t, 1, calls)

	b := typ.MustNew()
	b.MustGet("columns")
	assert.Equal(t, 2, calls)

	assert.Empty(t, a.PropertiesWithValues(false), "computed defaults are defaults")
	assert.Equal(t, []any{"x", "y"}, a.PropertiesWithValues(true)["columns"])
}

func TestSetValidates(t *testing.T) {
	obs := &observer{}
	obj := axisType(t).MustNew(model.WithObserver(obs))

	require.NoError(t, obj.Set("width", 2.5))
	assert.Equal(t, 2.5, obj.MustGet("width"))

	err := obj.Set("width", "wide")
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
	assert.Equal(t, 2.5, obj.MustGet("width"), "a rejected value leaves the prior one")

	var pe *errs.PropertyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Axis", pe.Type)
	assert.Equal(t, "width", pe.Property)
	assert.Equal(t, "wide", pe.Value)

	err = obj.Set("ticks", []any{1, "two"})
	assert.ErrorIs(t, err, errs.ErrTypeMismatch)
	assert.Equal(t, []any{1, 2}, obj.MustGet("ticks"))

	require.Len(t, obs.seen, 3)
	assert.NoError(t, obs.seen[0].err)
	assert.Error(t, obs.seen[1].err)
}

func TestSetCopiesInput(t *testing.T) {
	obj := axisType(t).MustNew()
	in := []any{5, 6}
	require.NoError(t, obj.Set("ticks", in))

	in[0] = 7
	assert.Equal(t, []any{5, 6}, obj.MustGet("ticks"))
}

func TestUnknownProperty(t *testing.T) {
	obj := axisType(t).MustNew()

	_, err := obj.Get("colour")
	assert.ErrorIs(t, err, errs.ErrUnknownProperty)
	assert.ErrorIs(t, obj.Set("colour", "red"), errs.ErrUnknownProperty)
	assert.ErrorIs(t, obj.SetFromWire("colour", "red"), errs.ErrUnknownProperty)
	_, err = obj.SerializableValue("colour")
	assert.ErrorIs(t, err, errs.ErrUnknownProperty)

	_, ok := obj.Value("colour")
	assert.False(t, ok)
}

func TestReadonly(t *testing.T) {
	obj := axisType(t).MustNew()

	err := obj.Set("revision", 3)
	assert.ErrorIs(t, err, errs.ErrReadonly)
	assert.Equal(t, 0, obj.MustGet("revision"))

	require.NoError(t, obj.SetFromWire("revision", 3))
	assert.Equal(t, 3, obj.MustGet("revision"))
}

func TestIdempotentReassignment(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	var changes []events.Event
	bus.Subscribe("Axis.*", func(ctx context.Context, e events.Event) error {
		changes = append(changes, e)
		return nil
	})
	obj := axisType(t).MustNew(model.WithPublisher(bus))

	require.NoError(t, obj.Set("width", 1.0))
	assert.Empty(t, obj.PropertiesWithValues(false), "assigning the value already held is a no-op")
	assert.Empty(t, changes)

	require.NoError(t, obj.Set("width", 2.0))
	require.NoError(t, obj.Set("width", 2.0))
	assert.Equal(t, map[string]any{"width": 2.0}, obj.PropertiesWithValues(false))
	assert.Len(t, changes, 1)

	require.NoError(t, obj.Set("width", 1.0))
	assert.Equal(t, map[string]any{"width": 1.0}, obj.PropertiesWithValues(false),
		"an assignment back to the default still counts as set")
	assert.Len(t, changes, 2)
}

func TestChangeEvents(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	var got []events.Event
	bus.Subscribe("*.width", func(ctx context.Context, e events.Event) error {
		got = append(got, e)
		return nil
	})
	obj := axisType(t).MustNew(model.WithPublisher(bus), model.WithID("ax"))

	require.NoError(t, obj.Set("width", 3.0))
	require.NoError(t, obj.SetFromWire("width", 4.0))
	require.NoError(t, obj.Set("label", "x"))

	require.Len(t, got, 2)
	assert.Equal(t, "Axis.width", got[0].Name)
	assert.Equal(t, "Axis", got[0].Type)
	assert.Equal(t, model.ActionSet, got[0].Action)
	assert.Equal(t, "width", got[0].Property())
	assert.Equal(t, map[string]any{"id": "ax", "property": "width", "old": 1.0, "new": 3.0}, got[0].Data)
	assert.Equal(t, model.ActionWire, got[1].Action)
}

func TestPropertiesWithValues(t *testing.T) {
	obj := axisType(t).MustNew()
	require.NoError(t, obj.Set("label", "time"))
	require.NoError(t, obj.Set("cache", "anything"))

	changed := obj.PropertiesWithValues(false)
	assert.Equal(t, map[string]any{"label": "time"}, changed, "not-serialized properties never appear")

	all := obj.PropertiesWithValues(true)
	assert.NotContains(t, all, "cache")
	assert.Contains(t, all, "ticks")
	assert.Contains(t, all, "line_color")
	assert.Len(t, all, 6)
}

func TestSpecAssignment(t *testing.T) {
	obj := axisType(t).MustNew()

	require.NoError(t, obj.Set("line_color", []any{128, 255, 124}))
	wire, err := obj.SerializableValue("line_color")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": "rgb(128, 255, 124)"}, wire)

	require.NoError(t, obj.Set("line_color", "myfield"))
	wire, _ = obj.SerializableValue("line_color")
	assert.Equal(t, map[string]any{"field": "myfield"}, wire)

	err = obj.Set("line_color", map[string]any{"value": "red", "field": "c"})
	assert.ErrorIs(t, err, errs.ErrShape)
	wire, _ = obj.SerializableValue("line_color")
	assert.Equal(t, map[string]any{"field": "myfield"}, wire)
}

func TestSpecRoundTrip(t *testing.T) {
	obj := axisType(t).MustNew()
	require.NoError(t, obj.Set("line_color", map[string]any{"value": "red"}))

	first, _ := obj.SerializableValue("line_color")
	require.NoError(t, obj.SetFromWire("line_color", first))
	second, _ := obj.SerializableValue("line_color")
	assert.Equal(t, first, second)
}

func TestSetFromWireKeepsRepresentation(t *testing.T) {
	obj := axisType(t).MustNew()
	require.NoError(t, obj.Set("line_color", map[string]any{"field": "c", "transform": "mapper"}))

	require.NoError(t, obj.SetFromWire("line_color", "blue"))
	wire, _ := obj.SerializableValue("line_color")
	assert.Equal(t, map[string]any{"value": "blue", "transform": "mapper"}, wire)
}

func TestUpdateIsAllOrNothing(t *testing.T) {
	obj := axisType(t).MustNew()

	err := obj.Update(map[string]any{
		"width":    5.0,
		"label":    3,
		"revision": 2,
		"nope":     true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTypeMismatch)
	assert.ErrorIs(t, err, errs.ErrReadonly)
	assert.ErrorIs(t, err, errs.ErrUnknownProperty)
	assert.Equal(t, 1.0, obj.MustGet("width"))

	require.NoError(t, obj.Update(map[string]any{"width": 5.0, "label": "y"}))
	assert.Equal(t, 5.0, obj.MustGet("width"))
	assert.Equal(t, "y", obj.MustGet("label"))
}

func TestUnitsSiblingValidatedAgainstType(t *testing.T) {
	typ := model.NewType("Ray").
		Add(property.MustNewSpec("length", property.DistanceSpec)).
		MustBuild()
	obj := typ.MustNew()

	err := obj.Set("length", map[string]any{"value": 2.0, "units": "miles"})
	assert.ErrorIs(t, err, errs.ErrTypeMismatch)
	assert.Equal(t, "data", obj.MustGet("length_units"))

	require.NoError(t, obj.Set("length", map[string]any{"value": 2.0, "units": "screen"}))
	assert.Equal(t, "screen", obj.MustGet("length_units"))
	assert.NotContains(t, obj.PropertiesWithValues(false), "length_units")
}
