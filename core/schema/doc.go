/*
Package schema loads schema object types from declarative YAML definitions.

A definition file declares named enumerations and types. Types list their
properties in order; the order is kept and becomes the property table order.

	enums:
	  Palette: [viridis, magma, inferno]
	  Orientation:
	    values: [horizontal, vertical]
	    case_insensitive: true

	types:
	  LineProps:
	    bundle: true
	    properties:
	      line_color: { spec: ColorSpec, help: "The {prop} line color." }
	      line_width: { type: Float, default: 1.0 }

	  Glyph:
	    doc: Base type of every glyph.
	    properties:
	      visible: { type: Bool, default: true }
	      name:    Nullable(String)

	  Circle:
	    extends: Glyph
	    include:
	      - { bundle: LineProps, prefix: border_ }
	    properties:
	      radius: { spec: DistanceSpec, default: 1.0, units: screen }
	      alpha:
	        type: Float
	        constraints:
	          - { type: min, value: 0 }
	          - { type: max, value: 1 }
	    overrides:
	      visible: { default: false }

# Properties

A property is either a type expression (Float, Seq(Instance(Renderer)),
Either(Enum(LineJoin), Int)) given as a scalar or under type:, or a spec
kind under spec:. A DataSpec takes both spec: DataSpec and a type:.

Recognized keys:

  - type:            type expression, parsed by property.ParseType
  - spec:            spec kind (ColorSpec, NumberSpec, DistanceSpec, ...)
  - default:         fixed default value
  - help:            help text
  - readonly:        reject ordinary assignment
  - serialized:      false keeps the property out of wire output
  - units:           default units of a units spec
  - strings:         fields, values or values_if_valid
  - accept_datetime: spec values may also be datetimes
  - accept_timedelta: spec values may also be durations
  - constraints:     min, max, min_length, max_length, pattern, one_of, not_empty,
                     expr (a boolean expression over `value`)

# Loading

Types reference bases and bundles by name, across files. A Loader builds
them in dependency order and resolves names it does not find among the
definitions through a registry.

	reg := registry.New()
	types, err := schema.NewLoader(reg, logger).LoadDirs("definitions")
	if err != nil { ... }
	err = reg.RegisterAll(types)
*/
package schema
