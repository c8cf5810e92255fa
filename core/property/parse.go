package property

import (
	"math"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/errs"
)

// EnumResolver resolves enumeration names used in type expressions.
// *enum.Catalog implements it.
type EnumResolver interface {
	Lookup(name string) (*enum.Enumeration, bool)
}

type builtinEnums struct{}

func (builtinEnums) Lookup(name string) (*enum.Enumeration, bool) { return enum.Lookup(name) }

type typeExpr struct {
	Name string     `parser:"@Ident"`
	Args []*typeArg `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?"`
}

type typeArg struct {
	Number *float64  `parser:"  @Number"`
	String *string   `parser:"| @String"`
	Type   *typeExpr `parser:"| @@"`
}

var typeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_]\w*`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var typeParser = participle.MustBuild[typeExpr](
	participle.Lexer(typeLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// ParseType builds a validator from a type expression such as
//
//	Either(Enum(LineJoin), Int)
//	Seq(Instance(Renderer))
//	Interval(Float, 0, 1)
//	Enum("linear", "log")
//
// Enumeration names resolve through enums, or the built-in catalogue when
// enums is nil. The expression grammar is the one Validator.String emits.
func ParseType(expr string, enums EnumResolver) (*Validator, error) {
	if enums == nil {
		enums = builtinEnums{}
	}
	ast, err := typeParser.ParseString("", expr)
	if err != nil {
		return nil, errs.Definition("type expression %q: %v", expr, err)
	}
	v, err := buildType(ast, enums)
	if err != nil {
		return nil, errs.Definition("type expression %q: %v", expr, err)
	}
	return v, nil
}

var nullary = map[string]func() *Validator{
	"Any":         Any,
	"Bool":        Bool,
	"Int":         Int,
	"Float":       Float,
	"String":      String,
	"Color":       Color,
	"DashPattern": DashPattern,
	"Datetime":    Datetime,
	"Timedelta":   Timedelta,
	"Percent":     Percent,
	"Byte":        Byte,
}

func buildType(e *typeExpr, enums EnumResolver) (*Validator, error) {
	if fn, ok := nullary[e.Name]; ok {
		if len(e.Args) > 0 {
			return nil, errs.Definition("%s takes no arguments", e.Name)
		}
		return fn(), nil
	}

	switch e.Name {
	case "Enum":
		return buildEnum(e, enums)

	case "Regex":
		if len(e.Args) != 1 || e.Args[0].String == nil {
			return nil, errs.Definition("Regex takes one string argument")
		}
		return Regex(*e.Args[0].String)

	case "Instance":
		if len(e.Args) != 1 || !isName(e.Args[0]) {
			return nil, errs.Definition("Instance takes one type name")
		}
		return InstanceOf(e.Args[0].Type.Name), nil

	case "Seq", "List", "Nullable", "NonNegative", "Positive":
		inner, err := typeArgs(e, enums, 1, 1)
		if err != nil {
			return nil, err
		}
		switch e.Name {
		case "Nullable":
			return Nullable(inner[0]), nil
		case "NonNegative":
			return NonNegative(inner[0]), nil
		case "Positive":
			return Positive(inner[0]), nil
		}
		return Seq(inner[0]), nil

	case "Dict":
		kv, err := typeArgs(e, enums, 2, 2)
		if err != nil {
			return nil, err
		}
		return Dict(kv[0], kv[1]), nil

	case "Tuple":
		items, err := typeArgs(e, enums, 1, -1)
		if err != nil {
			return nil, err
		}
		return Tuple(items...), nil

	case "Either":
		branches, err := typeArgs(e, enums, 2, -1)
		if err != nil {
			return nil, err
		}
		return Either(branches...), nil

	case "Interval", "Len":
		if len(e.Args) != 3 || e.Args[0].Type == nil || e.Args[1].Number == nil || e.Args[2].Number == nil {
			return nil, errs.Definition("%s takes a type and two numbers", e.Name)
		}
		inner, err := buildType(e.Args[0].Type, enums)
		if err != nil {
			return nil, err
		}
		lo, hi := *e.Args[1].Number, *e.Args[2].Number
		if e.Name == "Interval" {
			if lo > hi {
				return nil, errs.Definition("Interval bounds %v > %v", lo, hi)
			}
			return Interval(inner, lo, hi), nil
		}
		if lo != math.Trunc(lo) || hi != math.Trunc(hi) || lo < 0 {
			return nil, errs.Definition("Len bounds must be integers")
		}
		return Len(inner, int(lo), int(hi)), nil
	}

	return nil, errs.Definition("unknown type %q", e.Name)
}

func buildEnum(e *typeExpr, enums EnumResolver) (*Validator, error) {
	if len(e.Args) == 1 && isName(e.Args[0]) {
		name := e.Args[0].Type.Name
		en, ok := enums.Lookup(name)
		if !ok {
			return nil, errs.Definition("unknown enumeration %q", name)
		}
		return NamedEnum(name, en), nil
	}

	values := make([]string, 0, len(e.Args))
	for _, a := range e.Args {
		if a.String == nil {
			return nil, errs.Definition("Enum takes an enumeration name or string values")
		}
		values = append(values, *a.String)
	}
	en, err := enum.New(values)
	if err != nil {
		return nil, err
	}
	return Enum(en), nil
}

// typeArgs builds the arguments of e, which must all be types. A negative
// max leaves the count unbounded.
func typeArgs(e *typeExpr, enums EnumResolver, min, max int) ([]*Validator, error) {
	if len(e.Args) < min || (max >= 0 && len(e.Args) > max) {
		return nil, errs.Definition("%s: wrong number of arguments (%d)", e.Name, len(e.Args))
	}
	out := make([]*Validator, len(e.Args))
	for i, a := range e.Args {
		if a.Type == nil {
			return nil, errs.Definition("%s: argument %d must be a type", e.Name, i+1)
		}
		v, err := buildType(a.Type, enums)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func isName(a *typeArg) bool {
	return a.Type != nil && len(a.Type.Args) == 0
}
