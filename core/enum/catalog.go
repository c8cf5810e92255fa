package enum

import (
	"maps"
	"slices"
	"sync"

	"github.com/artpar/vizprops/core/errs"
)

// Built-in enumerations used by the visual property kinds.
var (
	LineJoin     = MustNew([]string{"miter", "round", "bevel"})
	LineCap      = MustNew([]string{"butt", "round", "square"})
	DashPattern  = MustNew([]string{"solid", "dashed", "dotted", "dotdash", "dashdot"})
	TextAlign    = MustNew([]string{"left", "right", "center"})
	TextBaseline = MustNew([]string{"top", "middle", "bottom", "alphabetic", "hanging", "ideographic"})
	FontStyle    = MustNew([]string{"normal", "italic", "bold", "bold italic"})
	AngleUnits   = MustNew([]string{"deg", "rad", "grad", "turn"})
	SpatialUnits = MustNew([]string{"screen", "data"})
	Direction    = MustNew([]string{"clock", "anticlock"})
	Dimensions   = MustNew([]string{"width", "height", "both"})
	Location     = MustNew([]string{"above", "below", "left", "right", "center"})
	RenderLevel  = MustNew([]string{"image", "underlay", "glyph", "guide", "annotation", "overlay"})
	Anchor       = MustNew([]string{
		"top_left", "top_center", "top_right",
		"center_left", "center_center", "center_right",
		"bottom_left", "bottom_center", "bottom_right",
		"top", "left", "center", "right", "bottom",
	})
	MarkerType = MustNew([]string{
		"asterisk", "circle", "circle_cross", "circle_dot", "circle_x", "circle_y",
		"cross", "dash", "diamond", "diamond_cross", "diamond_dot", "dot",
		"hex", "hex_dot", "inverted_triangle", "plus",
		"square", "square_cross", "square_dot", "square_pin", "square_x",
		"star", "star_dot", "triangle", "triangle_dot", "triangle_pin", "x", "y",
	})
)

var builtins = map[string]*Enumeration{
	"LineJoin":     LineJoin,
	"LineCap":      LineCap,
	"DashPattern":  DashPattern,
	"TextAlign":    TextAlign,
	"TextBaseline": TextBaseline,
	"FontStyle":    FontStyle,
	"AngleUnits":   AngleUnits,
	"SpatialUnits": SpatialUnits,
	"Direction":    Direction,
	"Dimensions":   Dimensions,
	"Location":     Location,
	"RenderLevel":  RenderLevel,
	"Anchor":       Anchor,
	"MarkerType":   MarkerType,
	"NamedColor":   NamedColor,
}

// Lookup returns a built-in enumeration by name.
func Lookup(name string) (*Enumeration, bool) {
	e, ok := builtins[name]
	return e, ok
}

// Catalog is a named set of enumerations: the built-ins plus any declared
// by definition files. Safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	byName map[string]*Enumeration
}

// NewCatalog returns a catalog seeded with the built-in enumerations.
func NewCatalog() *Catalog {
	return &Catalog{byName: maps.Clone(builtins)}
}

// Register adds a named enumeration. Names are never redefined.
func (c *Catalog) Register(name string, e *Enumeration) error {
	if name == "" {
		return errs.Definition("enumeration name is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[name]; exists {
		return errs.Definition("enumeration %q already defined", name)
	}
	c.byName[name] = e
	return nil
}

// Lookup returns an enumeration by name.
func (c *Catalog) Lookup(name string) (*Enumeration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byName[name]
	return e, ok
}

// Names returns the registered names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.byName))
}
