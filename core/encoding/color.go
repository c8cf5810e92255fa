package encoding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/errs"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$`)

// RGB is a color tuple with 0-255 components.
type RGB struct {
	R, G, B uint8
}

// RGBA is a color tuple with 0-255 components and a 0-1 alpha.
type RGBA struct {
	R, G, B uint8
	A       float64
}

// String returns the canonical wire form of the color.
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

func (c RGBA) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'g', -1, 64))
}

// Hex returns "#RRGGBBAA", or "#RRGGBB" when the color is opaque.
func (c RGBA) Hex() string {
	if c.A >= 1 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, uint8(c.A*255+0.5))
}

// IsColor reports whether EncodeColor accepts v.
func IsColor(v any) bool {
	_, err := EncodeColor(v)
	return err == nil
}

// EncodeColor returns the wire form of a color literal. Names and hex
// strings pass through unchanged; tuples become rgb()/rgba() strings.
func EncodeColor(v any) (string, error) {
	switch c := v.(type) {
	case string:
		if enum.NamedColor.Contains(c) || hexColor.MatchString(c) {
			return c, nil
		}
		return "", errs.TypeMismatch("%q is not a named color or #RRGGBB[AA] hex string", c)
	case RGB:
		return c.String(), nil
	case RGBA:
		if c.A < 0 || c.A > 1 {
			return "", errs.TypeMismatch("alpha %v is outside [0, 1]", c.A)
		}
		return c.String(), nil
	}

	items, ok := AsSlice(v)
	if !ok {
		return "", errs.TypeMismatch("expected a color, got %T", v)
	}
	switch len(items) {
	case 3:
		rgb, err := tupleRGB(items)
		if err != nil {
			return "", err
		}
		return rgb.String(), nil
	case 4:
		rgb, err := tupleRGB(items[:3])
		if err != nil {
			return "", err
		}
		a, err := alpha(items[3])
		if err != nil {
			return "", err
		}
		return RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: a}.String(), nil
	default:
		return "", errs.TypeMismatch("color tuple must have 3 or 4 items, got %d", len(items))
	}
}

// ToRGBA resolves any accepted color form, including the rgb()/rgba()
// strings EncodeColor produces, to its components.
func ToRGBA(v any) (RGBA, error) {
	switch c := v.(type) {
	case RGB:
		return RGBA{R: c.R, G: c.G, B: c.B, A: 1}, nil
	case RGBA:
		return c, nil
	case string:
		return parseColorString(c)
	}

	s, err := EncodeColor(v)
	if err != nil {
		return RGBA{}, err
	}
	return parseColorString(s)
}

func parseColorString(s string) (RGBA, error) {
	if hex, ok := enum.ColorHex(s); ok {
		s = hex
	}
	if hexColor.MatchString(s) {
		n, _ := strconv.ParseUint(s[1:], 16, 32)
		if len(s) == 7 {
			return RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 1}, nil
		}
		return RGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: float64(uint8(n)) / 255}, nil
	}

	var body string
	switch {
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		body = s[4 : len(s)-1]
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		body = s[5 : len(s)-1]
	default:
		return RGBA{}, errs.TypeMismatch("%q is not a color", s)
	}

	parts := strings.Split(body, ",")
	items := make([]any, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == 3 {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return RGBA{}, errs.TypeMismatch("%q has a malformed alpha", s)
			}
			items[i] = f
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return RGBA{}, errs.TypeMismatch("%q has a malformed component", s)
		}
		items[i] = n
	}
	if len(items) < 3 || len(items) > 4 {
		return RGBA{}, errs.TypeMismatch("%q is not a color", s)
	}
	rgb, err := tupleRGB(items[:3])
	if err != nil {
		return RGBA{}, err
	}
	out := RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 1}
	if len(items) == 4 {
		if out.A, err = alpha(items[3]); err != nil {
			return RGBA{}, err
		}
	}
	return out, nil
}

func tupleRGB(items []any) (RGB, error) {
	var c [3]uint8
	for i, item := range items {
		n, ok := AsInt(item)
		if !ok {
			return RGB{}, errs.TypeMismatch("color component %d must be an integer, got %T", i, item)
		}
		if n < 0 || n > 255 {
			return RGB{}, errs.TypeMismatch("color component %d is %d, outside [0, 255]", i, n)
		}
		c[i] = uint8(n)
	}
	return RGB{R: c[0], G: c[1], B: c[2]}, nil
}

func alpha(v any) (float64, error) {
	a, ok := AsFloat(v)
	if !ok {
		return 0, errs.TypeMismatch("alpha must be a number, got %T", v)
	}
	if a < 0 || a > 1 {
		return 0, errs.TypeMismatch("alpha %v is outside [0, 1]", a)
	}
	return a, nil
}
