package encoding

import (
	"slices"
	"strconv"
	"strings"

	"github.com/artpar/vizprops/core/enum"
	"github.com/artpar/vizprops/core/errs"
)

var dashPatterns = map[string][]int{
	"solid":   {},
	"dashed":  {6},
	"dotted":  {2, 4},
	"dotdash": {2, 4, 6, 4},
	"dashdot": {6, 4, 2, 4},
}

// IsDash reports whether EncodeDash accepts v.
func IsDash(v any) bool {
	_, err := EncodeDash(v)
	return err == nil
}

// EncodeDash returns the on/off length sequence of a dash pattern.
func EncodeDash(v any) ([]int, error) {
	if s, ok := v.(string); ok {
		if enum.DashPattern.Contains(s) {
			return slices.Clone(dashPatterns[s]), nil
		}
		fields := strings.Fields(s)
		out := make([]int, 0, len(fields))
		for _, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil || n < 0 {
				return nil, errs.TypeMismatch("dash pattern %q: %q is not a non-negative integer", s, f)
			}
			out = append(out, n)
		}
		return out, nil
	}

	items, ok := AsSlice(v)
	if !ok {
		return nil, errs.TypeMismatch("expected a dash pattern, got %T", v)
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		n, ok := AsInt(item)
		if !ok {
			return nil, errs.TypeMismatch("dash pattern item %d must be an integer, got %T", i, item)
		}
		if n < 0 {
			return nil, errs.TypeMismatch("dash pattern item %d is negative", i)
		}
		out = append(out, int(n))
	}
	return out, nil
}
