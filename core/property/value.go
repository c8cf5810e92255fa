package property

import (
	"reflect"
	"time"

	"github.com/artpar/vizprops/core/encoding"
)

// Clone returns a deep copy of container values. Scalars and instances are
// returned as is.
func Clone(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = Clone(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Clone(val)
		}
		return out
	case SpecValue:
		return x.clone()
	case Instance:
		return x
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneValue(rv.Index(i)))
		}
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out.Interface()
	}
	return v
}

func cloneValue(rv reflect.Value) reflect.Value {
	if rv.Kind() == reflect.Interface && rv.IsNil() {
		return rv
	}
	c := Clone(rv.Interface())
	if c == nil {
		return reflect.Zero(rv.Type())
	}
	return reflect.ValueOf(c)
}

// Equal compares property values. Numbers compare by value regardless of
// their Go type, sequences and mappings compare element-wise and instances
// compare by identity.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch x := a.(type) {
	case SpecValue:
		y, ok := b.(SpecValue)
		return ok && x.equal(y)
	case Instance:
		y, ok := b.(Instance)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case time.Duration:
		y, ok := b.(time.Duration)
		return ok && x == y
	}

	if fa, ok := encoding.AsFloat(a); ok {
		fb, ok := encoding.AsFloat(b)
		return ok && fa == fb
	}
	if sa, ok := encoding.AsSlice(a); ok {
		sb, ok := encoding.AsSlice(b)
		if !ok || len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !Equal(sa[i], sb[i]) {
				return false
			}
		}
		return true
	}
	if ma, ok := encoding.AsMap(a); ok {
		mb, ok := encoding.AsMap(b)
		if !ok || len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
