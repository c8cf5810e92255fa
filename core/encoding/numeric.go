// Package encoding converts human-friendly literal forms into the canonical
// wire representations consumed by the renderer.
//
// Colors accept CSS names, "#RRGGBB"/"#RRGGBBAA" hex strings and RGB/RGBA
// tuples; tuples encode as "rgb(r, g, b)" / "rgba(r, g, b, a)" strings.
// Dash patterns accept a named pattern, a whitespace-separated string of
// integers or a sequence of integers, and encode as []int.
//
// The numeric helpers here define what "an integer" and "a number" mean for
// the whole framework: Go integer kinds and integral json.Number values are
// integers, floats never are.
package encoding

import (
	"encoding/json"
	"reflect"
)

// AsInt converts any Go integer kind or an integral json.Number to int64.
// Floats and booleans are rejected.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// AsFloat converts any Go numeric kind or json.Number to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := AsInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

// IsFloat reports whether v is a float kind or a non-integral json.Number.
func IsFloat(v any) bool {
	switch n := v.(type) {
	case float32, float64:
		return true
	case json.Number:
		_, err := n.Int64()
		return err != nil
	}
	return false
}

// AsSlice returns the elements of any slice or array except strings and
// byte slices.
func AsSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
	case reflect.Array:
	default:
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// AsMap returns the entries of any map with string keys.
func AsMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
