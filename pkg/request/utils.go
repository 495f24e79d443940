package request

import (
	"maps"
	"reflect"
)

func cloneParams(in map[string]any) (out map[string]any) {
	out = make(map[string]any, len(in))
	maps.Copy(out, in)
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// firstSet returns the first non-nil value.
// A typed nil, for example (*mySender)(nil) in a Sender, is not set.
func firstSet[T any](values ...T) (T, bool) {
	for _, v := range values {
		if !isNil(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
