// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package chaincode

import "reflect"

// Args is a decoded JSON object of contract arguments.
type Args = map[string]any

// invokeMatchPlaceholders are UI defaults for the "match" selector that mean
// "no filter" and must not reach an invoke.
var invokeMatchPlaceholders = map[string]struct{}{
	"n/a": {}, "all": {}, "any": {}, "none": {},
}

// Sanitize returns a copy of args without empty values:
//   - "" strings, nil, empty objects and empty arrays are dropped;
//   - "match" placeholders are dropped (n/a, all, any, none for invoke; n/a for query);
//   - nested objects are sanitized with the same kind and dropped when they end up empty.
//
// The input is never modified. Sanitize(Sanitize(a)) == Sanitize(a).
// A nil input yields nil so callers can tell "no arguments" from "{}".
func Sanitize(args Args, kind Kind) Args {
	if args == nil {
		return nil
	}
	out := make(Args, len(args))
	for k, v := range args {
		if k == "match" && isMatchPlaceholder(v, kind) {
			continue
		}
		switch val := v.(type) {
		case nil:
		case string:
			if val != "" {
				out[k] = val
			}
		case map[string]any:
			if nested := Sanitize(val, kind); len(nested) > 0 {
				out[k] = nested
			}
		case []any:
			if len(val) > 0 {
				out[k] = cloneSlice(val)
			}
		default:
			if !isEmptyContainer(v) {
				out[k] = v
			}
		}
	}
	return out
}

func isMatchPlaceholder(v any, kind Kind) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	switch kind {
	case Invoke:
		_, hit := invokeMatchPlaceholders[s]
		return hit
	case Query:
		return s == "n/a"
	}
	return false
}

// isEmptyContainer catches typed slices and maps from Go callers ([]string{}, map[string]string{}).
func isEmptyContainer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func cloneSlice(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		switch val := v.(type) {
		case map[string]any:
			out[i] = cloneMap(val)
		case []any:
			out[i] = cloneSlice(val)
		default:
			out[i] = v
		}
	}
	return out
}

// Clone returns a deep copy of args. Nested objects and arrays are copied too.
func Clone(args Args) Args { return cloneMap(args) }

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case map[string]any:
			out[k] = cloneMap(val)
		case []any:
			out[k] = cloneSlice(val)
		default:
			out[k] = v
		}
	}
	return out
}
