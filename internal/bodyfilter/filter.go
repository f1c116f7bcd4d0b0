// Package bodyfilter strips client-internal fields from request bodies
// before they are ever logged, mapped, or forwarded.
package bodyfilter

import "strings"

// FilterPrivate recursively removes every object key whose first byte
// is '_' from v, descending into maps, slices, and leaving primitives
// untouched. v is expected to be the result of json.Unmarshal into
// any (map[string]any / []any / primitives).
func FilterPrivate(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			if strings.HasPrefix(k, "_") {
				continue
			}
			out[k] = FilterPrivate(sub)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = FilterPrivate(sub)
		}
		return out
	default:
		return val
	}
}
