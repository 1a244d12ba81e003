package schema

import (
	"fmt"
	"sort"
)

// encodeScalar produces a stable string encoding of a JSON scalar value
// (string, float64, bool, nil) suitable for set-membership comparisons of
// enum values. It deliberately does not attempt to encode objects/arrays —
// JSON Schema enum members are expected to be scalars for this system's
// purposes; non-scalars fall back to fmt.Sprintf, which is stable for a
// single process run and good enough for equality, if not portable.
func encodeScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return "s:" + t
	case bool:
		if t {
			return "b:true"
		}
		return "b:false"
	case float64:
		return fmt.Sprintf("n:%g", t)
	case int:
		return fmt.Sprintf("n:%g", float64(t))
	default:
		return fmt.Sprintf("x:%v", t)
	}
}

// ValueEqual reports deep equality of two JSON scalar/array values using the
// same encoding rule as encodeScalar, extended to compare slices elementwise.
func ValueEqual(a, b any) bool {
	as, aok := a.([]any)
	bs, bok := b.([]any)
	if aok || bok {
		if !aok || !bok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !ValueEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return encodeScalar(a) == encodeScalar(b)
}

// sortedStrings returns a sorted copy of ss.
func sortedStrings(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}
