package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/conduit-lang/docapi/internal/web/query"
)

// IDString renders a primary key value as a string
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case interface{ Hex() string }:
		return id.Hex()
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

// Lookup resolves a dotted path inside a document. Arrays met along the way
// are traversed element by element and the collected values returned as a
// slice.
func Lookup(doc Document, path string) (any, bool) {
	return lookup(map[string]any(doc), strings.Split(path, "."))
}

func lookup(v any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return v, true
	}

	switch node := v.(type) {
	case map[string]any:
		child, ok := node[parts[0]]
		if !ok {
			return nil, false
		}
		return lookup(child, parts[1:])
	case Document:
		return lookup(map[string]any(node), parts)
	case []any:
		var out []any
		for _, el := range node {
			if found, ok := lookup(el, parts); ok {
				out = append(out, found)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// cloneValue deep-copies maps and slices
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, el := range val {
			out[k] = cloneValue(el)
		}
		return out
	case Document:
		return Document(cloneValue(map[string]any(val)).(map[string]any))
	case query.Ops:
		out := make(query.Ops, len(val))
		for k, el := range val {
			out[k] = cloneValue(el)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = cloneValue(el)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	}
	return v
}

// normalize maps numeric kinds onto float64 so that values decoded from JSON
// and values cast from query strings compare equal
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case Document:
		return map[string]any(n)
	}
	return v
}

// compare orders two scalar values of the same kind
func compare(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)

	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// equal reports whether two values are the same
func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}
