package store

import (
	"strings"
)

// Project returns a copy of doc reduced to fields. The primary key is always
// kept. Dotted paths select nested fields. An empty field list returns doc
// unchanged.
func Project(doc Document, fields []string) Document {
	if len(fields) == 0 || doc == nil {
		return doc
	}

	out := Document{}
	if id, ok := doc[IDField]; ok {
		out[IDField] = id
	}
	for _, f := range fields {
		copyPath(map[string]any(out), map[string]any(doc), strings.Split(f, "."))
	}
	return out
}

func copyPath(dst, src map[string]any, parts []string) {
	v, ok := src[parts[0]]
	if !ok {
		return
	}
	if len(parts) == 1 {
		dst[parts[0]] = cloneValue(v)
		return
	}

	child, ok := asMap(v)
	if !ok {
		return
	}
	next, ok := dst[parts[0]].(map[string]any)
	if !ok {
		next = make(map[string]any)
		dst[parts[0]] = next
	}
	copyPath(next, child, parts[1:])
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return map[string]any(m), true
	}
	return nil, false
}
