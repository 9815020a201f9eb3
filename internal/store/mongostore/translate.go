package mongostore

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/web/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// translateFilter turns a compiled filter into a MongoDB query document.
// Hex strings on id-typed fields become ObjectIDs; compiled regular
// expressions become BSON regexes.
func translateFilter(m *store.Model, f query.Filter) bson.M {
	out := make(bson.M, len(f))
	for path, cond := range f {
		out[path] = translateCondition(isIDField(m, path), cond)
	}
	return out
}

func translateCondition(ids bool, cond any) any {
	switch c := cond.(type) {
	case query.Ops:
		out := make(bson.M, len(c))
		for op, operand := range c {
			if op == query.OpExists {
				out[op] = operand
				continue
			}
			out[op] = translateCondition(ids, operand)
		}
		return out
	case []any:
		out := make(bson.A, len(c))
		for i, el := range c {
			out[i] = translateCondition(ids, el)
		}
		return out
	case *regexp.Regexp:
		return toRegex(c)
	case string:
		if ids {
			return objectID(c)
		}
		return c
	}
	return cond
}

// toRegex converts a Go regular expression into a BSON regex, moving a
// leading case-insensitivity flag into the options
func toRegex(re *regexp.Regexp) primitive.Regex {
	pattern := re.String()
	if strings.HasPrefix(pattern, "(?i)") {
		return primitive.Regex{Pattern: strings.TrimPrefix(pattern, "(?i)"), Options: "i"}
	}
	return primitive.Regex{Pattern: pattern}
}

func isIDField(m *store.Model, path string) bool {
	if path == store.IDField {
		return true
	}
	if _, ok := m.RefFor(path); ok {
		return true
	}
	return m.FieldType(path) == store.TypeID
}

// objectID converts a 24 character hex string into an ObjectID. Other
// strings are kept so that collections with string keys keep working.
func objectID(s string) any {
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return oid
	}
	return s
}

// toBSON prepares a document for writing. Id and reference fields are
// converted to ObjectIDs.
func toBSON(m *store.Model, doc store.Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if !isIDField(m, k) {
			out[k] = v
			continue
		}
		out[k] = idValue(v)
	}
	return out
}

func idValue(v any) any {
	switch val := v.(type) {
	case string:
		return objectID(val)
	case []any:
		out := make(bson.A, len(val))
		for i, el := range val {
			out[i] = idValue(el)
		}
		return out
	case []string:
		out := make(bson.A, len(val))
		for i, el := range val {
			out[i] = objectID(el)
		}
		return out
	}
	return v
}

// fromBSON converts a decoded document into plain Go values: ObjectIDs
// become hex strings and BSON dates become time.Time
func fromBSON(raw bson.M) store.Document {
	return store.Document(plain(raw).(map[string]any))
}

func plain(v any) any {
	switch val := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(val))
		for k, el := range val {
			out[k] = plain(el)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, el := range val {
			out[k] = plain(el)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = plain(el)
		}
		return out
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Regex:
		return val.Pattern
	}
	return v
}

// sortDocument builds the sort specification of a find
func sortDocument(keys []query.SortKey) bson.D {
	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: k.Field, Value: dir})
	}
	return out
}

// projection builds the projection of a find; the id is always returned
func projection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	out := make(bson.D, 0, len(sorted))
	for _, f := range sorted {
		out = append(out, bson.E{Key: f, Value: 1})
	}
	return out
}

// stamp is used for documents written without an id
func stamp() primitive.ObjectID {
	return primitive.NewObjectIDFromTimestamp(time.Now())
}
