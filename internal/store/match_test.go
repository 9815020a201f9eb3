package store

import (
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/conduit-lang/docapi/internal/web/query"
	"github.com/stretchr/testify/assert"
)

func sampleDoc() Document {
	return Document{
		"_id":     "u1",
		"name":    "Ada",
		"age":     float64(36),
		"tags":    []any{"math", "engines"},
		"born":    time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC),
		"address": map[string]any{"city": "London"},
		"active":  true,
	}
}

func TestMatch(t *testing.T) {
	doc := sampleDoc()

	tests := []struct {
		name   string
		filter query.Filter
		want   bool
	}{
		{"empty filter", query.Filter{}, true},
		{"literal", query.Filter{"name": "Ada"}, true},
		{"literal mismatch", query.Filter{"name": "Grace"}, false},
		{"number literal from int", query.Filter{"age": 36}, true},
		{"array contains", query.Filter{"tags": "math"}, true},
		{"array missing element", query.Filter{"tags": "poetry"}, false},
		{"dotted path", query.Filter{"address.city": "London"}, true},
		{"missing field literal", query.Filter{"nickname": "A"}, false},
		{"gte", query.Filter{"age": query.Ops{query.OpGte: float64(36)}}, true},
		{"gt", query.Filter{"age": query.Ops{query.OpGt: float64(36)}}, false},
		{"range", query.Filter{"age": query.Ops{query.OpGte: float64(30), query.OpLt: float64(40)}}, true},
		{"string vs number does not compare", query.Filter{"age": query.Ops{query.OpGte: "30"}}, false},
		{"date lt", query.Filter{"born": query.Ops{query.OpLt: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)}}, true},
		{"in", query.Filter{"name": query.Ops{query.OpIn: []any{"Grace", "Ada"}}}, true},
		{"in array field", query.Filter{"tags": query.Ops{query.OpIn: []any{"engines"}}}, true},
		{"in miss", query.Filter{"name": query.Ops{query.OpIn: []any{"Grace"}}}, false},
		{"ne", query.Filter{"name": query.Ops{query.OpNe: "Grace"}}, true},
		{"ne missing field", query.Filter{"nickname": query.Ops{query.OpNe: "A"}}, true},
		{"exists", query.Filter{"name": query.Ops{query.OpExists: true}}, true},
		{"exists false", query.Filter{"nickname": query.Ops{query.OpExists: false}}, true},
		{"not exists", query.Filter{"nickname": query.Ops{query.OpExists: true}}, false},
		{"ne operand is a value", query.Filter{"name": query.Ops{query.OpNe: query.Ops{query.OpExists: true}}}, true},
		{"in operand is a value", query.Filter{"name": query.Ops{query.OpIn: []any{query.Ops{query.OpExists: true}}}}, false},
		{"lt operand is a value", query.Filter{"name": query.Ops{query.OpLt: query.Ops{query.OpExists: true}}}, false},
		{"regex operand is a value", query.Filter{"name": query.Ops{query.OpRegex: query.Ops{query.OpExists: true}}}, false},
		{"regex", query.Filter{"name": query.Ops{query.OpRegex: regexp.MustCompile("^A")}}, true},
		{"regex case", query.Filter{"name": query.Ops{query.OpRegex: regexp.MustCompile("^a")}}, false},
		{"regex insensitive", query.Filter{"name": query.Ops{query.OpRegex: regexp.MustCompile("(?i)^a")}}, true},
		{"regex on array", query.Filter{"tags": query.Ops{query.OpRegex: regexp.MustCompile("^eng")}}, true},
		{"bool literal", query.Filter{"active": true}, true},
		{"every field must match", query.Filter{"name": "Ada", "age": float64(1)}, false},
		{"unknown operator", query.Filter{"name": query.Ops{"$where": "x"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(doc, tt.filter))
		})
	}
}

func TestSort(t *testing.T) {
	docs := []Document{
		{"_id": "a", "age": float64(30), "name": "b"},
		{"_id": "b", "name": "a"},
		{"_id": "c", "age": float64(20), "name": "c"},
		{"_id": "d", "age": float64(30), "name": "a"},
	}

	Sort(docs, []query.SortKey{{Field: "age", Desc: true}, {Field: "name"}})

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID()
	}
	assert.Equal(t, []string{"d", "a", "c", "b"}, ids)
}

func TestPage(t *testing.T) {
	docs := make([]Document, 5)
	for i := range docs {
		docs[i] = Document{"_id": string(rune('a' + i))}
	}

	assert.Len(t, Page(docs, query.Pagination{Page: 1, PerPage: 2}), 2)
	assert.Equal(t, "e", Page(docs, query.Pagination{Page: 3, PerPage: 2})[0].ID())
	assert.Empty(t, Page(docs, query.Pagination{Page: 4, PerPage: 2}))
	assert.Len(t, Page(docs, query.Pagination{Page: 1}), 5)
	assert.Empty(t, Page(docs, query.Pagination{Page: 2305843009213693953, PerPage: 4}))
	assert.Empty(t, Page(docs, query.Pagination{Page: math.MaxInt, PerPage: math.MaxInt}))
}

func TestProject(t *testing.T) {
	doc := sampleDoc()

	out := Project(doc, []string{"name", "address.city", "missing"})
	assert.Equal(t, Document{
		"_id":     "u1",
		"name":    "Ada",
		"address": map[string]any{"city": "London"},
	}, out)

	assert.Equal(t, doc, Project(doc, nil))
}

func TestLookupThroughArrays(t *testing.T) {
	doc := Document{"items": []any{
		map[string]any{"sku": "a"},
		map[string]any{"sku": "b"},
		map[string]any{"other": 1},
	}}

	v, ok := Lookup(doc, "items.sku")
	assert.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, v)

	assert.True(t, Match(doc, query.Filter{"items.sku": "b"}))
}
