package store

import (
	"errors"
	"testing"
	"time"

	"github.com/conduit-lang/docapi/internal/web/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userModel() *Model {
	return NewModel("users").
		Field("name", TypeString).
		Field("age", TypeNumber).
		Field("active", TypeBool).
		Field("born", TypeDate).
		Reference("company", "companies", false)
}

func TestCastFilter(t *testing.T) {
	m := userModel()

	out, err := m.CastFilter(query.Filter{
		"name":   "Ada",
		"age":    query.Ops{query.OpGte: "18", query.OpIn: []any{"20", "30"}},
		"active": "true",
		"born":   query.Ops{query.OpLt: "2000-01-01"},
		"notes":  "42",
		"email":  query.Ops{query.OpExists: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", out["name"])
	assert.Equal(t, query.Ops{query.OpGte: float64(18), query.OpIn: []any{float64(20), float64(30)}}, out["age"])
	assert.Equal(t, true, out["active"])
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), out["born"].(query.Ops)[query.OpLt])
	assert.Equal(t, "42", out["notes"], "untyped fields are left alone")
	assert.Equal(t, query.Ops{query.OpExists: true}, out["email"])
}

func TestCastFilterKeepsExistsOperand(t *testing.T) {
	m := userModel()

	out, err := m.CastFilter(query.Filter{
		"age": query.Ops{query.OpNe: query.Ops{query.OpExists: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, query.Ops{query.OpNe: query.Ops{query.OpExists: true}}, out["age"])
}

func TestCastFilterInvalid(t *testing.T) {
	m := userModel()

	_, err := m.CastFilter(query.Filter{"age": "old"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-01", "2024-03-01T10:00:00Z", "1709287200000"} {
		_, err := ParseDate(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseDate("March")
	assert.Error(t, err)
}

func TestCastDocument(t *testing.T) {
	m := userModel()
	doc := Document{"born": "1815-12-10", "name": "Ada"}

	require.NoError(t, m.CastDocument(doc))
	assert.Equal(t, time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC), doc["born"])

	assert.Error(t, m.CastDocument(Document{"born": "soon"}))
}

func TestModel(t *testing.T) {
	m := userModel()

	assert.Equal(t, TypeID, m.FieldType("_id"))
	assert.Equal(t, TypeID, m.FieldType("company"))
	assert.Equal(t, TypeAny, m.FieldType("unknown"))
	assert.Equal(t, []string{"company"}, m.References())

	related, err := m.Related("company")
	require.NoError(t, err)
	assert.Equal(t, "companies", related.Collection)

	_, err = m.Related("name")
	assert.ErrorIs(t, err, ErrUnknownReference)

	assert.NoError(t, m.Validate())
	assert.Error(t, (&Model{Name: "x"}).Validate())
}

func TestParseFieldType(t *testing.T) {
	ft, err := ParseFieldType("Integer")
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, ft)

	_, err = ParseFieldType("blob")
	assert.Error(t, err)
}
