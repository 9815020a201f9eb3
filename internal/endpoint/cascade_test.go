package endpoint

import (
	"context"
	"net/http"
	"testing"

	"github.com/conduit-lang/docapi/internal/hooks"
	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/web/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stored(t *testing.T, s store.Store, collection, id string) store.Document {
	t.Helper()
	doc, err := s.FindOne(context.Background(), store.NewModel(collection), query.Filter{store.IDField: id}, nil)
	require.NoError(t, err, "%s %s", collection, id)
	return doc
}

func missing(t *testing.T, s store.Store, collection, id string) {
	t.Helper()
	_, err := s.FindOne(context.Background(), store.NewModel(collection), query.Filter{store.IDField: id}, nil)
	assert.ErrorIs(t, err, store.ErrNotFound, "%s %s", collection, id)
}

func TestCascade_SavesAllowedRelation(t *testing.T) {
	s := store.NewMemory()
	_, err := s.Insert(context.Background(), store.NewModel("companies"), store.Document{"_id": "c1", "name": "old"})
	require.NoError(t, err)

	h := mount(t, New("/users", userModel(), s).Cascade([]string{"company"}, nil))

	tests := []struct {
		name    string
		company map[string]any
		wantID  string
		wantDoc string
	}{
		{"updates known id", map[string]any{"_id": "c1", "name": "renamed"}, "c1", "renamed"},
		{"inserts unknown id", map[string]any{"_id": "c9", "name": "fresh"}, "c9", "fresh"},
		{"inserts without id", map[string]any{"name": "acme"}, "", "acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/users", map[string]any{"name": "ada", "company": tt.company})
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			id, ok := decode[map[string]any](t, w)["company"].(string)
			require.True(t, ok)
			if tt.wantID != "" {
				assert.Equal(t, tt.wantID, id)
			}
			assert.Equal(t, tt.wantDoc, stored(t, s, "companies", id)["name"])
		})
	}
}

func TestCascade_ManyReferences(t *testing.T) {
	s := store.NewMemory()
	h := mount(t, New("/users", userModel(), s).Cascade([]string{"tags"}, nil))

	w := do(t, h, http.MethodPost, "/users", map[string]any{
		"name": "ada",
		"tags": []any{
			map[string]any{"name": "go"},
			map[string]any{"_id": "t1", "name": "db"},
			"t2",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	tags, ok := decode[map[string]any](t, w)["tags"].([]any)
	require.True(t, ok)
	require.Len(t, tags, 3)
	assert.Equal(t, "t1", tags[1])
	assert.Equal(t, "t2", tags[2])

	first, ok := tags[0].(string)
	require.True(t, ok)
	assert.Equal(t, "go", stored(t, s, "tags", first)["name"])
	assert.Equal(t, "db", stored(t, s, "tags", "t1")["name"])
	missing(t, s, "tags", "t2")
}

func TestCascade_OtherRelationsAreReduced(t *testing.T) {
	s := store.NewMemory()
	h := mount(t, New("/users", userModel(), s).Cascade([]string{"company"}, nil))

	w := do(t, h, http.MethodPost, "/users", map[string]any{
		"name": "ada",
		"tags": []any{
			map[string]any{"_id": "t1", "name": "kept as id"},
			map[string]any{"name": "dropped"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []any{"t1"}, decode[map[string]any](t, w)["tags"])
	missing(t, s, "tags", "t1")

	// no cascade configured: every relation is reduced
	h = mount(t, New("/users", userModel(), s))

	w = do(t, h, http.MethodPost, "/users", map[string]any{
		"name":    "grace",
		"company": map[string]any{"name": "acme"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, decode[map[string]any](t, w), "company")

	w = do(t, h, http.MethodPost, "/users", map[string]any{
		"name":    "alan",
		"company": map[string]any{"_id": "c1", "name": "ignored"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "c1", decode[map[string]any](t, w)["company"])
	missing(t, s, "companies", "c1")
}

func TestCascade_FilterDropsValues(t *testing.T) {
	s := store.NewMemory()
	var seen []string
	filter := func(ctx *hooks.Context, relation string, doc store.Document) (store.Document, error) {
		seen = append(seen, relation)
		if doc["name"] == "skip" {
			return nil, nil
		}
		doc["checked"] = true
		return doc, nil
	}

	h := mount(t, New("/users", userModel(), s).Cascade([]string{"company", "tags"}, filter))

	w := do(t, h, http.MethodPost, "/users", map[string]any{
		"name":    "ada",
		"company": map[string]any{"name": "skip"},
		"tags": []any{
			map[string]any{"name": "skip"},
			map[string]any{"_id": "t1", "name": "go"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode[map[string]any](t, w)
	assert.NotContains(t, created, "company")
	assert.Equal(t, []any{"t1"}, created["tags"])
	assert.Equal(t, true, stored(t, s, "tags", "t1")["checked"])
	assert.ElementsMatch(t, []string{"company", "tags", "tags"}, seen)
}

func TestCascade_FilterErrorFailsRequest(t *testing.T) {
	s := store.NewMemory()
	filter := func(ctx *hooks.Context, relation string, doc store.Document) (store.Document, error) {
		return nil, NewError(http.StatusUnprocessableEntity, "company rejected")
	}

	h := mount(t, New("/users", userModel(), s).Cascade([]string{"company"}, filter))

	w := do(t, h, http.MethodPost, "/users", map[string]any{
		"name":    "ada",
		"company": map[string]any{"name": "acme"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "company rejected", w.Body.String())

	docs, err := s.Find(context.Background(), userModel(), store.Query{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCascade_AppliesOnPut(t *testing.T) {
	s := store.NewMemory()
	h := mount(t, New("/users", userModel(), s).Cascade([]string{"company"}, nil))

	w := do(t, h, http.MethodPost, "/users", map[string]any{"name": "ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[map[string]any](t, w)["_id"].(string)

	w = do(t, h, http.MethodPut, "/users/"+id, map[string]any{"company": map[string]any{"name": "acme"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	companyID, ok := decode[map[string]any](t, w)["company"].(string)
	require.True(t, ok)
	assert.Equal(t, "acme", stored(t, s, "companies", companyID)["name"])
}
