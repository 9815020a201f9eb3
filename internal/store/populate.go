package store

import (
	"context"
	"fmt"

	"github.com/conduit-lang/docapi/internal/web/query"
)

// PopulateDocuments replaces the ids held by the reference fields named in
// pops with the referenced documents, loaded through f with one query per
// field. Ids with no matching document become nil (single references) or are
// dropped (many references).
func PopulateDocuments(ctx context.Context, f Finder, m *Model, docs []Document, pops []Populate) error {
	for _, p := range pops {
		if err := populateField(ctx, f, m, docs, p); err != nil {
			return err
		}
	}
	return nil
}

func populateField(ctx context.Context, f Finder, m *Model, docs []Document, p Populate) error {
	ref, ok := m.RefFor(p.Field)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownReference, m.Name, p.Field)
	}

	var ids []any
	seen := make(map[string]bool)
	for _, doc := range docs {
		for _, id := range refIDs(doc[p.Field]) {
			key := IDString(id)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			ids = append(ids, key)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	related, err := f.Find(ctx, NewModel(ref.Collection), Query{
		Filter: query.Filter{IDField: query.Ops{query.OpIn: ids}},
	})
	if err != nil {
		return fmt.Errorf("failed to populate %s: %w", p.Field, err)
	}

	byID := make(map[string]Document, len(related))
	for _, r := range related {
		byID[r.ID()] = Project(r, p.Select)
	}

	for _, doc := range docs {
		v, present := doc[p.Field]
		if !present || v == nil {
			continue
		}
		if !ref.Many {
			ids := refIDs(v)
			if len(ids) == 0 {
				continue
			}
			if r, ok := byID[IDString(ids[0])]; ok {
				doc[p.Field] = r
			} else {
				doc[p.Field] = nil
			}
			continue
		}

		out := make([]any, 0)
		for _, id := range refIDs(v) {
			if r, ok := byID[IDString(id)]; ok {
				out = append(out, r)
			}
		}
		doc[p.Field] = out
	}
	return nil
}

// refIDs extracts the ids held by a reference field. Embedded documents
// contribute their own id.
func refIDs(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		var out []any
		for _, el := range val {
			out = append(out, refIDs(el)...)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case map[string]any:
		if id, ok := val[IDField]; ok {
			return []any{id}
		}
		return nil
	case Document:
		return refIDs(map[string]any(val))
	}
	return []any{v}
}
