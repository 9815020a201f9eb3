package endpoint

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/docapi/internal/store"
	"go.uber.org/zap"
)

// cascade replaces embedded documents on reference fields with their ids.
// On allowed relations the embedded documents are saved first: inserted when
// they carry no id, updated otherwise. On other relations they are reduced to
// their id, or dropped when they have none.
func (rq *request) cascade(doc store.Document) (store.Document, error) {
	c := rq.e.options.Cascade

	for _, path := range rq.e.model.References() {
		value, ok := doc[path]
		if !ok || value == nil {
			continue
		}

		ref, _ := rq.e.model.RefFor(path)
		related, err := rq.e.model.Related(path)
		if err != nil {
			return nil, err
		}
		allowed := c.allows(path)

		if !ref.Many {
			id, keep, err := rq.cascadeOne(path, related, allowed, value)
			if err != nil {
				return nil, err
			}
			if keep {
				doc[path] = id
			} else {
				delete(doc, path)
			}
			continue
		}

		items, ok := value.([]any)
		if !ok {
			continue
		}
		ids := make([]any, 0, len(items))
		for _, item := range items {
			id, keep, err := rq.cascadeOne(path, related, allowed, item)
			if err != nil {
				return nil, err
			}
			if keep {
				ids = append(ids, id)
			}
		}
		doc[path] = ids
	}

	return doc, nil
}

// cascadeOne resolves a single relation value to the id stored in its place.
// keep is false when the value is dropped.
func (rq *request) cascadeOne(path string, related *store.Model, allowed bool, value any) (id any, keep bool, err error) {
	embedded, ok := asDocument(value)
	if !ok {
		return value, true, nil
	}

	if !allowed {
		if id, ok := embedded[store.IDField]; ok && id != nil {
			return id, true, nil
		}
		return nil, false, nil
	}

	if filter := rq.e.options.Cascade.Filter; filter != nil {
		embedded, err = filter(rq.ctx, path, embedded)
		if err != nil {
			return nil, false, fmt.Errorf("cascade %s: %w", path, err)
		}
		if embedded == nil {
			return nil, false, nil
		}
	}

	saved, err := rq.save(related, embedded)
	if err != nil {
		return nil, false, fmt.Errorf("cascade %s: %w", path, err)
	}

	rq.ctx.Logger().Debug("cascaded relation",
		zap.String("relation", path),
		zap.String("collection", related.Collection),
		zap.String("id", saved.ID()),
	)
	return saved[store.IDField], true, nil
}

// save writes an embedded document to the related collection
func (rq *request) save(related *store.Model, doc store.Document) (store.Document, error) {
	id := doc.ID()
	if id == "" {
		return rq.e.store.Insert(rq.ctx, related, doc)
	}

	updated, err := rq.e.store.Update(rq.ctx, related, id, doc)
	if errors.Is(err, store.ErrNotFound) {
		return rq.e.store.Insert(rq.ctx, related, doc)
	}
	return updated, err
}

func asDocument(value any) (store.Document, bool) {
	switch d := value.(type) {
	case store.Document:
		return d, true
	case map[string]any:
		return store.Document(d), true
	default:
		return nil, false
	}
}
