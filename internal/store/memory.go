package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/conduit-lang/docapi/internal/web/query"
	"github.com/google/uuid"
)

// collection holds the documents of one collection in insertion order
type collection struct {
	docs  map[string]Document
	order []string
}

// Memory is an in-process Store. Documents are copied on the way in and out,
// so callers never share state with the store.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*collection
	newID       func() string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*collection),
		newID:       func() string { return uuid.New().String() },
	}
}

func (s *Memory) collection(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]Document)}
		s.collections[name] = c
	}
	return c
}

// snapshot returns copies of the documents matching filter in insertion order
func (s *Memory) snapshot(m *Model, filter query.Filter) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[m.Collection]
	if !ok {
		return []Document{}
	}

	out := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		doc := c.docs[id]
		if Match(doc, filter) {
			out = append(out, doc.Clone())
		}
	}
	return out
}

// Find implements Store
func (s *Memory) Find(ctx context.Context, m *Model, q Query) ([]Document, error) {
	docs := s.snapshot(m, q.Filter)
	Sort(docs, q.Pagination.SortKeys())
	docs = Page(docs, q.Pagination)

	if err := PopulateDocuments(ctx, s, m, docs, q.Populate); err != nil {
		return nil, err
	}
	for i, doc := range docs {
		docs[i] = Project(doc, q.Fields)
	}
	return docs, nil
}

// FindOne implements Store
func (s *Memory) FindOne(ctx context.Context, m *Model, filter query.Filter, populate []Populate) (Document, error) {
	docs := s.snapshot(m, filter)
	if len(docs) == 0 {
		return nil, ErrNotFound
	}

	doc := docs[0]
	if err := PopulateDocuments(ctx, s, m, []Document{doc}, populate); err != nil {
		return nil, err
	}
	return doc, nil
}

// Insert implements Store
func (s *Memory) Insert(ctx context.Context, m *Model, doc Document) (Document, error) {
	docs, err := s.InsertMany(ctx, m, []Document{doc})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

// InsertMany implements Store. Either every document is inserted or none.
func (s *Memory) InsertMany(_ context.Context, m *Model, docs []Document) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(m.Collection)

	prepared := make([]Document, len(docs))
	pending := make(map[string]bool, len(docs))
	for i, doc := range docs {
		cp := doc.Clone()
		if cp == nil {
			cp = Document{}
		}
		if cp.ID() == "" {
			cp[IDField] = s.newID()
		}
		id := cp.ID()
		if _, exists := c.docs[id]; exists || pending[id] {
			return nil, fmt.Errorf("%w: %s %s", ErrConflict, m.Name, id)
		}
		pending[id] = true
		prepared[i] = cp
	}

	out := make([]Document, len(prepared))
	for i, doc := range prepared {
		id := doc.ID()
		c.docs[id] = doc
		c.order = append(c.order, id)
		out[i] = doc.Clone()
	}
	return out, nil
}

// Update implements Store. The stored document is replaced by doc; its id is
// kept.
func (s *Memory) Update(_ context.Context, m *Model, id string, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[m.Collection]
	if !ok {
		return nil, ErrNotFound
	}
	if _, exists := c.docs[id]; !exists {
		return nil, ErrNotFound
	}

	cp := doc.Clone()
	if cp == nil {
		cp = Document{}
	}
	cp[IDField] = id
	c.docs[id] = cp
	return cp.Clone(), nil
}

// Delete implements Store
func (s *Memory) Delete(_ context.Context, m *Model, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[m.Collection]
	if !ok {
		return ErrNotFound
	}
	if _, exists := c.docs[id]; !exists {
		return ErrNotFound
	}

	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close implements Store
func (s *Memory) Close(context.Context) error {
	return nil
}
