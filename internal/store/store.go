// Package store defines the document-store contract used by resource
// endpoints, together with the typing, filtering and population helpers that
// the drivers share.
package store

import (
	"context"
	"errors"

	"github.com/conduit-lang/docapi/internal/web/query"
)

// IDField is the primary key of every document
const IDField = "_id"

// Document is a schemaless record
type Document map[string]any

// ID returns the primary key of the document as a string
func (d Document) ID() string {
	return IDString(d[IDField])
}

// Clone returns a deep copy of the document
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

// Populate names a reference field whose ids are replaced by the referenced
// documents, optionally projected down to Select
type Populate struct {
	Field  string
	Select []string
}

// Query is everything a list request asks of a store
type Query struct {
	Filter     query.Filter
	Pagination query.Pagination
	Populate   []Populate
	// Fields limits the returned fields; empty means all
	Fields []string
}

// Finder finds documents
type Finder interface {
	Find(ctx context.Context, m *Model, q Query) ([]Document, error)
}

// Store persists the documents of a model. Filters, pagination and populate
// lists are received as compiled by the endpoint.
type Store interface {
	Finder
	FindOne(ctx context.Context, m *Model, filter query.Filter, populate []Populate) (Document, error)
	Insert(ctx context.Context, m *Model, doc Document) (Document, error)
	InsertMany(ctx context.Context, m *Model, docs []Document) ([]Document, error)
	Update(ctx context.Context, m *Model, id string, doc Document) (Document, error)
	Delete(ctx context.Context, m *Model, id string) error
	Close(ctx context.Context) error
}

// Common store errors
var (
	// ErrNotFound is returned when no document matches
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write collides with an existing document
	ErrConflict = errors.New("document already exists")
	// ErrInvalidValue is returned when a value cannot be cast to its field type
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownReference is returned when a field is not declared as a reference
	ErrUnknownReference = errors.New("field is not a reference")
)

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
