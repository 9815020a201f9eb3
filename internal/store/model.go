package store

import (
	"fmt"
	"sort"
	"strings"
)

// FieldType is the declared type of a model field. It drives how query-string
// values are cast before they reach a driver.
type FieldType string

// Field types
const (
	TypeAny    FieldType = "any"
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeDate   FieldType = "date"
	TypeID     FieldType = "id"
	TypeObject FieldType = "object"
	TypeArray  FieldType = "array"
)

var fieldTypes = map[string]FieldType{
	"any":      TypeAny,
	"mixed":    TypeAny,
	"string":   TypeString,
	"number":   TypeNumber,
	"float":    TypeNumber,
	"int":      TypeNumber,
	"integer":  TypeNumber,
	"bool":     TypeBool,
	"boolean":  TypeBool,
	"date":     TypeDate,
	"time":     TypeDate,
	"id":       TypeID,
	"objectid": TypeID,
	"ref":      TypeID,
	"object":   TypeObject,
	"array":    TypeArray,
}

// ParseFieldType converts a declared type name into a FieldType
func ParseFieldType(s string) (FieldType, error) {
	t, ok := fieldTypes[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown field type: %q", s)
	}
	return t, nil
}

// Ref declares that a field holds the id (or, if Many, the ids) of documents
// in another collection
type Ref struct {
	Collection string
	Many       bool
}

// Model describes a collection of documents
type Model struct {
	// Name identifies the model in logs and errors
	Name string
	// Collection is the collection or table the documents live in
	Collection string
	// Fields maps field paths to their types; unlisted fields are untyped
	Fields map[string]FieldType
	// Refs maps field paths to the collections they reference
	Refs map[string]Ref
}

// NewModel creates a model stored in a collection of the same name
func NewModel(name string) *Model {
	return &Model{
		Name:       name,
		Collection: name,
		Fields:     make(map[string]FieldType),
		Refs:       make(map[string]Ref),
	}
}

// Field declares the type of a field
func (m *Model) Field(path string, t FieldType) *Model {
	m.Fields[path] = t
	return m
}

// Reference declares a reference field
func (m *Model) Reference(path, collection string, many bool) *Model {
	m.Refs[path] = Ref{Collection: collection, Many: many}
	if many {
		m.Fields[path] = TypeArray
	} else {
		m.Fields[path] = TypeID
	}
	return m
}

// FieldType returns the declared type of path, TypeAny if undeclared
func (m *Model) FieldType(path string) FieldType {
	if path == IDField {
		return TypeID
	}
	if t, ok := m.Fields[path]; ok {
		return t
	}
	return TypeAny
}

// RefFor returns the reference declared on path
func (m *Model) RefFor(path string) (Ref, bool) {
	r, ok := m.Refs[path]
	return r, ok
}

// Related returns the model of the collection referenced by path
func (m *Model) Related(path string) (*Model, error) {
	r, ok := m.RefFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownReference, m.Name, path)
	}
	return NewModel(r.Collection), nil
}

// References returns the reference field paths in sorted order
func (m *Model) References() []string {
	out := make([]string, 0, len(m.Refs))
	for p := range m.Refs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Validate checks that the model can be stored
func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("model is required")
	}
	if m.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if m.Collection == "" {
		return fmt.Errorf("model %s: collection is required", m.Name)
	}
	for p, r := range m.Refs {
		if r.Collection == "" {
			return fmt.Errorf("model %s: reference %s has no collection", m.Name, p)
		}
	}
	return nil
}
