// Package verb defines the CRUD verbs a resource endpoint serves and the
// wildcard expansion rules shared by hooks and middleware.
package verb

import (
	"fmt"
	"strings"
)

// Verb is a CRUD operation served by a resource endpoint
type Verb string

const (
	// Fetch retrieves a single document (GET /{id})
	Fetch Verb = "fetch"
	// List retrieves a filtered, paginated set of documents (GET /)
	List Verb = "list"
	// Post creates a document (POST /)
	Post Verb = "post"
	// Put updates a document (PUT /{id})
	Put Verb = "put"
	// Delete removes a document (DELETE /{id})
	Delete Verb = "delete"
	// BulkPost creates several documents at once (POST /bulk)
	BulkPost Verb = "bulkpost"

	// Wildcard targets every concrete verb
	Wildcard Verb = "*"
	// All is an alias of Wildcard accepted by middleware registration
	All Verb = "all"
)

// concrete is the fixed expansion order for wildcard registrations
var concrete = []Verb{List, Fetch, Post, Put, Delete}

// aliases maps alternative spellings onto canonical verbs
var aliases = map[string]Verb{
	"fetch":    Fetch,
	"show":     Fetch,
	"get":      Fetch,
	"list":     List,
	"index":    List,
	"post":     Post,
	"create":   Post,
	"put":      Put,
	"update":   Put,
	"delete":   Delete,
	"destroy":  Delete,
	"bulkpost": BulkPost,
	"bulk":     BulkPost,
	"*":        Wildcard,
	"all":      All,
}

// Parse converts a string into a Verb, accepting common aliases
// such as "create" for post and "update" for put.
func Parse(s string) (Verb, error) {
	v, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown verb: %q", s)
	}
	return v, nil
}

// IsWildcard reports whether v fans out to several verbs
func (v Verb) IsWildcard() bool {
	return v == Wildcard || v == All
}

// IsConcrete reports whether v names a single operation
func (v Verb) IsConcrete() bool {
	switch v {
	case Fetch, List, Post, Put, Delete, BulkPost:
		return true
	}
	return false
}

// String returns the string representation of the verb
func (v Verb) String() string {
	return string(v)
}

// Concrete returns the verbs a wildcard registration reaches right now.
// BulkPost is included only when bulk is true; callers pass the state of
// the bulk-create option at registration time, so enabling bulk later
// does not reach registrations that already happened.
func Concrete(bulk bool) []Verb {
	out := make([]Verb, len(concrete), len(concrete)+1)
	copy(out, concrete)
	if bulk {
		out = append(out, BulkPost)
	}
	return out
}

// Every returns all concrete verbs including BulkPost
func Every() []Verb {
	return Concrete(true)
}

// Expand resolves v, or one of its aliases, into the concrete verbs it
// targets
func Expand(v Verb, bulk bool) ([]Verb, error) {
	if !v.IsWildcard() && !v.IsConcrete() {
		parsed, err := Parse(string(v))
		if err != nil {
			return nil, err
		}
		v = parsed
	}
	if v.IsWildcard() {
		return Concrete(bulk), nil
	}
	return []Verb{v}, nil
}
