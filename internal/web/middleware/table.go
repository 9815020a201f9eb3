package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/conduit-lang/docapi/internal/verb"
)

// ErrFrozen is returned when middleware is added after the table was frozen
var ErrFrozen = errors.New("middleware: table is frozen")

// Table holds one middleware list per verb of an endpoint. Index 0 of every
// list is the instrumentation middleware installed by NewTable; it cannot be
// removed or replaced.
type Table struct {
	mu     sync.RWMutex
	chains map[verb.Verb][]Middleware
	bulk   bool
	frozen bool
}

// NewTable creates a table whose lists start with instrument(v) for every
// verb, bulkpost included
func NewTable(instrument func(verb.Verb) Middleware) *Table {
	t := &Table{
		chains: make(map[verb.Verb][]Middleware),
	}
	for _, v := range verb.Every() {
		var first Middleware
		if instrument != nil {
			first = instrument(v)
		}
		if first == nil {
			first = passthrough
		}
		t.chains[v] = []Middleware{first}
	}
	return t
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// Add appends mws to the list of target. The wildcard verbs all and * reach
// every verb, and bulkpost only if EnableBulk was called before.
func (t *Table) Add(target verb.Verb, mws ...Middleware) error {
	for i, m := range mws {
		if m == nil {
			return fmt.Errorf("middleware: nil middleware at position %d for %s", i, target)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return fmt.Errorf("%w: cannot add middleware to %s", ErrFrozen, target)
	}

	verbs, err := verb.Expand(target, t.bulk)
	if err != nil {
		return fmt.Errorf("middleware: %w", err)
	}

	for _, v := range verbs {
		t.chains[v] = append(t.chains[v], mws...)
	}
	return nil
}

// AddChain appends the middleware of c to the list of target
func (t *Table) AddChain(target verb.Verb, c *Chain) error {
	if c == nil {
		return nil
	}
	return t.Add(target, c.Middlewares()...)
}

// EnableBulk makes later wildcard additions reach bulkpost
func (t *Table) EnableBulk() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bulk = true
}

// Freeze rejects every later addition
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Middleware returns a copy of the list for v
func (t *Table) Middleware(v verb.Verb) []Middleware {
	t.mu.RLock()
	defer t.mu.RUnlock()

	list := t.chains[v]
	out := make([]Middleware, len(list))
	copy(out, list)
	return out
}

// Len returns the length of the list for v
func (t *Table) Len(v verb.Verb) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.chains[v])
}

// Chain returns the list for v as a chain
func (t *Table) Chain(v verb.Verb) *Chain {
	return NewChain(t.Middleware(v)...)
}

// Handler wraps h with the list for v
func (t *Table) Handler(v verb.Verb, h http.Handler) http.Handler {
	return t.Chain(v).Then(h)
}
