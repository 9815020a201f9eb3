package hooks

import (
	"errors"
)

// Hook names a lifecycle point of a request where taps run
type Hook string

const (
	// PreFilter runs before documents are queried. For list and fetch it
	// receives the query filter; put and delete load their document through
	// the fetch chain.
	PreFilter Hook = "pre_filter"
	// PostRetrieve runs after the document of a put or delete is loaded and
	// before it is mutated
	PostRetrieve Hook = "post_retrieve"
	// PreSave runs once per document of a post, put or bulkpost right before
	// it is persisted
	PreSave Hook = "pre_save"
	// PreResponse runs after the operation succeeds, before serialization
	PreResponse Hook = "pre_response"
	// PreResponseError runs when the operation fails, before the error is
	// serialized
	PreResponseError Hook = "pre_response_error"
)

// String returns the hook name
func (h Hook) String() string {
	return string(h)
}

// Tap is a function bound to a (hook, verb) pair. It receives the request
// context and the current value of the chain and decides how the chain
// continues by returning a Result.
type Tap func(ctx *Context, value any) Result

// Detach removes the entries inserted by one Tap registration. It reports
// whether anything was removed; calling it again is a no-op.
type Detach func() bool

var (
	// ErrFrozen is returned when a tap is registered after the registry has
	// been frozen
	ErrFrozen = errors.New("hooks: registry is frozen")
	// ErrNoResult is returned when a tap returns the zero Result
	ErrNoResult = errors.New("hooks: tap returned no result")
	// ErrAbandoned is returned when an awaited completion channel is closed
	// without delivering an outcome
	ErrAbandoned = errors.New("hooks: asynchronous tap abandoned its result")
)
