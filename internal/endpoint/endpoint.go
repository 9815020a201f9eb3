package endpoint

import (
	"fmt"
	"net/http"
	"time"

	"github.com/conduit-lang/docapi/internal/hooks"
	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/tracking"
	"github.com/conduit-lang/docapi/internal/verb"
	"github.com/conduit-lang/docapi/internal/web/middleware"
	"github.com/conduit-lang/docapi/internal/web/query"
	"go.uber.org/zap"
)

// Endpoint serves the documents of one model at one path
type Endpoint struct {
	path    string
	model   *store.Model
	store   store.Store
	options Options

	hooks      *hooks.Registry
	middleware *middleware.Table

	tracker tracking.Tracker
	logger  *zap.Logger
	now     func() time.Time
}

// Path returns the path the endpoint is mounted at
func (e *Endpoint) Path() string {
	return e.path
}

// Model returns the model served by the endpoint
func (e *Endpoint) Model() *store.Model {
	return e.model
}

// Options returns a copy of the endpoint options
func (e *Endpoint) Options() Options {
	o := e.options
	o.QueryParams = append([]string{}, o.QueryParams...)
	o.Populate = append([]store.Populate{}, o.Populate...)
	o.LimitFields = append([]string(nil), o.LimitFields...)
	return o
}

// Hooks returns the hook registry of the endpoint
func (e *Endpoint) Hooks() *hooks.Registry {
	return e.hooks
}

// Middleware returns the per-verb middleware table of the endpoint
func (e *Endpoint) Middleware() *middleware.Table {
	return e.middleware
}

// Verbs returns the verbs the endpoint serves
func (e *Endpoint) Verbs() []verb.Verb {
	return verb.Concrete(e.options.AllowBulkPost)
}

// instrument builds the interceptor placed first in every verb chain
func (e *Endpoint) instrument(v verb.Verb) middleware.Middleware {
	return middleware.TrackingWithConfig(middleware.TrackingConfig{
		Endpoint: e.path,
		Method:   v.String(),
		Tracker:  e.tracker,
		Now:      e.now,
		Logger:   e.logger,
	})
}

// compileFilter is the built-in pre_filter tap of list requests. It adds the
// permitted query-string constraints to the incoming filter.
func (e *Endpoint) compileFilter(ctx *hooks.Context, value any) hooks.Result {
	filter, err := toFilter(value)
	if err != nil {
		return hooks.Fail(err)
	}

	r := ctx.Request()
	if r == nil {
		return hooks.Continue(filter)
	}

	params := query.Values(r.URL.Query())
	delete(params, query.PageParam)
	delete(params, query.PerPageParam)
	delete(params, query.SortParam)

	compiler := &query.Compiler{
		Patterns: e.options.QueryParams,
		Match:    e.options.Matcher,
	}
	for k, v := range compiler.Compile(params) {
		filter[k] = v
	}

	return hooks.Continue(filter)
}

// List returns the page of documents selected by the request query
func (e *Endpoint) List(r *http.Request) (any, error) {
	return e.newRequest(r, verb.List).list()
}

// Fetch returns the document with id
func (e *Endpoint) Fetch(r *http.Request, id string) (any, error) {
	return e.newRequest(r, verb.Fetch).fetch(id)
}

// Post creates the document in the request body
func (e *Endpoint) Post(r *http.Request) (any, error) {
	return e.newRequest(r, verb.Post).post()
}

// BulkPost creates every document of the JSON array in the request body
func (e *Endpoint) BulkPost(r *http.Request) (any, error) {
	rq := e.newRequest(r, verb.BulkPost)
	if !e.options.AllowBulkPost {
		return rq.fail(ErrBulkDisabled)
	}
	return rq.bulkPost()
}

// Put applies the request body to the document with id
func (e *Endpoint) Put(r *http.Request, id string) (any, error) {
	return e.newRequest(r, verb.Put).put(id)
}

// Delete removes the document with id
func (e *Endpoint) Delete(r *http.Request, id string) (any, error) {
	return e.newRequest(r, verb.Delete).delete(id)
}

// toFilter accepts the value threaded through pre_filter taps
func toFilter(value any) (query.Filter, error) {
	switch f := value.(type) {
	case nil:
		return query.Filter{}, nil
	case query.Filter:
		return f.Clone(), nil
	case map[string]any:
		return query.Filter(f).Clone(), nil
	case store.Document:
		return query.Filter(f).Clone(), nil
	default:
		return nil, fmt.Errorf("pre_filter produced %T, want a filter", value)
	}
}

// toDocument accepts the value threaded through document hooks. A nil
// value means the document is not visible to the request.
func toDocument(value any) (store.Document, error) {
	switch d := value.(type) {
	case nil:
		return nil, store.ErrNotFound
	case store.Document:
		return d, nil
	case map[string]any:
		return store.Document(d), nil
	default:
		return nil, fmt.Errorf("hook produced %T, want a document", value)
	}
}
