// Package endpoint binds a document model to a set of CRUD routes whose
// behavior is customized through hooks and per-verb middleware.
//
// An endpoint is described with a Builder and frozen by Build:
//
//	ep, err := endpoint.New("/users", users, db, endpoint.WithTracker(t)).
//		AllowQueryParam("name", "age").
//		Populate("company", "name").
//		Tap(hooks.PreResponse, verb.Wildcard, redact).
//		Build()
//
// After Build the endpoint serves requests and no further hooks or
// middleware can be registered.
package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/docapi/internal/hooks"
	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/tracking"
	"github.com/conduit-lang/docapi/internal/verb"
	"github.com/conduit-lang/docapi/internal/web/middleware"
	"go.uber.org/zap"
)

// Builder assembles an Endpoint. Its methods return the builder so calls can
// be chained; failures are collected and reported by Build.
type Builder struct {
	ep    *Endpoint
	errs  []error
	built bool
}

// New starts describing the endpoint mounted at path serving model from s.
// The list filter compiler and the request instrumentation are installed
// here, ahead of anything registered later.
func New(path string, model *store.Model, s store.Store, opts ...Option) *Builder {
	ep := &Endpoint{
		path:    path,
		model:   model,
		store:   s,
		options: DefaultOptions(),
		tracker: tracking.Nop,
		logger:  zap.NewNop(),
		now:     time.Now,
	}

	b := &Builder{ep: ep}
	for _, opt := range opts {
		opt(b)
	}

	ep.logger = ep.logger.With(zap.String("endpoint", path))
	ep.hooks = hooks.NewRegistry(ep.logger)
	ep.middleware = middleware.NewTable(ep.instrument)

	if _, err := ep.hooks.Tap(hooks.PreFilter, verb.List, ep.compileFilter); err != nil {
		b.fail(err)
	}

	return b
}

func (b *Builder) fail(err error) {
	b.errs = append(b.errs, err)
}

// mutable records ErrBuilt when the endpoint is already frozen
func (b *Builder) mutable(op string) bool {
	if b.built {
		b.fail(fmt.Errorf("%s: %w", op, ErrBuilt))
		return false
	}
	return true
}

// Populate expands the reference field on reads, keeping only subfields of
// the referenced documents when any are given
func (b *Builder) Populate(field string, subfields ...string) *Builder {
	if !b.mutable("populate") {
		return b
	}
	if field == "" {
		b.fail(errors.New("populate: empty field"))
		return b
	}
	b.ep.options.Populate = append(b.ep.options.Populate, store.Populate{
		Field:  field,
		Select: append([]string(nil), subfields...),
	})
	return b
}

// PopulateEach expands every given reference field in full
func (b *Builder) PopulateEach(fields ...string) *Builder {
	for _, f := range fields {
		b.Populate(f)
	}
	return b
}

// AllowQueryParam permits query keys matching the glob patterns to filter
// list requests
func (b *Builder) AllowQueryParam(patterns ...string) *Builder {
	if !b.mutable("allow query param") {
		return b
	}
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			b.fail(errors.New("allow query param: empty pattern"))
			continue
		}
		b.ep.options.QueryParams = append(b.ep.options.QueryParams, p)
	}
	return b
}

// LimitFields restricts list results to fields
func (b *Builder) LimitFields(fields ...string) *Builder {
	if !b.mutable("limit fields") {
		return b
	}
	b.ep.options.LimitFields = append([]string(nil), fields...)
	return b
}

// Cascade saves embedded documents on the allowed relation paths to their
// own collections, passing each through filter first
func (b *Builder) Cascade(allowed []string, filter CascadeFilter) *Builder {
	if !b.mutable("cascade") {
		return b
	}
	b.ep.options.Cascade = &Cascade{
		AllowedRelations: append([]string(nil), allowed...),
		Filter:           filter,
	}
	return b
}

// AllowBulkPost enables POST {path}/bulk. Wildcard hooks and middleware
// registered before this call do not apply to bulkpost.
func (b *Builder) AllowBulkPost() *Builder {
	if !b.mutable("allow bulk post") {
		return b
	}
	b.ep.options.AllowBulkPost = true
	b.ep.hooks.EnableBulk()
	b.ep.middleware.EnableBulk()
	return b
}

// Tap registers fn on (hook, v)
func (b *Builder) Tap(hook hooks.Hook, v verb.Verb, fn hooks.Tap) *Builder {
	b.TapDetachable(hook, v, fn)
	return b
}

// TapDetachable registers fn on (hook, v) and returns the handle removing
// exactly this registration. The handle stays usable after Build.
func (b *Builder) TapDetachable(hook hooks.Hook, v verb.Verb, fn hooks.Tap) hooks.Detach {
	if !b.mutable("tap") {
		return func() bool { return false }
	}
	detach, err := b.ep.hooks.Tap(hook, v, fn)
	if err != nil {
		b.fail(err)
		return func() bool { return false }
	}
	return detach
}

// AddMiddleware appends mws to the chain of v
func (b *Builder) AddMiddleware(v verb.Verb, mws ...middleware.Middleware) *Builder {
	if !b.mutable("add middleware") {
		return b
	}
	if err := b.ep.middleware.Add(v, mws...); err != nil {
		b.fail(err)
	}
	return b
}

// Build validates the description and freezes the endpoint. Every failure
// recorded by the builder is returned joined.
func (b *Builder) Build() (*Endpoint, error) {
	errs := append([]error(nil), b.errs...)
	errs = append(errs, b.ep.validate()...)

	if len(errs) > 0 {
		return nil, fmt.Errorf("endpoint %s: %w", b.ep.path, errors.Join(errs...))
	}

	if !b.built {
		b.built = true
		b.ep.hooks.Freeze()
		b.ep.middleware.Freeze()
	}
	return b.ep, nil
}

// validate checks the endpoint description
func (e *Endpoint) validate() []error {
	var errs []error

	if e.path == "" || !strings.HasPrefix(e.path, "/") {
		errs = append(errs, fmt.Errorf("path %q must start with /", e.path))
	} else if len(e.path) > 1 && strings.HasSuffix(e.path, "/") {
		errs = append(errs, fmt.Errorf("path %q must not end with /", e.path))
	}
	if e.store == nil {
		errs = append(errs, errors.New("store is required"))
	}
	if e.model == nil {
		errs = append(errs, errors.New("model is required"))
		return errs
	}
	if err := e.model.Validate(); err != nil {
		errs = append(errs, err)
	}
	if e.options.Pagination.PerPage <= 0 {
		errs = append(errs, fmt.Errorf("per page must be positive, got %d", e.options.Pagination.PerPage))
	}

	for _, p := range e.options.Populate {
		if _, ok := e.model.RefFor(p.Field); !ok {
			errs = append(errs, fmt.Errorf("populate %q: %w", p.Field, store.ErrUnknownReference))
		}
	}
	if c := e.options.Cascade; c != nil {
		for _, rel := range c.AllowedRelations {
			if _, ok := e.model.RefFor(rel); !ok {
				errs = append(errs, fmt.Errorf("cascade %q: %w", rel, store.ErrUnknownReference))
			}
		}
	}

	return errs
}
