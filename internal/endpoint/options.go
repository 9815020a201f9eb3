package endpoint

import (
	"time"

	"github.com/conduit-lang/docapi/internal/hooks"
	"github.com/conduit-lang/docapi/internal/store"
	"github.com/conduit-lang/docapi/internal/tracking"
	"github.com/conduit-lang/docapi/internal/web/query"
	"go.uber.org/zap"
)

// Default pagination applied when an endpoint configures none
const (
	DefaultPerPage   = 50
	DefaultSortField = store.IDField
)

// CascadeFilter prepares an embedded related document before it is saved to
// its own collection. Returning a nil document drops the relation value.
type CascadeFilter func(ctx *hooks.Context, relation string, doc store.Document) (store.Document, error)

// Cascade configures saving of embedded related documents
type Cascade struct {
	// AllowedRelations are the reference paths whose embedded documents are
	// saved
	AllowedRelations []string
	// Filter is applied to each embedded document before it is saved
	Filter CascadeFilter
}

func (c *Cascade) allows(path string) bool {
	if c == nil {
		return false
	}
	for _, r := range c.AllowedRelations {
		if r == path {
			return true
		}
	}
	return false
}

// Options holds the mutable configuration of an endpoint
type Options struct {
	// QueryParams are the glob patterns of query keys that may filter lists
	QueryParams []string
	// Pagination holds the defaults for list requests
	Pagination query.Pagination
	// Populate lists the reference fields expanded on reads
	Populate []store.Populate
	// LimitFields restricts list results to these fields; empty means all
	LimitFields []string
	// AllowBulkPost enables POST {path}/bulk
	AllowBulkPost bool
	// Cascade saves embedded related documents when set
	Cascade *Cascade
	// Matcher decides whether a query key is permitted
	Matcher query.Matcher
}

// DefaultOptions returns the options of a new endpoint
func DefaultOptions() Options {
	return Options{
		QueryParams: []string{},
		Pagination: query.Pagination{
			Page:      1,
			PerPage:   DefaultPerPage,
			SortField: DefaultSortField,
		},
		Populate: []store.Populate{},
		Matcher:  query.GlobMatcher,
	}
}

// Option configures a Builder at construction
type Option func(*Builder)

// WithPagination sets the default page size and sort field
func WithPagination(perPage int, sortField string) Option {
	return func(b *Builder) {
		b.ep.options.Pagination.PerPage = perPage
		if sortField != "" {
			b.ep.options.Pagination.SortField = sortField
		}
	}
}

// WithQueryParams sets the permitted query-key patterns
func WithQueryParams(patterns ...string) Option {
	return func(b *Builder) {
		b.ep.options.QueryParams = append([]string{}, patterns...)
	}
}

// WithMatcher replaces the glob predicate deciding permitted query keys
func WithMatcher(m query.Matcher) Option {
	return func(b *Builder) {
		if m != nil {
			b.ep.options.Matcher = m
		}
	}
}

// WithTracker sets the collaborator receiving one event per request
func WithTracker(t tracking.Tracker) Option {
	return func(b *Builder) {
		if t != nil {
			b.ep.tracker = t
		}
	}
}

// WithLogger sets the endpoint logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.ep.logger = l
		}
	}
}

// WithClock sets the clock used for request timing
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.ep.now = now
		}
	}
}
