package hooks

import (
	"context"
	"net/http"

	"github.com/conduit-lang/docapi/internal/verb"
	"go.uber.org/zap"
)

// Context wraps the request context with endpoint-specific information
// for tap execution
type Context struct {
	context.Context
	request *http.Request
	path    string
	verb    verb.Verb
	hook    Hook
	logger  *zap.Logger
}

// NewContext creates a new tap context for a request against the endpoint
// mounted at path
func NewContext(ctx context.Context, r *http.Request, path string, v verb.Verb) *Context {
	return &Context{
		Context: ctx,
		request: r,
		path:    path,
		verb:    v,
		logger:  zap.NewNop(),
	}
}

// WithLogger creates a new context using logger
func (c *Context) WithLogger(logger *zap.Logger) *Context {
	cp := *c
	if logger == nil {
		logger = zap.NewNop()
	}
	cp.logger = logger
	return &cp
}

// at returns a copy of the context positioned at hook
func (c *Context) at(hook Hook) *Context {
	cp := *c
	cp.hook = hook
	return &cp
}

// Request returns the inbound HTTP request (may be nil outside HTTP)
func (c *Context) Request() *http.Request {
	return c.request
}

// Path returns the endpoint path
func (c *Context) Path() string {
	return c.path
}

// Verb returns the verb of the request being served
func (c *Context) Verb() verb.Verb {
	return c.verb
}

// Hook returns the hook currently running
func (c *Context) Hook() Hook {
	return c.hook
}

// Logger returns the endpoint logger
func (c *Context) Logger() *zap.Logger {
	return c.logger
}
