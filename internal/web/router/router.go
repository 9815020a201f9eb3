package router

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/conduit-lang/docapi/internal/web/middleware"
	"github.com/go-chi/chi/v5"
)

// Router manages HTTP routing using chi framework
type Router struct {
	mux chi.Router

	// Middleware chain applied to every route
	chain *middleware.Chain

	// For introspection and debugging
	mu               sync.RWMutex
	registeredRoutes []*RouteInfo
}

// Route represents a single registered route
type Route struct {
	info *RouteInfo
}

// RouteInfo provides metadata about a route for introspection
type RouteInfo struct {
	Pattern    string
	Method     string
	Name       string
	Resource   string // endpoint path the route belongs to
	Verb       string // fetch, list, post, put, delete, bulkpost
	Middleware int    // number of middleware in the verb chain
	Parameters []RouteParameter
}

// RouteParameter describes a parameter in a route
type RouteParameter struct {
	Name     string
	Type     string // id, int, string
	Required bool
	Source   ParameterSource // path, query, header
}

// ParameterSource indicates where a parameter comes from
type ParameterSource int

const (
	// PathParam indicates a URL path parameter
	PathParam ParameterSource = iota
	// QueryParam indicates a URL query parameter
	QueryParam
	// HeaderParam indicates an HTTP header parameter
	HeaderParam
)

// String returns the string representation of ParameterSource
func (p ParameterSource) String() string {
	switch p {
	case PathParam:
		return "path"
	case QueryParam:
		return "query"
	case HeaderParam:
		return "header"
	default:
		return "unknown"
	}
}

// NewRouter creates a new Router instance
func NewRouter() *Router {
	return &Router{
		mux:              chi.NewRouter(),
		chain:            middleware.NewChain(),
		registeredRoutes: make([]*RouteInfo, 0),
	}
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware applied to every route. chi requires Use to be called
// before any route is registered.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.chain.Use(m)
		r.mux.Use(m)
	}
}

// Middlewares returns the router-wide middleware in registration order
func (r *Router) Middlewares() []middleware.Middleware {
	return r.chain.Middlewares()
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.Handler) *Route {
	return r.Handle(http.MethodGet, pattern, handler)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.Handler) *Route {
	return r.Handle(http.MethodPost, pattern, handler)
}

// Put registers a PUT route
func (r *Router) Put(pattern string, handler http.Handler) *Route {
	return r.Handle(http.MethodPut, pattern, handler)
}

// Delete registers a DELETE route
func (r *Router) Delete(pattern string, handler http.Handler) *Route {
	return r.Handle(http.MethodDelete, pattern, handler)
}

// Handle registers handler for method and pattern
func (r *Router) Handle(method, pattern string, handler http.Handler) *Route {
	r.mux.Method(method, pattern, handler)

	info := &RouteInfo{
		Pattern:    pattern,
		Method:     method,
		Parameters: extractParameters(pattern),
	}

	r.mu.Lock()
	r.registeredRoutes = append(r.registeredRoutes, info)
	r.mu.Unlock()

	return &Route{info: info}
}

// Mount attaches a handler under pattern, e.g. the metrics endpoint
func (r *Router) Mount(pattern string, handler http.Handler) {
	r.mux.Mount(pattern, handler)

	r.mu.Lock()
	r.registeredRoutes = append(r.registeredRoutes, &RouteInfo{
		Pattern: pattern,
		Method:  "*",
	})
	r.mu.Unlock()
}

// Named sets a name for the route
func (route *Route) Named(name string) *Route {
	route.info.Name = name
	return route
}

// WithResource records which endpoint and verb serve the route
func (route *Route) WithResource(resource, verb string, middlewareCount int) *Route {
	route.info.Resource = resource
	route.info.Verb = verb
	route.info.Middleware = middlewareCount
	return route
}

// Info returns the introspection record of the route
func (route *Route) Info() RouteInfo {
	return *route.info
}

// GetRoutes returns all registered routes for introspection
func (r *Router) GetRoutes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]RouteInfo, len(r.registeredRoutes))
	for i, info := range r.registeredRoutes {
		routes[i] = *info
	}
	return routes
}

// GetRoute returns a route by name
func (r *Router) GetRoute(name string) (RouteInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, info := range r.registeredRoutes {
		if info.Name == name {
			return *info, nil
		}
	}
	return RouteInfo{}, fmt.Errorf("route not found: %s", name)
}

// NotFound sets the handler for 404 Not Found
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.NotFound(handler)
}

// MethodNotAllowed sets the handler for 405 Method Not Allowed
func (r *Router) MethodNotAllowed(handler http.HandlerFunc) {
	r.mux.MethodNotAllowed(handler)
}

// extractParameters extracts parameter definitions from a route pattern
func extractParameters(pattern string) []RouteParameter {
	params := make([]RouteParameter, 0)
	parts := strings.Split(pattern, "/")

	for _, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			paramName := strings.Trim(part, "{}")
			if i := strings.Index(paramName, ":"); i >= 0 {
				paramName = paramName[:i]
			}
			params = append(params, RouteParameter{
				Name:     paramName,
				Type:     inferParameterType(paramName),
				Required: true,
				Source:   PathParam,
			})
		}
	}

	return params
}

// inferParameterType infers the type of a parameter from its name
func inferParameterType(name string) string {
	if name == "id" || strings.HasSuffix(name, "_id") || strings.HasSuffix(name, "Id") {
		return "id"
	}
	if strings.HasPrefix(name, "page") || strings.HasPrefix(name, "limit") ||
		strings.HasPrefix(name, "offset") || strings.HasPrefix(name, "count") {
		return "int"
	}
	return "string"
}
