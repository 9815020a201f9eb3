package middleware

import (
	"net/http"
	"strings"
)

// Predicate decides whether a middleware applies to a request
type Predicate func(*http.Request) bool

// Unless applies mw to every request for which predicate is false
func Unless(predicate Predicate, mw Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if predicate(r) {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// PathEquals matches requests for exactly path
func PathEquals(path string) Predicate {
	return func(r *http.Request) bool {
		return r.URL.Path == path
	}
}

// PathPrefix matches requests under prefix
func PathPrefix(prefix string) Predicate {
	return func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.Path, prefix)
	}
}

// Or matches when any predicate does
func Or(predicates ...Predicate) Predicate {
	return func(r *http.Request) bool {
		for _, p := range predicates {
			if p(r) {
				return true
			}
		}
		return false
	}
}
