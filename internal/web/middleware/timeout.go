package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds the request context by d. Taps awaiting asynchronous work
// observe the deadline through the hook context; handlers are not
// interrupted otherwise. A non-positive d disables the middleware.
func Deadline(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
