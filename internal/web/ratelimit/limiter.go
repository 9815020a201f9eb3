// Package ratelimit decides whether a client may issue another request to
// an endpoint.
package ratelimit

import (
	"context"
	"time"
)

// Limiter admits or rejects one request for key
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Decision is the state of a key after a request was counted
type Decision struct {
	// Limit is the number of requests allowed per window
	Limit int
	// Remaining is the number of requests still allowed in the window
	Remaining int
	// ResetAt is when a rejected key may retry
	ResetAt time.Time
	// Allowed reports whether the request is admitted
	Allowed bool
}
