package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/conduit-lang/docapi/internal/web/ratelimit"
	"github.com/conduit-lang/docapi/internal/web/response"
	"go.uber.org/zap"
)

// RateLimitKeyFunc extracts the rate limit key of a request
type RateLimitKeyFunc func(*http.Request) string

// RateLimitConfig holds configuration for rate limiting middleware
type RateLimitConfig struct {
	// Limiter decides whether a request is admitted
	Limiter ratelimit.Limiter
	// KeyFunc extracts the key; requests with an empty key are not limited
	KeyFunc RateLimitKeyFunc
	// Logger receives limiter failures; the request is admitted on failure
	Logger *zap.Logger
	// Now is the clock used for Retry-After
	Now func() time.Time
}

// RateLimit limits requests per client IP
func RateLimit(limiter ratelimit.Limiter, logger *zap.Logger) Middleware {
	return RateLimitWithConfig(RateLimitConfig{Limiter: limiter, KeyFunc: ClientIP, Logger: logger})
}

// RateLimitWithConfig creates a rate limiting middleware. Rejected requests
// get 429 with a Retry-After header; every response carries the
// X-RateLimit-* headers.
func RateLimitWithConfig(config RateLimitConfig) Middleware {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIP
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := config.KeyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			d, err := config.Limiter.Allow(r.Context(), key)
			if err != nil {
				config.Logger.Warn("rate limiter failed, admitting request",
					zap.String("key", key),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retry := int64(d.ResetAt.Sub(config.Now()).Seconds() + 0.999)
				if retry < 0 {
					retry = 0
				}
				h.Set("Retry-After", strconv.FormatInt(retry, 10))
				response.RenderText(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For address, X-Real-IP, or the
// host of RemoteAddr
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
