package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// sweepThreshold is the bucket count above which idle buckets are dropped
const sweepThreshold = 1024

// TokenBucket is an in-process limiter refilling limit tokens per window
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a token bucket limiter
func NewTokenBucket(limit int, window time.Duration) (*TokenBucket, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}
	return &TokenBucket{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}, nil
}

// Allow implements Limiter
func (tb *TokenBucket) Allow(_ context.Context, key string) (Decision, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		if len(tb.buckets) >= sweepThreshold {
			tb.sweep(now)
		}
		b = &bucket{tokens: float64(tb.limit), last: now}
		tb.buckets[key] = b
	}

	rate := float64(tb.limit) / tb.window.Seconds()
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * rate
		if b.tokens > float64(tb.limit) {
			b.tokens = float64(tb.limit)
		}
		b.last = now
	}

	d := Decision{Limit: tb.limit}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
	}
	d.Remaining = int(b.tokens)
	d.ResetAt = now.Add(time.Duration((1 - (b.tokens - float64(d.Remaining))) / rate * float64(time.Second)))
	return d, nil
}

// sweep drops buckets that have refilled completely
func (tb *TokenBucket) sweep(now time.Time) {
	for key, b := range tb.buckets {
		if now.Sub(b.last) >= tb.window {
			delete(tb.buckets, key)
		}
	}
}
