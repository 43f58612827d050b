// Package ratelimit provides request admission control for the JSON-RPC
// server using the token bucket algorithm. The limiter is a single unkeyed
// bucket; LimitMiddleware wraps any rpc.Handler and turns bucket denials
// into protocol-level "Too many requests" responses.
package ratelimit

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is an unkeyed token bucket sized in requests per minute, backed
// by golang.org/x/time/rate. Capacity N refills at N tokens per 60 seconds
// and the bucket starts full, so a fresh limiter admits N requests
// immediately. Checks never block and a denied check consumes no tokens.
// Safe for concurrent use.
type Limiter struct {
	bucket *rate.Limiter
	limit  int
}

// NewLimiter creates a limiter admitting requestsPerMinute requests per
// minute. A non-positive rate is a configuration error.
func NewLimiter(requestsPerMinute int) (*Limiter, error) {
	if requestsPerMinute <= 0 {
		return nil, fmt.Errorf("ratelimit: requests per minute must be positive, got %d", requestsPerMinute)
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
		limit:  requestsPerMinute,
	}, nil
}

// Allow attempts to consume one token.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

// AllowN attempts to consume n tokens at once. Either all n are consumed
// or none are.
func (l *Limiter) AllowN(n int) bool {
	return l.bucket.AllowN(time.Now(), n)
}

// Limit returns the configured requests-per-minute rate.
func (l *Limiter) Limit() int {
	return l.limit
}
