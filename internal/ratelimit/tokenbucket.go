// Package ratelimit throttles inbound requests and keyed upstreams with a
// token bucket.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a classic token bucket.
// - rate: tokens per second
// - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
	rate     float64
	capacity float64
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewTokenBucket starts full to allow an initial burst.
func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	return newTokenBucket(tokensPerSecond, burst, time.Now)
}

func newTokenBucket(tokensPerSecond float64, burst int, now func() time.Time) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		now:      now,
		tokens:   float64(burst),
		last:     now(),
	}
}

// take refills and tries to consume one token. When none is available it
// returns how long until one will be.
func (tb *TokenBucket) take() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := tb.now()
	if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
		tb.tokens = min(tb.tokens+elapsed*tb.rate, tb.capacity)
		tb.last = now
	}
	if tb.tokens >= 1 {
		tb.tokens--
		return true, 0
	}
	wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
	return false, max(wait, time.Millisecond)
}

// Allow consumes a token if one is available, without blocking.
func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.take()
	return ok
}
