package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"cambioproxy/internal/provider"
)

// Middleware rejects requests with 429 while tb is empty.
func Middleware(tb *TokenBucket, next http.Handler) http.Handler {
	if tb == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, wait := tb.take(); !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"error":"rate limited"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Guard fails fast with a rate-limited provider error instead of calling
// fetch when tb is empty, so a chain moves on to its next provider.
func Guard[T any](tb *TokenBucket, name string, fetch func(context.Context, provider.QuoteRequest) (T, error)) func(context.Context, provider.QuoteRequest) (T, error) {
	if tb == nil {
		return fetch
	}
	return func(ctx context.Context, req provider.QuoteRequest) (T, error) {
		if !tb.Allow() {
			var zero T
			return zero, provider.Unavailablef(name, provider.KindRateLimited, "local quota exhausted")
		}
		return fetch(ctx, req)
	}
}
