package main

import (
	"log/slog"
	"net/http"
	"time"

	"cambioproxy/internal/app"
	"cambioproxy/internal/config"
	"cambioproxy/internal/httpcache"
	"cambioproxy/internal/metrics"
	"cambioproxy/internal/ratelimit"
)

// newHandler assembles services, routes and the middleware stack.
func newHandler(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (http.Handler, error) {
	svc, err := app.Build(cfg, logger, m)
	if err != nil {
		return nil, err
	}
	a := &api{quotes: svc.Quotes, series: svc.Series, policy: cfg.Policy(), logger: logger, now: time.Now}
	mux := a.routes()
	mux.Handle("GET /metrics", m.Handler())

	var limiter *ratelimit.TokenBucket
	if cfg.Server.RateLimitRPS > 0 {
		limiter = ratelimit.NewTokenBucket(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	cache := httpcache.New(uint(cfg.Server.CacheMaxItems), httpcache.WithObserver(m.CacheLookup))

	return stack(logger, m, limiter, cache, cfg.Server.RequestTimeout(), mux), nil
}

// stack wraps h, innermost layer first. The deadline sits inside the cache,
// which detaches coalesced work from the caller's context.
func stack(logger *slog.Logger, m *metrics.Metrics, limiter *ratelimit.TokenBucket, cache *httpcache.Cache, timeout time.Duration, h http.Handler) http.Handler {
	h = withDeadline(timeout, h)
	h = cache.Middleware(h)
	h = ratelimit.Middleware(limiter, h)
	h = recoverPanic(logger, h)
	h = limitBody(h)
	h = withGzip(h)
	h = withJSONHeaders(h)
	h = withLogging(logger, m, h)
	return withRequestID(h)
}
