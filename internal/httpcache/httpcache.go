// Package httpcache memoizes successful GET responses for as long as their
// own Cache-Control header allows (s-maxage, else max-age). Concurrent misses
// for the same URL share a single handler run.
package httpcache

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/marstr/collection/v2"
	"golang.org/x/sync/singleflight"
)

// Header names set on served responses.
const (
	HeaderCache = "X-Cache"
	HeaderAge   = "Age"
)

type entry struct {
	status  int
	header  http.Header
	body    []byte
	stored  time.Time
	expires time.Time
}

// Observer is told about each lookup; hit is false for misses and uncacheable
// responses.
type Observer func(hit bool)

// Cache is an in-memory, size-bounded response memo.
type Cache struct {
	mu  sync.Mutex
	lru *collection.LRUCache[string, entry]
	sf  singleflight.Group

	now      func() time.Time
	observer Observer
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithObserver reports hits and misses.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// New returns a cache holding at most capacity responses.
func New(capacity uint, opts ...Option) *Cache {
	c := &Cache{
		lru: collection.NewLRUCache[string, entry](capacity),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) get(key string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Get(key)
	if !ok || !c.now().Before(e.expires) {
		return entry{}, false
	}
	return e, true
}

func (c *Cache) put(key string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Put(key, e)
}

func (c *Cache) observe(hit bool) {
	if c.observer != nil {
		c.observer(hit)
	}
}

// Middleware serves cached GET responses and stores cacheable ones.
func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		key := r.URL.RequestURI()

		if e, ok := c.get(key); ok {
			c.observe(true)
			write(w, e, "HIT", c.now())
			return
		}
		c.observe(false)

		v, _, _ := c.sf.Do(key, func() (any, error) {
			// Re-check: another flight may have just stored it.
			if e, ok := c.get(key); ok {
				return e, nil
			}
			rec := newRecorder()
			// Waiters share this run, so one caller going away must not cancel it.
			next.ServeHTTP(rec, r.WithContext(context.WithoutCancel(r.Context())))

			now := c.now()
			e := entry{status: rec.status, header: rec.header, body: rec.body.Bytes(), stored: now}
			if ttl, ok := cacheable(rec.status, rec.header); ok {
				e.expires = now.Add(ttl)
				c.put(key, e)
			}
			return e, nil
		})
		write(w, v.(entry), "MISS", c.now())
	})
}

func write(w http.ResponseWriter, e entry, state string, now time.Time) {
	h := w.Header()
	for k, vals := range e.header {
		h[k] = append([]string(nil), vals...)
	}
	h.Set(HeaderCache, state)
	if state == "HIT" {
		h.Set(HeaderAge, strconv.Itoa(int(now.Sub(e.stored)/time.Second)))
	}
	w.WriteHeader(e.status)
	_, _ = w.Write(e.body)
}

// cacheable reports the shared-cache lifetime of a response.
func cacheable(status int, h http.Header) (time.Duration, bool) {
	if status != http.StatusOK {
		return 0, false
	}
	var maxAge, sMaxAge = -1, -1
	for _, directive := range strings.Split(h.Get("Cache-Control"), ",") {
		directive = strings.ToLower(strings.TrimSpace(directive))
		switch {
		case directive == "no-store", directive == "private", directive == "no-cache":
			return 0, false
		case strings.HasPrefix(directive, "s-maxage="):
			sMaxAge, _ = strconv.Atoi(strings.TrimPrefix(directive, "s-maxage="))
		case strings.HasPrefix(directive, "max-age="):
			maxAge, _ = strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
		}
	}
	secs := sMaxAge
	if secs < 0 {
		secs = maxAge
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// recorder buffers a handler's response so it can be replayed to waiters.
type recorder struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newRecorder() *recorder {
	return &recorder{header: http.Header{}, status: http.StatusOK}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.body.Write(b)
}
