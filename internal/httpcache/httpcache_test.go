package httpcache_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cambioproxy/internal/httpcache"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func counting(cacheControl string, status int) (http.Handler, *atomic.Int32) {
	var calls atomic.Int32
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Cache-Control", cacheControl)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"n":`+strconv.Itoa(int(n))+`}`)
	}), &calls
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestMiddleware_ServesFromMemoWithinTTL(t *testing.T) {
	t.Parallel()

	// Arrange
	clk := &clock{now: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)}
	var hits, misses atomic.Int32
	cache := httpcache.New(16, httpcache.WithClock(clk.Now), httpcache.WithObserver(func(hit bool) {
		if hit {
			hits.Add(1)
		} else {
			misses.Add(1)
		}
	}))
	next, calls := counting("public, max-age=300, s-maxage=60, stale-while-revalidate=60", http.StatusOK)
	h := cache.Middleware(next)

	// Act + Assert: miss, then hit.
	first := get(t, h, "/api/exchange-rate?currencies=USD-BRL")
	require.Equal(t, "MISS", first.Header().Get(httpcache.HeaderCache))
	require.Equal(t, `{"n":1}`, first.Body.String())

	clk.Advance(30 * time.Second)
	second := get(t, h, "/api/exchange-rate?currencies=USD-BRL")
	require.Equal(t, "HIT", second.Header().Get(httpcache.HeaderCache))
	require.Equal(t, "30", second.Header().Get(httpcache.HeaderAge))
	require.Equal(t, `{"n":1}`, second.Body.String())
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
	require.EqualValues(t, 1, calls.Load())

	// A different query string is a different key.
	get(t, h, "/api/exchange-rate?currencies=EUR-BRL")
	require.EqualValues(t, 2, calls.Load())

	// s-maxage wins over max-age: expired after 60s.
	clk.Advance(31 * time.Second)
	third := get(t, h, "/api/exchange-rate?currencies=USD-BRL")
	require.Equal(t, "MISS", third.Header().Get(httpcache.HeaderCache))
	require.EqualValues(t, 3, calls.Load())
	require.EqualValues(t, 1, hits.Load())
	require.EqualValues(t, 3, misses.Load())
}

func TestMiddleware_NeverStoresNoStoreOrErrors(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		cacheControl string
		status       int
	}{
		"no-store": {"no-store", http.StatusOK},
		"error":    {"public, s-maxage=60", http.StatusInternalServerError},
		"no ttl":   {"", http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			next, calls := counting(tc.cacheControl, tc.status)
			h := httpcache.New(4).Middleware(next)

			first := get(t, h, "/x")
			require.Equal(t, tc.status, first.Code)
			get(t, h, "/x")
			require.EqualValues(t, 2, calls.Load())
		})
	}
}

func TestMiddleware_PassesThroughNonGET(t *testing.T) {
	t.Parallel()

	next, calls := counting("public, s-maxage=60", http.StatusOK)
	h := httpcache.New(4).Middleware(next)

	for range 2 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
		require.Empty(t, rec.Header().Get(httpcache.HeaderCache))
	}
	require.EqualValues(t, 2, calls.Load())
}

func TestMiddleware_CoalescesConcurrentMisses(t *testing.T) {
	t.Parallel()

	// Arrange: the handler blocks until every request is in flight.
	release := make(chan struct{})
	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Cache-Control", "public, s-maxage=60")
		_, _ = io.WriteString(w, "ok")
	})
	h := httpcache.New(4).Middleware(next)

	// Act
	var wg sync.WaitGroup
	bodies := make([]string, 8)
	for i := range bodies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bodies[i] = get(t, h, "/slow").Body.String()
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// Assert: one handler run; stragglers that miss the flight find the memo.
	require.EqualValues(t, 1, calls.Load())
	for _, b := range bodies {
		require.Equal(t, "ok", b)
	}
}
