// Package cachepolicy declares how long each class of response may be reused
// by downstream caches. It never stores anything itself.
package cachepolicy

import (
	"fmt"
	"net/http"
	"time"
)

// Class groups responses that share a freshness requirement.
type Class int

const (
	// RealTime covers latest quotes.
	RealTime Class = iota
	// Historical covers daily and annual series.
	Historical
	// Indicator covers named economic series.
	Indicator
)

func (c Class) String() string {
	switch c {
	case RealTime:
		return "realtime"
	case Historical:
		return "historical"
	case Indicator:
		return "indicator"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// NoStore is sent with error responses.
const NoStore = "no-store"

// Policy maps classes to TTLs.
type Policy struct {
	RealTime   time.Duration
	Historical time.Duration
	Indicator  time.Duration
}

// Default returns the standard TTLs.
func Default() Policy {
	return Policy{RealTime: 300 * time.Second, Historical: time.Hour, Indicator: 300 * time.Second}
}

// Validate rejects non-positive TTLs.
func (p Policy) Validate() error {
	for _, c := range []Class{RealTime, Historical, Indicator} {
		if p.TTL(c) <= 0 {
			return fmt.Errorf("cache ttl for %s must be > 0", c)
		}
	}
	return nil
}

// TTL returns the lifetime declared for c.
func (p Policy) TTL(c Class) time.Duration {
	switch c {
	case RealTime:
		return p.RealTime
	case Historical:
		return p.Historical
	case Indicator:
		return p.Indicator
	}
	return 0
}

// Header renders the Cache-Control value for c.
func (p Policy) Header(c Class) string {
	ttl := p.TTL(c)
	if ttl <= 0 {
		return NoStore
	}
	n := int64(ttl / time.Second)
	return fmt.Sprintf("public, max-age=%d, s-maxage=%d, stale-while-revalidate=%d", n, n, n)
}

// Apply sets the Cache-Control header for c on h.
func (p Policy) Apply(h http.Header, c Class) {
	h.Set("Cache-Control", p.Header(c))
}
