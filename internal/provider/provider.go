package provider

import (
	"context"
	"time"
)

// Source labels that never name a real provider. Consumers key their
// live/offline indicator off these values.
const (
	SourceSimulated      = "simulated"
	SourceCachedFallback = "cached-fallback"
)

// QuoteRequest describes one logical data need. AsOf zero means "latest";
// Start/End are set for historical windows.
type QuoteRequest struct {
	Pair  Pair
	AsOf  time.Time
	Days  int
	Start time.Time
	End   time.Time
}

// Historical reports whether the request asks for a window rather than a point.
func (r QuoteRequest) Historical() bool {
	return r.Days > 0 || !r.Start.IsZero() || !r.End.IsZero()
}

// Result is what a single provider returns for a point-in-time quote.
// Providers either fill every field or return an error.
type Result struct {
	Provider  string    `json:"provider"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Change    float64   `json:"change"`
	PctChange float64   `json:"pctChange"`
	Timestamp time.Time `json:"timestamp"`
}

// Normalize converts a point result into the common daily schema.
func (r Result) Normalize() Quote {
	return Quote{
		Date:          Day(r.Timestamp),
		Bid:           Round(r.Bid, 4),
		Ask:           Round(r.Ask, 4),
		High:          Round(r.High, 4),
		Low:           Round(r.Low, 4),
		Change:        Round(r.Change, 4),
		ChangePercent: Round(r.PctChange, 2),
	}
}

// Quote is the normalized daily observation every provider and the
// synthetic generator must produce.
type Quote struct {
	Date          string  `json:"date"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// SeriesResponse is the unit returned to callers for historical data.
type SeriesResponse struct {
	Success   bool      `json:"success"`
	Source    string    `json:"source"`
	Currency  string    `json:"currency"`
	Period    string    `json:"period"`
	Count     int       `json:"count"`
	Data      []Quote   `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// SeriesPoint is a single dated value of an economic indicator.
type SeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// LatestProvider answers "what is the current quote for this pair".
//
//go:generate mockgen -package=providermock -destination=providermock/mock_provider.go -source=provider.go
type LatestProvider interface {
	Name() string
	Latest(ctx context.Context, req QuoteRequest) (Result, error)
}

// HistoryProvider answers a whole window in one call.
type HistoryProvider interface {
	Name() string
	History(ctx context.Context, req QuoteRequest) ([]Quote, error)
}

// DayLookup answers a single calendar day. It backs the per-day enrichment
// path only; it may return several observations for the same day.
type DayLookup interface {
	Name() string
	OnDate(ctx context.Context, pair Pair, day time.Time) ([]Result, error)
}
