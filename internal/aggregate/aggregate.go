// Package aggregate turns provider observations into a normalized daily
// series: windowing, per-day bucketing and the per-day enrichment fallback.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cambioproxy/internal/provider"
)

const (
	// MaxDays is the longest window served; larger requests are clamped.
	MaxDays = 360
	// DefaultDays applies when the caller gives no window.
	DefaultDays = 30
	// EnrichMaxDays bounds the per-day lookup path.
	EnrichMaxDays = 31
)

// Window is an inclusive range of Brasilia calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the window of days ending at end (today when zero).
// days is clamped into [1, MaxDays].
func LastDays(days int, end time.Time) Window {
	if end.IsZero() {
		end = time.Now()
	}
	days = min(max(days, 1), MaxDays)
	end = provider.Midnight(end)
	return Window{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// Between returns the window from start to end, swapping them when reversed
// and keeping at most the MaxDays that end at end.
func Between(start, end time.Time) Window {
	start, end = provider.Midnight(start), provider.Midnight(end)
	if end.Before(start) {
		start, end = end, start
	}
	if earliest := end.AddDate(0, 0, -(MaxDays - 1)); start.Before(earliest) {
		start = earliest
	}
	return Window{Start: start, End: end}
}

// Days counts the calendar days in w.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Round(24*time.Hour)/(24*time.Hour)) + 1
}

// Contains reports whether the ISO day falls inside w.
func (w Window) Contains(day string) bool {
	return day >= provider.Day(w.Start) && day <= provider.Day(w.End)
}

// Dates lists every day of w, oldest first.
func (w Window) Dates() []time.Time {
	out := make([]time.Time, 0, w.Days())
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Period renders the human label used in responses.
func (w Window) Period() string {
	return fmt.Sprintf("%d days", w.Days())
}

// Request builds the provider request covering w.
func (w Window) Request(pair provider.Pair) provider.QuoteRequest {
	return provider.QuoteRequest{Pair: pair, Days: w.Days(), Start: w.Start, End: w.End}
}

type sums struct {
	n                                          int
	bid, ask, high, low, change, changePercent float64
}

func (s *sums) add(q provider.Quote) {
	s.n++
	s.bid += q.Bid
	s.ask += q.Ask
	s.high += q.High
	s.low += q.Low
	s.change += q.Change
	s.changePercent += q.ChangePercent
}

func (s *sums) mean(date string) provider.Quote {
	n := float64(s.n)
	return provider.Quote{
		Date:          date,
		Bid:           provider.Round(s.bid/n, 4),
		Ask:           provider.Round(s.ask/n, 4),
		High:          provider.Round(s.high/n, 4),
		Low:           provider.Round(s.low/n, 4),
		Change:        provider.Round(s.change/n, 4),
		ChangePercent: provider.Round(s.changePercent/n, 2),
	}
}

// Normalize drops points outside w, averages points that share a day and
// returns strictly ascending dates. Days without data are omitted.
func Normalize(quotes []provider.Quote, w Window) []provider.Quote {
	return bucket(quotes, func(q provider.Quote) (string, bool) {
		if _, err := provider.ParseDay(q.Date); err != nil {
			return "", false
		}
		return q.Date, w.Contains(q.Date)
	})
}

// NormalizeResults converts point results and normalizes them into w.
func NormalizeResults(results []provider.Result, w Window) []provider.Quote {
	quotes := make([]provider.Quote, 0, len(results))
	for _, r := range results {
		quotes = append(quotes, r.Normalize())
	}
	return Normalize(quotes, w)
}

// QuotesByYear averages daily quotes into one quote per year dated YYYY-01-01.
func QuotesByYear(quotes []provider.Quote) []provider.Quote {
	return bucket(quotes, func(q provider.Quote) (string, bool) {
		if len(q.Date) < 4 {
			return "", false
		}
		return q.Date[:4] + "-01-01", true
	})
}

func bucket(quotes []provider.Quote, key func(provider.Quote) (string, bool)) []provider.Quote {
	groups := make(map[string]*sums, len(quotes))
	for _, q := range quotes {
		k, ok := key(q)
		if !ok {
			continue
		}
		s, ok := groups[k]
		if !ok {
			s = &sums{}
			groups[k] = s
		}
		s.add(q)
	}
	out := make([]provider.Quote, 0, len(groups))
	for k, s := range groups {
		out = append(out, s.mean(k))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ByYear averages points into one per year, dated YYYY-01-01.
func ByYear(points []provider.SeriesPoint) []provider.SeriesPoint {
	return bucketPoints(points, 4, "-01-01")
}

// ByMonth averages points into one per month, dated YYYY-MM-01.
func ByMonth(points []provider.SeriesPoint) []provider.SeriesPoint {
	return bucketPoints(points, 7, "-01")
}

func bucketPoints(points []provider.SeriesPoint, prefix int, suffix string) []provider.SeriesPoint {
	type acc struct {
		n   int
		sum float64
	}
	groups := make(map[string]*acc, len(points))
	for _, p := range points {
		if len(p.Date) < prefix {
			continue
		}
		k := p.Date[:prefix] + suffix
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.n++
		a.sum += p.Value
	}
	out := make([]provider.SeriesPoint, 0, len(groups))
	for k, a := range groups {
		out = append(out, provider.SeriesPoint{Date: k, Value: provider.Round(a.sum/float64(a.n), 4)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Enrich builds a series by asking lookup for one day at a time, sequentially.
// Only the most recent EnrichMaxDays of w are visited and the visited window
// is returned with the data. Each lookup runs under its own timeout; once
// the deadline of ctx leaves less than one timeout, the walk stops with what
// it has. Days that fail are skipped; the call fails only when no day
// produced data.
func Enrich(ctx context.Context, w Window, pair provider.Pair, lookup provider.DayLookup, timeout time.Duration) (Window, []provider.Quote, error) {
	if w.Days() > EnrichMaxDays {
		w.Start = w.End.AddDate(0, 0, -(EnrichMaxDays - 1))
	}
	var (
		results []provider.Result
		errs    []error
	)
	for _, day := range w.Dates() {
		if err := ctx.Err(); err != nil {
			return w, nil, err
		}
		if deadline, ok := ctx.Deadline(); ok && timeout > 0 && time.Until(deadline) < timeout {
			errs = append(errs, fmt.Errorf("request deadline reached before %s", provider.Day(day)))
			break
		}
		rs, err := onDate(ctx, lookup, pair, day, timeout)
		if err != nil {
			if errors.Is(err, provider.ErrInvalidRequest) {
				return w, nil, err
			}
			errs = append(errs, provider.Classify(lookup.Name(), err))
			continue
		}
		results = append(results, rs...)
	}
	out := NormalizeResults(results, w)
	if len(out) == 0 {
		err := fmt.Errorf("no data for %d days", w.Days())
		if len(errs) > 0 {
			err = fmt.Errorf("%w: %w", err, errors.Join(errs...))
		}
		return w, nil, provider.Unavailable(lookup.Name(), provider.KindEmpty, err)
	}
	return w, out, nil
}

func onDate(ctx context.Context, lookup provider.DayLookup, pair provider.Pair, day time.Time, timeout time.Duration) ([]provider.Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return lookup.OnDate(ctx, pair, day)
}
