// Package synthetic produces clearly labelled placeholder quotes for when no
// real provider can answer. Output is bounded around a baseline and always
// satisfies low <= bid <= ask <= high.
package synthetic

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"cambioproxy/internal/aggregate"
	"cambioproxy/internal/provider"
)

// MaxExcursion is the largest total deviation from the baseline, as a fraction.
const MaxExcursion = 0.05

// Params shape a generated series. Amplitude, Noise, Spread and Range are
// fractions of Baseline.
type Params struct {
	Baseline  float64
	Amplitude float64
	Noise     float64
	Spread    float64
	Range     float64
}

// DefaultParams returns the standard shape around baseline.
func DefaultParams(baseline float64) Params {
	return Params{Baseline: baseline, Amplitude: 0.02, Noise: 0.008, Spread: 0.002, Range: 0.004}
}

// Validate checks that the parameters keep output within MaxExcursion.
func (p Params) Validate() error {
	if p.Baseline <= 0 || math.IsNaN(p.Baseline) || math.IsInf(p.Baseline, 0) {
		return fmt.Errorf("baseline must be a positive number, got %v", p.Baseline)
	}
	for name, v := range map[string]float64{"amplitude": p.Amplitude, "noise": p.Noise, "spread": p.Spread, "range": p.Range} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s must be >= 0, got %v", name, v)
		}
	}
	if total := p.Amplitude + p.Noise + p.Spread + p.Range; total > MaxExcursion+1e-12 {
		return fmt.Errorf("total excursion %.4f exceeds %.2f", total, MaxExcursion)
	}
	return nil
}

// Generator draws quotes from a seeded source. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a generator seeded from the runtime.
func New() *Generator {
	return NewWithSource(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewWithSource returns a generator over src, for reproducible output.
func NewWithSource(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

// unit returns a value in [-1, 1].
func (g *Generator) unit() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()*2 - 1
}

// quote builds one observation at the given trend position in [0, 1].
func (g *Generator) quote(p Params, date string, progress, prevBid float64) provider.Quote {
	b := p.Baseline
	bid := b * (1 + p.Amplitude*math.Sin(2*math.Pi*progress) + p.Noise*g.unit())
	ask := bid + b*p.Spread
	high := ask + b*p.Range
	low := bid - b*p.Range

	q := provider.Quote{
		Date: date,
		Bid:  provider.Round(bid, 4),
		Ask:  provider.Round(ask, 4),
		High: provider.Round(high, 4),
		Low:  provider.Round(low, 4),
	}
	if prevBid > 0 {
		q.Change = provider.Round(bid-prevBid, 4)
		q.ChangePercent = provider.Round((bid-prevBid)/prevBid*100, 2)
	}
	return q
}

// Series returns one quote per calendar day of w, oldest first.
func (g *Generator) Series(p Params, w aggregate.Window) ([]provider.Quote, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	dates := w.Dates()
	out := make([]provider.Quote, 0, len(dates))
	prev := 0.0
	for i, d := range dates {
		q := g.quote(p, provider.Day(d), float64(i+1)/float64(len(dates)), prev)
		prev = q.Bid
		out = append(out, q)
	}
	return out, nil
}

// Latest returns a single point-in-time result stamped now.
func (g *Generator) Latest(p Params, now time.Time) (provider.Result, error) {
	if err := p.Validate(); err != nil {
		return provider.Result{}, err
	}
	q := g.quote(p, provider.Day(now), 0, 0)
	return provider.Result{
		Provider:  provider.SourceSimulated,
		Bid:       q.Bid,
		Ask:       q.Ask,
		High:      q.High,
		Low:       q.Low,
		Timestamp: now,
	}, nil
}

// Annual returns one quote per year in [from, to], dated YYYY-01-01.
func (g *Generator) Annual(p Params, from, to int) ([]provider.Quote, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if to < from {
		return nil, errors.New("year range is reversed")
	}
	n := to - from + 1
	out := make([]provider.Quote, 0, n)
	prev := 0.0
	for i := range n {
		q := g.quote(p, fmt.Sprintf("%04d-01-01", from+i), float64(i+1)/float64(n), prev)
		prev = q.Bid
		out = append(out, q)
	}
	return out, nil
}
