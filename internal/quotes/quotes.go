// Package quotes composes the provider chains, the historical aggregator and
// the synthetic generator into the three quote operations the HTTP surface
// exposes. Data unavailability never surfaces as an error here: exhausted
// chains degrade to labelled fallback data.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
	"cambioproxy/internal/resolver"
	"cambioproxy/internal/synthetic"
)

// Endpoint labels passed to a SourceObserver.
const (
	EndpointLatest     = "latest"
	EndpointHistorical = "historical"
	EndpointAnnual     = "annual"
)

// SeriesSource reads a numeric BCB-style series over a date range.
type SeriesSource interface {
	Name() string
	Series(ctx context.Context, code int, start, end time.Time) ([]provider.SeriesPoint, error)
}

// SourceObserver is told which source answered each response.
type SourceObserver func(endpoint, source string)

type Service struct {
	table   *instrument.Table
	latest  *resolver.Chain[provider.Result]
	history *resolver.Chain[[]provider.Quote]

	enrich         provider.DayLookup
	enrichSupports func(provider.Pair) bool
	enrichTimeout  time.Duration
	annual         SeriesSource
	annualTimeout  time.Duration

	gen      *synthetic.Generator
	now      func() time.Time
	logger   *slog.Logger
	observer SourceObserver
}

// Option configures a Service.
type Option func(*Service)

// WithEnrichment enables the per-day fallback for pairs supports accepts.
// Each per-day lookup is bounded by timeout.
func WithEnrichment(lookup provider.DayLookup, supports func(provider.Pair) bool, timeout time.Duration) Option {
	return func(s *Service) {
		s.enrich = lookup
		s.enrichSupports = supports
		s.enrichTimeout = timeout
	}
}

// WithAnnualSource sets where yearly means are computed from. Each range
// query is bounded by timeout.
func WithAnnualSource(src SeriesSource, timeout time.Duration) Option {
	return func(s *Service) {
		s.annual = src
		s.annualTimeout = timeout
	}
}

func WithGenerator(g *synthetic.Generator) Option {
	return func(s *Service) { s.gen = g }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithSourceObserver(o SourceObserver) Option {
	return func(s *Service) { s.observer = o }
}

// New builds a Service over the given chains. Both chains are required.
func New(table *instrument.Table, latest *resolver.Chain[provider.Result], history *resolver.Chain[[]provider.Quote], opts ...Option) (*Service, error) {
	if table == nil || latest == nil || history == nil {
		return nil, errors.New("quotes: table, latest chain and history chain are required")
	}
	s := &Service{
		table:   table,
		latest:  latest,
		history: history,
		gen:     synthetic.New(),
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Instruments exposes the table the service resolves pairs against.
func (s *Service) Instruments() *instrument.Table { return s.table }

func (s *Service) observe(endpoint, source string) {
	if s.observer != nil {
		s.observer(endpoint, source)
	}
}

// absorb decides whether a resolution error may be replaced by fallback data.
// Invalid requests and caller cancellation must reach the caller. A spent
// request deadline is absorbed: synthetic data needs no upstream.
func absorb(ctx context.Context, err error) error {
	if errors.Is(err, provider.ErrInvalidRequest) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("quotes: %w", ctxErr)
	}
	return nil
}

// withChanges fills change fields against the previous point.
func withChanges(quotes []provider.Quote) []provider.Quote {
	for i := 1; i < len(quotes); i++ {
		prev := quotes[i-1].Bid
		quotes[i].Change = provider.Round(quotes[i].Bid-prev, 4)
		if prev != 0 {
			quotes[i].ChangePercent = provider.Round((quotes[i].Bid-prev)/prev*100, 2)
		}
	}
	return quotes
}
