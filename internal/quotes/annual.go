package quotes

import (
	"context"
	"fmt"
	"time"

	"cambioproxy/internal/aggregate"
	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
)

const (
	// MinYear is the first year of the Real.
	MinYear = 1994
	// DefaultAnnualFrom starts annual series when the caller names no year.
	DefaultAnnualFrom = 2000
	// annualChunkYears bounds a single SGS range query.
	annualChunkYears = 10
)

// referenceAnnual holds published yearly means of the USD-BRL selling rate.
// It answers annual requests that fall entirely inside it when the live
// series is unreachable.
var referenceAnnual = map[provider.Pair]map[int]float64{
	provider.MustPair("USD-BRL"): {
		2000: 1.8314, 2001: 2.3209, 2002: 3.6305, 2003: 3.0784, 2004: 2.9256,
		2005: 2.4350, 2006: 2.1761, 2007: 1.9471, 2008: 1.8369, 2009: 1.9881,
		2010: 1.7601, 2011: 1.6754, 2012: 1.9536, 2013: 2.1600, 2014: 2.3532,
		2015: 3.3300, 2016: 3.4843, 2017: 3.3105, 2018: 3.6515, 2019: 3.9467,
		2020: 5.1559, 2021: 5.2037, 2022: 5.2527, 2023: 4.9735, 2024: 5.1546,
	},
}

// Annual returns one mean quote per year in [from, to], dated YYYY-01-01.
// Sources are tried in order: the live daily series bucketed by year, the
// reference table, then the synthetic generator.
func (s *Service) Annual(ctx context.Context, pair string, from, to int) (provider.SeriesResponse, error) {
	in, err := s.table.Resolve(pair)
	if err != nil {
		return provider.SeriesResponse{}, err
	}
	if err := s.validateYears(from, to); err != nil {
		return provider.SeriesResponse{}, err
	}
	period := fmt.Sprintf("%d-%d", from, to)

	if s.annual != nil && in.SGSCode != 0 {
		data, err := s.annualFromSeries(ctx, in, from, to)
		if err == nil {
			return s.series(EndpointAnnual, in, s.annual.Name(), period, data), nil
		}
		if err := absorb(ctx, err); err != nil {
			return provider.SeriesResponse{}, err
		}
		s.logger.WarnContext(ctx, "annual series unavailable", "pair", in.Pair.String(), "error", err)
	}

	if data, ok := reference(in.Pair, from, to); ok {
		return s.series(EndpointAnnual, in, provider.SourceCachedFallback, period, data), nil
	}

	data, err := s.gen.Annual(params(in), from, to)
	if err != nil {
		return provider.SeriesResponse{}, err
	}
	return s.series(EndpointAnnual, in, provider.SourceSimulated, period, data), nil
}

func (s *Service) validateYears(from, to int) error {
	current := s.now().In(provider.Brasilia).Year()
	switch {
	case from < MinYear:
		return provider.Invalid("from", "must be %d or later, got %d", MinYear, from)
	case to > current:
		return provider.Invalid("to", "must not be after %d, got %d", current, to)
	case from > to:
		return provider.Invalid("from", "%d is after %d", from, to)
	}
	return nil
}

func (s *Service) annualFromSeries(ctx context.Context, in instrument.Instrument, from, to int) ([]provider.Quote, error) {
	var points []provider.SeriesPoint
	for start := from; start <= to; start += annualChunkYears {
		end := min(start+annualChunkYears-1, to)
		ps, err := s.annualChunk(ctx, in.SGSCode,
			time.Date(start, time.January, 1, 0, 0, 0, 0, provider.Brasilia),
			time.Date(end, time.December, 31, 0, 0, 0, 0, provider.Brasilia))
		if err != nil {
			return nil, err
		}
		points = append(points, ps...)
	}
	years := aggregate.ByYear(points)
	if len(years) == 0 {
		return nil, provider.Unavailablef(s.annual.Name(), provider.KindEmpty, "no observations for %d-%d", from, to)
	}
	out := make([]provider.Quote, 0, len(years))
	for _, p := range years {
		v := provider.Round(p.Value, 4)
		out = append(out, provider.Quote{Date: p.Date, Bid: v, Ask: v, High: v, Low: v})
	}
	return withChanges(out), nil
}

func (s *Service) annualChunk(ctx context.Context, code int, start, end time.Time) ([]provider.SeriesPoint, error) {
	if s.annualTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.annualTimeout)
		defer cancel()
	}
	ps, err := s.annual.Series(ctx, code, start, end)
	if err != nil {
		return nil, provider.Classify(s.annual.Name(), err)
	}
	return ps, nil
}

func reference(pair provider.Pair, from, to int) ([]provider.Quote, bool) {
	table, ok := referenceAnnual[pair]
	if !ok {
		return nil, false
	}
	out := make([]provider.Quote, 0, to-from+1)
	for y := from; y <= to; y++ {
		v, ok := table[y]
		if !ok {
			return nil, false
		}
		out = append(out, provider.Quote{Date: fmt.Sprintf("%04d-01-01", y), Bid: v, Ask: v, High: v, Low: v})
	}
	return withChanges(out), true
}
