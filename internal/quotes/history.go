package quotes

import (
	"context"

	"cambioproxy/internal/aggregate"
	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
	"cambioproxy/internal/synthetic"
)

func params(in instrument.Instrument) synthetic.Params {
	return synthetic.DefaultParams(in.Baseline)
}

// History returns one quote per available day of w for pair.
//
// The history chain is asked once for the whole window. When it is exhausted
// or yields nothing inside w, the per-day lookup (if configured for the pair)
// is tried, then the synthetic generator. A spent request deadline skips
// straight to synthetic data.
func (s *Service) History(ctx context.Context, pair string, w aggregate.Window) (provider.SeriesResponse, error) {
	in, err := s.table.Resolve(pair)
	if err != nil {
		return provider.SeriesResponse{}, err
	}

	data, source, err := s.history.Resolve(ctx, w.Request(in.Pair))
	if err != nil {
		if err := absorb(ctx, err); err != nil {
			return provider.SeriesResponse{}, err
		}
		s.logger.WarnContext(ctx, "history providers exhausted", "pair", in.Pair.String(), "error", err)
	} else if data = aggregate.Normalize(data, w); len(data) > 0 {
		return s.series(EndpointHistorical, in, source, w.Period(), data), nil
	} else {
		s.logger.DebugContext(ctx, "history provider answered outside the window", "provider", source, "pair", in.Pair.String())
	}

	if s.enrich != nil && (s.enrichSupports == nil || s.enrichSupports(in.Pair)) {
		visited, data, err := aggregate.Enrich(ctx, w, in.Pair, s.enrich, s.enrichTimeout)
		if err == nil {
			return s.series(EndpointHistorical, in, s.enrich.Name(), visited.Period(), data), nil
		}
		if err := absorb(ctx, err); err != nil {
			return provider.SeriesResponse{}, err
		}
		s.logger.WarnContext(ctx, "per-day lookup produced nothing", "provider", s.enrich.Name(), "pair", in.Pair.String(), "error", err)
	}

	data, err = s.gen.Series(params(in), w)
	if err != nil {
		return provider.SeriesResponse{}, err
	}
	return s.series(EndpointHistorical, in, provider.SourceSimulated, w.Period(), data), nil
}

func (s *Service) series(endpoint string, in instrument.Instrument, source, period string, data []provider.Quote) provider.SeriesResponse {
	s.observe(endpoint, source)
	return provider.SeriesResponse{
		Success:   true,
		Source:    source,
		Currency:  in.Pair.String(),
		Period:    period,
		Count:     len(data),
		Data:      data,
		Timestamp: s.now(),
	}
}
