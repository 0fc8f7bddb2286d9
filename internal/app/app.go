// Package app wires configuration into the provider chains and the quote and
// series services shared by the server and the CLI.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"cambioproxy/internal/config"
	"cambioproxy/internal/httpx"
	"cambioproxy/internal/instrument"
	"cambioproxy/internal/metrics"
	"cambioproxy/internal/provider"
	"cambioproxy/internal/provider/alphavantage"
	"cambioproxy/internal/provider/awesomeapi"
	"cambioproxy/internal/provider/bcb"
	"cambioproxy/internal/provider/exchangerateapi"
	"cambioproxy/internal/provider/sidra"
	"cambioproxy/internal/quotes"
	"cambioproxy/internal/ratelimit"
	"cambioproxy/internal/resolver"
	"cambioproxy/internal/series"
)

// Provider ranks; lower is tried first.
const (
	rankPTAX                = 1
	rankSGS                 = 1
	rankAwesomeAPI          = 2
	rankExchangeRateAPI     = 3
	rankAlphaVantageHistory = 3
	rankAlphaVantage        = 4
)

func supports(table *instrument.Table, pred func(instrument.Instrument) bool) func(provider.Pair) bool {
	return func(p provider.Pair) bool {
		in, ok := table.Lookup(p)
		return ok && pred(in)
	}
}

// chains builds the latest and history provider chains from cfg.
func chains(cfg config.Config, table *instrument.Table, hc httpx.HTTPClient, logger *slog.Logger, m *metrics.Metrics) (*resolver.Chain[provider.Result], *resolver.Chain[[]provider.Quote], *bcb.PTAX, *bcb.SGS, error) {
	rt, hist := cfg.Providers.RealTimeTimeout(), cfg.Providers.HistoricalTimeout()

	ptax := bcb.NewPTAX(table, bcb.WithHTTPClient(hc))
	sgs := bcb.NewSGS(table, bcb.WithHTTPClient(hc))
	awesome := awesomeapi.New(table, cfg.Providers.AwesomeAPIToken, awesomeapi.WithHTTPClient(hc))
	erapi := exchangerateapi.New(table, exchangerateapi.WithHTTPClient(hc))

	isPTAX := supports(table, func(in instrument.Instrument) bool { return in.PTAX })
	hasSGS := supports(table, func(in instrument.Instrument) bool { return in.SGSCode != 0 })
	hasAwesome := supports(table, func(in instrument.Instrument) bool { return in.AwesomeAPI != "" })
	hasERAPI := supports(table, func(in instrument.Instrument) bool { return in.ExchangeRateAPI })
	hasAV := supports(table, func(in instrument.Instrument) bool { return in.AlphaVantage })

	latestSpecs := []resolver.Spec[provider.Result]{
		withSupports(resolver.Latest(ptax, rankPTAX, rt), isPTAX),
		withSupports(resolver.Latest(awesome, rankAwesomeAPI, rt), hasAwesome),
		withSupports(resolver.Latest(erapi, rankExchangeRateAPI, rt), hasERAPI),
	}
	historySpecs := []resolver.Spec[[]provider.Quote]{
		withSupports(resolver.History(sgs, rankSGS, hist), hasSGS),
		withSupports(resolver.History(awesome, rankAwesomeAPI, hist), hasAwesome),
	}

	av, err := alphavantage.NewClient(cfg.Providers.AlphaVantageKey, table, alphavantage.WithHTTPClient(hc))
	switch {
	case errors.Is(err, alphavantage.ErrMissingKey):
		logger.Info("alphavantage disabled: no api key configured")
	case err != nil:
		return nil, nil, nil, nil, fmt.Errorf("alphavantage: %w", err)
	default:
		// One bucket across both chains: the free tier quota is per key.
		tb := ratelimit.NewTokenBucket(float64(cfg.Providers.AlphaVantageRPM)/60, 1)
		latest := withSupports(resolver.Latest(av, rankAlphaVantage, rt), hasAV)
		latest.Fetch = ratelimit.Guard(tb, av.Name(), av.Latest)
		history := withSupports(resolver.History(av, rankAlphaVantageHistory, hist), hasAV)
		history.Fetch = ratelimit.Guard(tb, av.Name(), av.History)
		latestSpecs = append(latestSpecs, latest)
		historySpecs = append(historySpecs, history)
	}

	opts := []resolver.Option{resolver.WithLogger(logger), resolver.WithObserver(m)}
	latest, err := resolver.New("latest", latestSpecs, opts...)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	history, err := resolver.New("history", historySpecs, opts...)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return latest, history, ptax, sgs, nil
}

func withSupports[T any](s resolver.Spec[T], pred func(provider.Pair) bool) resolver.Spec[T] {
	s.Supports = pred
	return s
}

// Services are the request-scoped operations the binaries expose.
type Services struct {
	Quotes *quotes.Service
	Series *series.Service
}

// Build creates every provider client over one shared HTTP client and
// composes them into Services. Attempts and response sources are reported
// to m.
func Build(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*Services, error) {
	table := instrument.Default()
	hc := httpx.New(cfg.Server.RequestTimeout())

	latest, history, ptax, sgs, err := chains(cfg, table, hc, logger, m)
	if err != nil {
		return nil, err
	}
	qs, err := quotes.New(table, latest, history,
		quotes.WithEnrichment(ptax, supports(table, func(in instrument.Instrument) bool { return in.PTAX }), cfg.Providers.HistoricalTimeout()),
		quotes.WithAnnualSource(sgs, cfg.Providers.HistoricalTimeout()),
		quotes.WithLogger(logger),
		quotes.WithSourceObserver(m.Source),
	)
	if err != nil {
		return nil, err
	}
	ss := series.New(series.DefaultCatalog(), sgs, sidra.New(sidra.WithHTTPClient(hc)),
		series.WithTimeout(cfg.Providers.HistoricalTimeout()),
		series.WithSourceObserver(func(source string) { m.Source(EndpointIndicator, source) }),
	)
	return &Services{Quotes: qs, Series: ss}, nil
}

// EndpointIndicator labels indicator responses in metrics.
const EndpointIndicator = "indicator"
