// Package instrument holds the static table that maps instrument pairs to
// provider-specific symbols. A Table is built once at start-up and is never
// mutated; lookups return copies.
package instrument

import (
	"fmt"

	"cambioproxy/internal/provider"
)

// Instrument describes how each provider knows a pair.
type Instrument struct {
	Pair provider.Pair
	Name string
	// Baseline seeds the synthetic generator. Placeholder values, recalibrate freely.
	Baseline float64
	// SGSCode is the BCB SGS daily selling-rate series; 0 when BCB has none.
	SGSCode int
	// PTAX marks pairs served by the Olinda PTAX dollar endpoints.
	PTAX bool
	// AwesomeAPI is the AwesomeAPI pair code; "" when unmapped.
	AwesomeAPI string
	// ExchangeRateAPI marks pairs resolvable through exchangerate-api latest rates.
	ExchangeRateAPI bool
	// AlphaVantage marks pairs resolvable through the AlphaVantage FX functions.
	AlphaVantage bool
}

// Table is an immutable pair -> Instrument index.
type Table struct {
	byPair map[provider.Pair]Instrument
	order  []provider.Pair
}

// New validates and indexes instruments. Order is preserved for Pairs.
func New(list ...Instrument) (*Table, error) {
	t := &Table{byPair: make(map[provider.Pair]Instrument, len(list))}
	for _, in := range list {
		if _, dup := t.byPair[in.Pair]; dup {
			return nil, fmt.Errorf("instrument %s listed twice", in.Pair)
		}
		if in.Baseline <= 0 {
			return nil, fmt.Errorf("instrument %s: baseline must be > 0", in.Pair)
		}
		t.byPair[in.Pair] = in
		t.order = append(t.order, in.Pair)
	}
	return t, nil
}

// Default is the table shipped with the service.
func Default() *Table {
	t, err := New(
		Instrument{
			Pair: provider.MustPair("USD-BRL"), Name: "Dolar Americano/Real Brasileiro", Baseline: 5.75,
			SGSCode: 1, PTAX: true, AwesomeAPI: "USD-BRL", ExchangeRateAPI: true, AlphaVantage: true,
		},
		Instrument{
			Pair: provider.MustPair("EUR-BRL"), Name: "Euro/Real Brasileiro", Baseline: 6.22,
			SGSCode: 21619, AwesomeAPI: "EUR-BRL", ExchangeRateAPI: true, AlphaVantage: true,
		},
		Instrument{
			Pair: provider.MustPair("GBP-BRL"), Name: "Libra Esterlina/Real Brasileiro", Baseline: 7.25,
			SGSCode: 21623, AwesomeAPI: "GBP-BRL", ExchangeRateAPI: true, AlphaVantage: true,
		},
		Instrument{
			Pair: provider.MustPair("JPY-BRL"), Name: "Iene Japones/Real Brasileiro", Baseline: 0.038,
			SGSCode: 21621, AwesomeAPI: "JPY-BRL", ExchangeRateAPI: true, AlphaVantage: true,
		},
		Instrument{
			Pair: provider.MustPair("CNY-BRL"), Name: "Yuan Chines/Real Brasileiro", Baseline: 0.79,
			AwesomeAPI: "CNY-BRL", ExchangeRateAPI: true, AlphaVantage: true,
		},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the instrument for p.
func (t *Table) Lookup(p provider.Pair) (Instrument, bool) {
	in, ok := t.byPair[p]
	return in, ok
}

// Resolve parses s and looks it up. Unknown pairs are invalid requests.
func (t *Table) Resolve(s string) (Instrument, error) {
	p, err := provider.ParsePair(s)
	if err != nil {
		return Instrument{}, err
	}
	in, ok := t.byPair[p]
	if !ok {
		return Instrument{}, provider.Invalid("pair", "%s is not a supported instrument", p)
	}
	return in, nil
}

// Pairs lists the known pairs in declaration order.
func (t *Table) Pairs() []provider.Pair {
	out := make([]provider.Pair, len(t.order))
	copy(out, t.order)
	return out
}
