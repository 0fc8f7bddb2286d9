package bcb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cambioproxy/internal/httpx"
	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
)

// PTAXName labels results produced from the PTAX service.
const PTAXName = "BCB-PTAX"

// lookback covers weekends and holidays when asking for the latest bulletin.
const lookback = 7 * 24 * time.Hour

// PTAX reads the official dollar bulletins published through Olinda.
type PTAX struct {
	base
}

// NewPTAX creates a PTAX client. Only pairs flagged PTAX in the table are served.
func NewPTAX(table *instrument.Table, options ...Option) *PTAX {
	return &PTAX{base: newBase(OlindaBaseURL, table, options)}
}

func (p *PTAX) Name() string { return PTAXName }

// bulletin is one entry of the OData "value" array:
//
//	{"cotacaoCompra": 4.8999, "cotacaoVenda": 4.9005, "dataHoraCotacao": "2024-01-05 13:04:28.857"}
type bulletin struct {
	Compra   float64 `json:"cotacaoCompra"`
	Venda    float64 `json:"cotacaoVenda"`
	DataHora string  `json:"dataHoraCotacao"`
}

type odataResponse struct {
	Value []bulletin `json:"value"`
}

// Latest returns the most recent bulletin at or before req.AsOf (now when
// zero). A single period query spans the preceding week so non-business
// days resolve to the last published rate.
func (p *PTAX) Latest(ctx context.Context, req provider.QuoteRequest) (provider.Result, error) {
	if err := p.supports(req.Pair); err != nil {
		return provider.Result{}, err
	}
	end := req.AsOf
	if end.IsZero() {
		end = p.now()
	}
	start := end.Add(-lookback)

	rawURL := fmt.Sprintf("%s/CotacaoDolarPeriodo(dataInicial=@dataInicial,dataFinalCotacao=@dataFinalCotacao)?@dataInicial='%s'&@dataFinalCotacao='%s'&$format=json",
		p.baseURL, odataDate(start), odataDate(end))
	results, err := p.fetch(ctx, rawURL)
	if err != nil {
		return provider.Result{}, err
	}

	last := results[len(results)-1]
	if len(results) > 1 {
		prev := results[len(results)-2]
		last.Change = last.Bid - prev.Bid
		if prev.Bid != 0 {
			last.PctChange = last.Change / prev.Bid * 100
		}
	}
	return last, nil
}

// OnDate returns the bulletins published on day. Non-business days come back
// as an empty-result error.
func (p *PTAX) OnDate(ctx context.Context, pair provider.Pair, day time.Time) ([]provider.Result, error) {
	if err := p.supports(pair); err != nil {
		return nil, err
	}
	rawURL := fmt.Sprintf("%s/CotacaoDolarDia(dataCotacao=@dataCotacao)?@dataCotacao='%s'&$format=json",
		p.baseURL, odataDate(day))
	return p.fetch(ctx, rawURL)
}

func (p *PTAX) supports(pair provider.Pair) error {
	in, ok := p.table.Lookup(pair)
	if !ok || !in.PTAX {
		return provider.Unavailablef(PTAXName, provider.KindUnmapped, "PTAX does not quote %s", pair)
	}
	return nil
}

func (p *PTAX) fetch(ctx context.Context, rawURL string) ([]provider.Result, error) {
	var body odataResponse
	if err := httpx.GetJSON(ctx, p.httpClient, PTAXName, rawURL, p.header, &body); err != nil {
		return nil, err
	}
	if len(body.Value) == 0 {
		return nil, provider.Unavailablef(PTAXName, provider.KindEmpty, "no bulletin published")
	}
	out := make([]provider.Result, 0, len(body.Value))
	for _, b := range body.Value {
		ts, err := parseDataHora(b.DataHora)
		if err != nil {
			return nil, provider.Unavailable(PTAXName, provider.KindMalformed, err)
		}
		if b.Compra <= 0 || b.Venda <= 0 {
			return nil, provider.Unavailablef(PTAXName, provider.KindMalformed, "non-positive rate in bulletin %q", b.DataHora)
		}
		out = append(out, provider.Result{
			Provider:  PTAXName,
			Bid:       b.Compra,
			Ask:       b.Venda,
			High:      b.Venda,
			Low:       b.Compra,
			Timestamp: ts,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// odataDate renders the MM-DD-YYYY form Olinda expects.
func odataDate(t time.Time) string { return t.In(provider.Brasilia).Format("01-02-2006") }

func parseDataHora(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05.999999999"} {
		if t, err := time.ParseInLocation(layout, s, provider.Brasilia); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse dataHoraCotacao %q", s)
}
