package bcb

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"cambioproxy/internal/httpx"
	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
)

// SGSName labels results produced from SGS series.
const SGSName = "BCB"

// SGS reads numbered BCB time series.
type SGS struct {
	base
}

// NewSGS creates an SGS client. The table maps pairs to SGS series codes.
func NewSGS(table *instrument.Table, options ...Option) *SGS {
	return &SGS{base: newBase(SGSBaseURL, table, options)}
}

func (s *SGS) Name() string { return SGSName }

// sgsPoint is one row of the SGS payload:
//
//	[{"data": "05/01/2024", "valor": "4.9123"}]
type sgsPoint struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// Series fetches code between start and end inclusive, oldest first.
func (s *SGS) Series(ctx context.Context, code int, start, end time.Time) ([]provider.SeriesPoint, error) {
	if code <= 0 {
		return nil, provider.Invalid("series", "code %d", code)
	}
	if end.Before(start) {
		start, end = end, start
	}
	query := url.Values{}
	query.Set("formato", "json")
	query.Set("dataInicial", provider.FormatBRDate(start))
	query.Set("dataFinal", provider.FormatBRDate(end))
	return s.fetch(ctx, fmt.Sprintf("%s/bcdata.sgs.%d/dados?%s", s.baseURL, code, query.Encode()))
}

// Last fetches the n most recent observations of code.
func (s *SGS) Last(ctx context.Context, code, n int) ([]provider.SeriesPoint, error) {
	if code <= 0 || n <= 0 {
		return nil, provider.Invalid("series", "code %d, last %d", code, n)
	}
	return s.fetch(ctx, fmt.Sprintf("%s/bcdata.sgs.%d/dados/ultimos/%d?formato=json", s.baseURL, code, n))
}

func (s *SGS) fetch(ctx context.Context, rawURL string) ([]provider.SeriesPoint, error) {
	var rows []sgsPoint
	if err := httpx.GetJSON(ctx, s.httpClient, SGSName, rawURL, s.header, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, provider.Unavailablef(SGSName, provider.KindEmpty, "no observations")
	}
	out := make([]provider.SeriesPoint, 0, len(rows))
	for _, r := range rows {
		day, err := provider.ParseBRDate(r.Data)
		if err != nil {
			return nil, provider.Unavailable(SGSName, provider.KindMalformed, err)
		}
		v, err := provider.ParseNumber(r.Valor)
		if err != nil {
			return nil, provider.Unavailable(SGSName, provider.KindMalformed, err)
		}
		out = append(out, provider.SeriesPoint{Date: provider.Day(day), Value: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// History answers a quote window from the pair's daily selling-rate series.
// SGS publishes a single rate, so bid, ask, high and low all carry it; change
// is measured against the previous observation.
func (s *SGS) History(ctx context.Context, req provider.QuoteRequest) ([]provider.Quote, error) {
	in, ok := s.table.Lookup(req.Pair)
	if !ok || in.SGSCode == 0 {
		return nil, provider.Unavailablef(SGSName, provider.KindUnmapped, "no SGS series for %s", req.Pair)
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return nil, provider.Invalid("window", "start and end are required")
	}
	points, err := s.Series(ctx, in.SGSCode, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	return quotesFromRates(points), nil
}

func quotesFromRates(points []provider.SeriesPoint) []provider.Quote {
	out := make([]provider.Quote, 0, len(points))
	for i, p := range points {
		q := provider.Quote{
			Date: p.Date,
			Bid:  provider.Round(p.Value, 4),
			Ask:  provider.Round(p.Value, 4),
			High: provider.Round(p.Value, 4),
			Low:  provider.Round(p.Value, 4),
		}
		if i > 0 && points[i-1].Value != 0 {
			change := p.Value - points[i-1].Value
			q.Change = provider.Round(change, 4)
			q.ChangePercent = provider.Round(change/points[i-1].Value*100, 2)
		}
		out = append(out, q)
	}
	return out
}
