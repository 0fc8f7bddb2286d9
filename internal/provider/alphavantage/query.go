package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"sort"
	"time"

	"cambioproxy/internal/httpx"
	"cambioproxy/internal/provider"
)

// compactSize is how many daily points FX_DAILY returns without outputsize=full.
const compactSize = 100

// Body keys AlphaVantage uses instead of an HTTP error status.
var errorKeys = []struct {
	key  string
	kind provider.Kind
}{
	{"Error Message", provider.KindStatus},
	{"Note", provider.KindRateLimited},
	{"Information", provider.KindRateLimited},
}

func (c *Client) call(ctx context.Context, params url.Values, section string, v any) error {
	query := maps.Clone(c.query)
	for k, vals := range params {
		query[k] = vals
	}

	var body map[string]json.RawMessage
	rawURL := fmt.Sprintf("%s/query?%s", c.baseURL, query.Encode())
	if err := httpx.GetJSON(ctx, c.httpClient, Name, rawURL, c.header, &body); err != nil {
		return err
	}
	for _, ek := range errorKeys {
		if raw, ok := body[ek.key]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return provider.Unavailablef(Name, ek.kind, "%s: %s", ek.key, msg)
		}
	}
	raw, ok := body[section]
	if !ok {
		return provider.Unavailablef(Name, provider.KindEmpty, "response has no %q section", section)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return provider.Unavailable(Name, provider.KindMalformed, fmt.Errorf("decoding %s: %w", section, err))
	}
	return nil
}

func (c *Client) supports(p provider.Pair) error {
	in, ok := c.table.Lookup(p)
	if !ok || !in.AlphaVantage {
		return provider.Unavailablef(Name, provider.KindUnmapped, "%s not served", p)
	}
	return nil
}

type exchangeRate struct {
	Rate          string `json:"5. Exchange Rate"`
	LastRefreshed string `json:"6. Last Refreshed"`
	TimeZone      string `json:"7. Time Zone"`
	Bid           string `json:"8. Bid Price"`
	Ask           string `json:"9. Ask Price"`
}

// Latest calls CURRENCY_EXCHANGE_RATE.
func (c *Client) Latest(ctx context.Context, req provider.QuoteRequest) (provider.Result, error) {
	if err := c.supports(req.Pair); err != nil {
		return provider.Result{}, err
	}
	params := url.Values{}
	params.Set("function", "CURRENCY_EXCHANGE_RATE")
	params.Set("from_currency", req.Pair.Base)
	params.Set("to_currency", req.Pair.Quote)

	var er exchangeRate
	if err := c.call(ctx, params, "Realtime Currency Exchange Rate", &er); err != nil {
		return provider.Result{}, err
	}

	rate, err := provider.ParseNumber(er.Rate)
	if err != nil {
		return provider.Result{}, provider.Unavailable(Name, provider.KindMalformed, err)
	}
	bid, ask := rate, rate
	// Bid/ask are "-" outside market hours.
	if v, err := provider.ParseNumber(er.Bid); err == nil && v > 0 {
		bid = v
	}
	if v, err := provider.ParseNumber(er.Ask); err == nil && v > 0 {
		ask = v
	}
	ts, err := parseRefreshed(er.LastRefreshed, er.TimeZone)
	if err != nil {
		return provider.Result{}, provider.Unavailable(Name, provider.KindMalformed, err)
	}
	return provider.Result{
		Provider:  Name,
		Bid:       bid,
		Ask:       ask,
		High:      max(bid, ask),
		Low:       min(bid, ask),
		Timestamp: ts,
	}, nil
}

type dailyBar struct {
	Open  string `json:"1. open"`
	High  string `json:"2. high"`
	Low   string `json:"3. low"`
	Close string `json:"4. close"`
}

// History calls FX_DAILY. The close is used as both bid and ask; change is
// measured from the open.
func (c *Client) History(ctx context.Context, req provider.QuoteRequest) ([]provider.Quote, error) {
	if err := c.supports(req.Pair); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("function", "FX_DAILY")
	params.Set("from_symbol", req.Pair.Base)
	params.Set("to_symbol", req.Pair.Quote)
	size := "compact"
	if req.Days > compactSize || (!req.Start.IsZero() && time.Since(req.Start) > compactSize*24*time.Hour) {
		size = "full"
	}
	params.Set("outputsize", size)

	var series map[string]dailyBar
	if err := c.call(ctx, params, "Time Series FX (Daily)", &series); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, provider.Unavailablef(Name, provider.KindEmpty, "no daily bars")
	}

	out := make([]provider.Quote, 0, len(series))
	for date, bar := range series {
		d, err := provider.ParseDay(date)
		if err != nil {
			return nil, provider.Unavailable(Name, provider.KindMalformed, err)
		}
		var vals [4]float64
		for i, raw := range []string{bar.Open, bar.High, bar.Low, bar.Close} {
			if vals[i], err = provider.ParseNumber(raw); err != nil {
				return nil, provider.Unavailable(Name, provider.KindMalformed, fmt.Errorf("%s: %w", date, err))
			}
		}
		open, high, low, closing := vals[0], vals[1], vals[2], vals[3]
		q := provider.Quote{
			Date: provider.Day(d),
			Bid:  provider.Round(closing, 4),
			Ask:  provider.Round(closing, 4),
			High: provider.Round(high, 4),
			Low:  provider.Round(low, 4),
		}
		if open != 0 {
			q.Change = provider.Round(closing-open, 4)
			q.ChangePercent = provider.Round((closing-open)/open*100, 2)
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func parseRefreshed(s, zone string) (time.Time, error) {
	loc := time.UTC
	if zone != "" && zone != "UTC" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}
	for _, layout := range []string{time.DateTime, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse last refreshed %q", s)
}
