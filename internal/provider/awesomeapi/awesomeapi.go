// Package awesomeapi reads quotes from economia.awesomeapi.com.br.
package awesomeapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cambioproxy/internal/httpx"
	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
)

const (
	// Name labels results produced by this client.
	Name = "AwesomeAPI"

	defaultBaseURL = "https://economia.awesomeapi.com.br"
)

// Client is an AwesomeAPI client.
type Client struct {
	baseURL    string
	httpClient httpx.HTTPClient
	header     http.Header
	query      url.Values
	table      *instrument.Table
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient httpx.HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClock overrides the fallback clock used when a row carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client. token is optional and only raises the quota.
func New(table *instrument.Table, token string, options ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
		table:      table,
		now:        time.Now,
	}
	if token != "" {
		c.query.Set("token", token)
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return Name }

// row is the shape shared by /json/last and /json/daily. Every value is a
// string; daily rows after the first omit code, codein and name.
type row struct {
	Code       string `json:"code"`
	Codein     string `json:"codein"`
	Name       string `json:"name"`
	High       string `json:"high"`
	Low        string `json:"low"`
	VarBid     string `json:"varBid"`
	PctChange  string `json:"pctChange"`
	Bid        string `json:"bid"`
	Ask        string `json:"ask"`
	Timestamp  string `json:"timestamp"`
	CreateDate string `json:"create_date"`
}

// Latest returns the current quote for req.Pair.
func (c *Client) Latest(ctx context.Context, req provider.QuoteRequest) (provider.Result, error) {
	code, err := c.symbol(req.Pair)
	if err != nil {
		return provider.Result{}, err
	}

	var body map[string]row
	if err := httpx.GetJSON(ctx, c.httpClient, Name, c.url("/json/last/"+code, nil), c.header, &body); err != nil {
		return provider.Result{}, err
	}
	r, ok := body[strings.ReplaceAll(code, "-", "")]
	if !ok {
		return provider.Result{}, provider.Unavailablef(Name, provider.KindEmpty, "%s missing from response", code)
	}
	return c.result(r)
}

// History returns the daily closes for the request window, newest first as
// the API sends them. The aggregator sorts and deduplicates.
func (c *Client) History(ctx context.Context, req provider.QuoteRequest) ([]provider.Quote, error) {
	code, err := c.symbol(req.Pair)
	if err != nil {
		return nil, err
	}
	days := req.Days
	var extra url.Values
	if !req.Start.IsZero() && !req.End.IsZero() {
		extra = url.Values{}
		extra.Set("start_date", req.Start.In(provider.Brasilia).Format("20060102"))
		extra.Set("end_date", req.End.In(provider.Brasilia).Format("20060102"))
		if span := int(provider.Midnight(req.End).Sub(provider.Midnight(req.Start)).Hours()/24) + 1; span > days {
			days = span
		}
	}
	if days <= 0 {
		return nil, provider.Invalid("days", "window is empty")
	}

	var rows []row
	path := fmt.Sprintf("/json/daily/%s/%d", code, days)
	if err := httpx.GetJSON(ctx, c.httpClient, Name, c.url(path, extra), c.header, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, provider.Unavailablef(Name, provider.KindEmpty, "no daily rows for %s", code)
	}
	out := make([]provider.Quote, 0, len(rows))
	for _, r := range rows {
		res, err := c.result(r)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Normalize())
	}
	return out, nil
}

func (c *Client) symbol(p provider.Pair) (string, error) {
	in, ok := c.table.Lookup(p)
	if !ok || in.AwesomeAPI == "" {
		return "", provider.Unavailablef(Name, provider.KindUnmapped, "no AwesomeAPI code for %s", p)
	}
	return in.AwesomeAPI, nil
}

func (c *Client) url(path string, extra url.Values) string {
	q := url.Values{}
	for k, v := range c.query {
		q[k] = append([]string(nil), v...)
	}
	for k, v := range extra {
		q[k] = append(q[k], v...)
	}
	if len(q) == 0 {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + q.Encode()
}

func (c *Client) result(r row) (provider.Result, error) {
	var (
		res = provider.Result{Provider: Name}
		err error
	)
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"bid", r.Bid, &res.Bid},
		{"ask", r.Ask, &res.Ask},
		{"high", r.High, &res.High},
		{"low", r.Low, &res.Low},
	}
	for _, f := range fields {
		if *f.dst, err = provider.ParseNumber(f.raw); err != nil {
			return provider.Result{}, provider.Unavailable(Name, provider.KindMalformed, fmt.Errorf("%s: %w", f.name, err))
		}
	}
	// varBid and pctChange are absent on some daily rows.
	if r.VarBid != "" {
		if res.Change, err = provider.ParseNumber(r.VarBid); err != nil {
			return provider.Result{}, provider.Unavailable(Name, provider.KindMalformed, fmt.Errorf("varBid: %w", err))
		}
	}
	if r.PctChange != "" {
		if res.PctChange, err = provider.ParseNumber(r.PctChange); err != nil {
			return provider.Result{}, provider.Unavailable(Name, provider.KindMalformed, fmt.Errorf("pctChange: %w", err))
		}
	}
	res.Timestamp, err = c.timestamp(r)
	if err != nil {
		return provider.Result{}, provider.Unavailable(Name, provider.KindMalformed, err)
	}
	return res, nil
}

func (c *Client) timestamp(r row) (time.Time, error) {
	if r.Timestamp != "" {
		// Seconds, occasionally with a fractional part.
		f, err := strconv.ParseFloat(r.Timestamp, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp %q: %w", r.Timestamp, err)
		}
		return provider.EpochMaybeMillis(int64(f), c.now()), nil
	}
	if r.CreateDate != "" {
		t, err := time.ParseInLocation(time.DateTime, r.CreateDate, provider.Brasilia)
		if err != nil {
			return time.Time{}, fmt.Errorf("create_date %q: %w", r.CreateDate, err)
		}
		return t, nil
	}
	return c.now(), nil
}
