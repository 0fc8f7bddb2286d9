// Package exchangerateapi reads keyless mid rates from api.exchangerate-api.com.
package exchangerateapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cambioproxy/internal/httpx"
	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
)

const (
	// Name labels results produced by this client.
	Name = "ExchangeRate-API"

	defaultBaseURL = "https://api.exchangerate-api.com/v4"

	// askMarkup approximates a retail spread over the published mid rate.
	askMarkup = 1.005
)

// Client is an exchangerate-api client.
type Client struct {
	baseURL    string
	httpClient httpx.HTTPClient
	table      *instrument.Table
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient httpx.HTTPClient) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a client.
func New(table *instrument.Table, options ...Option) *Client {
	c := &Client{baseURL: defaultBaseURL, httpClient: http.DefaultClient, table: table, now: time.Now}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return Name }

type latestResponse struct {
	Base            string             `json:"base"`
	Date            string             `json:"date"`
	TimeLastUpdated int64              `json:"time_last_updated"`
	Rates           map[string]float64 `json:"rates"`
}

// Latest converts the base currency's rate table into a quote. Only the mid
// rate is published: bid is the mid, ask carries a fixed markup, and high/low
// bracket the two.
func (c *Client) Latest(ctx context.Context, req provider.QuoteRequest) (provider.Result, error) {
	in, ok := c.table.Lookup(req.Pair)
	if !ok || !in.ExchangeRateAPI {
		return provider.Result{}, provider.Unavailablef(Name, provider.KindUnmapped, "%s not served", req.Pair)
	}

	var body latestResponse
	rawURL := fmt.Sprintf("%s/latest/%s", c.baseURL, req.Pair.Base)
	if err := httpx.GetJSON(ctx, c.httpClient, Name, rawURL, nil, &body); err != nil {
		return provider.Result{}, err
	}
	if len(body.Rates) == 0 {
		return provider.Result{}, provider.Unavailablef(Name, provider.KindEmpty, "no rates for %s", req.Pair.Base)
	}
	mid, ok := body.Rates[req.Pair.Quote]
	if !ok {
		return provider.Result{}, provider.Unavailablef(Name, provider.KindEmpty, "%s missing from %s table", req.Pair.Quote, req.Pair.Base)
	}
	if mid <= 0 {
		return provider.Result{}, provider.Unavailablef(Name, provider.KindMalformed, "non-positive rate %v", mid)
	}

	ask := mid * askMarkup
	return provider.Result{
		Provider:  Name,
		Bid:       mid,
		Ask:       ask,
		High:      ask,
		Low:       mid,
		Timestamp: provider.EpochMaybeMillis(body.TimeLastUpdated, c.now()),
	}, nil
}
