// Package alphavantage reads FX quotes from the AlphaVantage query API. The
// API needs a key, so this client only joins the chains when one is configured.
package alphavantage

import (
	"errors"
	"net/http"
	"net/url"

	"cambioproxy/internal/httpx"
	"cambioproxy/internal/instrument"
)

const (
	// Name labels results produced by this client.
	Name = "AlphaVantage"

	baseURL = "https://www.alphavantage.co"
)

// ErrMissingKey is returned by NewClient when no API key is given.
var ErrMissingKey = errors.New("alphavantage: api key is required")

// Client is a client for the AlphaVantage API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient httpx.HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
	table *instrument.Table
}

// ClientOption is a configuration option for the AlphaVantage client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient httpx.HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new AlphaVantage client.
func NewClient(key string, table *instrument.Table, options ...ClientOption) (*Client, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
		table:      table,
	}
	// https://www.alphavantage.co/documentation/
	client.query.Add("apikey", key)
	for _, option := range options {
		option(client)
	}
	return client, nil
}

func (c *Client) Name() string { return Name }
