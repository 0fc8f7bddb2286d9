// Package bcb talks to the two Banco Central do Brasil open-data services:
// the SGS time-series API and the Olinda PTAX OData service.
package bcb

import (
	"net/http"
	"time"

	"cambioproxy/internal/httpx"
	"cambioproxy/internal/instrument"
)

const (
	// SGSBaseURL is the root of the SGS series API.
	SGSBaseURL = "https://api.bcb.gov.br/dados/serie"
	// OlindaBaseURL is the root of the PTAX OData service.
	OlindaBaseURL = "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"
)

type base struct {
	baseURL    string
	httpClient httpx.HTTPClient
	header     http.Header
	table      *instrument.Table
	now        func() time.Time
}

// Option configures an SGS or PTAX client.
type Option func(*base)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(b *base) {
		b.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient httpx.HTTPClient) Option {
	return func(b *base) {
		b.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(b *base) {
		for key, values := range header {
			for _, value := range values {
				b.header.Add(key, value)
			}
		}
	}
}

// WithClock overrides the wall clock used for "latest" windows.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

func newBase(baseURL string, table *instrument.Table, options []Option) base {
	b := base{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		table:      table,
		now:        time.Now,
	}
	for _, option := range options {
		option(&b)
	}
	return b
}
