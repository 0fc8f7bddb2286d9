package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"cambioproxy/internal/provider"
)

// maxBody bounds how much of an upstream body is decoded.
const maxBody = 8 << 20

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=httpxmock -destination=httpxmock/mock_http_client.go -source=httpx.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a small wrapper around http.Client with sane defaults.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
}

// New returns a Client whose transport is tuned for a handful of upstream
// hosts. timeout is a hard ceiling; per-attempt deadlines come from the
// request context.
func New(timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		MaxConnsPerHost:       32,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 8 * time.Second,
	}
	return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "cambioproxy/1.0"}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.HTTP.Do(req)
}

// GetJSON performs one GET against rawURL and decodes the body into v.
// Every failure comes back as a *provider.UnavailableError attributed to name.
func GetJSON(ctx context.Context, hc HTTPClient, name, rawURL string, header http.Header, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return provider.Unavailable(name, provider.KindMalformed, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}

	res, err := hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return provider.Classify(name, fmt.Errorf("performing request: %w", err))
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return provider.Unavailablef(name, provider.KindRateLimited, "rate limited")
	case res.StatusCode < 200 || res.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return provider.Unavailablef(name, provider.KindStatus, "unexpected status code: %d: %s", res.StatusCode, string(b))
	}

	dec := json.NewDecoder(io.LimitReader(res.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return provider.Classify(name, fmt.Errorf("reading body: %w", ctxErr))
		}
		return provider.Unavailable(name, provider.KindMalformed, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
