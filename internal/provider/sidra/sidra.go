// Package sidra reads aggregate tables from the IBGE SIDRA values API.
package sidra

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"cambioproxy/internal/httpx"
	"cambioproxy/internal/provider"
)

const (
	// Name labels results produced by this client.
	Name = "IBGE-SIDRA"

	defaultBaseURL = "https://apisidra.ibge.gov.br"
)

// Query selects one variable of one table at national level.
type Query struct {
	Table    int
	Variable int
	// Period is "all", "last N" or a range such as "201001-202412".
	Period string
	// Classification optionally narrows the table, e.g. "c11255/90707".
	Classification string
}

// Client is a SIDRA client.
type Client struct {
	baseURL    string
	httpClient httpx.HTTPClient
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
func New(options ...Option) *Client {
	c := &Client{baseURL: defaultBaseURL, httpClient: http.DefaultClient}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return Name }

// Series fetches q and returns one point per period, oldest first. Missing
// observations ("...", "-", "X") are skipped.
func (c *Client) Series(ctx context.Context, q Query) ([]provider.SeriesPoint, error) {
	if q.Table <= 0 || q.Variable <= 0 {
		return nil, provider.Invalid("series", "table %d variable %d", q.Table, q.Variable)
	}
	period := q.Period
	if period == "" {
		period = "all"
	}
	path := fmt.Sprintf("/values/t/%d/n1/all/v/%d/p/%s", q.Table, q.Variable, url.PathEscape(period))
	if q.Classification != "" {
		path += "/" + strings.Trim(q.Classification, "/")
	}

	var rows []map[string]string
	if err := httpx.GetJSON(ctx, c.httpClient, Name, c.baseURL+path+"?formato=json", nil, &rows); err != nil {
		return nil, err
	}
	// The first row is a header mapping column keys to labels.
	if len(rows) < 2 {
		return nil, provider.Unavailablef(Name, provider.KindEmpty, "table %d has no observations", q.Table)
	}
	key, layout, err := periodColumn(rows[0])
	if err != nil {
		return nil, provider.Unavailable(Name, provider.KindMalformed, err)
	}

	out := make([]provider.SeriesPoint, 0, len(rows)-1)
	for _, r := range rows[1:] {
		raw := strings.TrimSpace(r["V"])
		if missing(raw) {
			continue
		}
		v, err := provider.ParseNumber(raw)
		if err != nil {
			return nil, provider.Unavailable(Name, provider.KindMalformed, err)
		}
		d, err := parsePeriod(r[key], layout)
		if err != nil {
			return nil, provider.Unavailable(Name, provider.KindMalformed, err)
		}
		out = append(out, provider.SeriesPoint{Date: provider.Day(d), Value: v})
	}
	if len(out) == 0 {
		return nil, provider.Unavailablef(Name, provider.KindEmpty, "table %d has only missing values", q.Table)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type periodLayout int

const (
	monthly periodLayout = iota
	quarterly
	yearly
)

// periodColumn finds the D?C column whose header label names a period.
func periodColumn(header map[string]string) (string, periodLayout, error) {
	keys := make([]string, 0, len(header))
	for k := range header {
		if strings.HasPrefix(k, "D") && strings.HasSuffix(k, "C") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := strings.ToLower(header[k])
		switch {
		case strings.HasPrefix(label, "mês"), strings.HasPrefix(label, "mes"):
			return k, monthly, nil
		case strings.HasPrefix(label, "trimestre"):
			return k, quarterly, nil
		case strings.HasPrefix(label, "ano"):
			return k, yearly, nil
		}
	}
	return "", 0, fmt.Errorf("no period column in header %v", header)
}

func parsePeriod(code string, layout periodLayout) (time.Time, error) {
	code = strings.TrimSpace(code)
	switch layout {
	case yearly:
		if len(code) == 4 {
			y, err := strconv.Atoi(code)
			if err == nil {
				return time.Date(y, time.January, 1, 0, 0, 0, 0, provider.Brasilia), nil
			}
		}
	case monthly, quarterly:
		if len(code) == 6 {
			y, err1 := strconv.Atoi(code[:4])
			n, err2 := strconv.Atoi(code[4:])
			if err1 == nil && err2 == nil {
				month := n
				if layout == quarterly {
					month = (n-1)*3 + 1
				}
				if month >= 1 && month <= 12 {
					return time.Date(y, time.Month(month), 1, 0, 0, 0, 0, provider.Brasilia), nil
				}
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized period code %q", code)
}

func missing(v string) bool {
	switch v {
	case "", "...", "..", "-", "X", "x":
		return true
	}
	return false
}
