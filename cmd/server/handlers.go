package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cambioproxy/internal/aggregate"
	"cambioproxy/internal/cachepolicy"
	"cambioproxy/internal/provider"
	"cambioproxy/internal/quotes"
	"cambioproxy/internal/series"
)

const defaultCurrency = "USD-BRL"

type api struct {
	quotes *quotes.Service
	series *series.Service
	policy cachepolicy.Policy
	logger *slog.Logger
	now    func() time.Time
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// seriesErrorResponse keeps data present as an empty list.
type seriesErrorResponse struct {
	errorResponse
	Data []provider.SeriesPoint `json:"data"`
}

func (a *api) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", cachepolicy.NoStore)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/exchange-rate", a.handleLatest)
	mux.HandleFunc("GET /api/exchange-rate/historical", a.handleHistorical)
	mux.HandleFunc("GET /api/exchange-rate/annual", a.handleAnnual)
	mux.HandleFunc("GET /api/bcb", a.handleIndicator)
	return mux
}

func (a *api) handleLatest(w http.ResponseWriter, r *http.Request) {
	resp, err := a.quotes.Latest(r.Context(), splitCSV(r.URL.Query().Get("currencies")))
	if err != nil {
		a.writeError(w, r, err, false)
		return
	}
	a.writeJSON(w, cachepolicy.RealTime, resp)
}

func (a *api) handleHistorical(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := a.window(q.Get("days"), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		a.writeError(w, r, err, false)
		return
	}
	resp, err := a.quotes.History(r.Context(), currency(q.Get("currency")), window)
	if err != nil {
		a.writeError(w, r, err, false)
		return
	}
	a.writeJSON(w, cachepolicy.Historical, resp)
}

// window turns query parameters into an aggregation window. Explicit dates
// win over days; days defaults to 30 and is clamped silently, as are dates
// after today.
func (a *api) window(days, start, end string) (aggregate.Window, error) {
	today := provider.Midnight(a.now())
	n := aggregate.DefaultDays
	if days != "" {
		v, err := strconv.Atoi(strings.TrimSpace(days))
		if err != nil {
			return aggregate.Window{}, provider.Invalid("days", "%q is not an integer", days)
		}
		n = v
	}
	endDay := today
	if end != "" {
		t, err := provider.ParseFlexibleDay(end)
		if err != nil {
			return aggregate.Window{}, provider.Invalid("end_date", "%v", err)
		}
		endDay = t
	}
	if endDay.After(today) {
		endDay = today
	}
	if start == "" {
		return aggregate.LastDays(n, endDay), nil
	}
	startDay, err := provider.ParseFlexibleDay(start)
	if err != nil {
		return aggregate.Window{}, provider.Invalid("start_date", "%v", err)
	}
	if startDay.After(today) {
		startDay = today
	}
	return aggregate.Between(startDay, endDay), nil
}

func (a *api) handleAnnual(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := year(q.Get("from"), "from", quotes.DefaultAnnualFrom)
	if err != nil {
		a.writeError(w, r, err, false)
		return
	}
	to, err := year(q.Get("to"), "to", a.now().In(provider.Brasilia).Year()-1)
	if err != nil {
		a.writeError(w, r, err, false)
		return
	}
	resp, err := a.quotes.Annual(r.Context(), currency(q.Get("currency")), from, to)
	if err != nil {
		a.writeError(w, r, err, false)
		return
	}
	a.writeJSON(w, cachepolicy.Historical, resp)
}

func (a *api) handleIndicator(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := series.Request{Series: strings.TrimSpace(q.Get("series")), Bucket: strings.TrimSpace(q.Get("bucket"))}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"start", &req.Start}, {"end", &req.End}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := provider.ParseFlexibleDay(raw)
		if err != nil {
			a.writeError(w, r, provider.Invalid(p.name, "%v", err), true)
			return
		}
		*p.dst = t
	}
	resp, err := a.series.Fetch(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err, true)
		return
	}
	a.writeJSON(w, cachepolicy.Indicator, resp)
}

func (a *api) writeJSON(w http.ResponseWriter, class cachepolicy.Class, v any) {
	a.policy.Apply(w.Header(), class)
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		a.logger.Error("encode response", "error", err)
	}
}

// writeError maps invalid requests to 400 and everything else to 500. Error
// responses are never cacheable.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error, withData bool) {
	status := http.StatusInternalServerError
	if errors.Is(err, provider.ErrInvalidRequest) {
		status = http.StatusBadRequest
	}
	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	a.logger.Log(r.Context(), level, "request failed", "path", r.URL.Path, "status", status, "error", err)

	var body any = errorResponse{Success: false, Error: err.Error()}
	if withData {
		body = seriesErrorResponse{errorResponse: errorResponse{Success: false, Error: err.Error()}, Data: []provider.SeriesPoint{}}
	}
	w.Header().Set("Cache-Control", cachepolicy.NoStore)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func currency(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return defaultCurrency
	}
	return s
}

func year(raw, field string, def int) (int, error) {
	if raw = strings.TrimSpace(raw); raw == "" {
		return def, nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, provider.Invalid(field, "%q is not a year", raw)
	}
	return y, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
