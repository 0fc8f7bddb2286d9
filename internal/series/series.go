// Package series serves named economic indicator series from BCB SGS and IBGE
// SIDRA. Each series has exactly one source; a failed fetch is reported to the
// caller rather than replaced with synthetic data.
package series

import (
	"context"
	"fmt"
	"time"

	"cambioproxy/internal/aggregate"
	"cambioproxy/internal/provider"
	"cambioproxy/internal/provider/sidra"
)

// Defaults applied to an empty Request.
const (
	DefaultSeries = "PTAX_VENDA"
	BucketYear    = "year"
	BucketMonth   = "month"
)

// DefaultStart is the first day returned when the caller names none.
var DefaultStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, provider.Brasilia)

// SGSReader reads a BCB SGS series.
type SGSReader interface {
	Series(ctx context.Context, code int, start, end time.Time) ([]provider.SeriesPoint, error)
}

// SIDRAReader reads an IBGE SIDRA table variable.
type SIDRAReader interface {
	Series(ctx context.Context, q sidra.Query) ([]provider.SeriesPoint, error)
}

// Request names a series and an optional window and bucket.
type Request struct {
	Series string
	Start  time.Time
	End    time.Time
	Bucket string
}

// Response is returned for every successful fetch.
type Response struct {
	Success    bool                   `json:"success"`
	Source     string                 `json:"source"`
	Series     string                 `json:"series"`
	SeriesCode int                    `json:"seriesCode"`
	Period     string                 `json:"period"`
	Count      int                    `json:"count"`
	Data       []provider.SeriesPoint `json:"data"`
}

type Service struct {
	catalog *Catalog
	sgs     SGSReader
	sidra   SIDRAReader
	timeout time.Duration
	now     func() time.Time
	observe func(source string)
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each upstream call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSourceObserver is told the origin of every successful response.
func WithSourceObserver(o func(source string)) Option {
	return func(s *Service) { s.observe = o }
}

func New(catalog *Catalog, sgs SGSReader, sidra SIDRAReader, opts ...Option) *Service {
	s := &Service{catalog: catalog, sgs: sgs, sidra: sidra, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch resolves req against the catalog and reads it from its source.
func (s *Service) Fetch(ctx context.Context, req Request) (Response, error) {
	if req.Series == "" {
		req.Series = DefaultSeries
	}
	def, err := s.catalog.Lookup(req.Series)
	if err != nil {
		return Response{}, err
	}
	start, end := req.Start, req.End
	if start.IsZero() {
		start = DefaultStart
	}
	if end.IsZero() {
		end = provider.Midnight(s.now())
	}
	if end.Before(start) {
		return Response{}, provider.Invalid("start", "%s is after %s", provider.FormatBRDate(start), provider.FormatBRDate(end))
	}
	bucket, err := bucketer(req.Bucket)
	if err != nil {
		return Response{}, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	points, err := s.read(ctx, def, start, end)
	if err != nil {
		return Response{}, fmt.Errorf("series %s: %w", def.Name, err)
	}
	if bucket != nil {
		points = bucket(points)
	}
	if s.observe != nil {
		s.observe(string(def.Origin))
	}
	return Response{
		Success:    true,
		Source:     string(def.Origin),
		Series:     def.Name,
		SeriesCode: def.Code(),
		Period:     provider.FormatBRDate(start) + " - " + provider.FormatBRDate(end),
		Count:      len(points),
		Data:       points,
	}, nil
}

func (s *Service) read(ctx context.Context, def Definition, start, end time.Time) ([]provider.SeriesPoint, error) {
	switch def.Origin {
	case OriginBCB:
		if s.sgs == nil {
			return nil, provider.Unavailablef("BCB", provider.KindUnmapped, "no SGS reader configured")
		}
		return s.sgs.Series(ctx, def.SGSCode, start, end)
	case OriginIBGE:
		if s.sidra == nil {
			return nil, provider.Unavailablef(sidra.Name, provider.KindUnmapped, "no SIDRA reader configured")
		}
		q := def.SIDRA
		q.Period = sidraPeriod(def.Granularity, start, end)
		points, err := s.sidra.Series(ctx, q)
		if err != nil {
			return nil, err
		}
		return clip(points, start, end), nil
	}
	return nil, fmt.Errorf("unknown origin %q", def.Origin)
}

// sidraPeriod renders the range in the table's own period codes.
func sidraPeriod(g Granularity, start, end time.Time) string {
	if g == Yearly {
		return fmt.Sprintf("%d-%d", start.Year(), end.Year())
	}
	return start.In(provider.Brasilia).Format("200601") + "-" + end.In(provider.Brasilia).Format("200601")
}

// clip drops points dated outside [start's period, end]. Monthly and yearly
// points are dated on their first day, so start is compared by month.
func clip(points []provider.SeriesPoint, start, end time.Time) []provider.SeriesPoint {
	lo := provider.Day(start)[:7]
	hi := provider.Day(end)
	out := make([]provider.SeriesPoint, 0, len(points))
	for _, p := range points {
		if len(p.Date) >= 7 && p.Date[:7] >= lo && p.Date <= hi {
			out = append(out, p)
		}
	}
	return out
}

func bucketer(name string) (func([]provider.SeriesPoint) []provider.SeriesPoint, error) {
	switch name {
	case "":
		return nil, nil
	case BucketYear:
		return aggregate.ByYear, nil
	case BucketMonth:
		return aggregate.ByMonth, nil
	}
	return nil, provider.Invalid("bucket", "must be %s or %s, got %q", BucketYear, BucketMonth, name)
}
