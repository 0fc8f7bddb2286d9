package quotes

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
)

// DefaultPairs is used when a caller names none.
var DefaultPairs = []string{"USD-BRL", "EUR-BRL"}

// LatestQuote is one pair of a LatestResponse. Numbers travel as decimal
// strings, matching the shape dashboard collaborators already parse.
type LatestQuote struct {
	Code       string `json:"code"`
	CodeIn     string `json:"codein"`
	Name       string `json:"name"`
	High       string `json:"high"`
	Low        string `json:"low"`
	VarBid     string `json:"varBid"`
	PctChange  string `json:"pctChange"`
	Bid        string `json:"bid"`
	Ask        string `json:"ask"`
	Timestamp  string `json:"timestamp"`
	CreateDate string `json:"create_date"`
	Source     string `json:"source"`
}

// LatestResponse is keyed by compact pair code (USDBRL). Source is the source
// of the first requested pair.
type LatestResponse struct {
	Success   bool                   `json:"success"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]LatestQuote `json:"data"`
}

// Latest resolves every pair independently through the latest chain. A pair
// whose chain is exhausted gets a simulated quote. Unknown pairs fail the
// whole call before any provider is contacted.
func (s *Service) Latest(ctx context.Context, pairs []string) (LatestResponse, error) {
	if len(pairs) == 0 {
		pairs = DefaultPairs
	}
	ins := make([]instrument.Instrument, 0, len(pairs))
	for _, raw := range pairs {
		in, err := s.table.Resolve(raw)
		if err != nil {
			return LatestResponse{}, err
		}
		ins = append(ins, in)
	}

	quotes := make([]LatestQuote, len(ins))
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range ins {
		g.Go(func() error {
			q, err := s.latestOne(gctx, in)
			quotes[i] = q
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return LatestResponse{}, err
	}

	resp := LatestResponse{
		Success:   true,
		Source:    quotes[0].Source,
		Timestamp: s.now(),
		Data:      make(map[string]LatestQuote, len(quotes)),
	}
	for i, q := range quotes {
		resp.Data[ins[i].Pair.Compact()] = q
		s.observe(EndpointLatest, q.Source)
	}
	return resp, nil
}

func (s *Service) latestOne(ctx context.Context, in instrument.Instrument) (LatestQuote, error) {
	res, name, err := s.latest.Resolve(ctx, provider.QuoteRequest{Pair: in.Pair})
	if err != nil {
		if err := absorb(ctx, err); err != nil {
			return LatestQuote{}, err
		}
		s.logger.WarnContext(ctx, "latest providers exhausted, serving simulated quote",
			"pair", in.Pair.String(), "error", err)
		res, err = s.gen.Latest(params(in), s.now())
		if err != nil {
			return LatestQuote{}, err
		}
		name = provider.SourceSimulated
	}
	return latestQuote(in, res, name), nil
}

func latestQuote(in instrument.Instrument, r provider.Result, source string) LatestQuote {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return LatestQuote{
		Code:       in.Pair.Base,
		CodeIn:     in.Pair.Quote,
		Name:       in.Name,
		High:       fixed(r.High, 4),
		Low:        fixed(r.Low, 4),
		VarBid:     fixed(r.Change, 4),
		PctChange:  fixed(r.PctChange, 2),
		Bid:        fixed(r.Bid, 4),
		Ask:        fixed(r.Ask, 4),
		Timestamp:  strconv.FormatInt(ts.Unix(), 10),
		CreateDate: ts.In(provider.Brasilia).Format(time.DateTime),
		Source:     source,
	}
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
