package quotes_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cambioproxy/internal/aggregate"
	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
	"cambioproxy/internal/provider/providermock"
	"cambioproxy/internal/quotes"
	"cambioproxy/internal/resolver"
	"cambioproxy/internal/synthetic"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, provider.Brasilia)

type chains struct {
	latest  []*providermock.MockLatestProvider
	history []*providermock.MockHistoryProvider
}

func newChains(t *testing.T, ctrl *gomock.Controller, names ...string) chains {
	t.Helper()
	var c chains
	for _, n := range names {
		l := providermock.NewMockLatestProvider(ctrl)
		l.EXPECT().Name().Return(n).AnyTimes()
		h := providermock.NewMockHistoryProvider(ctrl)
		h.EXPECT().Name().Return(n).AnyTimes()
		c.latest = append(c.latest, l)
		c.history = append(c.history, h)
	}
	return c
}

func (c chains) service(t *testing.T, opts ...quotes.Option) *quotes.Service {
	t.Helper()
	var ls []resolver.Spec[provider.Result]
	var hs []resolver.Spec[[]provider.Quote]
	for i := range c.latest {
		ls = append(ls, resolver.Latest(c.latest[i], i+1, time.Second))
		hs = append(hs, resolver.History(c.history[i], i+1, time.Second))
	}
	latest, err := resolver.New("latest", ls)
	require.NoError(t, err)
	history, err := resolver.New("history", hs)
	require.NoError(t, err)

	opts = append([]quotes.Option{
		quotes.WithClock(func() time.Time { return now }),
		quotes.WithGenerator(synthetic.NewWithSource(rand.NewPCG(1, 1))),
	}, opts...)
	svc, err := quotes.New(instrument.Default(), latest, history, opts...)
	require.NoError(t, err)
	return svc
}

type sources struct {
	mu  sync.Mutex
	got []string
}

func (s *sources) observe(endpoint, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, endpoint+":"+source)
}

func dailyQuotes(w aggregate.Window, base float64) []provider.Quote {
	var out []provider.Quote
	for i, d := range w.Dates() {
		v := base + float64(i)*0.01
		out = append(out, provider.Quote{Date: provider.Day(d), Bid: v, Ask: v + 0.01, High: v + 0.02, Low: v - 0.01})
	}
	return out
}

func TestLatest_FallsBackPerPair(t *testing.T) {
	t.Parallel()

	// Arrange: A answers EUR only, B answers USD.
	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A", "B")
	usd := provider.QuoteRequest{Pair: provider.MustPair("USD-BRL")}
	eur := provider.QuoteRequest{Pair: provider.MustPair("EUR-BRL")}
	ts := time.Date(2024, 6, 28, 13, 0, 0, 0, provider.Brasilia)
	c.latest[0].EXPECT().Latest(gomock.Any(), usd).Return(provider.Result{}, provider.Unavailablef("A", provider.KindStatus, "503")).Times(1)
	c.latest[0].EXPECT().Latest(gomock.Any(), eur).Return(provider.Result{Provider: "A", Bid: 6.1, Ask: 6.11, High: 6.2, Low: 6.0, Timestamp: ts}, nil).Times(1)
	c.latest[1].EXPECT().Latest(gomock.Any(), usd).Return(provider.Result{Provider: "B", Bid: 5.43219, Ask: 5.4331, High: 5.5, Low: 5.4, Change: 0.012, PctChange: 0.2211, Timestamp: ts}, nil).Times(1)
	c.latest[1].EXPECT().Latest(gomock.Any(), eur).Times(0)
	obs := &sources{}
	svc := c.service(t, quotes.WithSourceObserver(obs.observe))

	// Act
	resp, err := svc.Latest(t.Context(), []string{"USD-BRL", "EUR-BRL"})

	// Assert
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "B", resp.Source)
	require.Len(t, resp.Data, 2)
	got := resp.Data["USDBRL"]
	require.Equal(t, quotes.LatestQuote{
		Code: "USD", CodeIn: "BRL", Name: "Dolar Americano/Real Brasileiro",
		High: "5.5000", Low: "5.4000", VarBid: "0.0120", PctChange: "0.22",
		Bid: "5.4322", Ask: "5.4331",
		Timestamp: "1719590400", CreateDate: "2024-06-28 13:00:00",
		Source: "B",
	}, got)
	require.Equal(t, "A", resp.Data["EURBRL"].Source)
	require.ElementsMatch(t, []string{"latest:B", "latest:A"}, obs.got)
}

func TestLatest_ExhaustedChainServesSimulated(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	c.latest[0].EXPECT().Latest(gomock.Any(), gomock.Any()).Return(provider.Result{}, provider.Unavailablef("A", provider.KindMalformed, "bad json")).Times(1)
	svc := c.service(t)

	resp, err := svc.Latest(t.Context(), []string{"USD-BRL"})

	require.NoError(t, err)
	require.Equal(t, provider.SourceSimulated, resp.Source)
	q := resp.Data["USDBRL"]
	require.Equal(t, provider.SourceSimulated, q.Source)
	require.NotEmpty(t, q.Bid)
}

func TestLatest_DefaultPairs(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	c.latest[0].EXPECT().Latest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req provider.QuoteRequest) (provider.Result, error) {
			return provider.Result{Provider: "A", Bid: 1, Ask: 1, High: 1, Low: 1, Timestamp: now}, nil
		}).
		Times(2)

	resp, err := c.service(t).Latest(t.Context(), nil)

	require.NoError(t, err)
	require.Contains(t, resp.Data, "USDBRL")
	require.Contains(t, resp.Data, "EURBRL")
}

func TestLatest_UnknownPairIsInvalidWithoutCalls(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	c.latest[0].EXPECT().Latest(gomock.Any(), gomock.Any()).Times(0)

	_, err := c.service(t).Latest(t.Context(), []string{"USD-BRL", "XYZ-ABC"})

	require.ErrorIs(t, err, provider.ErrInvalidRequest)
}

func TestLatest_CancelledRequestIsNotMasked(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	c.latest[0].EXPECT().Latest(gomock.Any(), gomock.Any()).Times(0)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := c.service(t).Latest(ctx, []string{"USD-BRL"})

	require.ErrorIs(t, err, context.Canceled)
}

func TestHistory_SecondProviderAnswersWholeWindow(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A", "B")
	w := aggregate.LastDays(30, now)
	req := w.Request(provider.MustPair("USD-BRL"))
	c.history[0].EXPECT().History(gomock.Any(), req).Return(nil, provider.Unavailablef("A", provider.KindTimeout, "slow")).Times(1)
	c.history[1].EXPECT().History(gomock.Any(), req).Return(dailyQuotes(w, 5), nil).Times(1)
	obs := &sources{}
	svc := c.service(t, quotes.WithSourceObserver(obs.observe))

	// Act
	resp, err := svc.History(t.Context(), "USD-BRL", w)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "B", resp.Source)
	require.Equal(t, "USD-BRL", resp.Currency)
	require.Equal(t, "30 days", resp.Period)
	require.Equal(t, 30, resp.Count)
	require.Len(t, resp.Data, 30)
	require.Equal(t, "2024-06-01", resp.Data[0].Date)
	require.Equal(t, "2024-06-30", resp.Data[29].Date)
	require.Equal(t, now, resp.Timestamp)
	require.Equal(t, []string{"historical:B"}, obs.got)
}

func TestHistory_ExhaustedChainServesSimulated(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A", "B")
	for _, h := range c.history {
		h.EXPECT().History(gomock.Any(), gomock.Any()).Return(nil, provider.Unavailablef("x", provider.KindMalformed, "garbage")).Times(1)
	}

	resp, err := c.service(t).History(t.Context(), "EUR-BRL", aggregate.LastDays(1000, now))

	require.NoError(t, err)
	require.Equal(t, provider.SourceSimulated, resp.Source)
	require.Equal(t, aggregate.MaxDays, resp.Count)
	require.Equal(t, "2024-06-30", resp.Data[resp.Count-1].Date)
	for i := 1; i < resp.Count; i++ {
		require.Greater(t, resp.Data[i].Date, resp.Data[i-1].Date)
	}
}

func TestHistory_ProviderDataOutsideWindowFallsThrough(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	stale := dailyQuotes(aggregate.LastDays(5, now.AddDate(-1, 0, 0)), 5)
	c.history[0].EXPECT().History(gomock.Any(), gomock.Any()).Return(stale, nil).Times(1)

	resp, err := c.service(t).History(t.Context(), "USD-BRL", aggregate.LastDays(5, now))

	require.NoError(t, err)
	require.Equal(t, provider.SourceSimulated, resp.Source)
	require.Equal(t, 5, resp.Count)
}

func TestHistory_PerDayLookupBeforeSynthetic(t *testing.T) {
	t.Parallel()

	// Arrange: the chain is exhausted, the per-day lookup knows two days.
	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	c.history[0].EXPECT().History(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial tcp: refused")).Times(1)
	lookup := providermock.NewMockDayLookup(ctrl)
	lookup.EXPECT().Name().Return("BCB-PTAX").AnyTimes()
	lookup.EXPECT().OnDate(gomock.Any(), provider.MustPair("USD-BRL"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ provider.Pair, day time.Time) ([]provider.Result, error) {
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				return nil, provider.Unavailablef("BCB-PTAX", provider.KindEmpty, "no bulletin")
			}
			return []provider.Result{{Provider: "BCB-PTAX", Bid: 5.4, Ask: 5.41, High: 5.41, Low: 5.4, Timestamp: day.Add(13 * time.Hour)}}, nil
		}).
		Times(7)
	svc := c.service(t, quotes.WithEnrichment(lookup, func(p provider.Pair) bool { return p.Base == "USD" }, time.Second))

	// Act
	resp, err := svc.History(t.Context(), "USD-BRL", aggregate.LastDays(7, now))

	// Assert: 2024-06-24..28 are weekdays.
	require.NoError(t, err)
	require.Equal(t, "BCB-PTAX", resp.Source)
	require.Equal(t, 5, resp.Count)
	require.Equal(t, "2024-06-24", resp.Data[0].Date)
	require.Equal(t, "2024-06-28", resp.Data[4].Date)
}

func TestHistory_PerDayLookupSkippedForUnsupportedPair(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	c.history[0].EXPECT().History(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")).Times(1)
	lookup := providermock.NewMockDayLookup(ctrl)
	lookup.EXPECT().Name().Return("BCB-PTAX").AnyTimes()
	lookup.EXPECT().OnDate(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	svc := c.service(t, quotes.WithEnrichment(lookup, func(p provider.Pair) bool { return p.Base == "USD" }, time.Second))

	resp, err := svc.History(t.Context(), "GBP-BRL", aggregate.LastDays(3, now))

	require.NoError(t, err)
	require.Equal(t, provider.SourceSimulated, resp.Source)
}

func TestHistory_PerDayLookupsAreBoundedAndLabelVisitedWindow(t *testing.T) {
	t.Parallel()

	// Arrange: the chain is exhausted; every per-day call records its deadline.
	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	c.history[0].EXPECT().History(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial tcp: refused")).Times(1)
	lookup := providermock.NewMockDayLookup(ctrl)
	lookup.EXPECT().Name().Return("BCB-PTAX").AnyTimes()
	var (
		mu         sync.Mutex
		noDeadline int
	)
	lookup.EXPECT().OnDate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ provider.Pair, day time.Time) ([]provider.Result, error) {
			if _, ok := ctx.Deadline(); !ok {
				mu.Lock()
				noDeadline++
				mu.Unlock()
			}
			return []provider.Result{{Provider: "BCB-PTAX", Bid: 5.4, Ask: 5.41, High: 5.41, Low: 5.4, Timestamp: day.Add(13 * time.Hour)}}, nil
		}).
		Times(aggregate.EnrichMaxDays)
	svc := c.service(t, quotes.WithEnrichment(lookup, func(p provider.Pair) bool { return p.Base == "USD" }, time.Second))

	// Act
	resp, err := svc.History(t.Context(), "USD-BRL", aggregate.LastDays(360, now))

	// Assert
	require.NoError(t, err)
	require.Zero(t, noDeadline)
	require.Equal(t, "BCB-PTAX", resp.Source)
	require.Equal(t, aggregate.EnrichMaxDays, resp.Count)
	require.Equal(t, "31 days", resp.Period)
}

func TestHistory_SpentDeadlineServesSimulated(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	c.history[0].EXPECT().History(gomock.Any(), gomock.Any()).Times(0)
	lookup := providermock.NewMockDayLookup(ctrl)
	lookup.EXPECT().Name().Return("BCB-PTAX").AnyTimes()
	lookup.EXPECT().OnDate(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	svc := c.service(t, quotes.WithEnrichment(lookup, func(p provider.Pair) bool { return p.Base == "USD" }, time.Second))
	ctx, cancel := context.WithDeadline(t.Context(), time.Now().Add(-time.Second))
	defer cancel()

	resp, err := svc.History(ctx, "USD-BRL", aggregate.LastDays(10, now))

	require.NoError(t, err)
	require.Equal(t, provider.SourceSimulated, resp.Source)
	require.Equal(t, 10, resp.Count)
	require.Equal(t, "10 days", resp.Period)
}

func TestHistory_InvalidPair(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := newChains(t, ctrl, "A")
	c.history[0].EXPECT().History(gomock.Any(), gomock.Any()).Times(0)

	_, err := c.service(t).History(t.Context(), "XYZ-ABC", aggregate.LastDays(30, now))

	require.ErrorIs(t, err, provider.ErrInvalidRequest)
}

type fakeSeries struct {
	mu     sync.Mutex
	calls  [][2]string
	points func(start, end time.Time) ([]provider.SeriesPoint, error)
}

func (f *fakeSeries) Name() string { return "BCB" }

func (f *fakeSeries) Series(_ context.Context, _ int, start, end time.Time) ([]provider.SeriesPoint, error) {
	f.mu.Lock()
	f.calls = append(f.calls, [2]string{provider.Day(start), provider.Day(end)})
	f.mu.Unlock()
	return f.points(start, end)
}

func TestAnnual_LiveSeriesBucketedByYearInChunks(t *testing.T) {
	t.Parallel()

	// Arrange: two observations per year, 2000..2023.
	src := &fakeSeries{points: func(start, end time.Time) ([]provider.SeriesPoint, error) {
		var out []provider.SeriesPoint
		for y := start.Year(); y <= end.Year(); y++ {
			base := float64(y-1999) / 10
			out = append(out,
				provider.SeriesPoint{Date: time.Date(y, 3, 1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly), Value: base},
				provider.SeriesPoint{Date: time.Date(y, 9, 1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly), Value: base + 0.2},
			)
		}
		return out, nil
	}}
	ctrl := gomock.NewController(t)
	svc := newChains(t, ctrl, "A").service(t, quotes.WithAnnualSource(src, time.Second))

	// Act
	resp, err := svc.Annual(t.Context(), "USD-BRL", 2000, 2023)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "BCB", resp.Source)
	require.Equal(t, "2000-2023", resp.Period)
	require.Equal(t, 24, resp.Count)
	require.Equal(t, "2000-01-01", resp.Data[0].Date)
	require.InDelta(t, 0.2, resp.Data[0].Bid, 1e-9)
	require.InDelta(t, 0.1, resp.Data[1].Change, 1e-9)
	require.Equal(t, [][2]string{
		{"2000-01-01", "2009-12-31"},
		{"2010-01-01", "2019-12-31"},
		{"2020-01-01", "2023-12-31"},
	}, src.calls)
}

func TestAnnual_ReferenceTableWhenSeriesFails(t *testing.T) {
	t.Parallel()

	src := &fakeSeries{points: func(time.Time, time.Time) ([]provider.SeriesPoint, error) {
		return nil, provider.Unavailablef("BCB", provider.KindStatus, "status 503")
	}}
	ctrl := gomock.NewController(t)
	svc := newChains(t, ctrl, "A").service(t, quotes.WithAnnualSource(src, time.Second))

	resp, err := svc.Annual(t.Context(), "USD-BRL", 2010, 2012)

	require.NoError(t, err)
	require.Equal(t, provider.SourceCachedFallback, resp.Source)
	require.Equal(t, []provider.Quote{
		{Date: "2010-01-01", Bid: 1.7601, Ask: 1.7601, High: 1.7601, Low: 1.7601},
		{Date: "2011-01-01", Bid: 1.6754, Ask: 1.6754, High: 1.6754, Low: 1.6754, Change: -0.0847, ChangePercent: -4.81},
		{Date: "2012-01-01", Bid: 1.9536, Ask: 1.9536, High: 1.9536, Low: 1.9536, Change: 0.2782, ChangePercent: 16.6},
	}, resp.Data)
	require.Len(t, src.calls, 1)
}

func TestAnnual_SyntheticOutsideReference(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := newChains(t, ctrl, "A").service(t)

	resp, err := svc.Annual(t.Context(), "CNY-BRL", 2015, 2024)

	require.NoError(t, err)
	require.Equal(t, provider.SourceSimulated, resp.Source)
	require.Equal(t, 10, resp.Count)
	require.Equal(t, "2024-01-01", resp.Data[9].Date)
}

func TestAnnual_RejectsBadYears(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc := newChains(t, ctrl, "A").service(t)

	for _, years := range [][2]int{{1990, 2000}, {2010, 2009}, {2020, 2025}} {
		_, err := svc.Annual(t.Context(), "USD-BRL", years[0], years[1])
		require.ErrorIsf(t, err, provider.ErrInvalidRequest, "years %v", years)
	}
}
