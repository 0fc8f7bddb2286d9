package awesomeapi_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cambioproxy/internal/httpx/httpxmock"
	"cambioproxy/internal/instrument"
	"cambioproxy/internal/provider"
	"cambioproxy/internal/provider/awesomeapi"
)

const lastBody = `{"USDBRL":{"code":"USD","codein":"BRL","name":"Dólar Americano/Real Brasileiro",
"high":"4.9612","low":"4.8901","varBid":"0.0123","pctChange":"0.25","bid":"4.9512","ask":"4.9522",
"timestamp":"1704484799","create_date":"2024-01-05 16:59:59"}}`

func TestLatest_ParsesStringFields(t *testing.T) {
	t.Parallel()

	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/json/last/USD-BRL", r.URL.Path)
		require.Equal(t, "tok", r.URL.Query().Get("token"))
		_, _ = io.WriteString(w, lastBody)
	}))
	t.Cleanup(srv.Close)
	client := awesomeapi.New(instrument.Default(), "tok", awesomeapi.WithBaseURL(srv.URL))

	// Act
	res, err := client.Latest(t.Context(), provider.QuoteRequest{Pair: provider.MustPair("USD-BRL")})

	// Assert
	require.NoError(t, err)
	require.Equal(t, provider.Result{
		Provider:  awesomeapi.Name,
		Bid:       4.9512,
		Ask:       4.9522,
		High:      4.9612,
		Low:       4.8901,
		Change:    0.0123,
		PctChange: 0.25,
		Timestamp: time.Unix(1704484799, 0).UTC(),
	}, res)
}

func TestLatest_MissingPairIsEmpty(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{}`))}, nil
		}).
		Times(1)

	client := awesomeapi.New(instrument.Default(), "", awesomeapi.WithHTTPClient(httpClient))
	_, err := client.Latest(t.Context(), provider.QuoteRequest{Pair: provider.MustPair("EUR-BRL")})

	require.Equal(t, provider.KindEmpty, provider.KindOf(err))
}

func TestHistory_DateRangeQuery(t *testing.T) {
	t.Parallel()

	// Arrange: newest first, later rows without code/name.
	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/json/daily/EUR-BRL/3", req.URL.Path)
			require.Equal(t, "20240103", req.URL.Query().Get("start_date"))
			require.Equal(t, "20240105", req.URL.Query().Get("end_date"))
			require.Empty(t, req.URL.Query().Get("token"))
			body := `[
				{"code":"EUR","codein":"BRL","name":"Euro/Real Brasileiro","high":"5.42","low":"5.38","varBid":"0.01","pctChange":"0.19","bid":"5.40","ask":"5.41","timestamp":"1704484799"},
				{"high":"5.40","low":"5.35","varBid":"-0.02","pctChange":"-0.37","bid":"5.39","ask":"5.40","timestamp":"1704398399"}
			]`
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
		}).
		Times(1)

	client := awesomeapi.New(instrument.Default(), "", awesomeapi.WithHTTPClient(httpClient))

	// Act
	quotes, err := client.History(t.Context(), provider.QuoteRequest{
		Pair:  provider.MustPair("EUR-BRL"),
		Start: time.Date(2024, 1, 3, 0, 0, 0, 0, provider.Brasilia),
		End:   time.Date(2024, 1, 5, 0, 0, 0, 0, provider.Brasilia),
	})

	// Assert
	require.NoError(t, err)
	require.Equal(t, []provider.Quote{
		{Date: "2024-01-05", Bid: 5.4, Ask: 5.41, High: 5.42, Low: 5.38, Change: 0.01, ChangePercent: 0.19},
		{Date: "2024-01-04", Bid: 5.39, Ask: 5.4, High: 5.4, Low: 5.35, Change: -0.02, ChangePercent: -0.37},
	}, quotes)
}

func TestHistory_MalformedNumber(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`[{"bid":"abc","ask":"1","high":"1","low":"1"}]`))}, nil).
		Times(1)

	client := awesomeapi.New(instrument.Default(), "", awesomeapi.WithHTTPClient(httpClient))
	_, err := client.History(t.Context(), provider.QuoteRequest{Pair: provider.MustPair("USD-BRL"), Days: 5})

	require.Equal(t, provider.KindMalformed, provider.KindOf(err))
}

func TestUnmappedPairMakesNoCall(t *testing.T) {
	t.Parallel()

	tbl, err := instrument.New(instrument.Instrument{Pair: provider.MustPair("USD-BRL"), Baseline: 5})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	client := awesomeapi.New(tbl, "", awesomeapi.WithHTTPClient(httpClient))
	_, err = client.Latest(t.Context(), provider.QuoteRequest{Pair: provider.MustPair("USD-BRL")})
	require.Equal(t, provider.KindUnmapped, provider.KindOf(err))
}
