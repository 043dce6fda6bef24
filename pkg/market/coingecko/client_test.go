package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coinboard-api/pkg/market"
)

type mockGecko struct {
	server      *httptest.Server
	chartCalls  atomic.Int64
	ohlcCalls   atomic.Int64
	chartBody   func() any
	ohlcBody    func() any
	chartStatus int
}

func newMockGecko(t *testing.T) *mockGecko {
	t.Helper()
	m := &mockGecko{
		chartBody: func() any {
			return map[string]any{
				"prices":        [][2]float64{{1000, 100}, {2000, 101}, {3000, 102}},
				"total_volumes": [][2]float64{{1000, 10}, {2000, 11}, {3000, 12}},
			}
		},
		ohlcBody: func() any {
			return [][]float64{
				{1000, 100, 105, 99, 104},
				{2000, 104, 110, 103, 108},
			}
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/coins/bitcoin/market_chart", func(w http.ResponseWriter, r *http.Request) {
		m.chartCalls.Add(1)
		if m.chartStatus != 0 {
			w.WriteHeader(m.chartStatus)
			return
		}
		writeJSON(w, m.chartBody())
	})
	mux.HandleFunc("/coins/bitcoin/ohlc", func(w http.ResponseWriter, r *http.Request) {
		m.ohlcCalls.Add(1)
		writeJSON(w, m.ohlcBody())
	})
	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (m *mockGecko) client(opts ...Option) *Client {
	opts = append([]Option{WithBaseURL(m.server.URL), WithMaxRetries(0)}, opts...)
	return NewClient(opts...)
}

func TestMarketChartNormalization(t *testing.T) {
	mock := newMockGecko(t)
	snap, err := mock.client().MarketChart(context.Background(), "bitcoin", 30)
	require.NoError(t, err)
	require.Equal(t, "bitcoin", snap.AssetID)
	require.Equal(t, market.KindMarketChart, snap.Kind)
	require.Len(t, snap.Price, 3)
	require.Len(t, snap.Volume, 3)
	require.True(t, snap.Price.Sorted())
	require.True(t, snap.Price[0].Time.Equal(time.UnixMilli(1000).UTC()))
	require.InDelta(t, 100.0, snap.Price[0].Value, 1e-9)
	require.InDelta(t, 12.0, snap.Volume[2].Value, 1e-9)
}

func TestMarketChartInnerJoin(t *testing.T) {
	mock := newMockGecko(t)
	mock.chartBody = func() any {
		return map[string]any{
			"prices":        [][2]float64{{1000, 100}, {2000, 101}, {3000, 102}},
			"total_volumes": [][2]float64{{2000, 11}, {3000, 12}, {4000, 13}},
		}
	}
	snap, err := mock.client().MarketChart(context.Background(), "bitcoin", 30)
	require.NoError(t, err)

	// Timestamps present in only one series are dropped: {1,2,3} x {2,3,4} = {2,3}.
	require.Len(t, snap.Price, 2)
	require.Len(t, snap.Volume, 2)
	require.True(t, snap.Price[0].Time.Equal(time.UnixMilli(2000).UTC()))
	require.True(t, snap.Price[1].Time.Equal(time.UnixMilli(3000).UTC()))
	require.InDelta(t, 101.0, snap.Price[0].Value, 1e-9)
	require.InDelta(t, 11.0, snap.Volume[0].Value, 1e-9)
}

func TestMarketChartSortsUnsortedPayload(t *testing.T) {
	mock := newMockGecko(t)
	mock.chartBody = func() any {
		return map[string]any{
			"prices":        [][2]float64{{3000, 102}, {1000, 100}, {2000, 101}},
			"total_volumes": [][2]float64{{2000, 11}, {3000, 12}, {1000, 10}},
		}
	}
	snap, err := mock.client().MarketChart(context.Background(), "bitcoin", 30)
	require.NoError(t, err)
	require.True(t, snap.Price.Sorted())
	require.InDelta(t, 100.0, snap.Price[0].Value, 1e-9)
	require.InDelta(t, 102.0, snap.Price[2].Value, 1e-9)
}

func TestMarketChartEmptyPayload(t *testing.T) {
	mock := newMockGecko(t)
	mock.chartBody = func() any {
		return map[string]any{"prices": [][2]float64{}, "total_volumes": [][2]float64{}}
	}
	_, err := mock.client().MarketChart(context.Background(), "bitcoin", 30)
	require.ErrorIs(t, err, market.ErrDataUnavailable)
}

func TestMarketChartHTTPError(t *testing.T) {
	mock := newMockGecko(t)
	mock.chartStatus = http.StatusTooManyRequests
	_, err := mock.client().MarketChart(context.Background(), "bitcoin", 30)
	require.ErrorIs(t, err, market.ErrDataUnavailable)
}

func TestMarketChartTransportError(t *testing.T) {
	client := NewClient(WithBaseURL("http://127.0.0.1:1"), WithMaxRetries(0),
		WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}))
	_, err := client.MarketChart(context.Background(), "bitcoin", 30)
	require.ErrorIs(t, err, market.ErrDataUnavailable)
}

func TestOHLCNormalization(t *testing.T) {
	mock := newMockGecko(t)
	snap, err := mock.client().OHLC(context.Background(), "bitcoin", 30)
	require.NoError(t, err)
	require.Equal(t, market.KindOHLC, snap.Kind)
	require.Len(t, snap.Open, 2)
	require.Len(t, snap.Close, 2)
	require.InDelta(t, 100.0, snap.Open[0].Value, 1e-9)
	require.InDelta(t, 110.0, snap.High[1].Value, 1e-9)
	require.InDelta(t, 99.0, snap.Low[0].Value, 1e-9)
	require.InDelta(t, 108.0, snap.Close[1].Value, 1e-9)
	require.True(t, snap.Close.Sorted())
}

func TestOHLCTruncatedRecord(t *testing.T) {
	mock := newMockGecko(t)
	mock.ohlcBody = func() any {
		return []any{
			[]float64{1000, 100, 105, 99, 104},
			[]float64{2000, 104, 110}, // truncated record
		}
	}
	_, err := mock.client().OHLC(context.Background(), "bitcoin", 30)
	require.ErrorIs(t, err, market.ErrMalformedPayload)
}

func TestOHLCNonNumericRecord(t *testing.T) {
	mock := newMockGecko(t)
	mock.ohlcBody = func() any {
		return []any{
			[]any{1000, 100, 105, 99, 104},
			[]any{2000, "n/a", 110, 103, 108},
		}
	}
	_, err := mock.client().OHLC(context.Background(), "bitcoin", 30)
	require.ErrorIs(t, err, market.ErrMalformedPayload)
}

func TestOHLCInvalidWindowSkipsNetwork(t *testing.T) {
	mock := newMockGecko(t)
	_, err := mock.client().OHLC(context.Background(), "bitcoin", 45)
	require.ErrorIs(t, err, market.ErrInvalidWindow)
	require.EqualValues(t, 0, mock.ohlcCalls.Load(), "invalid window must be rejected before any network call")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{
			"prices":        [][2]float64{{1000, 100}},
			"total_volumes": [][2]float64{{1000, 10}},
		})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(3))
	snap, err := client.MarketChart(context.Background(), "bitcoin", 7)
	require.NoError(t, err)
	require.Len(t, snap.Price, 1)
	require.EqualValues(t, 3, calls.Load())
}

func TestProviderCacheRoundTrip(t *testing.T) {
	mock := newMockGecko(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := market.NewSnapshotCache(5*time.Minute, market.WithClock(clock))

	provider := NewProvider(
		WithSnapshotCache(cache),
		WithClientOptions(WithBaseURL(mock.server.URL), WithMaxRetries(0)),
	)

	ctx := context.Background()
	first, err := provider.Snapshot(ctx, "bitcoin", 30, market.KindMarketChart)
	require.NoError(t, err)

	second, err := provider.Snapshot(ctx, "bitcoin", 30, market.KindMarketChart)
	require.NoError(t, err)
	require.Same(t, first, second, "cache hit must return the stored snapshot")
	require.EqualValues(t, 1, mock.chartCalls.Load(), "cache hit must bypass the network")

	now = now.Add(6 * time.Minute)
	third, err := provider.Snapshot(ctx, "bitcoin", 30, market.KindMarketChart)
	require.NoError(t, err)
	require.NotSame(t, first, third)
	require.EqualValues(t, 2, mock.chartCalls.Load(), "TTL expiry must trigger exactly one refetch")
}

func TestProviderDistinctKeysDoNotCollide(t *testing.T) {
	mock := newMockGecko(t)
	provider := NewProvider(WithClientOptions(WithBaseURL(mock.server.URL), WithMaxRetries(0)))

	ctx := context.Background()
	chart, err := provider.Snapshot(ctx, "bitcoin", 30, market.KindMarketChart)
	require.NoError(t, err)
	ohlc, err := provider.Snapshot(ctx, "bitcoin", 30, market.KindOHLC)
	require.NoError(t, err)

	require.Equal(t, market.KindMarketChart, chart.Kind)
	require.Equal(t, market.KindOHLC, ohlc.Kind)
	require.EqualValues(t, 1, mock.chartCalls.Load())
	require.EqualValues(t, 1, mock.ohlcCalls.Load())
}

func TestProviderInvalidWindowBeforeCache(t *testing.T) {
	mock := newMockGecko(t)
	provider := NewProvider(WithClientOptions(WithBaseURL(mock.server.URL), WithMaxRetries(0)))

	_, err := provider.Snapshot(context.Background(), "bitcoin", 45, market.KindOHLC)
	require.ErrorIs(t, err, market.ErrInvalidWindow)
	require.EqualValues(t, 0, mock.ohlcCalls.Load())
}

func TestProviderUnsupportedKind(t *testing.T) {
	mock := newMockGecko(t)
	provider := NewProvider(WithClientOptions(WithBaseURL(mock.server.URL)))
	_, err := provider.Snapshot(context.Background(), "bitcoin", 30, market.Kind("candles"))
	require.Error(t, err)
	require.False(t, errors.Is(err, market.ErrDataUnavailable))
}
