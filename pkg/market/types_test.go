package market

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func priceSnapshot(values ...float64) *Snapshot {
	price := make(Series, len(values))
	for i, v := range values {
		price[i] = TimePoint{Time: day(i), Value: v}
	}
	return &Snapshot{AssetID: "bitcoin", WindowDays: 30, Kind: KindMarketChart, Price: price}
}

func TestWithMovingAverageAlignment(t *testing.T) {
	snap := priceSnapshot(1, 2, 3, 4, 5, 6, 7)
	out := snap.WithMovingAverage(3)

	ma, ok := out.Derived["ma3"]
	require.True(t, ok)
	require.Len(t, ma, 7)
	require.True(t, math.IsNaN(ma[0].Value))
	require.True(t, math.IsNaN(ma[1].Value))
	for i, want := range []float64{2, 3, 4, 5, 6} {
		require.InDelta(t, want, ma[i+2].Value, 1e-9)
		require.True(t, ma[i+2].Time.Equal(day(i+2)))
	}
}

func TestIndicatorsDoNotMutateInput(t *testing.T) {
	snap := priceSnapshot(10, 11, 12, 13, 14, 15, 16, 17)
	out := snap.WithMovingAverage(7).WithRSI(3).WithEMA(3)

	require.Empty(t, snap.Derived, "input snapshot must stay untouched")
	require.Len(t, out.Derived, 3)
	require.Equal(t, []string{"ema3", "ma7", "rsi3"}, out.DerivedNames())
	require.Equal(t, snap.Price, out.Price)
}

func TestWithRSIUsesCloseForOHLC(t *testing.T) {
	closes := make(Series, 20)
	for i := range closes {
		closes[i] = TimePoint{Time: day(i), Value: 100 + float64(i)}
	}
	snap := &Snapshot{
		AssetID:    "ethereum",
		WindowDays: 30,
		Kind:       KindOHLC,
		Open:       closes,
		High:       closes,
		Low:        closes,
		Close:      closes,
	}

	out := snap.WithRSI(14)
	rsi := out.Derived["rsi14"]
	require.Len(t, rsi, 20)
	require.True(t, math.IsNaN(rsi[13].Value))
	require.InDelta(t, 100.0, rsi[14].Value, 1e-9)
	require.InDelta(t, 100.0, rsi[19].Value, 1e-9)
}

func TestWithIndicatorDefaultParameters(t *testing.T) {
	snap := priceSnapshot(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16)
	out := snap.WithMovingAverage(0).WithRSI(-1)
	require.Contains(t, out.Derived, "ma7")
	require.Contains(t, out.Derived, "rsi14")
}

func TestTimePointJSONRoundTrip(t *testing.T) {
	snap := priceSnapshot(1, 2, 3, 4).WithMovingAverage(3)

	data, err := json.Marshal(snap)
	require.NoError(t, err, "NaN warm-up values must serialize as null")
	require.Contains(t, string(data), `"value":null`)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	ma := decoded.Derived["ma3"]
	require.Len(t, ma, 4)
	require.True(t, math.IsNaN(ma[0].Value))
	require.InDelta(t, 2.0, ma[2].Value, 1e-9)
	require.True(t, ma[2].Time.Equal(day(2)))
}

func TestSeriesLast(t *testing.T) {
	s := Series{
		{Time: day(0), Value: 1},
		{Time: day(1), Value: 2},
		{Time: day(2), Value: math.NaN()},
	}
	last, ok := s.Last()
	require.True(t, ok)
	require.InDelta(t, 2.0, last, 1e-9)

	_, ok = Series{}.Last()
	require.False(t, ok)
}

func TestSnapshotAxis(t *testing.T) {
	chart := priceSnapshot(1, 2)
	require.Len(t, chart.Axis(), 2)
	require.False(t, chart.Empty())

	ohlc := &Snapshot{Kind: KindOHLC}
	require.True(t, ohlc.Empty())
}
