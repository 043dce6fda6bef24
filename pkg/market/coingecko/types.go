package coingecko

// marketChartResponse mirrors /coins/{id}/market_chart. Each row is an
// [epoch-ms, value] pair.
type marketChartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// ohlcRow is one candle from /coins/{id}/ohlc:
// [epoch-ms, open, high, low, close]. Rows are decoded loosely and validated
// during normalization so a truncated or non-numeric record is reported as a
// malformed payload rather than a transport failure.
type ohlcRow []float64

const ohlcFieldCount = 5

// ohlcWindows enumerates the day windows the OHLC endpoint accepts.
var ohlcWindows = map[int]struct{}{
	1:   {},
	7:   {},
	14:  {},
	30:  {},
	90:  {},
	180: {},
	365: {},
}
