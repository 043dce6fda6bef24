package coingecko

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"coinboard-api/pkg/market"
)

// normalizeMarketChart converts a market_chart payload into an aligned
// snapshot. Price and volume rows are inner-joined on exact millisecond
// timestamps; rows present in only one series are dropped. The result is
// sorted ascending with duplicate timestamps collapsed to their first
// occurrence.
func normalizeMarketChart(payload *marketChartResponse) *market.Snapshot {
	volumeByMs := make(map[int64]float64, len(payload.TotalVolumes))
	for _, row := range payload.TotalVolumes {
		ms := int64(row[0])
		if _, ok := volumeByMs[ms]; !ok {
			volumeByMs[ms] = row[1]
		}
	}

	type joined struct {
		ms     int64
		price  float64
		volume float64
	}
	rows := make([]joined, 0, len(payload.Prices))
	seen := make(map[int64]struct{}, len(payload.Prices))
	for _, row := range payload.Prices {
		ms := int64(row[0])
		if _, dup := seen[ms]; dup {
			continue
		}
		volume, ok := volumeByMs[ms]
		if !ok {
			continue
		}
		seen[ms] = struct{}{}
		rows = append(rows, joined{ms: ms, price: row[1], volume: volume})
	}

	// Provider payloads are normally pre-sorted; a stable sort preserves the
	// payload order of any ties.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ms < rows[j].ms })

	price := make(market.Series, len(rows))
	volume := make(market.Series, len(rows))
	for i, row := range rows {
		ts := time.UnixMilli(row.ms).UTC()
		price[i] = market.TimePoint{Time: ts, Value: row.price}
		volume[i] = market.TimePoint{Time: ts, Value: row.volume}
	}

	return &market.Snapshot{
		Kind:   market.KindMarketChart,
		Price:  price,
		Volume: volume,
	}
}

// normalizeOHLC converts raw candle rows into an aligned snapshot. A record
// with fewer than five fields or a non-numeric value rejects the whole
// snapshot: a truncated row indicates a provider-contract violation, not
// ordinary missing data.
func normalizeOHLC(raw []json.RawMessage) (*market.Snapshot, error) {
	rows := make([]ohlcRow, 0, len(raw))
	for i, msg := range raw {
		var row ohlcRow
		if err := json.Unmarshal(msg, &row); err != nil {
			return nil, fmt.Errorf("%w: ohlc record %d: %v", market.ErrMalformedPayload, i, err)
		}
		if len(row) != ohlcFieldCount {
			return nil, fmt.Errorf("%w: ohlc record %d has %d fields, want %d", market.ErrMalformedPayload, i, len(row), ohlcFieldCount)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

	open := make(market.Series, 0, len(rows))
	high := make(market.Series, 0, len(rows))
	low := make(market.Series, 0, len(rows))
	clos := make(market.Series, 0, len(rows))
	var lastMs int64
	for i, row := range rows {
		ms := int64(row[0])
		if i > 0 && ms == lastMs {
			continue
		}
		lastMs = ms
		ts := time.UnixMilli(ms).UTC()
		open = append(open, market.TimePoint{Time: ts, Value: row[1]})
		high = append(high, market.TimePoint{Time: ts, Value: row[2]})
		low = append(low, market.TimePoint{Time: ts, Value: row[3]})
		clos = append(clos, market.TimePoint{Time: ts, Value: row[4]})
	}

	return &market.Snapshot{
		Kind:  market.KindOHLC,
		Open:  open,
		High:  high,
		Low:   low,
		Close: clos,
	}, nil
}
