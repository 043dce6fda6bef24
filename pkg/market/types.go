package market

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"coinboard-api/pkg/market/indicators"
)

// Kind selects which provider series a snapshot carries.
type Kind string

const (
	// KindMarketChart requests a daily price series joined with traded volume.
	KindMarketChart Kind = "market_chart"
	// KindOHLC requests candle data (open/high/low/close).
	KindOHLC Kind = "ohlc"
)

// Valid reports whether the kind is one of the supported request modes.
func (k Kind) Valid() bool {
	return k == KindMarketChart || k == KindOHLC
}

// Default indicator parameters used when a caller passes a non-positive value.
const (
	DefaultMAWindow  = 7
	DefaultRSIPeriod = 14
	DefaultEMASpan   = 20
)

// TimePoint is a single timestamped sample. Immutable once produced.
type TimePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// timePointJSON is the wire shape of a TimePoint. Absent values serialize as
// null because JSON has no NaN.
type timePointJSON struct {
	Time  time.Time `json:"time"`
	Value *float64  `json:"value"`
}

// MarshalJSON renders NaN values as null.
func (p TimePoint) MarshalJSON() ([]byte, error) {
	aux := timePointJSON{Time: p.Time}
	if !math.IsNaN(p.Value) {
		v := p.Value
		aux.Value = &v
	}
	return json.Marshal(aux)
}

// UnmarshalJSON maps null values back to NaN.
func (p *TimePoint) UnmarshalJSON(data []byte) error {
	var aux timePointJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Time = aux.Time
	if aux.Value == nil {
		p.Value = math.NaN()
	} else {
		p.Value = *aux.Value
	}
	return nil
}

// Series is one metric over one window, ordered by ascending timestamp.
// After normalization timestamps are strictly increasing with no duplicates.
// Absent values (e.g. the warm-up prefix of an indicator) are NaN.
type Series []TimePoint

// Values returns the raw value column of the series.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Last returns the most recent defined value, or false when none exists.
func (s Series) Last() (float64, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !math.IsNaN(s[i].Value) {
			return s[i].Value, true
		}
	}
	return 0, false
}

// Sorted reports whether timestamps are in strictly increasing order.
func (s Series) Sorted() bool {
	return sort.SliceIsSorted(s, func(i, j int) bool {
		return s[i].Time.Before(s[j].Time)
	})
}

// Snapshot bundles the aligned raw and derived series for one asset/window
// request. A snapshot is owned by its caller and never mutated after
// construction; indicator attachment returns a copy.
type Snapshot struct {
	AssetID    string `json:"asset_id"`
	WindowDays int    `json:"window_days"`
	Kind       Kind   `json:"kind"`

	Price  Series `json:"price,omitempty"`
	Volume Series `json:"volume,omitempty"`

	Open  Series `json:"open,omitempty"`
	High  Series `json:"high,omitempty"`
	Low   Series `json:"low,omitempty"`
	Close Series `json:"close,omitempty"`

	// Derived holds indicator series keyed by name, e.g. "ma7" or "rsi14".
	Derived map[string]Series `json:"derived,omitempty"`
}

// Axis returns the snapshot's shared timestamp axis: the close series for
// OHLC snapshots, the price series otherwise.
func (s *Snapshot) Axis() Series {
	if s.Kind == KindOHLC {
		return s.Close
	}
	return s.Price
}

// Empty reports whether the snapshot carries no samples at all.
func (s *Snapshot) Empty() bool {
	return len(s.Axis()) == 0
}

// closeValues is the input column for momentum indicators: candle closes when
// available, otherwise the daily price series stands in for close.
func (s *Snapshot) closeValues() []float64 {
	if s.Kind == KindOHLC {
		return s.Close.Values()
	}
	return s.Price.Values()
}

// clone copies the snapshot shell and its derived map. Series contents are
// shared; they are never mutated once attached.
func (s *Snapshot) clone() *Snapshot {
	out := *s
	out.Derived = make(map[string]Series, len(s.Derived)+1)
	for name, series := range s.Derived {
		out.Derived[name] = series
	}
	return &out
}

// attach pairs indicator values with the snapshot's timestamp axis and
// returns a copy carrying the new derived series.
func (s *Snapshot) attach(name string, values []float64) *Snapshot {
	axis := s.Axis()
	derived := make(Series, len(axis))
	for i := range axis {
		derived[i] = TimePoint{Time: axis[i].Time, Value: values[i]}
	}
	out := s.clone()
	out.Derived[name] = derived
	return out
}

// WithMovingAverage returns a copy of the snapshot with a trailing simple
// moving average attached as "ma<window>". The first window-1 points are NaN
// because insufficient history exists. The receiver is not modified.
func (s *Snapshot) WithMovingAverage(window int) *Snapshot {
	if window <= 0 {
		window = DefaultMAWindow
	}
	return s.attach(fmt.Sprintf("ma%d", window), indicators.SMA(s.closeValues(), window))
}

// WithRSI returns a copy of the snapshot with a Relative Strength Index
// series attached as "rsi<period>", computed over the close column. The
// receiver is not modified.
func (s *Snapshot) WithRSI(period int) *Snapshot {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	return s.attach(fmt.Sprintf("rsi%d", period), indicators.RSI(s.closeValues(), period))
}

// WithEMA returns a copy of the snapshot with an exponential moving average
// attached as "ema<span>". The receiver is not modified.
func (s *Snapshot) WithEMA(span int) *Snapshot {
	if span <= 0 {
		span = DefaultEMASpan
	}
	return s.attach(fmt.Sprintf("ema%d", span), indicators.EMA(s.closeValues(), span))
}

// DerivedNames returns the attached indicator names in lexical order, which
// is also the column order used by the CSV export.
func (s *Snapshot) DerivedNames() []string {
	names := make([]string, 0, len(s.Derived))
	for name := range s.Derived {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
