package indicators

import "math"

// The functions in this package operate on value columns ordered oldest to
// newest and return a slice of the same length. Indices without enough
// history are NaN, never zero.

// SMA produces the trailing simple moving average for the supplied values.
// The first window-1 entries are NaN; a window containing a NaN input also
// yields NaN.
func SMA(values []float64, window int) []float64 {
	if window <= 0 || len(values) == 0 {
		return []float64{}
	}
	result := make([]float64, len(values))
	for i := range result {
		result[i] = math.NaN()
	}
	if len(values) < window {
		return result
	}

	var sum float64
	invalid := 0 // NaN inputs inside the current window
	for i, v := range values {
		if math.IsNaN(v) {
			invalid++
		} else {
			sum += v
		}
		if i >= window {
			old := values[i-window]
			if math.IsNaN(old) {
				invalid--
			} else {
				sum -= old
			}
		}
		if i >= window-1 && invalid == 0 {
			result[i] = sum / float64(window)
		}
	}
	return result
}

// RSI computes the Relative Strength Index over the supplied values using
// trailing simple means of gains and losses across the last period deltas.
// The first defined index is period; earlier entries are NaN.
func RSI(values []float64, period int) []float64 {
	if period <= 0 || len(values) == 0 {
		return []float64{}
	}
	result := make([]float64, len(values))
	for i := range result {
		result[i] = math.NaN()
	}
	if len(values) <= period {
		return result
	}

	var gainSum, lossSum float64
	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gainSum += math.Max(change, 0)
		lossSum += math.Max(-change, 0)
		if i > period {
			old := values[i-period] - values[i-period-1]
			gainSum -= math.Max(old, 0)
			lossSum -= math.Max(-old, 0)
		}
		if i >= period {
			result[i] = rsiValue(gainSum/float64(period), lossSum/float64(period))
		}
	}
	return result
}

// rsiValue applies the zero-division policy: an all-gain window is maximally
// overbought (100), a flat window is neutral (50), an all-loss window is 0.
func rsiValue(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50.0
	case avgLoss == 0:
		return 100.0
	case avgGain == 0:
		return 0.0
	default:
		rs := avgGain / avgLoss
		return 100.0 - (100.0 / (1.0 + rs))
	}
}

// EMA produces the exponential moving average for the supplied values,
// seeded with the simple mean of the first full window.
func EMA(values []float64, span int) []float64 {
	if span <= 0 || len(values) == 0 {
		return []float64{}
	}
	result := make([]float64, len(values))
	for i := range result {
		result[i] = math.NaN()
	}
	if len(values) < span {
		return result
	}

	var seed float64
	for i := 0; i < span; i++ {
		if math.IsNaN(values[i]) {
			return result
		}
		seed += values[i]
	}
	seed /= float64(span)
	result[span-1] = seed

	multiplier := 2.0 / float64(span+1)
	for i := span; i < len(values); i++ {
		prev := result[i-1]
		if math.IsNaN(values[i]) {
			result[i] = prev
			continue
		}
		result[i] = (values[i]-prev)*multiplier + prev
	}
	return result
}
