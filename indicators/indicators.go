// Package indicators provides the technical analysis primitives the
// strategies are built from. All functions are pure: they never mutate the
// input series and return a new slice of the same length, using NaN for
// positions where the indicator is undefined.
package indicators

import "math"

// RollingMean computes a simple moving average of the series at the given
// window length. Positions with fewer than length preceding points are NaN.
func RollingMean(series []float64, length int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = math.NaN()
	}
	if length <= 0 || len(series) < length {
		return out
	}

	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= length {
			sum -= series[i-length]
		}
		if i >= length-1 {
			out[i] = sum / float64(length)
		}
	}
	return out
}

// EMA computes an exponential moving average with alpha = 2/(span+1),
// seeded with the first value of the series. Defined at every index.
func EMA(series []float64, span int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)

	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}

// SmoothedMA approximates a heavier-smoothed moving average by applying an
// EMA of the given length to the series and then re-smoothing the output
// smooth-1 additional times. smooth <= 1 degenerates to a single EMA pass.
func SmoothedMA(series []float64, length, smooth int) []float64 {
	out := EMA(series, length)
	for i := 1; i < smooth; i++ {
		out = EMA(out, length)
	}
	return out
}

// RSI computes the Wilder relative strength index over the series at the
// given window length. The first length positions are NaN; values are
// bounded to [0, 100].
func RSI(series []float64, length int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = math.NaN()
	}
	if length <= 0 || len(series) < length+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= length; i++ {
		diff := series[i] - series[i-1]
		if diff > 0 {
			avgGain += diff
		} else {
			avgLoss -= diff
		}
	}
	avgGain /= float64(length)
	avgLoss /= float64(length)
	out[length] = rsiValue(avgGain, avgLoss)

	for i := length + 1; i < len(series); i++ {
		diff := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		// Wilder smoothing
		avgGain = (avgGain*float64(length-1) + gain) / float64(length)
		avgLoss = (avgLoss*float64(length-1) + loss) / float64(length)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Last returns the final value of a series, or NaN when empty.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}
