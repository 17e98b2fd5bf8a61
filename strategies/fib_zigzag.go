package strategies

import (
	"math"

	"github.com/rustyeddy/igfx/indicators"
	"github.com/rustyeddy/igfx/market"
)

// FibZigZag trades Fibonacci retracements of the latest zig-zag swing.
// Long: the last leg moved up and price sits within tolerance of a
// retracement level measured down from the swing high. Short: symmetric
// for a downward leg, measured up from the swing low.
type FibZigZag struct {
	ZigZagPct float64
	Levels    []float64
	Tolerance float64
}

// DefaultFibLevels are the classic retracement ratios.
var DefaultFibLevels = []float64{0.382, 0.5, 0.618}

const fibZigZagLookback = 60

func NewFibZigZag(zigzagPct float64, levels []float64, tolerance float64) *FibZigZag {
	if zigzagPct <= 0 {
		zigzagPct = 2.0
	}
	if len(levels) == 0 {
		levels = DefaultFibLevels
	}
	if tolerance <= 0 {
		tolerance = 0.0015
	}
	return &FibZigZag{ZigZagPct: zigzagPct, Levels: levels, Tolerance: tolerance}
}

func (s *FibZigZag) Name() string { return "fib_zigzag" }

func (s *FibZigZag) Lookback() int { return fibZigZagLookback }

func (s *FibZigZag) Generate(candles []market.Candle) Signal {
	if len(candles) < s.Lookback() {
		return Signal{Side: Flat}
	}

	closes := market.Closes(candles)
	pivots := indicators.ZigZagPivots(closes, s.ZigZagPct)
	if len(pivots) < 2 {
		return Signal{Side: Flat}
	}

	prev, last := pivots[len(pivots)-2], pivots[len(pivots)-1]
	swingHigh, swingLow := swingExtremes(closes, prev.Index, last.Index)
	if swingHigh <= swingLow {
		return Signal{Side: Flat}
	}

	price := closes[len(closes)-1]
	upMove := closes[last.Index] > closes[prev.Index]
	if upMove {
		if nearRetracement(price, swingHigh, swingHigh-swingLow, s.Levels, s.Tolerance, true) {
			return Signal{Side: Buy}
		}
	} else {
		if nearRetracement(price, swingLow, swingHigh-swingLow, s.Levels, s.Tolerance, false) {
			return Signal{Side: Sell}
		}
	}
	return Signal{Side: Flat}
}

// swingExtremes returns the highest and lowest close between the two pivot
// indices, inclusive.
func swingExtremes(closes []float64, from, to int) (high, low float64) {
	high, low = closes[from], closes[from]
	for _, v := range closes[from : to+1] {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return high, low
}

// nearRetracement reports whether price lies within tolerance (relative to
// price) of any retracement level. Levels are measured down from the anchor
// for an up leg and up from it for a down leg.
func nearRetracement(price, anchor, diff float64, levels []float64, tol float64, down bool) bool {
	for _, lvl := range levels {
		rl := anchor + lvl*diff
		if down {
			rl = anchor - lvl*diff
		}
		if math.Abs(price-rl)/price <= tol {
			return true
		}
	}
	return false
}
