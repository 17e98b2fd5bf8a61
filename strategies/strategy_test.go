package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/igfx/market"
)

// candlesFromCloses builds a bar series with a fixed 5-minute spacing and a
// small high/low envelope around each close.
func candlesFromCloses(closes []float64) []market.Candle {
	t0 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Time:   t0.Add(time.Duration(i) * 5 * time.Minute),
			Open:   c,
			High:   c + 0.2,
			Low:    c - 0.2,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func linearCloses(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func repeatCloses(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestShortSeriesAlwaysFlat(t *testing.T) {
	t.Parallel()

	strats := []Strategy{
		NewSMAEMACrossover(5, 10),
		NewRSIReversal(14, 70, 30),
		NewAlligator(13, 8, 5, 5, 10),
		NewFibZigZag(2.0, nil, 0),
		NewAlligatorFib(13, 8, 5, 5, 2.0, nil, 0),
	}

	short := candlesFromCloses(linearCloses(100, 0.3, 10))
	for _, s := range strats {
		s := s
		t.Run(s.Name(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, Flat, s.Generate(short).Side)
			assert.Equal(t, Flat, s.Generate(nil).Side)
		})
	}
}

func TestSMAEMACrossoverSignalTypes(t *testing.T) {
	t.Parallel()

	// Monotonically increasing series of length 299 must evaluate without
	// panicking and yield a recognised side.
	candles := candlesFromCloses(linearCloses(1, 1, 299))
	sig := NewSMAEMACrossover(5, 10).Generate(candles)
	assert.Contains(t, []Side{Buy, Sell, Flat}, sig.Side)
}

func TestSMAEMACrossoverBuysOnCrossUp(t *testing.T) {
	t.Parallel()

	// Decline then recovery: the fast SMA crosses above the slow EMA
	// exactly once on the way up, and never crosses down.
	closes := append(linearCloses(120, -0.5, 40), linearCloses(100.5, 0.5, 40)...)
	candles := candlesFromCloses(closes)
	s := NewSMAEMACrossover(5, 10)

	buys, sells := 0, 0
	for n := s.Lookback(); n <= len(candles); n++ {
		switch s.Generate(candles[:n]).Side {
		case Buy:
			buys++
		case Sell:
			sells++
		}
	}
	assert.Equal(t, 1, buys)
	assert.Zero(t, sells)
}

func TestRSIReversal(t *testing.T) {
	t.Parallel()

	s := NewRSIReversal(14, 70, 30)

	falling := candlesFromCloses(linearCloses(200, -1, 60))
	assert.Equal(t, Buy, s.Generate(falling).Side)

	rising := candlesFromCloses(linearCloses(100, 1, 60))
	assert.Equal(t, Sell, s.Generate(rising).Side)

	flat := candlesFromCloses(repeatCloses(100, 60))
	assert.Equal(t, Flat, s.Generate(flat).Side)
}

func TestAlligatorTrendBreakout(t *testing.T) {
	t.Parallel()

	s := NewAlligator(13, 8, 5, 5, 10)

	// Steady uptrend: lips > teeth > jaw and the last close breaks the
	// trailing 10-bar high.
	up := candlesFromCloses(linearCloses(100, 0.5, 60))
	assert.Equal(t, Buy, s.Generate(up).Side)

	down := candlesFromCloses(linearCloses(130, -0.5, 60))
	assert.Equal(t, Sell, s.Generate(down).Side)

	flat := candlesFromCloses(repeatCloses(100, 60))
	assert.Equal(t, Flat, s.Generate(flat).Side)
}

// fibPullbackCloses is a 63-bar series whose zig-zag pivots land at 97.9 and
// 99.9 with the final close 99.14, within tolerance of the 0.382
// retracement measured down from the swing high (99.9 - 0.382*2 = 99.136).
func fibPullbackCloses() []float64 {
	closes := repeatCloses(100, 56)
	return append(closes, 97.9, 98.5, 99.2, 99.9, 99.6, 99.4, 99.14)
}

func TestFibZigZagBuy(t *testing.T) {
	t.Parallel()

	s := NewFibZigZag(2.0, nil, 0.0015)
	sig := s.Generate(candlesFromCloses(fibPullbackCloses()))
	assert.Equal(t, Buy, sig.Side)
}

func TestFibZigZagSell(t *testing.T) {
	t.Parallel()

	// Mirror image: up leg to 102.1, down leg to 100.05, then a bounce to
	// 100.83 near the 0.382 retracement up from the swing low
	// (100.05 + 0.382*2.05 = 100.833).
	closes := repeatCloses(100, 56)
	closes = append(closes, 102.1, 101.5, 100.8, 100.05, 100.4, 100.7, 100.83)

	s := NewFibZigZag(2.0, nil, 0.0015)
	sig := s.Generate(candlesFromCloses(closes))
	assert.Equal(t, Sell, sig.Side)
}

func TestFibZigZagFewerThanTwoPivots(t *testing.T) {
	t.Parallel()

	s := NewFibZigZag(2.0, nil, 0.0015)

	// A flat series never crosses the zig-zag threshold.
	assert.Equal(t, Flat, s.Generate(candlesFromCloses(repeatCloses(100, 80))).Side)

	// A monotone rise produces a single pivot only.
	assert.Equal(t, Flat, s.Generate(candlesFromCloses(linearCloses(100, 0.5, 80))).Side)
}

func TestAlligatorFibRequiresBothConditions(t *testing.T) {
	t.Parallel()

	s := NewAlligatorFib(13, 8, 5, 5, 2.0, nil, 0.0015)

	// Strong uptrend but only one zig-zag pivot: Flat.
	assert.Equal(t, Flat, s.Generate(candlesFromCloses(linearCloses(100, 0.5, 60))).Side)

	// Flat market: no trend alignment, no pivots.
	assert.Equal(t, Flat, s.Generate(candlesFromCloses(repeatCloses(100, 60))).Side)
}

func TestGenerateDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	candles := candlesFromCloses(fibPullbackCloses())
	snapshot := make([]market.Candle, len(candles))
	copy(snapshot, candles)

	strats := []Strategy{
		NewSMAEMACrossover(5, 10),
		NewRSIReversal(14, 70, 30),
		NewAlligator(13, 8, 5, 5, 10),
		NewFibZigZag(2.0, nil, 0.0015),
		NewAlligatorFib(13, 8, 5, 5, 2.0, nil, 0.0015),
	}
	for _, s := range strats {
		first := s.Generate(candles)
		second := s.Generate(candles)
		assert.Equal(t, first, second, "%s must be deterministic", s.Name())
	}
	assert.Equal(t, snapshot, candles)
}

func TestByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{
		"sma_ema_crossover", "rsi_reversal", "alligator", "fib_zigzag", "fib_elliott", "alligator_fib",
	} {
		s, err := ByName(name, Params{})
		require.NoError(t, err, name)
		require.NotNil(t, s)
	}

	_, err := ByName("momentum_breakout", Params{})
	assert.Error(t, err)
}

func TestByNameAppliesParams(t *testing.T) {
	t.Parallel()

	s, err := ByName("sma_ema_crossover", Params{Fast: 5, Slow: 10})
	require.NoError(t, err)
	cross, ok := s.(*SMAEMACrossover)
	require.True(t, ok)
	assert.Equal(t, 5, cross.Fast)
	assert.Equal(t, 10, cross.Slow)
	assert.Equal(t, 12, cross.Lookback())
}
