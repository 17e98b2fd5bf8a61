package indicators

// Pivot marks a local reversal point detected by the zig-zag scan.
type Pivot struct {
	Index int
	Price float64
}

// ZigZagPivots scans the price series once and marks a pivot whenever the
// percentage move from the last pivot price meets or exceeds pct (up, while
// the current direction is non-downward) or -pct (down, symmetric). The
// initial direction is undetermined, so the very first threshold crossing in
// either direction produces a pivot. Consecutive pivots strictly alternate
// direction by construction.
func ZigZagPivots(prices []float64, pct float64) []Pivot {
	if len(prices) < 3 {
		return nil
	}

	var pivots []Pivot
	lastPivotPrice := prices[0]
	lastDir := 0 // 0 undetermined, +1 expecting up-cross, -1 expecting down-cross

	for i := 1; i < len(prices); i++ {
		change := (prices[i] - lastPivotPrice) / lastPivotPrice * 100.0
		switch {
		case lastDir >= 0 && change >= pct:
			pivots = append(pivots, Pivot{Index: i, Price: prices[i]})
			lastPivotPrice = prices[i]
			lastDir = -1
		case lastDir <= 0 && change <= -pct:
			pivots = append(pivots, Pivot{Index: i, Price: prices[i]})
			lastPivotPrice = prices[i]
			lastDir = 1
		}
	}
	return pivots
}
