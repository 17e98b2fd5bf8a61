package market

import "time"

// WithinSession reports whether the UTC hour of t falls inside the
// [startHour, endHour) trading window. A window with startHour > endHour
// wraps midnight, e.g. 22 -> 6 covers 22:00..05:59.
func WithinSession(t time.Time, startHour, endHour int) bool {
	hour := t.UTC().Hour()
	if startHour <= endHour {
		return hour >= startHour && hour < endHour
	}
	return hour >= startHour || hour < endHour
}
