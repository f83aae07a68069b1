// Package timefmt renders playback positions for display.
package timefmt

import (
	"fmt"
	"math"
)

// Format renders seconds as "m:ss". Minutes are not wrapped into hours, so
// 3725 seconds is "62:05". Non-finite input renders as "0:00" and negative
// input is clamped to zero.
func Format(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	minutes := math.Floor(seconds / 60)
	secs := math.Mod(math.Floor(seconds), 60)
	return fmt.Sprintf("%.0f:%02.0f", minutes, secs)
}

// Percent returns current as a percentage of duration, or 0 when duration is
// unknown or not positive.
func Percent(current, duration float64) float64 {
	if !Finite(duration) || duration <= 0 || !Finite(current) {
		return 0
	}
	return current / duration * 100
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// OrZero returns v, or 0 when v is not finite.
func OrZero(v float64) float64 {
	if !Finite(v) {
		return 0
	}
	return v
}
