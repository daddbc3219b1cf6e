// Package format contains the pure string-formatting helpers for progress
// lines: percentages, item counts, elapsed durations and ETA estimates.
// Everything here is a pure function suitable for composition; no I/O.
package format

import (
	"fmt"
	"math"
	"time"
)

// Percent formats a fraction in [0,1] as a whole percentage, flooring so a
// bar never claims 100% before it is actually done.
func Percent(f float64) string {
	if math.IsNaN(f) {
		f = 0
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return fmt.Sprintf("%3d%%", int(f*100))
}

// Count formats the "(current/total)" column. An unknown total renders as
// "?" so indeterminate bars still show how much work has happened.
func Count(current, total uint64, hasTotal bool) string {
	if !hasTotal {
		return fmt.Sprintf("(%d/?)", current)
	}
	return fmt.Sprintf("(%d/%d)", current, total)
}

// Duration formats a duration for display. It shows microseconds for
// durations less than a millisecond and milliseconds for durations less
// than a second; longer durations use coarse units to keep the column
// narrow and stable.
func Duration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// ETA estimates time remaining from elapsed time and the completed fraction,
// assuming a constant rate of progress. It returns ok=false while there is
// not enough signal for a meaningful estimate (no progress yet, or less
// than a second of history).
func ETA(elapsed time.Duration, fraction float64) (time.Duration, bool) {
	if fraction <= 0 || fraction > 1 || elapsed < time.Second {
		return 0, false
	}
	remaining := time.Duration(float64(elapsed) * (1 - fraction) / fraction)
	if remaining < 0 {
		return 0, false
	}
	return remaining, true
}

// FormatETA renders an ETA column entry. Estimates are rounded to the
// second; sub-second remainders display as "<1s".
func FormatETA(eta time.Duration) string {
	if eta < time.Second {
		return "eta <1s"
	}
	return "eta " + Duration(eta.Round(time.Second))
}
