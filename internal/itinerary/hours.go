/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package itinerary

import (
	"math"
	"slices"
	"time"
)

// IsOpenDuring reports whether the activity's venue is plausibly open for a
// slot running from start to end (hours of the day) on the given weekday.
//
// The check only feeds advisory warnings, so every gap in the data resolves
// to "open": a NaN start or end, an unknown day, missing hours metadata, or
// hours without both open and close.
func IsOpenDuring(a Activity, start, end float64, day time.Weekday, dayKnown bool) bool {
	if math.IsNaN(start) || math.IsNaN(end) || !dayKnown {
		return true
	}

	h := a.Hours
	if h == nil {
		return true
	}
	if h.Open == nil || h.Close == nil {
		return true
	}

	if h.Days != nil && !slices.Contains(h.Days, int(day)) {
		return false
	}

	open, closing := float64(*h.Open), float64(*h.Close)

	if closing < open {
		// Overnight venue: open..24 then 0..close. The union below is
		// intentionally loose; start < close alone is enough to pass.
		inEvening := start >= open && start < 24
		inEarlyMorning := end > 0 && end <= closing
		spansMidnight := start < closing || end > open
		return inEvening || inEarlyMorning || spansMidnight
	}

	return start < closing && end > open
}
