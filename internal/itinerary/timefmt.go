/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package itinerary

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultDisplayTime is shown whenever a time cannot be derived.
const DefaultDisplayTime = "12:00 PM"

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2})?$`)

// To12Hour formats an hour of the day as "H:00 AM/PM". Fractional hours are
// floored.
func To12Hour(hour float64) string {
	if math.IsNaN(hour) || math.IsInf(hour, 0) {
		return DefaultDisplayTime
	}
	h := int(math.Floor(hour))
	return fmt.Sprintf("%d:00 %s", displayHour(h), meridiem(h))
}

// NormalizeTimeString converts a backend time into 12-hour form. Strings that
// already carry AM/PM are returned untouched.
func NormalizeTimeString(raw string) string {
	upper := strings.ToUpper(raw)
	if strings.Contains(upper, "AM") || strings.Contains(upper, "PM") {
		return raw
	}

	m := clockPattern.FindStringSubmatch(raw)
	if m == nil {
		return DefaultDisplayTime
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 0 || hour > 23 {
		return DefaultDisplayTime
	}
	return fmt.Sprintf("%d:%s %s", displayHour(hour), m[2], meridiem(hour))
}

// DayOfWeek resolves a "M/D/YYYY" date to its weekday. ok is false when the
// date is missing or malformed; callers should then skip day filtering.
func DayOfWeek(date string) (day time.Weekday, ok bool) {
	parts := strings.Split(strings.TrimSpace(date), "/")
	if len(parts) != 3 {
		return 0, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, false
		}
		nums[i] = n
	}
	month, dom, year := nums[0], nums[1], nums[2]
	// time.Date normalizes out-of-range parts (month 13 rolls into next year).
	return time.Date(year, time.Month(month), dom, 0, 0, 0, 0, time.Local).Weekday(), true
}

func displayHour(h int) int {
	if h%12 == 0 {
		return 12
	}
	return h % 12
}

func meridiem(h int) string {
	if h >= 12 {
		return "PM"
	}
	return "AM"
}
