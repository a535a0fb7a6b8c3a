/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package itinerary

import (
	"fmt"
	"math"
)

// CalculateTimes assigns sequential slots to activities in list order,
// starting at the window start. Activities that no longer fit are marked as
// overflow and keep their position.
func CalculateTimes(activities []Activity, w Window) []ScheduledActivity {
	out := make([]ScheduledActivity, 0, len(activities))
	cursor, end := w.Bounds()

	for _, a := range activities {
		if cursor >= end {
			out = append(out, ScheduledActivity{
				Activity:    a,
				DisplayTime: OverflowTime,
				Overflow:    true,
				StartHour:   cursor,
			})
			continue
		}

		out = append(out, ScheduledActivity{
			Activity:    a,
			DisplayTime: To12Hour(cursor),
			StartHour:   cursor,
		})
		cursor = math.Min(end, cursor+a.SlotHours())
	}

	return out
}

// RecomputeSchedule rebuilds the schedule from scratch for the current order,
// discarding any previously derived times.
func RecomputeSchedule(schedule []ScheduledActivity, w Window) []ScheduledActivity {
	return CalculateTimes(Activities(schedule), w)
}

// Activities strips the derived fields from a schedule.
func Activities(schedule []ScheduledActivity) []Activity {
	out := make([]Activity, len(schedule))
	for i, s := range schedule {
		out[i] = s.Activity
	}
	return out
}

// Placement is the hour range an activity would occupy at a position.
type Placement struct {
	Start float64 `json:"start_hour"`
	End   float64 `json:"end_hour"`
}

// TentativePlacement replays the scheduling walk over the activities before
// index and returns where the activity at index would start and end.
func TentativePlacement(schedule []ScheduledActivity, index int, w Window) Placement {
	cursor, end := w.Bounds()
	for i := 0; i < index && i < len(schedule); i++ {
		cursor = math.Min(end, cursor+schedule[i].SlotHours())
	}

	var slot float64 = MinDurationHours
	if index >= 0 && index < len(schedule) {
		slot = schedule[index].SlotHours()
	}
	return Placement{Start: cursor, End: cursor + slot}
}

// Summary describes a schedule at a glance.
type Summary struct {
	Count     int    `json:"count"`
	Hours     int    `json:"hours"`
	Timeframe string `json:"timeframe"`
}

// Summarize reports the activity count and the configured window length.
func Summarize(schedule []ScheduledActivity, w Window) Summary {
	hours := w.EndHour - w.StartHour
	if hours < 0 {
		hours = 0
	}
	return Summary{
		Count:     len(schedule),
		Hours:     hours,
		Timeframe: fmt.Sprintf("%s - %s (%d hours)", To12Hour(float64(w.StartHour)), To12Hour(float64(w.EndHour)), hours),
	}
}
