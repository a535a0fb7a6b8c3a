/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package itinerary turns a lobby's chosen activities into a time-stamped
// day plan and handles owner reordering of that plan.
package itinerary

import "math"

// Default window used when a lobby has not configured one.
const (
	DefaultStartHour = 12
	DefaultEndHour   = 18
	DefaultDate      = "Today"
)

// Duration bounds, in hours, for a single activity slot.
const (
	MinDurationHours = 1
	MaxDurationHours = 3
)

// OverflowTime is the display time of an activity that did not fit the window.
const OverflowTime = "N/A"

// OpenHours describes when a venue is open. Open and Close are hours of the
// day; Close < Open means the venue closes after midnight.
type OpenHours struct {
	Open  *int  `json:"open,omitempty" yaml:"open,omitempty"`
	Close *int  `json:"close,omitempty" yaml:"close,omitempty"`
	Days  []int `json:"days,omitempty" yaml:"days,omitempty"` // 0 = Sunday; nil means every day
}

// LatLng is a venue position.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Activity is one itinerary option as delivered by the results backend.
type Activity struct {
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	DurationHours float64    `json:"duration"` // 0 means not supplied
	Hours         *OpenHours `json:"hours,omitempty"`
	BackendTime   string     `json:"backend_time,omitempty"`
	Location      *LatLng    `json:"location,omitempty"`
	Address       string     `json:"address,omitempty"`
	Image         string     `json:"image,omitempty"`
	RoundNumber   *int       `json:"round_number,omitempty"`
}

// SlotHours returns the number of hours the activity occupies in a schedule.
func (a Activity) SlotHours() float64 {
	return clampDuration(a.DurationHours)
}

// ScheduledActivity is an Activity placed on the day plan.
type ScheduledActivity struct {
	Activity
	DisplayTime string  `json:"time"`
	Overflow    bool    `json:"overflow"`
	StartHour   float64 `json:"start_hour"`
}

// Window is the owner-configured range of hours activities must fit in.
type Window struct {
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Date      string `json:"date"` // M/D/YYYY, only used to resolve the weekday
}

// WindowFor builds a window from optional lobby settings.
func WindowFor(start, end *int, date string) Window {
	w := Window{StartHour: DefaultStartHour, EndHour: DefaultEndHour, Date: date}
	if start != nil {
		w.StartHour = *start
	}
	if end != nil {
		w.EndHour = *end
	}
	if w.Date == "" {
		w.Date = DefaultDate
	}
	return w
}

// Bounds returns the window clamped into [0,23].
func (w Window) Bounds() (start, end float64) {
	return clampHour(w.StartHour), clampHour(w.EndHour)
}

func clampHour(h int) float64 {
	return math.Max(0, math.Min(23, float64(h)))
}

func clampDuration(d float64) float64 {
	if d == 0 || math.IsNaN(d) {
		d = 1
	}
	return math.Max(MinDurationHours, math.Min(MaxDurationHours, d))
}
