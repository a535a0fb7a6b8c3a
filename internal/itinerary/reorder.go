/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package itinerary

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidReorderTarget is returned when a move is not allowed: the
	// caller is not the owner, an index is out of range, or nothing moves.
	ErrInvalidReorderTarget = errors.New("invalid reorder target")

	// ErrInvalidTimeComputation is returned when the new position yields an
	// unusable start or end hour.
	ErrInvalidTimeComputation = errors.New("invalid time computation")
)

// MoveOutcome is the terminal state of a reorder request.
type MoveOutcome string

const (
	MoveCommitted MoveOutcome = "committed"
	MoveRejected  MoveOutcome = "rejected"
)

// WarningKind classifies advisory notices raised by a move.
type WarningKind string

const (
	WarningMayBeClosed   WarningKind = "may_be_closed"
	WarningExceedsWindow WarningKind = "exceeds_window"
)

// Warning is a notice shown to the owner. It never blocks a move.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// MoveResult is a committed reorder.
type MoveResult struct {
	Schedule  []ScheduledActivity `json:"schedule"`
	Moved     Activity            `json:"moved"`
	Placement Placement           `json:"placement"`
	Warnings  []Warning           `json:"warnings"`
}

// MoveActivity moves the activity at from to position to and recomputes the
// whole schedule. On error the returned result holds the unchanged schedule.
func MoveActivity(schedule []ScheduledActivity, from, to int, authorized bool, w Window) (MoveResult, error) {
	unchanged := MoveResult{Schedule: schedule}

	if !authorized {
		return unchanged, fmt.Errorf("%w: caller is not the lobby owner", ErrInvalidReorderTarget)
	}
	n := len(schedule)
	if from < 0 || from >= n || to < 0 || to >= n {
		return unchanged, fmt.Errorf("%w: index out of range (from=%d to=%d len=%d)", ErrInvalidReorderTarget, from, to, n)
	}
	if from == to {
		return unchanged, fmt.Errorf("%w: source and destination are the same", ErrInvalidReorderTarget)
	}

	reordered := move(schedule, from, to)
	moved := reordered[to].Activity

	placement := TentativePlacement(reordered, to, w)
	if !finite(placement.Start) || !finite(placement.End) || placement.Start < 0 || placement.Start > 23 {
		return unchanged, fmt.Errorf("%w: start=%v end=%v", ErrInvalidTimeComputation, placement.Start, placement.End)
	}

	result := MoveResult{
		Schedule:  RecomputeSchedule(reordered, w),
		Moved:     moved,
		Placement: placement,
		Warnings:  []Warning{},
	}

	day, dayKnown := DayOfWeek(w.Date)
	if !IsOpenDuring(moved, placement.Start, placement.End, day, dayKnown) {
		result.Warnings = append(result.Warnings, Warning{
			Kind:    WarningMayBeClosed,
			Message: fmt.Sprintf("%s may not be open at %s. You can still move it if needed.", moved.Name, To12Hour(placement.Start)),
		})
	}
	if placement.End > float64(w.EndHour) {
		result.Warnings = append(result.Warnings, Warning{
			Kind:    WarningExceedsWindow,
			Message: fmt.Sprintf("Moving this activity may exceed the end time (%s). You can still move it if needed.", To12Hour(float64(w.EndHour))),
		})
	}

	return result, nil
}

// move returns a copy of s with the element at from reinserted at to.
func move(s []ScheduledActivity, from, to int) []ScheduledActivity {
	out := make([]ScheduledActivity, 0, len(s))
	out = append(out, s[:from]...)
	out = append(out, s[from+1:]...)

	item := s[from]
	out = append(out[:to], append([]ScheduledActivity{item}, out[to:]...)...)
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
