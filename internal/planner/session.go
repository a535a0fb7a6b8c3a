/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package planner

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/friendsincode/grouptrip/internal/itinerary"
)

// Session is the itinerary screen state of one lobby. Commands on a session
// run one at a time under its mutex.
type Session struct {
	lobbyID string

	mu       sync.Mutex
	loaded   bool
	err      error
	ownerID  string
	window   itinerary.Window
	schedule []itinerary.ScheduledActivity
	done     bool

	touched atomic.Int64
}

func newSession(lobbyID string) *Session {
	s := &Session{lobbyID: lobbyID}
	s.touch()
	return s
}

func (s *Session) touch() {
	s.touched.Store(time.Now().UnixNano())
}

func (s *Session) lastUsed() time.Time {
	return time.Unix(0, s.touched.Load())
}

// View is what a lobby member sees of a session. Callers must hold s.mu.
func (s *Session) view(userID string) *View {
	schedule := make([]itinerary.ScheduledActivity, len(s.schedule))
	copy(schedule, s.schedule)
	return &View{
		LobbyID:  s.lobbyID,
		Window:   s.window,
		Schedule: schedule,
		Summary:  itinerary.Summarize(s.schedule, s.window),
		IsOwner:  userID != "" && userID == s.ownerID,
		Done:     s.done,
	}
}

// View is a point-in-time copy of a session for one member.
type View struct {
	LobbyID  string                        `json:"lobby_id"`
	Window   itinerary.Window              `json:"window"`
	Schedule []itinerary.ScheduledActivity `json:"schedule"`
	Summary  itinerary.Summary             `json:"summary"`
	IsOwner  bool                          `json:"is_owner"`
	Done     bool                          `json:"done"`
}

// MoveView is the session after a reorder attempt.
type MoveView struct {
	*View
	Warnings  []itinerary.Warning  `json:"warnings"`
	Placement *itinerary.Placement `json:"placement,omitempty"`
}
