/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package presence tracks who is in a lobby, who is ready and who is still
// swiping, behind a pluggable source.
package presence

import (
	"context"
	"errors"

	"github.com/friendsincode/grouptrip/internal/itinerary"
)

var (
	// ErrLobbyNotFound is returned when no lobby has the requested id.
	ErrLobbyNotFound = errors.New("lobby not found")
	// ErrMemberNotFound is returned when a member update names someone outside the lobby.
	ErrMemberNotFound = errors.New("member not found")
	// ErrInvalidWindow rejects a start or end hour outside 0..23.
	ErrInvalidWindow = errors.New("window hours must be between 0 and 23")
)

// Member is one lobby participant.
type Member struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Ready           bool   `json:"ready" yaml:"ready"`
	FinishedSwiping bool   `json:"finished_swiping" yaml:"finished_swiping"`
}

// Lobby is a snapshot of a lobby and its members in join order.
type Lobby struct {
	ID        string   `json:"id" yaml:"id"`
	Code      string   `json:"code" yaml:"code"`
	OwnerID   string   `json:"owner_id" yaml:"owner"`
	StartHour *int     `json:"start_hour,omitempty" yaml:"start_hour,omitempty"`
	EndHour   *int     `json:"end_hour,omitempty" yaml:"end_hour,omitempty"`
	Date      string   `json:"date,omitempty" yaml:"date,omitempty"`
	Members   []Member `json:"members" yaml:"members"`
}

// Window returns the scheduling window, falling back to the defaults.
func (l *Lobby) Window() itinerary.Window {
	return itinerary.WindowFor(l.StartHour, l.EndHour, l.Date)
}

// IsOwner reports whether userID owns the lobby.
func (l *Lobby) IsOwner(userID string) bool {
	return userID != "" && l.OwnerID == userID
}

// Member looks up a participant by id.
func (l *Lobby) Member(id string) (Member, bool) {
	for _, m := range l.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// Clone returns a deep copy.
func (l *Lobby) Clone() *Lobby {
	if l == nil {
		return nil
	}
	c := *l
	c.StartHour = cloneInt(l.StartHour)
	c.EndHour = cloneInt(l.EndHour)
	c.Members = append([]Member(nil), l.Members...)
	return &c
}

// Source reads lobby snapshots.
type Source interface {
	Lobby(ctx context.Context, lobbyID string) (*Lobby, error)
}

// Updater mutates lobby presence. Every method returns the updated snapshot.
type Updater interface {
	Join(ctx context.Context, lobbyID string, member Member) (*Lobby, error)
	SetReady(ctx context.Context, lobbyID, memberID string, ready bool) (*Lobby, error)
	MarkFinished(ctx context.Context, lobbyID, memberID string) (*Lobby, error)
	SetWindow(ctx context.Context, lobbyID string, start, end *int, date string) (*Lobby, error)
}

// Store is a source that can also be updated.
type Store interface {
	Source
	Updater
	Seed(ctx context.Context, lobbies []Lobby) error
}

// AllReady reports whether every member is ready. An empty lobby is never ready.
func AllReady(members []Member) bool {
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		if !m.Ready {
			return false
		}
	}
	return true
}

// StillSwiping returns the names of members who have not finished swiping.
func StillSwiping(members []Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		if !m.FinishedSwiping {
			names = append(names, m.Name)
		}
	}
	return names
}

// CanStart reports whether the owner may start swiping.
func CanStart(l *Lobby) bool {
	return l != nil && AllReady(l.Members)
}

// ValidateWindow checks optional window hours.
func ValidateWindow(start, end *int) error {
	for _, h := range []*int{start, end} {
		if h != nil && (*h < 0 || *h > 23) {
			return ErrInvalidWindow
		}
	}
	return nil
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
