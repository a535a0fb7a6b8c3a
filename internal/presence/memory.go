/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package presence

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// DemoLobbyID is the lobby every fresh memory store starts with.
const DemoLobbyID = "ABCD"

// MemorySource keeps lobbies in process memory.
type MemorySource struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby
}

// NewMemorySource returns an empty store.
func NewMemorySource() *MemorySource {
	return &MemorySource{lobbies: make(map[string]*Lobby)}
}

// NewDemoSource returns a store holding the demo lobby.
func NewDemoSource() *MemorySource {
	m := NewMemorySource()
	_ = m.Seed(context.Background(), DemoLobbies())
	return m
}

// DemoLobbies is the built-in seed: one lobby whose members are all ready
// and two of whom are still swiping.
func DemoLobbies() []Lobby {
	return []Lobby{{
		ID:      DemoLobbyID,
		Code:    DemoLobbyID,
		OwnerID: "1",
		Members: []Member{
			{ID: "1", Name: "You", Ready: true, FinishedSwiping: true},
			{ID: "2", Name: "Alice", Ready: true},
			{ID: "3", Name: "Bob", Ready: true},
			{ID: "4", Name: "Charlie", Ready: true, FinishedSwiping: true},
		},
	}}
}

type seedFile struct {
	Lobbies []Lobby `yaml:"lobbies"`
}

// LoadSeed reads lobbies from a YAML file.
func LoadSeed(path string) ([]Lobby, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lobby seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lobby seed %s: %w", path, err)
	}
	for i, l := range f.Lobbies {
		if l.ID == "" {
			return nil, fmt.Errorf("lobby seed %s: entry %d has no id", path, i)
		}
		if l.Code == "" {
			f.Lobbies[i].Code = l.ID
		}
		if err := ValidateWindow(l.StartHour, l.EndHour); err != nil {
			return nil, fmt.Errorf("lobby seed %s: lobby %s: %w", path, l.ID, err)
		}
	}
	return f.Lobbies, nil
}

// Seed replaces or adds the given lobbies.
func (m *MemorySource) Seed(_ context.Context, lobbies []Lobby) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range lobbies {
		l := lobbies[i].Clone()
		if l.Code == "" {
			l.Code = l.ID
		}
		m.lobbies[l.ID] = l
	}
	return nil
}

func (m *MemorySource) Lobby(_ context.Context, lobbyID string) (*Lobby, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	return l.Clone(), nil
}

// Join adds a member, or renames an existing one. The first member of an
// ownerless lobby becomes its owner.
func (m *MemorySource) Join(_ context.Context, lobbyID string, member Member) (*Lobby, error) {
	return m.update(lobbyID, func(l *Lobby) error {
		if l.OwnerID == "" {
			l.OwnerID = member.ID
		}
		for i := range l.Members {
			if l.Members[i].ID == member.ID {
				if member.Name != "" {
					l.Members[i].Name = member.Name
				}
				return nil
			}
		}
		l.Members = append(l.Members, Member{ID: member.ID, Name: member.Name})
		return nil
	})
}

func (m *MemorySource) SetReady(_ context.Context, lobbyID, memberID string, ready bool) (*Lobby, error) {
	return m.updateMember(lobbyID, memberID, func(mem *Member) { mem.Ready = ready })
}

func (m *MemorySource) MarkFinished(_ context.Context, lobbyID, memberID string) (*Lobby, error) {
	return m.updateMember(lobbyID, memberID, func(mem *Member) { mem.FinishedSwiping = true })
}

func (m *MemorySource) SetWindow(_ context.Context, lobbyID string, start, end *int, date string) (*Lobby, error) {
	if err := ValidateWindow(start, end); err != nil {
		return nil, err
	}
	return m.update(lobbyID, func(l *Lobby) error {
		l.StartHour = cloneInt(start)
		l.EndHour = cloneInt(end)
		l.Date = date
		return nil
	})
}

func (m *MemorySource) updateMember(lobbyID, memberID string, fn func(*Member)) (*Lobby, error) {
	return m.update(lobbyID, func(l *Lobby) error {
		for i := range l.Members {
			if l.Members[i].ID == memberID {
				fn(&l.Members[i])
				return nil
			}
		}
		return ErrMemberNotFound
	})
}

func (m *MemorySource) update(lobbyID string, fn func(*Lobby) error) (*Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lobbies[lobbyID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	next := l.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.lobbies[lobbyID] = next
	return next.Clone(), nil
}
