/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package planner

import (
	"sync"
	"time"
)

// Store keeps the open sessions, one per lobby.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the session for a lobby.
func (s *Store) Get(lobbyID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[lobbyID]
	return sess, ok
}

// GetOrCreate returns the lobby's session, creating an unloaded one if needed.
func (s *Store) GetOrCreate(lobbyID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[lobbyID]; ok {
		return sess, false
	}
	sess := newSession(lobbyID)
	s.sessions[lobbyID] = sess
	return sess, true
}

// Remove drops a session if it is still the one registered for its lobby.
func (s *Store) Remove(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[sess.lobbyID]; ok && current == sess {
		delete(s.sessions, sess.lobbyID)
		return true
	}
	return false
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune removes sessions not touched since cutoff and returns their lobby ids.
func (s *Store) Prune(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned []string
	for id, sess := range s.sessions {
		if sess.lastUsed().Before(cutoff) {
			delete(s.sessions, id)
			pruned = append(pruned, id)
		}
	}
	return pruned
}
