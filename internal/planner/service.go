/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package planner holds the per-lobby itinerary sessions: the schedule is
// fetched once when a lobby opens its itinerary, then reordered in memory.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grouptrip/internal/events"
	"github.com/friendsincode/grouptrip/internal/itinerary"
	"github.com/friendsincode/grouptrip/internal/presence"
	"github.com/friendsincode/grouptrip/internal/resultapi"
	"github.com/friendsincode/grouptrip/internal/telemetry"
)

// ErrSessionNotFound is returned for commands on a lobby with no open itinerary.
var ErrSessionNotFound = errors.New("itinerary session not found")

// DefaultIdleTimeout is how long an untouched session is kept.
const DefaultIdleTimeout = 2 * time.Hour

// Fetcher loads a lobby's itinerary activities.
type Fetcher interface {
	GetItinerary(ctx context.Context, lobbyID string) ([]itinerary.Activity, error)
}

// Service owns the itinerary sessions.
type Service struct {
	fetcher     Fetcher
	lobbies     presence.Source
	bus         events.Publisher
	store       *Store
	logger      zerolog.Logger
	idleTimeout time.Duration
}

// New constructs the planner service.
func New(fetcher Fetcher, lobbies presence.Source, bus events.Publisher, idleTimeout time.Duration, logger zerolog.Logger) *Service {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Service{
		fetcher:     fetcher,
		lobbies:     lobbies,
		bus:         bus,
		store:       NewStore(),
		logger:      logger.With().Str("component", "planner").Logger(),
		idleTimeout: idleTimeout,
	}
}

// Open returns the lobby's session, loading it on first use. A fetch
// failure is kept and returned again until the session is discarded.
func (s *Service) Open(ctx context.Context, lobbyID, userID string) (*View, error) {
	if strings.TrimSpace(lobbyID) == "" {
		return nil, resultapi.ErrMissingLobbyIdentifier
	}

	sess, created := s.store.GetOrCreate(lobbyID)
	if created {
		s.updateGauge()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	if !sess.loaded {
		s.load(ctx, sess)
	}
	if sess.err != nil {
		return nil, sess.err
	}
	return sess.view(userID), nil
}

// load fetches the lobby and its itinerary. Callers must hold sess.mu.
func (s *Service) load(ctx context.Context, sess *Session) {
	ctx, span := telemetry.StartSpan(ctx, "planner", "Open")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{"lobby_id": sess.lobbyID})

	sess.loaded = true

	lobby, err := s.lobbies.Lobby(ctx, sess.lobbyID)
	if err != nil {
		// An unknown lobby is not a session; drop it so a later open retries.
		sess.err = fmt.Errorf("load lobby: %w", err)
		telemetry.RecordError(span, err)
		if s.store.Remove(sess) {
			s.updateGauge()
		}
		return
	}
	sess.ownerID = lobby.OwnerID
	sess.window = lobby.Window()

	activities, err := s.fetcher.GetItinerary(ctx, sess.lobbyID)
	if err != nil {
		sess.err = err
		telemetry.RecordError(span, err)
		s.logger.Warn().Err(err).Str("lobby_id", sess.lobbyID).Msg("itinerary unavailable")
		s.publish(events.EventItineraryFailed, events.Payload{
			"lobby_id": sess.lobbyID,
			"message":  resultapi.UserMessage(err),
		})
		return
	}

	sess.schedule = itinerary.CalculateTimes(activities, sess.window)
	s.logger.Info().Str("lobby_id", sess.lobbyID).Int("activities", len(sess.schedule)).Msg("itinerary session opened")
	s.publish(events.EventItineraryLoaded, events.Payload{
		"lobby_id": sess.lobbyID,
		"count":    len(sess.schedule),
	})
}

// Move reorders the schedule on behalf of userID. A rejected move returns
// the unchanged schedule together with the error.
func (s *Service) Move(ctx context.Context, lobbyID, userID string, from, to int) (*MoveView, error) {
	sess, err := s.session(lobbyID)
	if err != nil {
		return nil, err
	}

	_, span := telemetry.StartSpan(ctx, "planner", "Move")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{"lobby_id": lobbyID, "from": from, "to": to})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()
	if sess.err != nil {
		return nil, sess.err
	}

	authorized := userID != "" && userID == sess.ownerID
	result, err := itinerary.MoveActivity(sess.schedule, from, to, authorized, sess.window)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ItineraryMovesTotal.WithLabelValues(string(itinerary.MoveRejected)).Inc()
		s.logger.Debug().Err(err).Str("lobby_id", lobbyID).Str("user_id", userID).Int("from", from).Int("to", to).Msg("move rejected")
		s.publish(events.EventItineraryRejected, events.Payload{
			"lobby_id": lobbyID,
			"user_id":  userID,
			"from":     from,
			"to":       to,
			"reason":   err.Error(),
		})
		return &MoveView{View: sess.view(userID), Warnings: []itinerary.Warning{}}, err
	}

	sess.schedule = result.Schedule
	telemetry.ItineraryMovesTotal.WithLabelValues(string(itinerary.MoveCommitted)).Inc()
	s.publish(events.EventItineraryReordered, events.Payload{
		"lobby_id": lobbyID,
		"user_id":  userID,
		"from":     from,
		"to":       to,
		"moved":    result.Moved.Name,
	})
	for _, w := range result.Warnings {
		telemetry.ItineraryWarningsTotal.WithLabelValues(string(w.Kind)).Inc()
		s.publish(events.EventItineraryWarning, events.Payload{
			"lobby_id": lobbyID,
			"kind":     string(w.Kind),
			"message":  w.Message,
		})
	}

	placement := result.Placement
	return &MoveView{View: sess.view(userID), Warnings: result.Warnings, Placement: &placement}, nil
}

// ApplyWindow takes a lobby's new window and owner and recomputes the open
// session, if any. It reports whether a session was updated.
func (s *Service) ApplyWindow(lobby *presence.Lobby, userID string) (*View, bool) {
	if lobby == nil {
		return nil, false
	}
	sess, ok := s.store.Get(lobby.ID)
	if !ok {
		return nil, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.loaded || sess.err != nil {
		return nil, false
	}
	sess.touch()
	sess.ownerID = lobby.OwnerID
	sess.window = lobby.Window()
	sess.schedule = itinerary.RecomputeSchedule(sess.schedule, sess.window)
	return sess.view(userID), true
}

// Done closes the lobby's session once a member has finished with it.
// Schedule edits are not kept.
func (s *Service) Done(_ context.Context, lobbyID, userID string) (*View, error) {
	sess, err := s.session(lobbyID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.err != nil {
		return nil, sess.err
	}
	sess.done = true
	view := sess.view(userID)

	if s.store.Remove(sess) {
		s.updateGauge()
	}
	s.logger.Info().Str("lobby_id", lobbyID).Str("user_id", userID).Int("activities", len(sess.schedule)).Msg("itinerary done")
	s.publish(events.EventItineraryDone, events.Payload{
		"lobby_id": lobbyID,
		"user_id":  userID,
		"count":    len(sess.schedule),
	})
	return view, nil
}

// Discard drops the lobby's session, including a stored fetch failure.
func (s *Service) Discard(lobbyID string) bool {
	sess, ok := s.store.Get(lobbyID)
	if !ok || !s.store.Remove(sess) {
		return false
	}
	s.updateGauge()
	s.publish(events.EventItineraryDiscarded, events.Payload{"lobby_id": lobbyID})
	return true
}

// Sessions returns the number of open sessions.
func (s *Service) Sessions() int {
	return s.store.Len()
}

// Run prunes idle sessions until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	interval := s.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("idle_timeout", s.idleTimeout).Msg("planner session reaper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("planner session reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.prune(time.Now().Add(-s.idleTimeout))
		}
	}
}

func (s *Service) prune(cutoff time.Time) {
	pruned := s.store.Prune(cutoff)
	if len(pruned) == 0 {
		return
	}
	s.updateGauge()
	for _, id := range pruned {
		s.logger.Debug().Str("lobby_id", id).Msg("idle itinerary session pruned")
		s.publish(events.EventItineraryDiscarded, events.Payload{"lobby_id": id, "reason": "idle"})
	}
}

func (s *Service) session(lobbyID string) (*Session, error) {
	sess, ok := s.store.Get(lobbyID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) publish(eventType events.EventType, payload events.Payload) {
	if s.bus != nil {
		s.bus.Publish(eventType, payload)
	}
}

func (s *Service) updateGauge() {
	telemetry.PlannerSessionsActive.Set(float64(s.store.Len()))
}
