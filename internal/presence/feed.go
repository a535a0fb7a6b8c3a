/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grouptrip/internal/telemetry"
)

// SubjectPrefix is the NATS subject namespace for presence updates.
const SubjectPrefix = "grouptrip.presence."

// UpdateKind names a presence change.
type UpdateKind string

const (
	UpdateJoin     UpdateKind = "join"
	UpdateReady    UpdateKind = "ready"
	UpdateUnready  UpdateKind = "unready"
	UpdateFinished UpdateKind = "finished"
	UpdateWindow   UpdateKind = "window"
)

// Update is a presence change as carried on the wire.
type Update struct {
	Kind      UpdateKind `json:"kind"`
	LobbyID   string     `json:"lobby_id"`
	Member    Member     `json:"member"`
	StartHour *int       `json:"start_hour,omitempty"`
	EndHour   *int       `json:"end_hour,omitempty"`
	Date      string     `json:"date,omitempty"`
}

// SubjectFor returns the subject presence updates for a lobby are sent on.
func SubjectFor(lobbyID string) string {
	return SubjectPrefix + lobbyID
}

// Apply performs an update against an Updater.
func Apply(ctx context.Context, u Updater, upd Update) (*Lobby, error) {
	var (
		lobby *Lobby
		err   error
	)
	switch upd.Kind {
	case UpdateJoin:
		lobby, err = u.Join(ctx, upd.LobbyID, upd.Member)
	case UpdateReady:
		lobby, err = u.SetReady(ctx, upd.LobbyID, upd.Member.ID, true)
	case UpdateUnready:
		lobby, err = u.SetReady(ctx, upd.LobbyID, upd.Member.ID, false)
	case UpdateFinished:
		lobby, err = u.MarkFinished(ctx, upd.LobbyID, upd.Member.ID)
	case UpdateWindow:
		lobby, err = u.SetWindow(ctx, upd.LobbyID, upd.StartHour, upd.EndHour, upd.Date)
	default:
		return nil, fmt.Errorf("unknown presence update kind %q", upd.Kind)
	}
	if err != nil {
		return nil, err
	}
	telemetry.PresenceUpdatesTotal.WithLabelValues(string(upd.Kind)).Inc()
	return lobby, nil
}

// Feed applies presence updates published by other services over NATS.
type Feed struct {
	nc      *nats.Conn
	updater Updater
	logger  zerolog.Logger

	mu       sync.Mutex
	sub      *nats.Subscription
	onUpdate func(*Lobby, Update)
}

// NewFeed creates a feed; call Start to subscribe.
func NewFeed(nc *nats.Conn, updater Updater, logger zerolog.Logger) *Feed {
	return &Feed{
		nc:      nc,
		updater: updater,
		logger:  logger.With().Str("component", "presence_feed").Logger(),
	}
}

// OnUpdate registers a callback invoked after each applied update.
func (f *Feed) OnUpdate(fn func(*Lobby, Update)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpdate = fn
}

// Start subscribes to every lobby's presence subject.
func (f *Feed) Start() error {
	sub, err := f.nc.Subscribe(SubjectPrefix+"*", f.handle)
	if err != nil {
		return fmt.Errorf("subscribe presence: %w", err)
	}
	f.mu.Lock()
	f.sub = sub
	f.mu.Unlock()
	f.logger.Info().Str("subject", SubjectPrefix+"*").Msg("presence feed subscribed")
	return nil
}

// Close unsubscribes.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub == nil {
		return nil
	}
	err := f.sub.Unsubscribe()
	f.sub = nil
	return err
}

func (f *Feed) handle(msg *nats.Msg) {
	var upd Update
	if err := json.Unmarshal(msg.Data, &upd); err != nil {
		f.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("invalid presence update")
		return
	}
	if upd.LobbyID == "" {
		upd.LobbyID = strings.TrimPrefix(msg.Subject, SubjectPrefix)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lobby, err := Apply(ctx, f.updater, upd)
	if err != nil {
		f.logger.Warn().Err(err).Str("lobby_id", upd.LobbyID).Str("kind", string(upd.Kind)).Msg("presence update rejected")
		return
	}

	f.mu.Lock()
	cb := f.onUpdate
	f.mu.Unlock()
	if cb != nil {
		cb(lobby, upd)
	}
}

// PublishUpdate sends an update for other instances to apply.
func PublishUpdate(nc *nats.Conn, upd Update) error {
	data, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("marshal presence update: %w", err)
	}
	return nc.Publish(SubjectFor(upd.LobbyID), data)
}
