/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package presence

import (
	"context"

	"github.com/rs/zerolog"
)

// LobbyCache stores lobby snapshots.
type LobbyCache interface {
	GetLobby(ctx context.Context, lobbyID string) (*Lobby, bool)
	SetLobby(ctx context.Context, lobby *Lobby) error
	InvalidateLobby(ctx context.Context, lobbyID string) error
}

// CachedStore reads through a LobbyCache and refreshes it after every update.
type CachedStore struct {
	Store
	cache  LobbyCache
	logger zerolog.Logger
}

// NewCachedStore wraps store with cache.
func NewCachedStore(store Store, cache LobbyCache, logger zerolog.Logger) *CachedStore {
	return &CachedStore{
		Store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "presence_cache").Logger(),
	}
}

func (c *CachedStore) Lobby(ctx context.Context, lobbyID string) (*Lobby, error) {
	if l, ok := c.cache.GetLobby(ctx, lobbyID); ok {
		return l, nil
	}
	l, err := c.Store.Lobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, l)
	return l, nil
}

func (c *CachedStore) Join(ctx context.Context, lobbyID string, member Member) (*Lobby, error) {
	return c.refresh(ctx)(c.Store.Join(ctx, lobbyID, member))
}

func (c *CachedStore) SetReady(ctx context.Context, lobbyID, memberID string, ready bool) (*Lobby, error) {
	return c.refresh(ctx)(c.Store.SetReady(ctx, lobbyID, memberID, ready))
}

func (c *CachedStore) MarkFinished(ctx context.Context, lobbyID, memberID string) (*Lobby, error) {
	return c.refresh(ctx)(c.Store.MarkFinished(ctx, lobbyID, memberID))
}

func (c *CachedStore) SetWindow(ctx context.Context, lobbyID string, start, end *int, date string) (*Lobby, error) {
	return c.refresh(ctx)(c.Store.SetWindow(ctx, lobbyID, start, end, date))
}

func (c *CachedStore) Seed(ctx context.Context, lobbies []Lobby) error {
	if err := c.Store.Seed(ctx, lobbies); err != nil {
		return err
	}
	for _, l := range lobbies {
		c.Invalidate(ctx, l.ID)
	}
	return nil
}

// Invalidate drops a snapshot, e.g. after a presence update applied elsewhere.
func (c *CachedStore) Invalidate(ctx context.Context, lobbyID string) {
	if err := c.cache.InvalidateLobby(ctx, lobbyID); err != nil {
		c.logger.Debug().Err(err).Str("lobby_id", lobbyID).Msg("lobby cache invalidation failed")
	}
}

func (c *CachedStore) refresh(ctx context.Context) func(*Lobby, error) (*Lobby, error) {
	return func(l *Lobby, err error) (*Lobby, error) {
		if err != nil {
			return nil, err
		}
		c.remember(ctx, l)
		return l, nil
	}
}

func (c *CachedStore) remember(ctx context.Context, l *Lobby) {
	if err := c.cache.SetLobby(ctx, l); err != nil {
		c.logger.Debug().Err(err).Str("lobby_id", l.ID).Msg("lobby cache write failed")
	}
}
