/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/grouptrip/internal/models"
)

// StoreSource keeps lobbies in a SQL database through GORM.
type StoreSource struct {
	db *gorm.DB
}

// NewStoreSource wraps a migrated database.
func NewStoreSource(db *gorm.DB) *StoreSource {
	return &StoreSource{db: db}
}

func (s *StoreSource) Lobby(ctx context.Context, lobbyID string) (*Lobby, error) {
	return s.load(s.db.WithContext(ctx), lobbyID)
}

// Seed upserts lobbies and their members.
func (s *StoreSource) Seed(ctx context.Context, lobbies []Lobby) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range lobbies {
			row := models.Lobby{
				ID:        l.ID,
				Code:      l.Code,
				OwnerID:   l.OwnerID,
				StartHour: cloneInt(l.StartHour),
				EndHour:   cloneInt(l.EndHour),
				Date:      l.Date,
			}
			if row.Code == "" {
				row.Code = l.ID
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Omit("Members").Create(&row).Error; err != nil {
				return fmt.Errorf("seed lobby %s: %w", l.ID, err)
			}
			if err := tx.Where("lobby_id = ?", l.ID).Delete(&models.LobbyMember{}).Error; err != nil {
				return fmt.Errorf("clear members of %s: %w", l.ID, err)
			}
			// Seeded members sort before anyone who joins afterwards.
			seeded := time.Now().UTC().Add(-time.Duration(len(l.Members)) * time.Millisecond)
			for i, m := range l.Members {
				member := memberRow(l.ID, m)
				member.Ready = m.Ready
				member.FinishedSwiping = m.FinishedSwiping
				member.JoinedAt = seeded.Add(time.Duration(i) * time.Millisecond)
				if err := tx.Create(&member).Error; err != nil {
					return fmt.Errorf("seed member %s of %s: %w", m.ID, l.ID, err)
				}
			}
		}
		return nil
	})
}

func (s *StoreSource) Join(ctx context.Context, lobbyID string, member Member) (*Lobby, error) {
	return s.update(ctx, lobbyID, func(tx *gorm.DB, lobby *models.Lobby) error {
		if lobby.OwnerID == "" {
			if err := tx.Model(lobby).Update("owner_id", member.ID).Error; err != nil {
				return err
			}
		}

		var existing models.LobbyMember
		err := tx.Where("lobby_id = ? AND user_id = ?", lobbyID, member.ID).First(&existing).Error
		switch {
		case err == nil:
			if member.Name == "" || member.Name == existing.Name {
				return nil
			}
			return tx.Model(&existing).Update("name", member.Name).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := memberRow(lobbyID, member)
			joined, err := nextJoinedAt(tx, lobbyID)
			if err != nil {
				return err
			}
			row.JoinedAt = joined
			return tx.Create(&row).Error
		default:
			return err
		}
	})
}

func (s *StoreSource) SetReady(ctx context.Context, lobbyID, memberID string, ready bool) (*Lobby, error) {
	return s.updateMember(ctx, lobbyID, memberID, map[string]any{"ready": ready})
}

func (s *StoreSource) MarkFinished(ctx context.Context, lobbyID, memberID string) (*Lobby, error) {
	return s.updateMember(ctx, lobbyID, memberID, map[string]any{"finished_swiping": true})
}

func (s *StoreSource) SetWindow(ctx context.Context, lobbyID string, start, end *int, date string) (*Lobby, error) {
	if err := ValidateWindow(start, end); err != nil {
		return nil, err
	}
	return s.update(ctx, lobbyID, func(tx *gorm.DB, lobby *models.Lobby) error {
		return tx.Model(lobby).Updates(map[string]any{
			"start_hour": start,
			"end_hour":   end,
			"date":       date,
		}).Error
	})
}

func (s *StoreSource) updateMember(ctx context.Context, lobbyID, memberID string, fields map[string]any) (*Lobby, error) {
	return s.update(ctx, lobbyID, func(tx *gorm.DB, _ *models.Lobby) error {
		res := tx.Model(&models.LobbyMember{}).
			Where("lobby_id = ? AND user_id = ?", lobbyID, memberID).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMemberNotFound
		}
		return nil
	})
}

func (s *StoreSource) update(ctx context.Context, lobbyID string, fn func(tx *gorm.DB, lobby *models.Lobby) error) (*Lobby, error) {
	var out *Lobby
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lobby models.Lobby
		if err := tx.First(&lobby, "id = ?", lobbyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLobbyNotFound
			}
			return err
		}
		if err := fn(tx, &lobby); err != nil {
			return err
		}
		loaded, err := s.load(tx, lobbyID)
		if err != nil {
			return err
		}
		out = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *StoreSource) load(tx *gorm.DB, lobbyID string) (*Lobby, error) {
	var row models.Lobby
	err := tx.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC")
	}).First(&row, "id = ?", lobbyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLobbyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load lobby %s: %w", lobbyID, err)
	}
	return lobbyFromRow(row), nil
}

// nextJoinedAt returns a join time strictly after the lobby's latest member,
// so members keep arrival order even when the clock has not advanced.
func nextJoinedAt(tx *gorm.DB, lobbyID string) (time.Time, error) {
	now := time.Now().UTC()
	var latest models.LobbyMember
	err := tx.Where("lobby_id = ?", lobbyID).Order("joined_at DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return now, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest member of %s: %w", lobbyID, err)
	}
	if floor := latest.JoinedAt.UTC().Add(time.Millisecond); now.Before(floor) {
		return floor, nil
	}
	return now, nil
}

func memberRow(lobbyID string, m Member) models.LobbyMember {
	return models.LobbyMember{
		ID:       uuid.NewString(),
		LobbyID:  lobbyID,
		UserID:   m.ID,
		Name:     m.Name,
		JoinedAt: time.Now().UTC(),
	}
}

func lobbyFromRow(row models.Lobby) *Lobby {
	l := &Lobby{
		ID:        row.ID,
		Code:      row.Code,
		OwnerID:   row.OwnerID,
		StartHour: row.StartHour,
		EndHour:   row.EndHour,
		Date:      row.Date,
		Members:   make([]Member, 0, len(row.Members)),
	}
	for _, m := range row.Members {
		l.Members = append(l.Members, Member{
			ID:              m.UserID,
			Name:            m.Name,
			Ready:           m.Ready,
			FinishedSwiping: m.FinishedSwiping,
		})
	}
	return l
}
