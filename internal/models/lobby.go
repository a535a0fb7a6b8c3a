/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Lobby is a group planning session. StartHour and EndHour are nil until the
// owner configures a window.
type Lobby struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	Code      string `gorm:"type:varchar(16);uniqueIndex"`
	OwnerID   string `gorm:"type:varchar(64);index"`
	StartHour *int
	EndHour   *int
	Date      string        `gorm:"type:varchar(16)"`
	Members   []LobbyMember `gorm:"foreignKey:LobbyID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LobbyMember is one participant of a lobby.
type LobbyMember struct {
	ID              string `gorm:"type:varchar(36);primaryKey"`
	LobbyID         string `gorm:"type:varchar(64);uniqueIndex:idx_lobby_member"`
	UserID          string `gorm:"type:varchar(64);uniqueIndex:idx_lobby_member"`
	Name            string `gorm:"type:varchar(128)"`
	Ready           bool
	FinishedSwiping bool
	JoinedAt        time.Time `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
