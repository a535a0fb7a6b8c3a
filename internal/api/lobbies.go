/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/grouptrip/internal/planner"
	"github.com/friendsincode/grouptrip/internal/presence"
)

type lobbyResponse struct {
	Lobby    *presence.Lobby `json:"lobby"`
	AllReady bool            `json:"all_ready"`
	CanStart bool            `json:"can_start"`
	IsOwner  bool            `json:"is_owner"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type readyRequest struct {
	Ready *bool `json:"ready"`
}

type windowRequest struct {
	StartHour *int   `json:"start_hour"`
	EndHour   *int   `json:"end_hour"`
	Date      string `json:"date"`
}

type windowResponse struct {
	lobbyResponse
	Itinerary *planner.View `json:"itinerary,omitempty"`
}

type waitingResponse struct {
	LobbyID      string   `json:"lobby_id"`
	StillSwiping []string `json:"still_swiping"`
	Done         bool     `json:"done"`
}

func (a *API) lobbyView(lobby *presence.Lobby, userID string) lobbyResponse {
	return lobbyResponse{
		Lobby:    lobby,
		AllReady: presence.AllReady(lobby.Members),
		CanStart: presence.CanStart(lobby),
		IsOwner:  lobby.IsOwner(userID),
	}
}

func (a *API) handleLobbyGet(w http.ResponseWriter, r *http.Request) {
	lobby, err := a.lobbies.Lobby(r.Context(), chi.URLParam(r, "lobbyID"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.lobbyView(lobby, caller(r).UserID))
}

func (a *API) handleLobbyJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	claims := caller(r)
	name := req.Name
	if name == "" {
		name = claims.Name
	}
	a.applyUpdate(w, r, presence.Update{
		Kind:   presence.UpdateJoin,
		Member: presence.Member{ID: claims.UserID, Name: name},
	})
}

func (a *API) handleLobbyReady(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	kind := presence.UpdateReady
	if req.Ready != nil && !*req.Ready {
		kind = presence.UpdateUnready
	}
	a.applyUpdate(w, r, presence.Update{
		Kind:   kind,
		Member: presence.Member{ID: caller(r).UserID},
	})
}

func (a *API) handleLobbyFinished(w http.ResponseWriter, r *http.Request) {
	a.applyUpdate(w, r, presence.Update{
		Kind:   presence.UpdateFinished,
		Member: presence.Member{ID: caller(r).UserID},
	})
}

func (a *API) applyUpdate(w http.ResponseWriter, r *http.Request, upd presence.Update) {
	upd.LobbyID = chi.URLParam(r, "lobbyID")
	lobby, err := presence.Apply(r.Context(), a.lobbies, upd)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	presence.Announce(a.bus, lobby, upd)
	writeJSON(w, http.StatusOK, a.lobbyView(lobby, caller(r).UserID))
}

func (a *API) handleLobbyWaiting(w http.ResponseWriter, r *http.Request) {
	lobby, err := a.lobbies.Lobby(r.Context(), chi.URLParam(r, "lobbyID"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	swiping := presence.StillSwiping(lobby.Members)
	writeJSON(w, http.StatusOK, waitingResponse{
		LobbyID:      lobby.ID,
		StillSwiping: swiping,
		Done:         len(swiping) == 0,
	})
}

// handleLobbyWindow changes the scheduling window. Only the owner may do this;
// an open itinerary is recomputed for the new hours.
func (a *API) handleLobbyWindow(w http.ResponseWriter, r *http.Request) {
	lobbyID := chi.URLParam(r, "lobbyID")
	userID := caller(r).UserID

	var req windowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	current, err := a.lobbies.Lobby(r.Context(), lobbyID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	if !current.IsOwner(userID) {
		writeError(w, http.StatusForbidden, "owner_only")
		return
	}

	upd := presence.Update{
		Kind:      presence.UpdateWindow,
		LobbyID:   lobbyID,
		Member:    presence.Member{ID: userID},
		StartHour: req.StartHour,
		EndHour:   req.EndHour,
		Date:      req.Date,
	}
	lobby, err := presence.Apply(r.Context(), a.lobbies, upd)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	presence.Announce(a.bus, lobby, upd)

	resp := windowResponse{lobbyResponse: a.lobbyView(lobby, userID)}
	if view, ok := a.planner.ApplyWindow(lobby, userID); ok {
		resp.Itinerary = view
	}
	writeJSON(w, http.StatusOK, resp)
}
