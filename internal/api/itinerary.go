/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/grouptrip/internal/planner"
)

type moveRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

type rejectedMove struct {
	errorBody
	Itinerary *planner.MoveView `json:"itinerary"`
}

func (a *API) handleItineraryGet(w http.ResponseWriter, r *http.Request) {
	view, err := a.planner.Open(r.Context(), chi.URLParam(r, "lobbyID"), caller(r).UserID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleItineraryMove reorders the schedule. A rejected move answers with
// the unchanged schedule next to the error code.
func (a *API) handleItineraryMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.From == nil || req.To == nil {
		writeError(w, http.StatusBadRequest, "from_and_to_required")
		return
	}

	result, err := a.planner.Move(r.Context(), chi.URLParam(r, "lobbyID"), caller(r).UserID, *req.From, *req.To)
	if err != nil {
		if result == nil {
			a.writeDomainError(w, r, err)
			return
		}
		status, code := classify(err)
		writeJSON(w, status, rejectedMove{errorBody: errorBody{Error: code}, Itinerary: result})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleItineraryDone(w http.ResponseWriter, r *http.Request) {
	view, err := a.planner.Done(r.Context(), chi.URLParam(r, "lobbyID"), caller(r).UserID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleItineraryDiscard(w http.ResponseWriter, r *http.Request) {
	if !a.planner.Discard(chi.URLParam(r, "lobbyID")) {
		writeError(w, http.StatusNotFound, "itinerary_not_open")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
