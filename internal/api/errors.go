/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"

	"github.com/friendsincode/grouptrip/internal/itinerary"
	"github.com/friendsincode/grouptrip/internal/planner"
	"github.com/friendsincode/grouptrip/internal/presence"
	"github.com/friendsincode/grouptrip/internal/resultapi"
)

// errorBody is the JSON shape of a failed request.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// classify maps a domain error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, resultapi.ErrMissingLobbyIdentifier):
		return http.StatusBadRequest, "lobby_id_missing"
	case errors.Is(err, presence.ErrLobbyNotFound):
		return http.StatusNotFound, "lobby_not_found"
	case errors.Is(err, presence.ErrMemberNotFound):
		return http.StatusNotFound, "member_not_found"
	case errors.Is(err, presence.ErrInvalidWindow):
		return http.StatusUnprocessableEntity, "invalid_window"
	case errors.Is(err, planner.ErrSessionNotFound):
		return http.StatusNotFound, "itinerary_not_open"
	case errors.Is(err, itinerary.ErrInvalidReorderTarget):
		return http.StatusConflict, "invalid_reorder_target"
	case errors.Is(err, itinerary.ErrInvalidTimeComputation):
		return http.StatusUnprocessableEntity, "invalid_time_computation"
	case errors.Is(err, resultapi.ErrEmptyItinerary):
		return http.StatusBadGateway, "empty_itinerary"
	case errors.Is(err, resultapi.ErrFetchFailure):
		return http.StatusBadGateway, "itinerary_fetch_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeDomainError writes err with its mapped status. Itinerary load
// failures carry the message shown to the user.
func (a *API) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	body := errorBody{Error: code}
	switch code {
	case "lobby_id_missing", "empty_itinerary", "itinerary_fetch_failed":
		body.Message = resultapi.UserMessage(err)
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}
