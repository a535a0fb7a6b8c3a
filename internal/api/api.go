/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grouptrip/internal/auth"
	"github.com/friendsincode/grouptrip/internal/events"
	"github.com/friendsincode/grouptrip/internal/planner"
	"github.com/friendsincode/grouptrip/internal/presence"
	"github.com/friendsincode/grouptrip/internal/version"
)

const maxBodyBytes = 64 << 10

// API exposes HTTP handlers.
type API struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	lobbies   presence.Store
	planner   *planner.Service
	bus       events.Broker
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(jwtSecret []byte, tokenTTL time.Duration, lobbies presence.Store, plannerSvc *planner.Service, bus events.Broker, logger zerolog.Logger) *API {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &API{
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		lobbies:   lobbies,
		planner:   plannerSvc,
		bus:       bus,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all API routes.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Get("/version", a.handleVersion)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Route("/lobbies/{lobbyID}", func(r chi.Router) {
				r.Get("/", a.handleLobbyGet)
				r.Post("/join", a.handleLobbyJoin)
				r.Post("/ready", a.handleLobbyReady)
				r.Post("/finished", a.handleLobbyFinished)
				r.Get("/waiting", a.handleLobbyWaiting)
				r.Put("/window", a.handleLobbyWindow)

				r.Route("/itinerary", func(r chi.Router) {
					r.Get("/", a.handleItineraryGet)
					r.Delete("/", a.handleItineraryDiscard)
					r.Post("/move", a.handleItineraryMove)
					r.Post("/done", a.handleItineraryDone)
				})
			})

			pr.Get("/events", a.handleEvents)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": a.planner.Sessions(),
	})
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Current())
}

type loginRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin issues an identity token. Names are not verified.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Name = strings.TrimSpace(req.Name)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id_required")
		return
	}
	if req.Name == "" {
		req.Name = req.UserID
	}

	token, err := auth.Issue(a.jwtSecret, auth.Claims{UserID: req.UserID, Name: req.Name}, a.tokenTTL)
	if err != nil {
		a.logger.Error().Err(err).Msg("token issue failed")
		writeError(w, http.StatusInternalServerError, "token_issue_failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		UserID:    req.UserID,
		Name:      req.Name,
		ExpiresAt: time.Now().Add(a.tokenTTL).UTC(),
	})
}

// caller returns the authenticated user. Routes behind the auth middleware
// always have claims.
func caller(r *http.Request) *auth.Claims {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return &auth.Claims{}
	}
	return claims
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, events.EventType(part))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
