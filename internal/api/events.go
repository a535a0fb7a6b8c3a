/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/grouptrip/internal/events"
	"github.com/friendsincode/grouptrip/internal/telemetry"
)

type streamEvent struct {
	Type    events.EventType `json:"type"`
	Payload events.Payload   `json:"payload"`
}

// handleEvents streams bus events over a WebSocket. The optional "types"
// query narrows the stream; "lobby" keeps only one lobby's events.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = events.StreamTypes
	}
	eventTypes = slices.DeleteFunc(slices.Clone(eventTypes), func(t events.EventType) bool {
		return !slices.Contains(events.StreamTypes, t)
	})
	if len(eventTypes) == 0 {
		writeError(w, http.StatusBadRequest, "unknown_event_types")
		return
	}
	lobbyFilter := r.URL.Query().Get("lobby")

	// Subscribe before the handshake so nothing published after it is missed.
	merged := make(chan streamEvent, 32)
	var wg sync.WaitGroup
	subscribers := make([]events.Subscriber, len(eventTypes))
	for i, eventType := range eventTypes {
		sub := a.bus.Subscribe(eventType)
		subscribers[i] = sub
		wg.Add(1)
		go func(eventType events.EventType, sub events.Subscriber) {
			defer wg.Done()
			for payload := range sub {
				select {
				case merged <- streamEvent{Type: eventType, Payload: payload}:
				default:
				}
			}
		}(eventType, sub)
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
		wg.Wait()
	}()

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	// Reads are only needed to notice the client closing the connection.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		case ev := <-merged:
			if lobbyFilter != "" && ev.Payload["lobby_id"] != lobbyFilter {
				continue
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *ws.Conn, ev streamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, ws.MessageText, data)
}
