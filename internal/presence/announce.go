/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package presence

import "github.com/friendsincode/grouptrip/internal/events"

var updateEvents = map[UpdateKind]events.EventType{
	UpdateJoin:     events.EventLobbyJoined,
	UpdateReady:    events.EventLobbyReady,
	UpdateUnready:  events.EventLobbyReady,
	UpdateFinished: events.EventLobbyFinished,
	UpdateWindow:   events.EventLobbyWindow,
}

// Announce publishes the lobby events that follow an applied update. Reaching
// all-ready or all-finished raises an extra event.
func Announce(pub events.Publisher, lobby *Lobby, upd Update) {
	if pub == nil || lobby == nil {
		return
	}
	eventType, ok := updateEvents[upd.Kind]
	if !ok {
		return
	}

	payload := events.Payload{
		"lobby_id":  lobby.ID,
		"kind":      string(upd.Kind),
		"member_id": upd.Member.ID,
		"all_ready": AllReady(lobby.Members),
	}
	if upd.Kind == UpdateWindow {
		w := lobby.Window()
		payload["start_hour"] = w.StartHour
		payload["end_hour"] = w.EndHour
		payload["date"] = w.Date
	}
	pub.Publish(eventType, payload)

	switch upd.Kind {
	case UpdateJoin, UpdateReady:
		if AllReady(lobby.Members) {
			pub.Publish(events.EventLobbyAllReady, events.Payload{"lobby_id": lobby.ID})
		}
	case UpdateFinished:
		if len(StillSwiping(lobby.Members)) == 0 {
			pub.Publish(events.EventLobbyAllFinished, events.Payload{"lobby_id": lobby.ID})
		}
	}
}
