/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// Itinerary session events
	EventItineraryLoaded    EventType = "itinerary.loaded"
	EventItineraryFailed    EventType = "itinerary.failed"
	EventItineraryReordered EventType = "itinerary.reordered"
	EventItineraryRejected  EventType = "itinerary.rejected"
	EventItineraryWarning   EventType = "itinerary.warning"
	EventItineraryDone      EventType = "itinerary.done"
	EventItineraryDiscarded EventType = "itinerary.discarded"

	// Lobby presence events
	EventLobbyJoined      EventType = "lobby.joined"
	EventLobbyReady       EventType = "lobby.ready"
	EventLobbyAllReady    EventType = "lobby.all_ready"
	EventLobbyFinished    EventType = "lobby.finished"
	EventLobbyAllFinished EventType = "lobby.all_finished"
	EventLobbyWindow      EventType = "lobby.window"
)

// StreamTypes are the events forwarded to event stream clients.
var StreamTypes = []EventType{
	EventItineraryLoaded,
	EventItineraryFailed,
	EventItineraryReordered,
	EventItineraryRejected,
	EventItineraryWarning,
	EventItineraryDone,
	EventItineraryDiscarded,
	EventLobbyJoined,
	EventLobbyReady,
	EventLobbyAllReady,
	EventLobbyFinished,
	EventLobbyAllFinished,
	EventLobbyWindow,
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Publisher accepts events.
type Publisher interface {
	Publish(eventType EventType, payload Payload)
}

// Broker is a publisher that also hands out subscriptions.
type Broker interface {
	Publisher
	Subscribe(eventType EventType) Subscriber
	Unsubscribe(eventType EventType, sub Subscriber)
}

// Bus implements a simple in-process pubsub. Publish never blocks; a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes and closes the subscriber. Unknown subscribers are ignored.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			b.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}
