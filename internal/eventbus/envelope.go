/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors in-process events to other instances over NATS or
// Redis pub/sub.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/grouptrip/internal/events"
)

// SubjectPrefix namespaces event subjects and channels.
const SubjectPrefix = "grouptrip.events."

// envelope is the wire form of a mirrored event.
type envelope struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func encode(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(envelope{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func decode(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if env.EventType == "" {
		return nil, fmt.Errorf("event without type")
	}
	return &env, nil
}

// NodeID returns id when set, otherwise hostname plus a random suffix.
func NodeID(id string) string {
	if id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return host + "-" + uuid.NewString()[:8]
}

func subjectFor(eventType events.EventType) string {
	return SubjectPrefix + string(eventType)
}
