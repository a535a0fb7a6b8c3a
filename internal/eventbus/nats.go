/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grouptrip/internal/events"
	"github.com/friendsincode/grouptrip/internal/telemetry"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "grouptrip",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSBus delivers events locally and mirrors them to other instances on
// grouptrip.events.<type>. Events published by this node are not redelivered.
type NATSBus struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	local  *events.Bus
	nodeID string
	logger zerolog.Logger
}

// NewNATSBus connects to NATS and subscribes to every event subject.
func NewNATSBus(cfg NATSConfig, nodeID string, logger zerolog.Logger) (*NATSBus, error) {
	logger = logger.With().Str("component", "eventbus").Str("backend", "nats").Logger()

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}

	nb, err := NewNATSBusWithConn(conn, nodeID, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info().Str("url", cfg.URL).Str("node_id", nb.nodeID).Msg("NATS event bus initialized")
	return nb, nil
}

// NewNATSBusWithConn builds a bus on an existing connection, which the
// caller keeps ownership of only until Close.
func NewNATSBusWithConn(conn *nats.Conn, nodeID string, logger zerolog.Logger) (*NATSBus, error) {
	nb := &NATSBus{
		conn:   conn,
		local:  events.NewBus(),
		nodeID: NodeID(nodeID),
		logger: logger,
	}
	sub, err := conn.Subscribe(SubjectPrefix+">", nb.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe events: %w", err)
	}
	nb.sub = sub
	return nb, nil
}

// Conn exposes the connection so other components can share it.
func (nb *NATSBus) Conn() *nats.Conn {
	return nb.conn
}

// Subscribe registers a subscriber for an event type.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	return nb.local.Subscribe(eventType)
}

// Unsubscribe removes a subscriber.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.local.Unsubscribe(eventType, sub)
}

// Publish delivers locally, then forwards to NATS.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.local.Publish(eventType, payload)

	data, err := encode(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to encode event")
		return
	}
	if err := nb.conn.Publish(subjectFor(eventType), data); err != nil {
		telemetry.EventBusPublishedTotal.WithLabelValues("nats", "error").Inc()
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to NATS")
		return
	}
	telemetry.EventBusPublishedTotal.WithLabelValues("nats", "ok").Inc()
}

func (nb *NATSBus) handle(msg *nats.Msg) {
	env, err := decode(msg.Data)
	if err != nil {
		nb.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed event")
		return
	}
	if env.NodeID == nb.nodeID {
		return
	}
	nb.local.Publish(env.EventType, env.Payload)
}

// Close drains the subscription and closes the connection.
func (nb *NATSBus) Close() error {
	if nb.sub != nil {
		if err := nb.sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
			nb.logger.Debug().Err(err).Msg("unsubscribe failed")
		}
	}
	if nb.conn != nil {
		nb.conn.Close()
	}
	return nil
}
