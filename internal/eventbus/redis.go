/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grouptrip/internal/events"
	"github.com/friendsincode/grouptrip/internal/telemetry"
)

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures   int
	RetryInterval time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		PoolSize:      10,
		MinIdleConns:  2,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
		RetryInterval: 30 * time.Second,
	}
}

// RedisBus delivers events locally and mirrors them over Redis pub/sub.
// After MaxFailures consecutive publish errors it stops forwarding until a
// ping succeeds again.
type RedisBus struct {
	client *redis.Client
	pubsub *redis.PubSub
	local  *events.Bus
	nodeID string
	logger zerolog.Logger
	cfg    RedisConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	useFallback bool
	failCount   int
	lastCheck   time.Time
}

// NewRedisBus connects to Redis. An unreachable server yields a bus that
// only delivers locally.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return newRedisBus(client, cfg, nodeID, logger)
}

func newRedisBus(client *redis.Client, cfg RedisConfig, nodeID string, logger zerolog.Logger) (*RedisBus, error) {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	ctx, cancel := context.WithCancel(context.Background())
	rb := &RedisBus{
		client: client,
		local:  events.NewBus(),
		nodeID: NodeID(nodeID),
		logger: logger.With().Str("component", "eventbus").Str("backend", "redis").Logger(),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		rb.logger.Warn().Err(err).Msg("Redis connection failed, delivering events locally only")
		rb.useFallback = true
		rb.lastCheck = time.Now()
		return rb, nil
	}

	if err := rb.startReceiver(pingCtx); err != nil {
		cancel()
		return nil, err
	}

	rb.logger.Info().Str("addr", cfg.Addr).Str("node_id", rb.nodeID).Msg("Redis event bus initialized")
	return rb, nil
}

// Subscribe registers a subscriber for an event type.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	return rb.local.Subscribe(eventType)
}

// Unsubscribe removes a subscriber.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	rb.local.Unsubscribe(eventType, sub)
}

// Publish delivers locally, then forwards to Redis unless the breaker is open.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	rb.local.Publish(eventType, payload)

	if rb.fallbackActive() {
		return
	}

	data, err := encode(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()
	if err := rb.client.Publish(ctx, subjectFor(eventType), data).Err(); err != nil {
		telemetry.EventBusPublishedTotal.WithLabelValues("redis", "error").Inc()
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to Redis")
		rb.handleFailure()
		return
	}
	telemetry.EventBusPublishedTotal.WithLabelValues("redis", "ok").Inc()

	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
}

// startReceiver subscribes to every event channel. It waits for the
// subscription confirmation so events published right after it are not missed.
func (rb *RedisBus) startReceiver(ctx context.Context) error {
	pubsub := rb.client.PSubscribe(rb.ctx, SubjectPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe redis events: %w", err)
	}
	rb.pubsub = pubsub
	rb.wg.Add(1)
	go rb.receive(pubsub)
	return nil
}

func (rb *RedisBus) receive(pubsub *redis.PubSub) {
	defer rb.wg.Done()
	ch := pubsub.Channel()
	for {
		select {
		case <-rb.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			env, err := decode([]byte(msg.Payload))
			if err != nil {
				rb.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed event")
				continue
			}
			if env.NodeID == rb.nodeID {
				continue
			}
			rb.local.Publish(env.EventType, env.Payload)
		}
	}
}

// fallbackActive reports whether forwarding is suspended, probing Redis at
// most once per RetryInterval while it is.
func (rb *RedisBus) fallbackActive() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if !rb.useFallback {
		return false
	}
	if time.Since(rb.lastCheck) < rb.cfg.RetryInterval {
		return true
	}
	rb.lastCheck = time.Now()

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()
	if err := rb.client.Ping(ctx).Err(); err != nil {
		return true
	}
	if rb.pubsub == nil {
		if err := rb.startReceiver(ctx); err != nil {
			rb.logger.Warn().Err(err).Msg("Redis reachable but subscription failed")
			return true
		}
	}
	rb.useFallback = false
	rb.failCount = 0
	rb.logger.Info().Msg("Redis reachable again, resuming event forwarding")
	return false
}

func (rb *RedisBus) handleFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.failCount++
	if rb.failCount >= rb.cfg.MaxFailures && !rb.useFallback {
		rb.logger.Warn().Int("fail_count", rb.failCount).Msg("Redis failure threshold reached, delivering events locally only")
		rb.useFallback = true
		rb.lastCheck = time.Now()
	}
}

// Close stops the receiver and closes the client.
func (rb *RedisBus) Close() error {
	rb.cancel()
	rb.mu.Lock()
	if rb.pubsub != nil {
		_ = rb.pubsub.Close()
	}
	rb.mu.Unlock()
	rb.wg.Wait()
	if err := rb.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
