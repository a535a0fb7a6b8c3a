/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for fetched itineraries
// and lobby snapshots.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grouptrip/internal/presence"
	"github.com/friendsincode/grouptrip/internal/telemetry"
)

// Default TTL values for different cache types
const (
	DefaultItineraryTTL = 5 * time.Minute
	DefaultLobbyTTL     = 30 * time.Second
)

// Key prefixes for Redis cache
const (
	KeyPrefix    = "grouptrip:cache:"
	KeyItinerary = KeyPrefix + "itinerary:" // + lobby_id
	KeyLobby     = KeyPrefix + "lobby:"     // + lobby_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ItineraryTTL time.Duration
	LobbyTTL     time.Duration

	// DisableOnError trips the circuit breaker on the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		ItineraryTTL:   DefaultItineraryTTL,
		LobbyTTL:       DefaultLobbyTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New connects to Redis. An unreachable server yields a disabled cache, not an error.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewWithClient(client, cfg, logger)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		_ = client.Close()
		c.client = nil
		c.disabled = true
		return c, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return c, nil
}

// NewWithClient wraps an existing client without probing it.
func NewWithClient(client *redis.Client, cfg Config, logger zerolog.Logger) *Cache {
	if cfg.ItineraryTTL <= 0 {
		cfg.ItineraryTTL = DefaultItineraryTTL
	}
	if cfg.LobbyTTL <= 0 {
		cfg.LobbyTTL = DefaultLobbyTTL
	}
	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError trips the circuit breaker when configured to.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	telemetry.CacheOperationsTotal.WithLabelValues(operation, "error").Inc()
	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		telemetry.CacheOperationsTotal.WithLabelValues("get", "miss").Inc()
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		telemetry.CacheOperationsTotal.WithLabelValues("get", "corrupt").Inc()
		return false, nil
	}

	telemetry.CacheOperationsTotal.WithLabelValues("get", "hit").Inc()
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	telemetry.CacheOperationsTotal.WithLabelValues("set", "ok").Inc()
	return nil
}

func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}
	return nil
}

// deletePattern deletes all keys matching a pattern using SCAN.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Itinerary caching

// GetItinerary returns the raw activity payload last fetched for a lobby.
func (c *Cache) GetItinerary(ctx context.Context, lobbyID string) ([]map[string]any, bool) {
	var raw []map[string]any
	found, err := c.get(ctx, KeyItinerary+lobbyID, &raw)
	if err != nil || !found || raw == nil {
		return nil, false
	}
	c.logger.Debug().Str("lobby_id", lobbyID).Int("count", len(raw)).Msg("itinerary cache hit")
	return raw, true
}

// SetItinerary caches a raw activity payload.
func (c *Cache) SetItinerary(ctx context.Context, lobbyID string, raw []map[string]any) error {
	return c.set(ctx, KeyItinerary+lobbyID, raw, c.config.ItineraryTTL)
}

// InvalidateItinerary drops a lobby's cached payload so the next open refetches.
func (c *Cache) InvalidateItinerary(ctx context.Context, lobbyID string) error {
	c.logger.Debug().Str("lobby_id", lobbyID).Msg("invalidating itinerary cache")
	return c.delete(ctx, KeyItinerary+lobbyID)
}

// Lobby caching

// GetLobby returns a cached lobby snapshot.
func (c *Cache) GetLobby(ctx context.Context, lobbyID string) (*presence.Lobby, bool) {
	var lobby presence.Lobby
	found, err := c.get(ctx, KeyLobby+lobbyID, &lobby)
	if err != nil || !found {
		return nil, false
	}
	return &lobby, true
}

// SetLobby caches a lobby snapshot.
func (c *Cache) SetLobby(ctx context.Context, lobby *presence.Lobby) error {
	return c.set(ctx, KeyLobby+lobby.ID, lobby, c.config.LobbyTTL)
}

// InvalidateLobby drops a cached lobby snapshot.
func (c *Cache) InvalidateLobby(ctx context.Context, lobbyID string) error {
	return c.delete(ctx, KeyLobby+lobbyID)
}

// FlushAll removes every grouptrip cache key.
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, KeyPrefix+"*")
}
