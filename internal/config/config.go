/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// EventBusBackend selects how events are shared between instances.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusNATS   EventBusBackend = "nats"
	EventBusRedis  EventBusBackend = "redis"
)

// PresenceBackend selects where lobby membership is read from.
type PresenceBackend string

const (
	PresenceMemory PresenceBackend = "memory"
	PresenceStore  PresenceBackend = "store"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	JWTSigningKey string
	TokenTTL      time.Duration

	// Results backend
	ResultAPIURL     string
	ResultAPITimeout time.Duration

	// Lobby presence
	PresenceBackend PresenceBackend
	LobbySeedPath   string // YAML seed for the memory backend
	DBBackend       DatabaseBackend
	DBDSN           string

	// Cache and multi-instance
	CacheEnabled  bool
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EventBus      EventBusBackend
	NATSURL       string
	InstanceID    string

	// Tracing
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"GROUPTRIP_ENV", "APP_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"GROUPTRIP_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"GROUPTRIP_HTTP_PORT", "PORT"}, 8080),
		MetricsBind: getEnvAny([]string{"GROUPTRIP_METRICS_BIND"}, "127.0.0.1:9000"),

		JWTSigningKey: getEnvAny([]string{"GROUPTRIP_JWT_SIGNING_KEY"}, ""),
		TokenTTL:      time.Duration(getEnvIntAny([]string{"GROUPTRIP_TOKEN_TTL_MINUTES"}, 24*60)) * time.Minute,

		ResultAPIURL:     getEnvAny([]string{"GROUPTRIP_RESULT_API_URL", "API_BASE_URL"}, "http://localhost:3000/api"),
		ResultAPITimeout: time.Duration(getEnvIntAny([]string{"GROUPTRIP_RESULT_API_TIMEOUT_SECONDS"}, 10)) * time.Second,

		PresenceBackend: PresenceBackend(strings.ToLower(getEnvAny([]string{"GROUPTRIP_PRESENCE_BACKEND"}, string(PresenceMemory)))),
		LobbySeedPath:   getEnvAny([]string{"GROUPTRIP_LOBBY_SEED"}, ""),
		DBBackend:       DatabaseBackend(strings.ToLower(getEnvAny([]string{"GROUPTRIP_DB_BACKEND"}, string(DatabaseSQLite)))),
		DBDSN:           getEnvAny([]string{"GROUPTRIP_DB_DSN", "DATABASE_URL"}, ""),

		CacheEnabled:  getEnvBoolAny([]string{"GROUPTRIP_CACHE_ENABLED"}, false),
		CacheTTL:      time.Duration(getEnvIntAny([]string{"GROUPTRIP_CACHE_TTL_SECONDS"}, 300)) * time.Second,
		RedisAddr:     getEnvAny([]string{"GROUPTRIP_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"GROUPTRIP_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"GROUPTRIP_REDIS_DB"}, 0),
		EventBus:      EventBusBackend(strings.ToLower(getEnvAny([]string{"GROUPTRIP_EVENTBUS"}, string(EventBusMemory)))),
		NATSURL:       getEnvAny([]string{"GROUPTRIP_NATS_URL", "NATS_URL"}, "nats://127.0.0.1:4222"),
		InstanceID:    getEnvAny([]string{"GROUPTRIP_INSTANCE_ID", "HOSTNAME"}, ""),

		TracingEnabled:    getEnvBoolAny([]string{"GROUPTRIP_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"GROUPTRIP_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"GROUPTRIP_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("GROUPTRIP_JWT_SIGNING_KEY must be provided")
	}

	switch cfg.PresenceBackend {
	case PresenceMemory:
	case PresenceStore:
		if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
			return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
		}
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("GROUPTRIP_DB_DSN must be provided when GROUPTRIP_PRESENCE_BACKEND=store")
		}
	default:
		return nil, fmt.Errorf("unsupported presence backend %q", cfg.PresenceBackend)
	}

	switch cfg.EventBus {
	case EventBusMemory, EventBusNATS, EventBusRedis:
	default:
		return nil, fmt.Errorf("unsupported event bus %q", cfg.EventBus)
	}

	if strings.EqualFold(cfg.Environment, "production") && os.Getenv("GROUPTRIP_RESULT_API_URL") == "" && os.Getenv("API_BASE_URL") == "" {
		return nil, fmt.Errorf("GROUPTRIP_RESULT_API_URL must be set in production")
	}

	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return nil, fmt.Errorf("GROUPTRIP_TRACING_SAMPLE_RATE must be between 0 and 1")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

// HTTPAddr returns the API listen address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"JWT_SIGNING_KEY":  "use GROUPTRIP_JWT_SIGNING_KEY",
		"LOBBY_SEED":       "use GROUPTRIP_LOBBY_SEED",
		"TRACING_ENABLED":  "use GROUPTRIP_TRACING_ENABLED",
		"EVENTBUS_BACKEND": "use GROUPTRIP_EVENTBUS",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
