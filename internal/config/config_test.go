package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROUPTRIP_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PresenceBackend != PresenceMemory {
		t.Fatalf("presence backend = %q, want %q", cfg.PresenceBackend, PresenceMemory)
	}
	if cfg.EventBus != EventBusMemory {
		t.Fatalf("event bus = %q, want %q", cfg.EventBus, EventBusMemory)
	}
	if cfg.HTTPAddr() != "0.0.0.0:8080" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr())
	}
	if cfg.ResultAPITimeout != 10*time.Second {
		t.Fatalf("result api timeout = %v, want 10s", cfg.ResultAPITimeout)
	}
}

func TestLoadRequiresSigningKey(t *testing.T) {
	t.Setenv("GROUPTRIP_JWT_SIGNING_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without signing key")
	}
}

func TestLoadReadsAliasKeys(t *testing.T) {
	t.Setenv("GROUPTRIP_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("API_BASE_URL", "http://results.internal/api")
	t.Setenv("PORT", "9090")
	t.Setenv("GROUPTRIP_EVENTBUS", "NATS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ResultAPIURL != "http://results.internal/api" {
		t.Fatalf("result api url = %q", cfg.ResultAPIURL)
	}
	if cfg.HTTPPort != 9090 {
		t.Fatalf("http port = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.EventBus != EventBusNATS {
		t.Fatalf("event bus = %q, want nats", cfg.EventBus)
	}
}

func TestLoadStoreBackendRequiresDSN(t *testing.T) {
	t.Setenv("GROUPTRIP_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("GROUPTRIP_PRESENCE_BACKEND", "store")

	if _, err := Load(); err == nil {
		t.Fatal("expected store backend without DSN to fail")
	}

	t.Setenv("GROUPTRIP_DB_DSN", "file::memory:?cache=shared")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("db backend = %q, want sqlite", cfg.DBBackend)
	}

	t.Setenv("GROUPTRIP_DB_BACKEND", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected unsupported db backend to fail")
	}
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("GROUPTRIP_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("GROUPTRIP_EVENTBUS", "kafka")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown event bus to fail")
	}

	t.Setenv("GROUPTRIP_EVENTBUS", "memory")
	t.Setenv("GROUPTRIP_PRESENCE_BACKEND", "firebase")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown presence backend to fail")
	}
}

func TestLoadProductionRequiresResultAPI(t *testing.T) {
	t.Setenv("GROUPTRIP_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("GROUPTRIP_ENV", "production")
	t.Setenv("API_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config without result api url to fail")
	}

	t.Setenv("GROUPTRIP_RESULT_API_URL", "https://results.example.com/api")
	if _, err := Load(); err != nil {
		t.Fatalf("production config with result api url: %v", err)
	}
}

func TestLoadReportsLegacyEnvWarnings(t *testing.T) {
	t.Setenv("GROUPTRIP_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("JWT_SIGNING_KEY", "legacy")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.LegacyEnvWarnings) == 0 {
		t.Fatal("expected legacy env warnings")
	}
}
