/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grouptrip/internal/api"
	"github.com/friendsincode/grouptrip/internal/cache"
	"github.com/friendsincode/grouptrip/internal/config"
	"github.com/friendsincode/grouptrip/internal/db"
	"github.com/friendsincode/grouptrip/internal/eventbus"
	"github.com/friendsincode/grouptrip/internal/events"
	"github.com/friendsincode/grouptrip/internal/planner"
	"github.com/friendsincode/grouptrip/internal/presence"
	"github.com/friendsincode/grouptrip/internal/resultapi"
	"github.com/friendsincode/grouptrip/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db            *gorm.DB
	cache         *cache.Cache
	bus           events.Broker
	natsBus       *eventbus.NATSBus
	lobbies       presence.Store
	cachedLobbies *presence.CachedStore
	feed          *presence.Feed
	results       *resultapi.Client
	planner       *planner.Service
	api           *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New builds the server and starts its background workers.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("grouptrip-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Skip timeout for WebSocket connections
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(ctx); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 for the event stream; the middleware timeout covers other routes.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.MetricsBind != "" {
		metricsRouter := chi.NewRouter()
		metricsRouter.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           metricsRouter,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies(ctx context.Context) error {
	if err := s.initEventBus(); err != nil {
		return err
	}

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		cacheCfg.ItineraryTTL = s.cfg.CacheTTL
		redisCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = redisCache
			s.DeferClose(func() error { return s.cache.Close() })
		}
	}

	if err := s.initPresence(ctx); err != nil {
		return err
	}

	s.results = resultapi.New(resultapi.Config{
		BaseURL: s.cfg.ResultAPIURL,
		Timeout: s.cfg.ResultAPITimeout,
	}, s.logger)
	if s.cache != nil {
		s.results.SetCache(s.cache)
	}

	s.planner = planner.New(s.results, s.lobbies, s.bus, planner.DefaultIdleTimeout, s.logger)
	s.api = api.New([]byte(s.cfg.JWTSigningKey), s.cfg.TokenTTL, s.lobbies, s.planner, s.bus, s.logger)

	if s.natsBus != nil {
		s.feed = presence.NewFeed(s.natsBus.Conn(), s.lobbies, s.logger)
		s.feed.OnUpdate(s.onRemotePresence)
		if err := s.feed.Start(); err != nil {
			return fmt.Errorf("start presence feed: %w", err)
		}
		s.DeferClose(s.feed.Close)
	}

	return nil
}

func (s *Server) initEventBus() error {
	nodeID := eventbus.NodeID(s.cfg.InstanceID)

	switch s.cfg.EventBus {
	case config.EventBusNATS:
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsCfg.Name = "grouptrip-" + nodeID
		nb, err := eventbus.NewNATSBus(natsCfg, nodeID, s.logger)
		if err != nil {
			return fmt.Errorf("connect nats event bus: %w", err)
		}
		s.bus = nb
		s.natsBus = nb
		s.DeferClose(nb.Close)
	case config.EventBusRedis:
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		rb, err := eventbus.NewRedisBus(redisCfg, nodeID, s.logger)
		if err != nil {
			return fmt.Errorf("connect redis event bus: %w", err)
		}
		s.bus = rb
		s.DeferClose(rb.Close)
	default:
		s.bus = events.NewBus()
	}

	s.logger.Info().Str("backend", string(s.cfg.EventBus)).Str("node_id", nodeID).Msg("event bus ready")
	return nil
}

func (s *Server) initPresence(ctx context.Context) error {
	var store presence.Store
	switch s.cfg.PresenceBackend {
	case config.PresenceStore:
		database, err := db.Connect(s.cfg)
		if err != nil {
			return err
		}
		s.db = database
		s.DeferClose(func() error { return db.Close(database) })
		if err := db.Migrate(database); err != nil {
			return err
		}
		store = presence.NewStoreSource(database)
	default:
		store = presence.NewMemorySource()
	}

	seed, err := s.seedLobbies()
	if err != nil {
		return err
	}
	if len(seed) > 0 {
		if err := store.Seed(ctx, seed); err != nil {
			return fmt.Errorf("seed lobbies: %w", err)
		}
	}

	if s.cache != nil {
		s.cachedLobbies = presence.NewCachedStore(store, s.cache, s.logger)
		store = s.cachedLobbies
	}
	s.lobbies = store

	s.logger.Info().
		Str("backend", string(s.cfg.PresenceBackend)).
		Int("seeded", len(seed)).
		Msg("lobby presence ready")
	return nil
}

// seedLobbies returns the configured seed. The in-memory backend falls back
// to the demo lobby so a bare instance is usable.
func (s *Server) seedLobbies() ([]presence.Lobby, error) {
	if s.cfg.LobbySeedPath != "" {
		lobbies, err := presence.LoadSeed(s.cfg.LobbySeedPath)
		if err != nil {
			return nil, fmt.Errorf("load lobby seed: %w", err)
		}
		return lobbies, nil
	}
	if s.cfg.PresenceBackend == config.PresenceMemory {
		return presence.DemoLobbies(), nil
	}
	return nil, nil
}

// onRemotePresence handles presence updates that arrived over NATS.
func (s *Server) onRemotePresence(lobby *presence.Lobby, upd presence.Update) {
	presence.Announce(s.bus, lobby, upd)
	if upd.Kind == presence.UpdateWindow {
		s.planner.ApplyWindow(lobby, "")
	}
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer exposes the Prometheus listener, nil when disabled.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.planner.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("planner reaper exited")
		}
	}()

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}

	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				db.UpdateConnectionMetrics(s.db)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
}

// runCacheInvalidationListener drops cached entries when events, including
// those mirrored from other instances, show they are stale.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	lobbyTypes := []events.EventType{
		events.EventLobbyJoined,
		events.EventLobbyReady,
		events.EventLobbyFinished,
		events.EventLobbyWindow,
	}
	lobbySubs := make([]events.Subscriber, len(lobbyTypes))
	for i, t := range lobbyTypes {
		lobbySubs[i] = s.bus.Subscribe(t)
	}
	discarded := s.bus.Subscribe(events.EventItineraryDiscarded)

	defer func() {
		for i, t := range lobbyTypes {
			s.bus.Unsubscribe(t, lobbySubs[i])
		}
		s.bus.Unsubscribe(events.EventItineraryDiscarded, discarded)
	}()

	// Fan the lobby subscriptions into one channel.
	lobbyChanged := make(chan string, 64)
	for _, sub := range lobbySubs {
		go func(sub events.Subscriber) {
			for payload := range sub {
				if lobbyID, ok := payload["lobby_id"].(string); ok {
					select {
					case lobbyChanged <- lobbyID:
					default:
					}
				}
			}
		}(sub)
	}

	s.logger.Info().Msg("cache invalidation listener started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return

		case lobbyID := <-lobbyChanged:
			if s.cachedLobbies != nil {
				s.cachedLobbies.Invalidate(ctx, lobbyID)
			}

		case payload, ok := <-discarded:
			if !ok {
				return
			}
			if lobbyID, ok := payload["lobby_id"].(string); ok {
				s.logger.Debug().Str("lobby_id", lobbyID).Msg("invalidating itinerary cache (session discarded)")
				if err := s.cache.InvalidateItinerary(ctx, lobbyID); err != nil {
					s.logger.Debug().Err(err).Str("lobby_id", lobbyID).Msg("failed to invalidate itinerary cache")
				}
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","event_bus":%q}`, s.cfg.EventBus)
	})

	s.api.Routes(s.router)
}
