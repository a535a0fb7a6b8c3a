/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resultapi fetches a lobby's generated itinerary from the results
// backend and maps it into itinerary activities.
package resultapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/friendsincode/grouptrip/internal/itinerary"
	"github.com/friendsincode/grouptrip/internal/telemetry"
)

const maxResponseBytes = 4 << 20

// Config configures the results backend client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Cache stores raw activity payloads per lobby.
type Cache interface {
	GetItinerary(ctx context.Context, lobbyID string) ([]map[string]any, bool)
	SetItinerary(ctx context.Context, lobbyID string, activities []map[string]any) error
}

// Client talks to the results backend.
type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
	logger  zerolog.Logger
}

type itineraryResponse struct {
	Data *struct {
		Activities []map[string]any `json:"activities"`
	} `json:"data"`
	Error string `json:"error"`
}

// New creates a results backend client.
func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With().Str("component", "resultapi").Logger(),
	}
}

// SetCache enables read-through caching of fetched payloads.
func (c *Client) SetCache(cache Cache) {
	c.cache = cache
}

// GetItinerary fetches and maps the itinerary for a lobby. It makes exactly
// one request and never retries.
func (c *Client) GetItinerary(ctx context.Context, lobbyID string) ([]itinerary.Activity, error) {
	if strings.TrimSpace(lobbyID) == "" {
		telemetry.ItineraryFetchTotal.WithLabelValues("missing_lobby").Inc()
		return nil, ErrMissingLobbyIdentifier
	}

	ctx, span := telemetry.StartSpan(ctx, "resultapi", "GetItinerary")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{"lobby_id": lobbyID})

	if c.cache != nil {
		if raw, ok := c.cache.GetItinerary(ctx, lobbyID); ok {
			telemetry.ItineraryFetchTotal.WithLabelValues("cache_hit").Inc()
			return MapActivities(raw), nil
		}
	}

	start := time.Now()
	raw, err := c.fetch(ctx, lobbyID)
	telemetry.ItineraryFetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ItineraryFetchTotal.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Str("lobby_id", lobbyID).Msg("itinerary fetch failed")
		return nil, err
	}
	telemetry.ItineraryFetchTotal.WithLabelValues("ok").Inc()

	if c.cache != nil {
		if err := c.cache.SetItinerary(ctx, lobbyID, raw); err != nil {
			c.logger.Debug().Err(err).Str("lobby_id", lobbyID).Msg("failed to cache itinerary")
		}
	}

	activities := MapActivities(raw)
	c.logger.Debug().Str("lobby_id", lobbyID).Int("activities", len(activities)).Msg("mapped itinerary activities")
	return activities, nil
}

func (c *Client) fetch(ctx context.Context, lobbyID string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/results/%s/itinerary", c.baseURL, url.PathEscape(lobbyID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetchFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailure, err)
	}

	var decoded itineraryResponse
	decodeErr := json.Unmarshal(body, &decoded)
	if decodeErr == nil && decoded.Error != "" {
		return nil, &RemoteError{Message: decoded.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailure, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrFetchFailure, decodeErr)
	}
	if decoded.Data == nil || decoded.Data.Activities == nil {
		return nil, ErrEmptyItinerary
	}

	return decoded.Data.Activities, nil
}
