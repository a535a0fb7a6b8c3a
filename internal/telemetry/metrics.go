/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grouptrip"

var (
	// API metrics
	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "In-flight HTTP requests.",
	})

	APIWebSocketConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "websocket_connections",
		Help:      "Open event stream websocket connections.",
	})

	// Itinerary metrics
	ItineraryFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "itinerary",
		Name:      "fetch_total",
		Help:      "Itinerary fetches from the results backend by outcome.",
	}, []string{"outcome"})

	ItineraryFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "itinerary",
		Name:      "fetch_duration_seconds",
		Help:      "Latency of results backend itinerary requests.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	ItineraryMovesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "itinerary",
		Name:      "moves_total",
		Help:      "Reorder requests by outcome.",
	}, []string{"outcome"})

	ItineraryWarningsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "itinerary",
		Name:      "warnings_total",
		Help:      "Warnings raised by committed reorders, by kind.",
	}, []string{"kind"})

	PlannerSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "planner",
		Name:      "sessions_active",
		Help:      "Lobbies with an open itinerary session.",
	})

	// Presence metrics
	PresenceUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "presence",
		Name:      "updates_total",
		Help:      "Lobby presence updates by kind.",
	}, []string{"kind"})

	// Infrastructure metrics
	CacheOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Cache operations by operation and result.",
	}, []string{"operation", "result"})

	DatabaseQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "query_duration_seconds",
		Help:      "GORM operation latency by operation and table.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "errors_total",
		Help:      "Failed GORM operations by operation.",
	}, []string{"operation", "kind"})

	DatabaseConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "connections_active",
		Help:      "Open connections in the SQL pool.",
	})

	EventBusPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "eventbus",
		Name:      "published_total",
		Help:      "Events forwarded to the distributed bus by backend and result.",
	}, []string{"backend", "result"})
)

func init() {
	prometheus.MustRegister(
		APIRequestDuration,
		APIRequestsTotal,
		APIActiveConnections,
		APIWebSocketConnections,
		ItineraryFetchTotal,
		ItineraryFetchDuration,
		ItineraryMovesTotal,
		ItineraryWarningsTotal,
		PlannerSessionsActive,
		PresenceUpdatesTotal,
		CacheOperationsTotal,
		DatabaseQueryDuration,
		DatabaseErrorsTotal,
		DatabaseConnectionsActive,
		EventBusPublishedTotal,
	)
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
