// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

// Package metrics holds the process-wide Prometheus collectors.
//
// Collectors are registered on the default registry through promauto and
// exposed on /metrics by the API router.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbxdash_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fbxdash_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fbxdash_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fbxdash_websocket_connections",
			Help: "Current number of downstream WebSocket clients",
		},
	)

	WSBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbxdash_websocket_broadcasts_total",
			Help: "Total number of broadcast messages by type",
		},
		[]string{"type"},
	)

	WSDeadPeers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fbxdash_websocket_dead_peers_total",
			Help: "Total number of clients terminated by the liveness sweep",
		},
	)

	// Relay Metrics
	RelayFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbxdash_relay_fetches_total",
			Help: "Total number of relay snapshot fetches by kind and result",
		},
		[]string{"kind", "result"}, // kind: connection, system; result: success, failure, skipped
	)

	RelayPolling = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fbxdash_relay_polling",
			Help: "1 when the polling relay timers are running",
		},
	)

	// Native Event Bridge Metrics
	BridgeConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fbxdash_bridge_connected",
			Help: "1 when the native event WebSocket is open",
		},
	)

	BridgeReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fbxdash_bridge_reconnects_scheduled_total",
			Help: "Total number of native event reconnects scheduled",
		},
	)

	BridgeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbxdash_bridge_events_total",
			Help: "Total number of native events received by key",
		},
		[]string{"event"},
	)

	// EPG Cache Metrics
	EPGCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fbxdash_epg_cache_hits_total",
			Help: "Total number of EPG requests served from cache",
		},
	)

	EPGCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fbxdash_epg_cache_misses_total",
			Help: "Total number of EPG requests forwarded upstream",
		},
	)

	EPGCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fbxdash_epg_cache_evictions_total",
			Help: "Total number of expired EPG entries removed by the sweep",
		},
	)

	EPGCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fbxdash_epg_cache_entries",
			Help: "Current number of EPG cache entries",
		},
	)

	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbxdash_upstream_requests_total",
			Help: "Total number of requests sent to the box API",
		},
		[]string{"method", "result"}, // result: success, api_error, failure, rejected
	)

	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fbxdash_upstream_request_duration_seconds",
			Help:    "Duration of box API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fbxdash_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fbxdash_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	SessionLoggedIn = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fbxdash_session_logged_in",
			Help: "1 when the backend holds a valid box session",
		},
	)
)

// RecordAPIRequest records one served API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records one box API call.
func RecordUpstreamRequest(method, result string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(method, result).Inc()
	UpstreamDuration.Observe(duration.Seconds())
}

// BoolToFloat converts a flag to a gauge value.
func BoolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
