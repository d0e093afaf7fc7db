// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

// Package metrics provides Prometheus instrumentation for Domus:
// HTTP endpoint latency and throughput, real-time chat hub activity,
// and recommendation engine performance.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP endpoint metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domus_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "domus_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "domus_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Chat hub metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "domus_ws_connections",
			Help: "Current number of connected websocket clients",
		},
	)

	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "domus_chat_online_users",
			Help: "Current number of users in the presence registry",
		},
	)

	ChatRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "domus_chat_rooms",
			Help: "Current number of rooms with at least one member",
		},
	)

	ChatEventsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domus_chat_events_relayed_total",
			Help: "Total number of chat events relayed to room members",
		},
		[]string{"event"},
	)

	ChatFramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "domus_chat_frames_dropped_total",
			Help: "Total number of outbound frames dropped because a client buffer was full",
		},
	)

	ChatEventsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "domus_chat_events_throttled_total",
			Help: "Total number of inbound events rejected by the per-connection rate limiter",
		},
	)

	ChatBridgePublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "domus_chat_bridge_published_total",
			Help: "Total number of chat events published to the cross-instance relay",
		},
	)

	ChatBridgeDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "domus_chat_bridge_delivered_total",
			Help: "Total number of remote chat events delivered into local rooms",
		},
	)

	// Recommendation engine metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domus_recommend_requests_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"status"}, // "ok", "empty", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "domus_recommend_duration_seconds",
			Help:    "Recommendation computation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "domus_recommend_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "domus_recommend_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	// Persistence metrics
	MessagePersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "domus_chat_message_persist_failures_total",
			Help: "Total number of chat message persistence failures (including open circuit)",
		},
	)
)

// ObserveHTTPRequest records a completed HTTP request.
func ObserveHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
