// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nybras/domus/internal/logging"
	"github.com/nybras/domus/internal/metrics"
)

// statusRecorder captures the response status for metrics and logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records request counts, durations, and in-flight gauge
// per route pattern. Route patterns, not raw paths, keep label cardinality
// bounded.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPActiveRequests.Inc()
		defer metrics.HTTPActiveRequests.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.ObserveHTTPRequest(r.Method, pattern, rec.status, time.Since(start))
	})
}

// requestLogger logs completed requests at debug, and at warn for 5xx.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		evt := logging.Debug()
		if rec.status >= http.StatusInternalServerError {
			evt = logging.Warn()
		}
		evt.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}
