// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/nybras/domus/internal/logging"
)

type contextKey string

const claimsKey contextKey = "auth.claims"

// SessionCookieName is the HTTP-only cookie the login handler sets.
const SessionCookieName = "domus_session"

// FromContext returns the authenticated claims attached by Middleware, or
// nil for unauthenticated requests.
func FromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// WithClaims attaches claims to a context. Exposed for handler tests.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Middleware validates the request's session token and stores its claims in
// the request context. Requests without a valid token are rejected with 401.
//
// The token is taken from, in order: the Authorization bearer header, the
// session cookie, and the "token" query parameter. The query parameter
// exists for websocket clients, whose browser API cannot set headers.
func (m *JWTManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		claims, err := m.ValidateToken(token)
		if err != nil {
			logging.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// OptionalMiddleware attaches claims when a valid token is present but lets
// anonymous requests through. Used on public endpoints that personalize
// their response for signed-in users.
func (m *JWTManager) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractToken(r); token != "" {
			if claims, err := m.ValidateToken(token); err == nil {
				r = r.WithContext(WithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}
