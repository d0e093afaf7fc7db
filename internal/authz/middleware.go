// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package authz

import (
	"net/http"

	"github.com/nybras/domus/internal/auth"
	"github.com/nybras/domus/internal/logging"
)

// Middleware enforces per-route authorization against the RBAC policy.
// It must run after auth.Middleware, which supplies the claims.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates authorization middleware over the enforcer.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Require rejects requests whose authenticated role lacks the
// (resource, action) grant. Missing claims are a 403, not a 401: the auth
// layer already ran, so an absent identity here is a routing mistake rather
// than a missing token.
func (m *Middleware) Require(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.FromContext(r.Context())
			if claims == nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			allowed, err := m.enforcer.Enforce(claims.Role, resource, action)
			if err != nil {
				logging.Error().Err(err).
					Str("role", claims.Role).
					Str("resource", resource).
					Str("action", action).
					Msg("authorization check failed")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
