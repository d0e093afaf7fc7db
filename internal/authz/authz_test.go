// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package authz

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/nybras/domus/internal/auth"
	"github.com/nybras/domus/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func TestEnforcerRoleGrants(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	tests := []struct {
		role     string
		resource string
		action   string
		want     bool
	}{
		{"user", "saved", "write", true},
		{"user", "recommendations", "read", true},
		{"user", "conversations", "write", true},
		{"user", "properties", "write", false},
		{"user", "properties", "moderate", false},
		{"user", "inquiries", "read", false},

		// Agents inherit the user grants and add listing management.
		{"agent", "properties", "write", true},
		{"agent", "inquiries", "read", true},
		{"agent", "saved", "write", true},
		{"agent", "properties", "moderate", false},

		// Admins inherit everything and add moderation.
		{"admin", "properties", "moderate", true},
		{"admin", "properties", "write", true},
		{"admin", "saved", "read", true},
		{"admin", "users", "read", true},

		{"visitor", "saved", "read", false},
		{"", "saved", "read", false},
	}

	for _, tt := range tests {
		got, err := e.Enforce(tt.role, tt.resource, tt.action)
		if err != nil {
			t.Fatalf("Enforce(%s, %s, %s): %v", tt.role, tt.resource, tt.action, err)
		}
		if got != tt.want {
			t.Errorf("Enforce(%s, %s, %s) = %v, want %v", tt.role, tt.resource, tt.action, got, tt.want)
		}
	}
}

func TestRequireMiddleware(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	mw := NewMiddleware(e)

	handler := mw.Require("properties", "write")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name  string
		role  string
		want  int
		claim bool
	}{
		{"agent allowed", "agent", http.StatusNoContent, true},
		{"admin allowed by inheritance", "admin", http.StatusNoContent, true},
		{"user forbidden", "user", http.StatusForbidden, true},
		{"no claims forbidden", "", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/properties", nil)
			if tt.claim {
				claims := &auth.Claims{UserID: uuid.New().String(), Role: tt.role}
				r = r.WithContext(auth.WithClaims(r.Context(), claims))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
