// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nybras/domus/internal/auth"
	"github.com/nybras/domus/internal/authz"
	"github.com/nybras/domus/internal/chat"
	"github.com/nybras/domus/internal/config"
	"github.com/nybras/domus/internal/logging"
	"github.com/nybras/domus/internal/models"
	"github.com/nybras/domus/internal/recommend"
	"github.com/nybras/domus/internal/storage"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type testEnv struct {
	server *httptest.Server
	store  *storage.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Environment = "development"
	cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Security.SessionTimeout = time.Hour
	cfg.Security.BcryptCost = 4
	cfg.Security.RateLimitReqs = 10_000
	cfg.Security.RateLimitWindow = time.Minute
	cfg.Security.AuthRateLimitReqs = 10_000
	cfg.Security.CORSOrigins = []string{"*"}

	store, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	enforcer, err := authz.NewEnforcer()
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}

	engine := recommend.NewEngine(store, store, recommend.DefaultConfig())
	hub := chat.NewHub(chat.DefaultConfig())
	persister := chat.NewPersister(store)

	srv := NewServer(cfg, store, engine, hub, persister, jwtManager)
	ts := httptest.NewServer(srv.NewRouter(enforcer))
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, store: store}
}

// call issues a JSON request and decodes the response into out (when
// non-nil), returning the status code.
func (e *testEnv) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (e *testEnv) register(t *testing.T, email, role string) sessionResponse {
	t.Helper()
	var out sessionResponse
	status := e.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Test " + role,
		"email":    email,
		"password": "hunter2hunter2",
		"role":     role,
	}, &out)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, status)
	}
	if out.Token == "" || out.User == nil {
		t.Fatalf("register %s: incomplete session %+v", email, out)
	}
	return out
}

func (e *testEnv) createProperty(t *testing.T, token string) *models.Property {
	t.Helper()
	var prop models.Property
	status := e.call(t, http.MethodPost, "/api/v1/properties", token, map[string]any{
		"title":         "3BHK in Koramangala",
		"price":         25_000_000,
		"property_type": "Apartment",
		"status":        "For Sale",
		"bedrooms":      3,
		"bathrooms":     2,
		"area":          1650,
		"city":          "Bengaluru",
	}, &prop)
	if status != http.StatusCreated {
		t.Fatalf("create property: status %d", status)
	}
	return &prop
}

func (e *testEnv) approve(t *testing.T, id uuid.UUID) {
	t.Helper()
	if err := e.store.SetPropertyApproved(context.Background(), id, true); err != nil {
		t.Fatalf("approve property: %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "asha@example.com", "user")

	var out sessionResponse
	status := env.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "asha@example.com",
		"password": "hunter2hunter2",
	}, &out)
	if status != http.StatusOK || out.Token == "" {
		t.Fatalf("login: status %d, token %q", status, out.Token)
	}

	// Wrong password and unknown account return the same status.
	for _, body := range []map[string]string{
		{"email": "asha@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "hunter2hunter2"},
	} {
		if status := env.call(t, http.MethodPost, "/api/v1/auth/login", "", body, nil); status != http.StatusUnauthorized {
			t.Errorf("bad login: status %d, want 401", status)
		}
	}

	var me models.User
	if status := env.call(t, http.MethodGet, "/api/v1/auth/me", out.Token, nil, &me); status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	if me.Email != "asha@example.com" {
		t.Errorf("me email = %q", me.Email)
	}
	if me.PasswordHash != "" {
		t.Error("password hash leaked in response")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "dupe@example.com", "user")

	status := env.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Dupe",
		"email":    "dupe@example.com",
		"password": "hunter2hunter2",
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("duplicate register: status %d, want 409", status)
	}
}

func TestRegisterNeverGrantsAdmin(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "sneaky@example.com", "admin")
	if session.User.Role != models.RoleUser {
		t.Errorf("role = %q, want user", session.User.Role)
	}
}

func TestPropertyLifecycleAndVisibility(t *testing.T) {
	env := newTestEnv(t)
	agent := env.register(t, "agent@example.com", "agent")
	user := env.register(t, "user@example.com", "user")

	// Plain users cannot create listings.
	status := env.call(t, http.MethodPost, "/api/v1/properties", user.Token, map[string]any{
		"title": "x", "price": 1, "property_type": "Apartment", "status": "For Sale",
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("user create property: status %d, want 403", status)
	}

	prop := env.createProperty(t, agent.Token)

	// New listings are unapproved and hidden from the public catalog.
	var list propertyListResponse
	env.call(t, http.MethodGet, "/api/v1/properties", "", nil, &list)
	if list.Total != 0 {
		t.Errorf("unapproved listing visible: total %d", list.Total)
	}
	if status := env.call(t, http.MethodGet, "/api/v1/properties/"+prop.ID.String(), user.Token, nil, nil); status != http.StatusNotFound {
		t.Errorf("unapproved detail for stranger: status %d, want 404", status)
	}
	// The owning agent still sees it.
	if status := env.call(t, http.MethodGet, "/api/v1/properties/"+prop.ID.String(), agent.Token, nil, nil); status != http.StatusOK {
		t.Errorf("unapproved detail for owner: status %d, want 200", status)
	}

	env.approve(t, prop.ID)
	env.call(t, http.MethodGet, "/api/v1/properties", "", nil, &list)
	if list.Total != 1 {
		t.Errorf("approved listing not visible: total %d", list.Total)
	}

	// Only the owner (or an admin) can update.
	update := map[string]any{
		"title": "3BHK, renovated", "price": 26_000_000,
		"property_type": "Apartment", "status": "For Sale",
		"bedrooms": 3, "bathrooms": 2, "area": 1650, "city": "Bengaluru",
	}
	otherAgent := env.register(t, "other-agent@example.com", "agent")
	if status := env.call(t, http.MethodPut, "/api/v1/properties/"+prop.ID.String(), otherAgent.Token, update, nil); status != http.StatusForbidden {
		t.Errorf("foreign agent update: status %d, want 403", status)
	}
	var updated models.Property
	if status := env.call(t, http.MethodPut, "/api/v1/properties/"+prop.ID.String(), agent.Token, update, &updated); status != http.StatusOK {
		t.Errorf("owner update: status %d", status)
	}
	if updated.Title != "3BHK, renovated" {
		t.Errorf("update not applied: %q", updated.Title)
	}

	if status := env.call(t, http.MethodDelete, "/api/v1/properties/"+prop.ID.String(), agent.Token, nil, nil); status != http.StatusOK {
		t.Errorf("owner delete: status %d", status)
	}
}

func TestPropertyValidation(t *testing.T) {
	env := newTestEnv(t)
	agent := env.register(t, "agent@example.com", "agent")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"price": 1e6, "property_type": "Apartment", "status": "For Sale"}},
		{"zero price", map[string]any{"title": "x", "price": 0, "property_type": "Apartment", "status": "For Sale"}},
		{"unknown type", map[string]any{"title": "x", "price": 1e6, "property_type": "Castle", "status": "For Sale"}},
		{"unknown status", map[string]any{"title": "x", "price": 1e6, "property_type": "Apartment", "status": "For Barter"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := env.call(t, http.MethodPost, "/api/v1/properties", agent.Token, tt.body, nil); status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}
}

func TestSavedAndRecommendations(t *testing.T) {
	env := newTestEnv(t)
	agent := env.register(t, "agent@example.com", "agent")
	user := env.register(t, "user@example.com", "user")

	// Seed a small catalog of near-identical apartments.
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		p := env.createProperty(t, agent.Token)
		env.approve(t, p.ID)
		ids = append(ids, p.ID)
	}

	// No saves yet: recommendations are empty, not an error.
	var recs []models.Property
	if status := env.call(t, http.MethodGet, "/api/v1/recommendations", user.Token, nil, &recs); status != http.StatusOK {
		t.Fatalf("recommendations: status %d", status)
	}
	if len(recs) != 0 {
		t.Errorf("recommendations before any save: %d", len(recs))
	}

	if status := env.call(t, http.MethodPost, "/api/v1/saved/"+ids[0].String(), user.Token, nil, nil); status != http.StatusCreated {
		t.Fatalf("save: status %d", status)
	}
	if status := env.call(t, http.MethodPost, "/api/v1/saved/"+ids[0].String(), user.Token, nil, nil); status != http.StatusConflict {
		t.Errorf("double save: status %d, want 409", status)
	}

	var saved []models.Property
	env.call(t, http.MethodGet, "/api/v1/saved", user.Token, nil, &saved)
	if len(saved) != 1 || saved[0].ID != ids[0] {
		t.Errorf("saved = %v", saved)
	}

	// Saved listings are excluded from the recommendations.
	if status := env.call(t, http.MethodGet, "/api/v1/recommendations", user.Token, nil, &recs); status != http.StatusOK {
		t.Fatalf("recommendations: status %d", status)
	}
	if len(recs) != 2 {
		t.Fatalf("recommendations = %d, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.ID == ids[0] {
			t.Error("saved listing recommended back")
		}
	}

	if status := env.call(t, http.MethodDelete, "/api/v1/saved/"+ids[0].String(), user.Token, nil, nil); status != http.StatusOK {
		t.Errorf("unsave: status %d", status)
	}

	// Anonymous access is rejected.
	if status := env.call(t, http.MethodGet, "/api/v1/recommendations", "", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("anonymous recommendations: status %d, want 401", status)
	}
}

func TestReviewsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	agent := env.register(t, "agent@example.com", "agent")
	user := env.register(t, "user@example.com", "user")
	prop := env.createProperty(t, agent.Token)
	env.approve(t, prop.ID)

	base := "/api/v1/properties/" + prop.ID.String() + "/reviews"

	if status := env.call(t, http.MethodPost, base, user.Token, map[string]any{"rating": 9}, nil); status != http.StatusBadRequest {
		t.Errorf("out-of-range rating: status %d, want 400", status)
	}
	if status := env.call(t, http.MethodPost, base, user.Token, map[string]any{"rating": 4, "comment": "airy"}, nil); status != http.StatusCreated {
		t.Fatalf("create review: status %d", status)
	}
	if status := env.call(t, http.MethodPost, base, user.Token, map[string]any{"rating": 5}, nil); status != http.StatusConflict {
		t.Errorf("second review: status %d, want 409", status)
	}

	var out struct {
		Reviews       []models.Review `json:"reviews"`
		AverageRating float64         `json:"average_rating"`
		Count         int             `json:"count"`
	}
	if status := env.call(t, http.MethodGet, base, "", nil, &out); status != http.StatusOK {
		t.Fatalf("list reviews: status %d", status)
	}
	if out.Count != 1 || out.AverageRating != 4 {
		t.Errorf("reviews summary = %+v", out)
	}
}

func TestInquiriesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	agent := env.register(t, "agent@example.com", "agent")
	prop := env.createProperty(t, agent.Token)
	env.approve(t, prop.ID)

	base := "/api/v1/properties/" + prop.ID.String() + "/inquiries"

	// Visitors submit inquiries without an account.
	status := env.call(t, http.MethodPost, base, "", map[string]string{
		"name":    "Walk-in Visitor",
		"email":   "visitor@example.com",
		"message": "Can I visit this weekend?",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create inquiry: status %d", status)
	}

	// Only the listing's agent reads them.
	user := env.register(t, "user@example.com", "user")
	if status := env.call(t, http.MethodGet, base, user.Token, nil, nil); status != http.StatusForbidden {
		t.Errorf("non-agent inquiry list: status %d, want 403", status)
	}
	var inquiries []models.Inquiry
	if status := env.call(t, http.MethodGet, base, agent.Token, nil, &inquiries); status != http.StatusOK {
		t.Fatalf("agent inquiry list: status %d", status)
	}
	if len(inquiries) != 1 || inquiries[0].Status != models.InquiryPending {
		t.Errorf("inquiries = %+v", inquiries)
	}

	statusPath := fmt.Sprintf("/api/v1/inquiries/%s/status", inquiries[0].ID)
	if status := env.call(t, http.MethodPut, statusPath, agent.Token, map[string]string{"status": "answered"}, nil); status != http.StatusOK {
		t.Errorf("set inquiry status: status %d", status)
	}
	if status := env.call(t, http.MethodPut, statusPath, agent.Token, map[string]string{"status": "bogus"}, nil); status != http.StatusBadRequest {
		t.Errorf("bogus inquiry status: status %d, want 400", status)
	}
}

func TestConversationsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	agent := env.register(t, "agent@example.com", "agent")
	user := env.register(t, "user@example.com", "user")
	stranger := env.register(t, "stranger@example.com", "user")
	prop := env.createProperty(t, agent.Token)
	env.approve(t, prop.ID)

	var conv models.Conversation
	status := env.call(t, http.MethodPost, "/api/v1/conversations", user.Token, map[string]string{
		"recipient_id": agent.User.ID.String(),
		"property_id":  prop.ID.String(),
	}, &conv)
	if status != http.StatusOK {
		t.Fatalf("create conversation: status %d", status)
	}

	msgPath := "/api/v1/conversations/" + conv.ID.String() + "/messages"

	var msg models.ChatMessage
	if status := env.call(t, http.MethodPost, msgPath, user.Token, map[string]string{"text": "still available?"}, &msg); status != http.StatusCreated {
		t.Fatalf("send message: status %d", status)
	}
	if msg.SenderID != user.User.ID {
		t.Errorf("sender = %v, want %v", msg.SenderID, user.User.ID)
	}

	// Non-participants are locked out of the thread.
	if status := env.call(t, http.MethodGet, msgPath, stranger.Token, nil, nil); status != http.StatusForbidden {
		t.Errorf("stranger read: status %d, want 403", status)
	}
	if status := env.call(t, http.MethodPost, msgPath, stranger.Token, map[string]string{"text": "hi"}, nil); status != http.StatusForbidden {
		t.Errorf("stranger write: status %d, want 403", status)
	}

	var messages []models.ChatMessage
	if status := env.call(t, http.MethodGet, msgPath, agent.Token, nil, &messages); status != http.StatusOK {
		t.Fatalf("participant read: status %d", status)
	}
	if len(messages) != 1 || messages[0].Text != "still available?" {
		t.Errorf("messages = %+v", messages)
	}

	var convs []models.Conversation
	env.call(t, http.MethodGet, "/api/v1/conversations", agent.Token, nil, &convs)
	if len(convs) != 1 || convs[0].LastMessage != "still available?" {
		t.Errorf("conversations = %+v", convs)
	}

	// Self-conversations are rejected.
	status = env.call(t, http.MethodPost, "/api/v1/conversations", user.Token, map[string]string{
		"recipient_id": user.User.ID.String(),
		"property_id":  prop.ID.String(),
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("self conversation: status %d, want 400", status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	var out map[string]any
	if status := env.call(t, http.MethodGet, "/health", "", nil, &out); status != http.StatusOK {
		t.Fatalf("health: status %d", status)
	}
	if out["status"] != "ok" {
		t.Errorf("health body = %v", out)
	}
}
