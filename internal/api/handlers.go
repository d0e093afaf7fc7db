// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

// Package api implements the HTTP surface of Domus: the REST endpoints,
// the websocket chat endpoint, and the middleware stack around them.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nybras/domus/internal/auth"
	"github.com/nybras/domus/internal/chat"
	"github.com/nybras/domus/internal/config"
	"github.com/nybras/domus/internal/logging"
	"github.com/nybras/domus/internal/models"
	"github.com/nybras/domus/internal/recommend"
	"github.com/nybras/domus/internal/storage"
)

// Server holds the dependencies shared by all HTTP handlers.
type Server struct {
	cfg       *config.Config
	store     *storage.Store
	engine    *recommend.Engine
	hub       *chat.Hub
	persister *chat.Persister
	jwt       *auth.JWTManager
}

// NewServer creates the handler set. jwt may be nil only in development
// mode, which disables authentication entirely.
func NewServer(cfg *config.Config, store *storage.Store, engine *recommend.Engine, hub *chat.Hub, persister *chat.Persister, jwt *auth.JWTManager) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		engine:    engine,
		hub:       hub,
		persister: persister,
		jwt:       jwt,
	}
}

// respondJSON writes v as a JSON response body.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError writes a JSON error body with a stable shape.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps storage sentinel errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error, notFoundMsg, duplicateMsg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, storage.ErrDuplicate):
		respondError(w, http.StatusConflict, duplicateMsg)
	default:
		logging.Error().Err(err).Msg("storage error")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// pathUUID parses a UUID route parameter, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// subject returns the authenticated user ID, writing a 401 when absent or
// malformed. Handlers behind auth middleware can rely on it succeeding.
func subject(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims := auth.FromContext(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	id, err := claims.Subject()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token subject")
		return uuid.Nil, false
	}
	return id, true
}

// --- health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

// --- auth ---

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "name, email, and a password of at least 8 characters are required")
		return
	}

	// Admin accounts are provisioned out of band, never via signup.
	role := models.RoleUser
	if req.Role == string(models.RoleAgent) {
		role = models.RoleAgent
	}

	hash, err := auth.HashPassword(req.Password, s.cfg.Security.BcryptCost)
	if err != nil {
		logging.Error().Err(err).Msg("password hash failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Role:         role,
	}
	if err := s.store.InsertUser(r.Context(), user); err != nil {
		respondStoreError(w, err, "user not found", "email already registered")
		return
	}

	s.issueSession(w, r, user, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Same response as a bad password: do not leak which is wrong.
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondStoreError(w, err, "", "")
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.issueSession(w, r, user, http.StatusOK)
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		logging.Error().Err(err).Msg("token generation failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Server.Environment == "production",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.Security.SessionTimeout.Seconds()),
	})
	respondJSON(w, status, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err, "user not found", "")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar"`
	Bio    string `json:"bio"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	user := &models.User{
		ID:     userID,
		Name:   req.Name,
		Phone:  req.Phone,
		Avatar: req.Avatar,
		Bio:    req.Bio,
	}
	if err := s.store.UpdateUserProfile(r.Context(), user); err != nil {
		respondStoreError(w, err, "user not found", "")
		return
	}

	updated, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err, "user not found", "")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// --- properties ---

type propertyListResponse struct {
	Properties []*models.Property `json:"properties"`
	Total      int                `json:"total"`
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.PropertyFilter{
		ApprovedOnly: true,
		City:         q.Get("city"),
		PropertyType: models.PropertyType(q.Get("type")),
		Status:       models.ListingStatus(q.Get("status")),
		MinPrice:     queryFloat(q.Get("min_price")),
		MaxPrice:     queryFloat(q.Get("max_price")),
		MinBedrooms:  queryInt(q.Get("min_bedrooms")),
		Limit:        queryInt(q.Get("limit")),
		Offset:       queryInt(q.Get("offset")),
	}

	props, total, err := s.store.ListProperties(r.Context(), filter)
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	if props == nil {
		props = []*models.Property{}
	}
	respondJSON(w, http.StatusOK, propertyListResponse{Properties: props, Total: total})
}

func (s *Server) handleFeaturedProperties(w http.ResponseWriter, r *http.Request) {
	props, _, err := s.store.ListProperties(r.Context(), storage.PropertyFilter{
		ApprovedOnly: true,
		FeaturedOnly: true,
		Limit:        queryInt(r.URL.Query().Get("limit")),
	})
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	if props == nil {
		props = []*models.Property{}
	}
	respondJSON(w, http.StatusOK, props)
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}
	prop, err := s.store.PropertyByID(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}

	// Unapproved listings are visible only to their agent and admins.
	if !prop.IsApproved && !s.canManageProperty(r, prop) {
		respondError(w, http.StatusNotFound, "property not found")
		return
	}

	if err := s.store.IncrementPropertyViews(r.Context(), id); err != nil {
		logging.Warn().Err(err).Str("property_id", id.String()).Msg("view count update failed")
	}
	respondJSON(w, http.StatusOK, prop)
}

type propertyRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	PropertyType string   `json:"property_type"`
	Status       string   `json:"status"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    int      `json:"bathrooms"`
	Area         float64  `json:"area"`
	Amenities    []string `json:"amenities"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Pincode      string   `json:"pincode"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Images       []string `json:"images"`
}

func (req *propertyRequest) validate() string {
	if strings.TrimSpace(req.Title) == "" {
		return "title is required"
	}
	if req.Price <= 0 {
		return "price must be positive"
	}
	if !models.PropertyType(req.PropertyType).Valid() {
		return "unknown property type"
	}
	if !models.ListingStatus(req.Status).Valid() {
		return "unknown listing status"
	}
	if req.Bedrooms < 0 || req.Bathrooms < 0 || req.Area < 0 {
		return "bedrooms, bathrooms, and area must not be negative"
	}
	return ""
}

func (req *propertyRequest) apply(p *models.Property) {
	p.Title = req.Title
	p.Description = req.Description
	p.Price = req.Price
	p.PropertyType = models.PropertyType(req.PropertyType)
	p.Status = models.ListingStatus(req.Status)
	p.Bedrooms = req.Bedrooms
	p.Bathrooms = req.Bathrooms
	p.Area = req.Area
	p.Amenities = req.Amenities
	p.Address = req.Address
	p.City = req.City
	p.State = req.State
	p.Pincode = req.Pincode
	p.Latitude = req.Latitude
	p.Longitude = req.Longitude
	p.Images = req.Images
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	agentID, ok := subject(w, r)
	if !ok {
		return
	}
	var req propertyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	prop := &models.Property{AgentID: agentID}
	req.apply(prop)

	if err := s.store.InsertProperty(r.Context(), prop); err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	respondJSON(w, http.StatusCreated, prop)
}

func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}
	prop, err := s.store.PropertyByID(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}
	if !s.canManageProperty(r, prop) {
		respondError(w, http.StatusForbidden, "not your listing")
		return
	}

	var req propertyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	req.apply(prop)

	if err := s.store.UpdateProperty(r.Context(), prop); err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}
	respondJSON(w, http.StatusOK, prop)
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}
	prop, err := s.store.PropertyByID(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}
	if !s.canManageProperty(r, prop) {
		respondError(w, http.StatusForbidden, "not your listing")
		return
	}

	if err := s.store.DeleteProperty(r.Context(), id); err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAgentProperties(w http.ResponseWriter, r *http.Request) {
	agentID, ok := subject(w, r)
	if !ok {
		return
	}
	props, err := s.store.PropertiesByAgent(r.Context(), agentID)
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	if props == nil {
		props = []*models.Property{}
	}
	respondJSON(w, http.StatusOK, props)
}

// canManageProperty reports whether the request's identity owns the listing
// or holds the admin role.
func (s *Server) canManageProperty(r *http.Request, prop *models.Property) bool {
	claims := auth.FromContext(r.Context())
	if claims == nil {
		return false
	}
	if claims.Role == string(models.RoleAdmin) {
		return true
	}
	id, err := claims.Subject()
	return err == nil && id == prop.AgentID
}

func (s *Server) handleApproveProperty(w http.ResponseWriter, r *http.Request) {
	s.setModeration(w, r, s.store.SetPropertyApproved)
}

func (s *Server) handleFeatureProperty(w http.ResponseWriter, r *http.Request) {
	s.setModeration(w, r, s.store.SetPropertyFeatured)
}

func (s *Server) setModeration(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id uuid.UUID, v bool) error) {
	id, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}
	var req struct {
		Value bool `json:"value"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := set(r.Context(), id, req.Value); err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"value": req.Value})
}

// --- saved properties ---

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	props, err := s.store.SavedProperties(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	if props == nil {
		props = []*models.Property{}
	}
	respondJSON(w, http.StatusOK, props)
}

func (s *Server) handleSaveProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}

	if _, err := s.store.PropertyByID(r.Context(), propertyID); err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}

	saved, err := s.store.SaveProperty(r.Context(), userID, propertyID)
	if err != nil {
		respondStoreError(w, err, "property not found", "property already saved")
		return
	}
	// The saved set changed, so cached recommendations are stale.
	s.engine.Invalidate(userID)
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUnsaveProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}
	if err := s.store.UnsaveProperty(r.Context(), userID, propertyID); err != nil {
		respondStoreError(w, err, "property not saved", "")
		return
	}
	s.engine.Invalidate(userID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// --- recommendations ---

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	props, err := s.engine.RecommendForUser(r.Context(), userID, queryInt(r.URL.Query().Get("limit")))
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID.String()).Msg("recommendation failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, props)
}

// --- reviews ---

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}
	reviews, err := s.store.ReviewsForProperty(r.Context(), propertyID)
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	avg, count, err := s.store.AverageRating(r.Context(), propertyID)
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reviews":        reviews,
		"average_rating": avg,
		"count":          count,
	})
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		respondError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	if _, err := s.store.PropertyByID(r.Context(), propertyID); err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}

	review := &models.Review{
		PropertyID: propertyID,
		UserID:     userID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	if err := s.store.InsertReview(r.Context(), review); err != nil {
		respondStoreError(w, err, "property not found", "you already reviewed this property")
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

// --- inquiries ---

type inquiryRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (s *Server) handleCreateInquiry(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}
	var req inquiryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "name, email, and message are required")
		return
	}

	if _, err := s.store.PropertyByID(r.Context(), propertyID); err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}

	inquiry := &models.Inquiry{
		PropertyID: propertyID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Message:    req.Message,
	}
	if err := s.store.InsertInquiry(r.Context(), inquiry); err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	respondJSON(w, http.StatusCreated, inquiry)
}

func (s *Server) handleListInquiries(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := pathUUID(w, r, "propertyID")
	if !ok {
		return
	}
	prop, err := s.store.PropertyByID(r.Context(), propertyID)
	if err != nil {
		respondStoreError(w, err, "property not found", "")
		return
	}
	if !s.canManageProperty(r, prop) {
		respondError(w, http.StatusForbidden, "not your listing")
		return
	}

	inquiries, err := s.store.InquiriesForProperty(r.Context(), propertyID)
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	if inquiries == nil {
		inquiries = []*models.Inquiry{}
	}
	respondJSON(w, http.StatusOK, inquiries)
}

func (s *Server) handleSetInquiryStatus(w http.ResponseWriter, r *http.Request) {
	inquiryID, ok := pathUUID(w, r, "inquiryID")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	status := models.InquiryStatus(req.Status)
	switch status {
	case models.InquiryPending, models.InquiryAnswered, models.InquiryClosed:
	default:
		respondError(w, http.StatusBadRequest, "unknown inquiry status")
		return
	}

	if err := s.store.SetInquiryStatus(r.Context(), inquiryID, status); err != nil {
		respondStoreError(w, err, "inquiry not found", "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// --- conversations ---

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	convs, err := s.store.ConversationsForUser(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	respondJSON(w, http.StatusOK, convs)
}

type conversationRequest struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	PropertyID  uuid.UUID `json:"property_id"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req conversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RecipientID == uuid.Nil || req.PropertyID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "recipient_id and property_id are required")
		return
	}
	if req.RecipientID == userID {
		respondError(w, http.StatusBadRequest, "cannot start a conversation with yourself")
		return
	}

	conv, err := s.store.GetOrCreateConversation(r.Context(), userID, req.RecipientID, req.PropertyID)
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	conversationID, ok := pathUUID(w, r, "conversationID")
	if !ok {
		return
	}
	if !s.requireParticipant(w, r, conversationID, userID) {
		return
	}

	messages, err := s.store.Messages(r.Context(), conversationID, queryInt(r.URL.Query().Get("limit")))
	if err != nil {
		respondStoreError(w, err, "", "")
		return
	}
	if messages == nil {
		messages = []*models.ChatMessage{}
	}
	respondJSON(w, http.StatusOK, messages)
}

type messageRequest struct {
	Text string `json:"text"`
}

// handleSendMessage persists a message to the conversation. Real-time
// delivery happens separately over the websocket hub; clients that want
// live fan-out emit a send_message frame after this call succeeds.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	conversationID, ok := pathUUID(w, r, "conversationID")
	if !ok {
		return
	}
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if !s.requireParticipant(w, r, conversationID, userID) {
		return
	}

	msg := &models.ChatMessage{
		ConversationID: conversationID,
		SenderID:       userID,
		Text:           req.Text,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.persister.Persist(r.Context(), msg); err != nil {
		logging.Error().Err(err).Str("conversation_id", conversationID.String()).Msg("message persist failed")
		respondError(w, http.StatusServiceUnavailable, "message could not be stored")
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (s *Server) requireParticipant(w http.ResponseWriter, r *http.Request, conversationID, userID uuid.UUID) bool {
	isMember, err := s.store.IsParticipant(r.Context(), conversationID, userID)
	if err != nil {
		respondStoreError(w, err, "", "")
		return false
	}
	if !isMember {
		respondError(w, http.StatusForbidden, "not a conversation participant")
		return false
	}
	return true
}

// --- query helpers ---

func queryInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func queryFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
