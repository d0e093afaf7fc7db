// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nybras/domus/internal/authz"
)

// NewRouter assembles the HTTP routing table. The enforcer guards
// role-gated route groups; the JWT manager authenticates everything under
// the protected groups.
func (s *Server) NewRouter(enforcer *authz.Enforcer) http.Handler {
	r := chi.NewRouter()
	rbac := authz.NewMiddleware(enforcer)

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(s.cfg.Security.RateLimitReqs, s.cfg.Security.RateLimitWindow))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Credential endpoints get a much stricter rate limit.
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(s.cfg.Security.AuthRateLimitReqs, s.cfg.Security.RateLimitWindow))
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
		})
		r.Post("/auth/logout", s.handleLogout)

		// Public catalog.
		r.Group(func(r chi.Router) {
			r.Use(s.jwt.OptionalMiddleware)
			r.Get("/properties", s.handleListProperties)
			r.Get("/properties/featured", s.handleFeaturedProperties)
			r.Get("/properties/{propertyID}", s.handleGetProperty)
			r.Get("/properties/{propertyID}/reviews", s.handleListReviews)
			r.Post("/properties/{propertyID}/inquiries", s.handleCreateInquiry)
		})

		// Authenticated user surface.
		r.Group(func(r chi.Router) {
			r.Use(s.jwt.Middleware)

			r.Get("/auth/me", s.handleMe)
			r.With(rbac.Require("profile", "write")).Put("/profile", s.handleUpdateProfile)

			r.With(rbac.Require("saved", "read")).Get("/saved", s.handleListSaved)
			r.With(rbac.Require("saved", "write")).Post("/saved/{propertyID}", s.handleSaveProperty)
			r.With(rbac.Require("saved", "write")).Delete("/saved/{propertyID}", s.handleUnsaveProperty)

			r.With(rbac.Require("recommendations", "read")).Get("/recommendations", s.handleRecommendations)

			r.With(rbac.Require("reviews", "write")).Post("/properties/{propertyID}/reviews", s.handleCreateReview)

			r.Route("/conversations", func(r chi.Router) {
				r.Use(rbac.Require("conversations", "read"))
				r.Get("/", s.handleListConversations)
				r.With(rbac.Require("conversations", "write")).Post("/", s.handleCreateConversation)
				r.Get("/{conversationID}/messages", s.handleListMessages)
				r.With(rbac.Require("conversations", "write")).Post("/{conversationID}/messages", s.handleSendMessage)
			})

			// Agent listing management.
			r.Group(func(r chi.Router) {
				r.Use(rbac.Require("properties", "write"))
				r.Post("/properties", s.handleCreateProperty)
				r.Put("/properties/{propertyID}", s.handleUpdateProperty)
				r.Delete("/properties/{propertyID}", s.handleDeleteProperty)
				r.Get("/agent/properties", s.handleAgentProperties)
			})
			r.Group(func(r chi.Router) {
				r.Use(rbac.Require("inquiries", "read"))
				r.Get("/properties/{propertyID}/inquiries", s.handleListInquiries)
				r.Put("/inquiries/{inquiryID}/status", s.handleSetInquiryStatus)
			})

			// Admin moderation.
			r.Group(func(r chi.Router) {
				r.Use(rbac.Require("properties", "moderate"))
				r.Post("/admin/properties/{propertyID}/approve", s.handleApproveProperty)
				r.Post("/admin/properties/{propertyID}/feature", s.handleFeatureProperty)
			})

			r.Get("/ws", s.handleWebsocket)
		})
	})

	return r
}
