// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nybras/domus/internal/auth"
	"github.com/nybras/domus/internal/chat"
	"github.com/nybras/domus/internal/logging"
)

// handleWebsocket upgrades the connection and hands it to the chat hub.
// Authentication already ran in the middleware chain; the token's subject
// becomes the connection's bound identity.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.cfg.Security.CORSOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}

	var userID string
	if claims := auth.FromContext(r.Context()); claims != nil {
		userID = claims.UserID
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := chat.NewClient(s.hub, conn, userID)
	s.hub.Register <- client
	client.Start()
}
