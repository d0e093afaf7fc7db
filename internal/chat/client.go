// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package chat

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/nybras/domus/internal/logging"
	"github.com/nybras/domus/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is the middleman between one websocket connection and the hub.
// The connection ID is the presence registry value; the user ID is the
// authenticated subject bound at upgrade time.
type Client struct {
	id      string
	userID  string
	hub     *Hub
	conn    *websocket.Conn
	send    chan Event
	limiter *rate.Limiter
}

// NewClient creates a client for an upgraded connection. userID is the
// authenticated subject; it may be empty only when authentication is
// disabled (development mode), in which case the client-supplied
// user_online payload is trusted instead.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:      uuid.New().String(),
		userID:  userID,
		hub:     hub,
		conn:    conn,
		send:    make(chan Event, hub.cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(hub.cfg.EventRate), hub.cfg.EventBurst),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// UserID returns the authenticated subject bound to this connection.
func (c *Client) UserID() string {
	return c.userID
}

// Start begins the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump reads frames from the connection and dispatches them to the hub
// until the connection drops. Handler dispatch is synchronous: each event's
// hub mutation completes before the next frame is read.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("conn_id", c.id).Msg("unexpected websocket close")
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			logging.Warn().Err(err).Str("conn_id", c.id).Msg("malformed chat frame")
			continue
		}

		if !c.limiter.Allow() {
			metrics.ChatEventsThrottled.Inc()
			logging.Warn().Str("conn_id", c.id).Str("event", ev.Type).Msg("inbound event throttled")
			continue
		}

		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev Event) {
	switch ev.Type {
	case EventUserOnline:
		c.handleUserOnline(ev.Data)

	case EventJoinChat:
		if roomID := decodeString(ev.Data); roomID != "" {
			c.hub.JoinRoom(c, roomID)
		}

	case EventLeaveChat:
		if roomID := decodeString(ev.Data); roomID != "" {
			c.hub.LeaveRoom(c, roomID)
		}

	case EventSendMessage:
		var data MessageData
		if err := json.Unmarshal(ev.Data, &data); err != nil || data.ChatID == "" {
			return
		}
		c.hub.RelayMessage(c, data.ChatID, data.Message)

	case EventTyping, EventStopTyping:
		var data TypingData
		if err := json.Unmarshal(ev.Data, &data); err != nil || data.ChatID == "" {
			return
		}
		userID := data.UserID
		if c.userID != "" {
			userID = c.userID
		}
		c.hub.RelayTyping(c, data.ChatID, userID, ev.Type == EventStopTyping)

	case EventPing:
		select {
		case c.send <- Event{Type: EventPong}:
		default:
		}

	default:
		logging.Debug().Str("event", ev.Type).Str("conn_id", c.id).Msg("unknown chat event")
	}
}

// handleUserOnline binds presence to the authenticated identity. The
// client-supplied user ID is accepted only when it matches the token
// subject; on mismatch the token subject wins and the attempt is logged.
func (c *Client) handleUserOnline(data json.RawMessage) {
	claimed := decodeString(data)

	userID := c.userID
	if userID == "" {
		// Auth disabled: fall back to the client payload.
		userID = claimed
	} else if claimed != "" && claimed != userID {
		logging.Warn().
			Str("conn_id", c.id).
			Str("claimed", claimed).
			Str("authenticated", userID).
			Msg("presence user mismatch, using authenticated identity")
	}
	if userID == "" {
		return
	}
	c.hub.AnnounceOnline(c, userID)
}

// writePump writes queued frames and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(ev)
			if err != nil {
				logging.Error().Err(err).Str("event", ev.Type).Msg("failed to marshal frame")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// decodeString decodes a bare JSON string payload, tolerating an unquoted
// value for lenient clients.
func decodeString(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return string(data)
	}
	return s
}
