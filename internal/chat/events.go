// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

// Package chat implements the real-time messaging hub: per-conversation
// rooms, an in-memory presence registry, and relay of message and typing
// events between connected clients. Persistence of messages is the storage
// layer's responsibility; the hub is pure relay with at-most-once,
// best-effort delivery.
package chat

import (
	"github.com/goccy/go-json"
)

// Client-to-server event types.
const (
	EventUserOnline  = "user_online"
	EventJoinChat    = "join_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
	EventPing        = "ping"
)

// Server-to-client event types.
const (
	EventOnlineUsers    = "online_users"
	EventReceiveMessage = "receive_message"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventPong           = "pong"
)

// Event is a websocket frame exchanged with clients and relayed across
// instances: a type tag plus a type-specific payload.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals data into an Event of the given type. Marshal failures
// cannot occur for the payload types used here; on error an empty payload
// is sent rather than no event at all.
func NewEvent(eventType string, data interface{}) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	return Event{Type: eventType, Data: raw}
}

// MessageData is the payload of send_message and receive_message events.
// Message carries the persisted message document verbatim; the hub relays
// it without inspecting its contents.
type MessageData struct {
	ChatID  string          `json:"chatId"`
	Message json.RawMessage `json:"message"`
}

// TypingData is the payload of typing, stop_typing, user_typing, and
// user_stop_typing events. No state is retained between the start and stop
// events; both are stateless relays.
type TypingData struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}
