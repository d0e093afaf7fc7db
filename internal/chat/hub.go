// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nybras/domus/internal/logging"
	"github.com/nybras/domus/internal/metrics"
)

// Config holds hub tunables.
type Config struct {
	// SendBuffer is the per-client outbound frame buffer size. When a
	// client's buffer is full the frame is dropped, never queued; this is
	// the documented at-most-once delivery contract.
	SendBuffer int

	// EventRate and EventBurst bound inbound events per connection.
	EventRate  float64
	EventBurst int

	// MaxMessageSize limits inbound frame size in bytes.
	MaxMessageSize int64
}

// DefaultConfig returns production-ready hub defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:     256,
		EventRate:      20,
		EventBurst:     40,
		MaxMessageSize: 64 * 1024,
	}
}

// RoomPublisher forwards locally relayed room events to other instances.
// Implemented by Bridge; nil when the process runs standalone.
type RoomPublisher interface {
	PublishRoomEvent(room string, ev Event)
}

// Hub owns all real-time chat state for one process: the connected client
// set, room membership tables, and the presence registry. All three are
// guarded by a single mutex; every mutation (including the scan-and-delete
// on disconnect) is a critical section, so interleaved connect/disconnect
// events for the same user cannot leave stale or duplicate presence
// entries.
//
// Room membership is connection-scoped, not user-scoped: a user with two
// open clients has two independent memberships.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	rooms    map[string]map[*Client]bool
	presence map[string]string // user ID -> connection ID

	Register   chan *Client
	Unregister chan *Client

	instanceID string
	publisher  RoomPublisher
	cfg        Config
}

// NewHub creates a hub with the given configuration.
func NewHub(cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.EventRate <= 0 {
		cfg.EventRate = 20
	}
	if cfg.EventBurst <= 0 {
		cfg.EventBurst = 40
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		presence:   make(map[string]string),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		instanceID: uuid.New().String(),
		cfg:        cfg,
	}
}

// InstanceID identifies this hub instance in cross-instance relay
// envelopes, so a bridge can discard its own echoes.
func (h *Hub) InstanceID() string {
	return h.instanceID
}

// SetPublisher attaches the cross-instance relay. Must be called before
// clients connect.
func (h *Hub) SetPublisher(p RoomPublisher) {
	h.publisher = p
}

// RunWithContext processes client lifecycle events until the context is
// canceled, then closes all clients and returns ctx.Err(). Designed for
// suture supervision.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Shutdown has priority over pending lifecycle events.
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()

		case client := <-h.Register:
			h.register(client)

		case client := <-h.Unregister:
			h.unregister(client)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().
		Str("conn_id", c.id).
		Str("user_id", c.userID).
		Int("total_clients", total).
		Msg("chat client connected")
}

// unregister removes the client from the client set, every room it joined,
// and the presence registry. The presence scan matches by connection ID,
// not user ID: if the user already reconnected and re-announced on a new
// connection, the registry points at the new connection and this scan finds
// nothing, which is the correct outcome for the reconnect race. A scan miss
// is a silent no-op (the client may never have announced).
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)

	for roomID, members := range h.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}

	removed := false
	for userID, connID := range h.presence {
		if connID == c.id {
			delete(h.presence, userID)
			removed = true
			break
		}
	}

	total := len(h.clients)
	if removed {
		h.broadcastOnlineUsersLocked()
	}
	h.updateGaugesLocked()
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().
		Str("conn_id", c.id).
		Int("total_clients", total).
		Msg("chat client disconnected")
}

// AnnounceOnline registers (or overwrites) the presence entry for userID
// with the announcing connection and broadcasts the full online-user set to
// every connected client. Re-announcing the same mapping is harmless.
func (h *Hub) AnnounceOnline(c *Client, userID string) {
	h.mu.Lock()
	h.presence[userID] = c.id
	h.broadcastOnlineUsersLocked()
	h.updateGaugesLocked()
	h.mu.Unlock()

	logging.Debug().Str("user_id", userID).Str("conn_id", c.id).Msg("user online")
}

// JoinRoom adds the connection to the room's delivery group. No-op if
// already a member. Authorization (is this user a conversation
// participant?) is enforced by the API layer before the connection is
// allowed to emit this event.
func (h *Hub) JoinRoom(c *Client, roomID string) {
	if roomID == "" {
		return
	}
	h.mu.Lock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[roomID] = members
	}
	members[c] = true
	h.updateGaugesLocked()
	h.mu.Unlock()
}

// LeaveRoom removes the connection from the room. No-op if not a member.
func (h *Hub) LeaveRoom(c *Client, roomID string) {
	h.mu.Lock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.updateGaugesLocked()
	h.mu.Unlock()
}

// RelayMessage delivers a receive_message event to every room member
// except the sender, then forwards it to other instances. The message
// payload is relayed verbatim; persistence happens in the calling layer
// before this relay.
func (h *Hub) RelayMessage(sender *Client, roomID string, message json.RawMessage) {
	ev := NewEvent(EventReceiveMessage, MessageData{ChatID: roomID, Message: message})
	h.relayToRoom(sender, roomID, ev)
	metrics.ChatEventsRelayed.WithLabelValues(EventReceiveMessage).Inc()
}

// RelayTyping delivers a transient typing indicator to every other room
// member. Nothing is retained between typing and stop_typing.
func (h *Hub) RelayTyping(sender *Client, roomID, userID string, stop bool) {
	eventType := EventUserTyping
	if stop {
		eventType = EventUserStopTyping
	}
	ev := NewEvent(eventType, TypingData{ChatID: roomID, UserID: userID})
	h.relayToRoom(sender, roomID, ev)
	metrics.ChatEventsRelayed.WithLabelValues(eventType).Inc()
}

func (h *Hub) relayToRoom(sender *Client, roomID string, ev Event) {
	h.mu.RLock()
	h.sendToRoomLocked(roomID, ev, sender)
	h.mu.RUnlock()

	if h.publisher != nil {
		h.publisher.PublishRoomEvent(roomID, ev)
	}
}

// DeliverRemote injects an event that originated on another instance into
// the local room. No sender exclusion: the originating connection is not
// local by definition.
func (h *Hub) DeliverRemote(roomID string, ev Event) {
	h.mu.RLock()
	h.sendToRoomLocked(roomID, ev, nil)
	h.mu.RUnlock()
}

// sendToRoomLocked delivers ev to room members except the excluded sender.
// Members are visited in connection-ID order so delivery order is
// deterministic for a given membership set. Caller holds at least a read
// lock.
func (h *Hub) sendToRoomLocked(roomID string, ev Event, except *Client) {
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}

	targets := make([]*Client, 0, len(members))
	for c := range members {
		if c == except {
			continue
		}
		targets = append(targets, c)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	for _, c := range targets {
		h.sendLocked(c, ev)
	}
}

// sendLocked queues ev to a client without blocking. A full buffer means
// the client is too slow; the frame is dropped and counted, never retried.
func (h *Hub) sendLocked(c *Client, ev Event) {
	select {
	case c.send <- ev:
	default:
		metrics.ChatFramesDropped.Inc()
		logging.Warn().Str("conn_id", c.id).Str("event", ev.Type).Msg("client buffer full, dropping frame")
	}
}

// broadcastOnlineUsersLocked sends the current online-user set to every
// connected client. The snapshot reflects registry state at the moment of
// broadcast; no sequence number is attached, so a client may observe
// presence updates out of emission order if the transport reorders frames.
func (h *Hub) broadcastOnlineUsersLocked() {
	ev := NewEvent(EventOnlineUsers, h.onlineUsersLocked())

	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	for _, c := range targets {
		h.sendLocked(c, ev)
	}
}

func (h *Hub) onlineUsersLocked() []string {
	users := make([]string, 0, len(h.presence))
	for userID := range h.presence {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

func (h *Hub) updateGaugesLocked() {
	metrics.OnlineUsers.Set(float64(len(h.presence)))
	metrics.ChatRooms.Set(float64(len(h.rooms)))
}

// OnlineUsers returns the sorted set of user IDs currently registered as
// online.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onlineUsersLocked()
}

// IsOnline reports whether the user has a presence entry.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.presence[userID]
	return ok
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of connections joined to a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	count := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.rooms = make(map[string]map[*Client]bool)
	h.presence = make(map[string]string)
	h.updateGaugesLocked()
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	logging.Info().
		Str("component", "chat-hub").
		Int("clients_closed", count).
		Msg("chat hub stopped")
}
