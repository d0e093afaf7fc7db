// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package chat

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nybras/domus/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func newTestHub() *Hub {
	return NewHub(Config{SendBuffer: 16})
}

// drainEvents empties a client's send buffer and returns what was queued.
func drainEvents(c *Client) []Event {
	var events []Event
	for {
		select {
		case ev := <-c.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func lastEventOfType(events []Event, eventType string) (Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return events[i], true
		}
	}
	return Event{}, false
}

func decodeOnlineUsers(t *testing.T, ev Event) []string {
	t.Helper()
	var users []string
	if err := json.Unmarshal(ev.Data, &users); err != nil {
		t.Fatalf("decode online_users payload: %v", err)
	}
	return users
}

func TestAnnounceOnlineBroadcastsPresence(t *testing.T) {
	h := newTestHub()
	a := NewClient(h, nil, "user-a")
	b := NewClient(h, nil, "user-b")
	h.register(a)
	h.register(b)

	h.AnnounceOnline(a, "user-a")
	h.AnnounceOnline(b, "user-b")

	if !h.IsOnline("user-a") || !h.IsOnline("user-b") {
		t.Fatal("both users should be online")
	}

	got := h.OnlineUsers()
	want := []string{"user-a", "user-b"}
	if len(got) != len(want) {
		t.Fatalf("OnlineUsers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("OnlineUsers()[%d] = %q, want %q (sorted)", i, got[i], want[i])
		}
	}

	// Every connected client sees the broadcast, announcer included.
	for _, c := range []*Client{a, b} {
		ev, ok := lastEventOfType(drainEvents(c), EventOnlineUsers)
		if !ok {
			t.Fatalf("client %s received no online_users event", c.id)
		}
		if users := decodeOnlineUsers(t, ev); len(users) != 2 {
			t.Errorf("client %s saw %v, want both users", c.id, users)
		}
	}
}

func TestReAnnounceSameUserIsHarmless(t *testing.T) {
	h := newTestHub()
	a := NewClient(h, nil, "user-a")
	h.register(a)

	h.AnnounceOnline(a, "user-a")
	h.AnnounceOnline(a, "user-a")

	if got := h.OnlineUsers(); len(got) != 1 {
		t.Errorf("OnlineUsers() = %v, want exactly one entry", got)
	}
}

func TestDisconnectRemovesPresenceAndRooms(t *testing.T) {
	h := newTestHub()
	a := NewClient(h, nil, "user-a")
	b := NewClient(h, nil, "user-b")
	h.register(a)
	h.register(b)
	h.AnnounceOnline(a, "user-a")
	h.AnnounceOnline(b, "user-b")
	h.JoinRoom(a, "room-1")
	h.JoinRoom(b, "room-1")

	h.unregister(a)

	if h.IsOnline("user-a") {
		t.Error("user-a still online after disconnect")
	}
	if !h.IsOnline("user-b") {
		t.Error("user-b dropped by user-a's disconnect")
	}
	if h.RoomSize("room-1") != 1 {
		t.Errorf("room size = %d, want 1", h.RoomSize("room-1"))
	}

	// The survivor observes the departure.
	ev, ok := lastEventOfType(drainEvents(b), EventOnlineUsers)
	if !ok {
		t.Fatal("no online_users broadcast after disconnect")
	}
	users := decodeOnlineUsers(t, ev)
	if len(users) != 1 || users[0] != "user-b" {
		t.Errorf("online users after disconnect = %v, want [user-b]", users)
	}
}

func TestReconnectRaceKeepsNewConnection(t *testing.T) {
	h := newTestHub()
	old := NewClient(h, nil, "user-a")
	h.register(old)
	h.AnnounceOnline(old, "user-a")

	// The user reconnects and re-announces before the old connection's
	// disconnect is processed.
	fresh := NewClient(h, nil, "user-a")
	h.register(fresh)
	h.AnnounceOnline(fresh, "user-a")

	// The stale disconnect arrives last. The presence scan matches by
	// connection ID, so the new registration must survive.
	h.unregister(old)

	if !h.IsOnline("user-a") {
		t.Fatal("user went offline despite an active newer connection")
	}
}

func TestDisconnectWithoutAnnounceIsNoOp(t *testing.T) {
	h := newTestHub()
	a := NewClient(h, nil, "user-a")
	b := NewClient(h, nil, "user-b")
	h.register(a)
	h.register(b)
	h.AnnounceOnline(b, "user-b")
	drainEvents(b)

	h.unregister(a)

	// No presence entry was removed, so no broadcast goes out.
	if _, ok := lastEventOfType(drainEvents(b), EventOnlineUsers); ok {
		t.Error("unexpected online_users broadcast for a client that never announced")
	}
}

func TestRelayMessageReachesRoomMembersExceptSender(t *testing.T) {
	h := newTestHub()
	sender := NewClient(h, nil, "user-a")
	member := NewClient(h, nil, "user-b")
	outsider := NewClient(h, nil, "user-c")
	h.register(sender)
	h.register(member)
	h.register(outsider)
	h.JoinRoom(sender, "room-1")
	h.JoinRoom(member, "room-1")
	h.JoinRoom(outsider, "room-2")

	payload := json.RawMessage(`{"text":"is it still available?"}`)
	h.RelayMessage(sender, "room-1", payload)

	ev, ok := lastEventOfType(drainEvents(member), EventReceiveMessage)
	if !ok {
		t.Fatal("room member received no message")
	}
	var data MessageData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatalf("decode message payload: %v", err)
	}
	if data.ChatID != "room-1" {
		t.Errorf("chatId = %q, want room-1", data.ChatID)
	}
	if string(data.Message) != string(payload) {
		t.Errorf("message relayed as %s, want verbatim %s", data.Message, payload)
	}

	if _, ok := lastEventOfType(drainEvents(sender), EventReceiveMessage); ok {
		t.Error("sender received its own message")
	}
	if _, ok := lastEventOfType(drainEvents(outsider), EventReceiveMessage); ok {
		t.Error("non-member received the message")
	}
}

func TestRelayTyping(t *testing.T) {
	h := newTestHub()
	sender := NewClient(h, nil, "user-a")
	member := NewClient(h, nil, "user-b")
	h.register(sender)
	h.register(member)
	h.JoinRoom(sender, "room-1")
	h.JoinRoom(member, "room-1")

	h.RelayTyping(sender, "room-1", "user-a", false)
	h.RelayTyping(sender, "room-1", "user-a", true)

	events := drainEvents(member)
	if _, ok := lastEventOfType(events, EventUserTyping); !ok {
		t.Error("member received no user_typing event")
	}
	stop, ok := lastEventOfType(events, EventUserStopTyping)
	if !ok {
		t.Fatal("member received no user_stop_typing event")
	}
	var data TypingData
	if err := json.Unmarshal(stop.Data, &data); err != nil {
		t.Fatalf("decode typing payload: %v", err)
	}
	if data.UserID != "user-a" || data.ChatID != "room-1" {
		t.Errorf("typing payload = %+v", data)
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := newTestHub()
	sender := NewClient(h, nil, "user-a")
	member := NewClient(h, nil, "user-b")
	h.register(sender)
	h.register(member)
	h.JoinRoom(sender, "room-1")
	h.JoinRoom(member, "room-1")

	h.LeaveRoom(member, "room-1")
	h.RelayMessage(sender, "room-1", json.RawMessage(`{}`))

	if _, ok := lastEventOfType(drainEvents(member), EventReceiveMessage); ok {
		t.Error("member received a message after leaving the room")
	}
	// Leaving a room never a member of is a no-op.
	h.LeaveRoom(member, "no-such-room")
}

func TestEmptyRoomIsGarbageCollected(t *testing.T) {
	h := newTestHub()
	a := NewClient(h, nil, "user-a")
	h.register(a)
	h.JoinRoom(a, "room-1")
	h.LeaveRoom(a, "room-1")

	h.mu.RLock()
	_, exists := h.rooms["room-1"]
	h.mu.RUnlock()
	if exists {
		t.Error("empty room retained after last member left")
	}
}

func TestSlowClientFramesAreDropped(t *testing.T) {
	h := NewHub(Config{SendBuffer: 1})
	sender := NewClient(h, nil, "user-a")
	slow := NewClient(h, nil, "user-b")
	h.register(sender)
	h.register(slow)
	h.JoinRoom(sender, "room-1")
	h.JoinRoom(slow, "room-1")

	// Second message overflows the buffer of 1 and must be dropped, not
	// block the relay.
	done := make(chan struct{})
	go func() {
		h.RelayMessage(sender, "room-1", json.RawMessage(`{"n":1}`))
		h.RelayMessage(sender, "room-1", json.RawMessage(`{"n":2}`))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay blocked on a full client buffer")
	}

	if got := len(drainEvents(slow)); got != 1 {
		t.Errorf("slow client buffered %d frames, want 1", got)
	}
}

func TestDeliverRemoteSkipsNoSenderExclusion(t *testing.T) {
	h := newTestHub()
	a := NewClient(h, nil, "user-a")
	h.register(a)
	h.JoinRoom(a, "room-1")

	ev := NewEvent(EventReceiveMessage, MessageData{ChatID: "room-1", Message: json.RawMessage(`{}`)})
	h.DeliverRemote("room-1", ev)

	if _, ok := lastEventOfType(drainEvents(a), EventReceiveMessage); !ok {
		t.Error("remote event not delivered to local room member")
	}
}

func TestRunWithContextShutdown(t *testing.T) {
	h := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.RunWithContext(ctx) }()

	a := NewClient(h, nil, "user-a")
	h.Register <- a

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on context cancellation")
	}

	if h.ClientCount() != 0 {
		t.Errorf("client count = %d after shutdown, want 0", h.ClientCount())
	}
	// The send channel is closed so the write pump exits.
	if _, open := <-a.send; open {
		t.Error("client send channel still open after shutdown")
	}
}
