// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
)

// newTestBridge wires two hubs to a shared in-process pub/sub, standing in
// for two server instances connected to the same broker.
func newTestBridge(t *testing.T, ctx context.Context) (*Hub, *Hub) {
	t.Helper()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	hubA := newTestHub()
	hubB := newTestHub()
	bridgeA := NewBridge(hubA, pubsub, pubsub, "chat.events.test")
	bridgeB := NewBridge(hubB, pubsub, pubsub, "chat.events.test")

	go func() { _ = bridgeA.Run(ctx) }()
	go func() { _ = bridgeB.Run(ctx) }()

	// Give both subscriptions a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)
	return hubA, hubB
}

func waitForEvent(t *testing.T, c *Client, eventType string) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.send:
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
		}
	}
}

func TestBridgeRelaysAcrossInstances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA, hubB := newTestBridge(t, ctx)

	sender := NewClient(hubA, nil, "user-a")
	remote := NewClient(hubB, nil, "user-b")
	hubA.register(sender)
	hubB.register(remote)
	hubA.JoinRoom(sender, "room-1")
	hubB.JoinRoom(remote, "room-1")

	payload := json.RawMessage(`{"text":"hello from instance A"}`)
	hubA.RelayMessage(sender, "room-1", payload)

	ev := waitForEvent(t, remote, EventReceiveMessage)
	var data MessageData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatalf("decode relayed payload: %v", err)
	}
	if data.ChatID != "room-1" || string(data.Message) != string(payload) {
		t.Errorf("relayed payload = %+v", data)
	}
}

func TestBridgeDiscardsOwnEcho(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA, _ := newTestBridge(t, ctx)

	sender := NewClient(hubA, nil, "user-a")
	local := NewClient(hubA, nil, "user-b")
	hubA.register(sender)
	hubA.register(local)
	hubA.JoinRoom(sender, "room-1")
	hubA.JoinRoom(local, "room-1")

	hubA.RelayMessage(sender, "room-1", json.RawMessage(`{"n":1}`))

	// The local member gets exactly one copy: the direct relay. The echo
	// coming back through the pub/sub is discarded by instance ID.
	waitForEvent(t, local, EventReceiveMessage)

	time.Sleep(100 * time.Millisecond)
	if events := drainEvents(local); len(events) != 0 {
		t.Errorf("local member received %d extra frames (echo not suppressed)", len(events))
	}
}

func TestBridgeMalformedEnvelopeIsIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	hub := newTestHub()
	bridge := NewBridge(hub, pubsub, pubsub, "chat.events.test")
	go func() { _ = bridge.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	member := NewClient(hub, nil, "user-a")
	hub.register(member)
	hub.JoinRoom(member, "room-1")

	if err := pubsub.Publish("chat.events.test", watermillMessage("not json")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if events := drainEvents(member); len(events) != 0 {
		t.Errorf("malformed envelope produced %d deliveries", len(events))
	}
}

func watermillMessage(payload string) *message.Message {
	return message.NewMessage(watermill.NewUUID(), []byte(payload))
}
