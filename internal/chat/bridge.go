// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package chat

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/nybras/domus/internal/logging"
	"github.com/nybras/domus/internal/metrics"
)

// DefaultBridgeTopic is the pub/sub topic chat events are relayed on.
const DefaultBridgeTopic = "chat.events"

// Envelope wraps a room event for cross-instance relay. Origin is the
// publishing hub's instance ID so subscribers can discard their own echoes.
type Envelope struct {
	Origin string `json:"origin"`
	Room   string `json:"room"`
	Event  Event  `json:"event"`
}

// Bridge relays room events between hub instances over a Watermill
// publisher/subscriber pair (NATS JetStream in production, gochannel in
// tests). Delivery inherits the transport's guarantees: at-most-once from
// the hub's perspective, no cross-room ordering.
type Bridge struct {
	hub        *Hub
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
}

// NewBridge wires a bridge to the hub and registers it as the hub's room
// publisher.
func NewBridge(hub *Hub, publisher message.Publisher, subscriber message.Subscriber, topic string) *Bridge {
	if topic == "" {
		topic = DefaultBridgeTopic
	}
	b := &Bridge{
		hub:        hub,
		publisher:  publisher,
		subscriber: subscriber,
		topic:      topic,
	}
	hub.SetPublisher(b)
	return b
}

// PublishRoomEvent implements RoomPublisher. Publish failures are logged
// and dropped: remote delivery is best-effort and never blocks or fails
// the local relay.
func (b *Bridge) PublishRoomEvent(room string, ev Event) {
	payload, err := json.Marshal(Envelope{
		Origin: b.hub.InstanceID(),
		Room:   room,
		Event:  ev,
	})
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal relay envelope")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.publisher.Publish(b.topic, msg); err != nil {
		logging.Warn().Err(err).Str("room", room).Msg("failed to publish relay event")
		return
	}
	metrics.ChatBridgePublished.Inc()
}

// Run subscribes to the relay topic and injects remote events into local
// rooms until the context is canceled or the subscription closes.
func (b *Bridge) Run(ctx context.Context) error {
	messages, err := b.subscriber.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.topic, err)
	}

	logging.Info().Str("topic", b.topic).Msg("chat relay bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.handle(msg)
		}
	}
}

func (b *Bridge) handle(msg *message.Message) {
	defer msg.Ack()

	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		logging.Warn().Err(err).Msg("malformed relay envelope")
		return
	}

	// Discard our own echo.
	if env.Origin == b.hub.InstanceID() {
		return
	}

	b.hub.DeliverRemote(env.Room, env.Event)
	metrics.ChatBridgeDelivered.Inc()
}

// Close releases the underlying transport resources.
func (b *Bridge) Close() error {
	var firstErr error
	if err := b.publisher.Close(); err != nil {
		firstErr = err
	}
	if err := b.subscriber.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
