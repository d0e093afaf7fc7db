// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package chat

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nybras/domus/internal/metrics"
	"github.com/nybras/domus/internal/models"
)

// MessageStore persists chat messages. Satisfied by *storage.Store.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
}

// Persister writes messages through a circuit breaker so that a degraded
// store fails fast instead of stalling the API layer. The hub itself never
// persists; the calling layer persists before invoking the relay.
type Persister struct {
	store   MessageStore
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewPersister creates a message persister with breaker defaults tuned for
// a local SQLite store: trip after 5 consecutive failures, retry after 30s.
func NewPersister(store MessageStore) *Persister {
	settings := gobreaker.Settings{
		Name:    "chat-message-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Persister{
		store:   store,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Persist writes the message through the breaker. Callers decide whether a
// failure blocks the relay; the hub contract does not.
func (p *Persister) Persist(ctx context.Context, msg *models.ChatMessage) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.store.AppendMessage(ctx, msg)
	})
	if err != nil {
		metrics.MessagePersistFailures.Inc()
	}
	return err
}

// State returns the breaker state for health reporting.
func (p *Persister) State() string {
	return p.breaker.State().String()
}
