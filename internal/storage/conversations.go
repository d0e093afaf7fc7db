// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nybras/domus/internal/models"
)

const conversationColumns = `id, participants_json, property_id, last_message, created_at, updated_at`

// GetOrCreateConversation returns the conversation between two users about
// a property, creating it if none exists. The participant pair is
// order-insensitive: (a, b) and (b, a) resolve to the same thread.
func (s *Store) GetOrCreateConversation(ctx context.Context, a, b, propertyID uuid.UUID) (*models.Conversation, error) {
	// Canonical ordering keeps the unique index order-insensitive.
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}

	row := s.db.QueryRowContext(ctx, `
SELECT `+conversationColumns+` FROM conversations
WHERE participant_a = ? AND participant_b = ? AND property_id = ?`,
		first.String(), second.String(), propertyID.String())
	conv, err := scanConversation(row)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	conv = &models.Conversation{
		ID:           uuid.New(),
		Participants: []uuid.UUID{a, b},
		PropertyID:   propertyID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	participants, _ := json.Marshal(conv.Participants)

	_, err = s.db.ExecContext(ctx, `
INSERT INTO conversations (id, participants_json, participant_a, participant_b, property_id, last_message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, '', ?, ?)`,
		conv.ID.String(), string(participants), first.String(), second.String(),
		propertyID.String(), conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a create race; the winner's row is authoritative.
			row := s.db.QueryRowContext(ctx, `
SELECT `+conversationColumns+` FROM conversations
WHERE participant_a = ? AND participant_b = ? AND property_id = ?`,
				first.String(), second.String(), propertyID.String())
			return scanConversation(row)
		}
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// ConversationByID fetches one conversation.
func (s *Store) ConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id.String())
	return scanConversation(row)
}

// ConversationsForUser returns every conversation the user participates in,
// most recently active first.
func (s *Store) ConversationsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+conversationColumns+` FROM conversations
WHERE participant_a = ? OR participant_b = ?
ORDER BY updated_at DESC, id`, userID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("conversations for user: %w", err)
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// IsParticipant reports whether the user belongs to the conversation.
func (s *Store) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM conversations
WHERE id = ? AND (participant_a = ? OR participant_b = ?)`,
		conversationID.String(), userID.String(), userID.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is participant: %w", err)
	}
	return n > 0, nil
}

// AppendMessage persists a message and updates the conversation's
// last-message preview and activity timestamp in one transaction.
func (s *Store) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append message: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Update the preview first: zero rows affected means the conversation
	// does not exist, which must surface as ErrNotFound rather than the
	// message insert's foreign key violation.
	res, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_message = ?, updated_at = ? WHERE id = ?`,
		msg.Text, msg.Timestamp, msg.ConversationID.String())
	if err != nil {
		return fmt.Errorf("update conversation preview: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO messages (id, conversation_id, sender_id, text, timestamp)
VALUES (?, ?, ?, ?, ?)`,
		msg.ID.String(), msg.ConversationID.String(), msg.SenderID.String(), msg.Text, msg.Timestamp); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return tx.Commit()
}

// Messages returns a conversation's messages in chronological order, capped
// at limit (0 means a default page of 100).
func (s *Store) Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, conversation_id, sender_id, text, timestamp
FROM messages
WHERE conversation_id = ?
ORDER BY timestamp, id
LIMIT ?`, conversationID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}
	defer rows.Close()

	var out []*models.ChatMessage
	for rows.Next() {
		var (
			m                string
			msg              models.ChatMessage
			convID, senderID string
		)
		if err := rows.Scan(&m, &convID, &senderID, &msg.Text, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ID, err = uuid.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("parse message id %q: %w", m, err)
		}
		msg.ConversationID, err = uuid.Parse(convID)
		if err != nil {
			return nil, fmt.Errorf("parse conversation id %q: %w", convID, err)
		}
		msg.SenderID, err = uuid.Parse(senderID)
		if err != nil {
			return nil, fmt.Errorf("parse sender id %q: %w", senderID, err)
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		conv             models.Conversation
		id, propertyID   string
		participantsJSON string
	)
	err := row.Scan(&id, &participantsJSON, &propertyID, &conv.LastMessage, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	conv.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse conversation id %q: %w", id, err)
	}
	conv.PropertyID, err = uuid.Parse(propertyID)
	if err != nil {
		return nil, fmt.Errorf("parse property id %q: %w", propertyID, err)
	}
	if err := json.Unmarshal([]byte(participantsJSON), &conv.Participants); err != nil {
		return nil, fmt.Errorf("parse participants: %w", err)
	}
	return &conv, nil
}
