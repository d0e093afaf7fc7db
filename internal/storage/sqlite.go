// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

// Package storage implements the SQLite persistence layer for Domus:
// properties, users, saved-property interactions, conversations with their
// messages, reviews, and inquiries. List-valued columns (amenities, images,
// participants) are stored as JSON text.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nybras/domus/internal/logging"
)

// Sentinel errors returned by store operations. Callers match with
// errors.Is to map them onto API responses.
var (
	ErrNotFound  = errors.New("storage: not found")
	ErrDuplicate = errors.New("storage: duplicate")
)

// Store wraps the SQLite database handle. All operations are safe for
// concurrent use; SQLite serializes writers internally and the busy
// timeout keeps contending writers from failing fast.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the connection pragmas. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA synchronous=NORMAL;`,
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	logging.Info().Str("path", path).Msg("sqlite store opened")
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates all tables and indexes if they do not exist.
// Idempotent; called once at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  avatar TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'user',
  bio TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS properties (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price REAL NOT NULL,
  property_type TEXT NOT NULL,
  status TEXT NOT NULL,
  bedrooms INTEGER NOT NULL DEFAULT 0,
  bathrooms INTEGER NOT NULL DEFAULT 0,
  area REAL NOT NULL DEFAULT 0,
  amenities_json TEXT NOT NULL DEFAULT '[]',
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  pincode TEXT NOT NULL DEFAULT '',
  latitude REAL NOT NULL DEFAULT 0,
  longitude REAL NOT NULL DEFAULT 0,
  images_json TEXT NOT NULL DEFAULT '[]',
  is_featured INTEGER NOT NULL DEFAULT 0,
  is_approved INTEGER NOT NULL DEFAULT 0,
  agent_id TEXT NOT NULL,
  views INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  FOREIGN KEY (agent_id) REFERENCES users(id)
);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_approved ON properties(is_approved, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_agent ON properties(agent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city);`,
		`CREATE TABLE IF NOT EXISTS saved_properties (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  property_id TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL,
  UNIQUE (user_id, property_id),
  FOREIGN KEY (user_id) REFERENCES users(id),
  FOREIGN KEY (property_id) REFERENCES properties(id)
);`,
		`CREATE INDEX IF NOT EXISTS idx_saved_user ON saved_properties(user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS conversations (
  id TEXT PRIMARY KEY,
  participants_json TEXT NOT NULL,
  participant_a TEXT NOT NULL,
  participant_b TEXT NOT NULL,
  property_id TEXT NOT NULL,
  last_message TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  UNIQUE (participant_a, participant_b, property_id)
);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_a ON conversations(participant_a, updated_at);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_b ON conversations(participant_b, updated_at);`,
		`CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL,
  sender_id TEXT NOT NULL,
  text TEXT NOT NULL,
  timestamp TIMESTAMP NOT NULL,
  FOREIGN KEY (conversation_id) REFERENCES conversations(id)
);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp);`,
		`CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  property_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  comment TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL,
  UNIQUE (property_id, user_id),
  FOREIGN KEY (property_id) REFERENCES properties(id),
  FOREIGN KEY (user_id) REFERENCES users(id)
);`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_property ON reviews(property_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS inquiries (
  id TEXT PRIMARY KEY,
  property_id TEXT NOT NULL,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  message TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at TIMESTAMP NOT NULL,
  FOREIGN KEY (property_id) REFERENCES properties(id)
);`,
		`CREATE INDEX IF NOT EXISTS idx_inquiries_property ON inquiries(property_id, created_at);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
