// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nybras/domus/internal/models"
)

// SaveProperty records that a user saved a listing. Saving an already-saved
// listing returns ErrDuplicate.
func (s *Store) SaveProperty(ctx context.Context, userID, propertyID uuid.UUID) (*models.SavedProperty, error) {
	saved := &models.SavedProperty{
		ID:         uuid.New(),
		UserID:     userID,
		PropertyID: propertyID,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO saved_properties (id, user_id, property_id, created_at)
VALUES (?, ?, ?, ?)`,
		saved.ID.String(), userID.String(), propertyID.String(), saved.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("save property: %w", err)
	}
	return saved, nil
}

// UnsaveProperty removes a user's save of a listing. Returns ErrNotFound if
// the listing was not saved.
func (s *Store) UnsaveProperty(ctx context.Context, userID, propertyID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM saved_properties WHERE user_id = ? AND property_id = ?`,
		userID.String(), propertyID.String())
	if err != nil {
		return fmt.Errorf("unsave property: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsSaved reports whether the user has saved the listing.
func (s *Store) IsSaved(ctx context.Context, userID, propertyID uuid.UUID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM saved_properties WHERE user_id = ? AND property_id = ?`,
		userID.String(), propertyID.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is saved: %w", err)
	}
	return n > 0, nil
}

// SavedProperties returns the full listings a user has saved, most recently
// saved first. This is the interaction history the recommendation profile is
// built from; saves of since-deleted listings are skipped by the join.
func (s *Store) SavedProperties(ctx context.Context, userID uuid.UUID) ([]*models.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT p.id, p.title, p.description, p.price, p.property_type, p.status,
  p.bedrooms, p.bathrooms, p.area, p.amenities_json, p.address, p.city,
  p.state, p.pincode, p.latitude, p.longitude, p.images_json, p.is_featured,
  p.is_approved, p.agent_id, p.views, p.created_at, p.updated_at
FROM saved_properties sp
JOIN properties p ON p.id = sp.property_id
WHERE sp.user_id = ?
ORDER BY sp.created_at DESC, sp.id`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("saved properties: %w", err)
	}
	defer rows.Close()
	return scanProperties(rows)
}

// isUniqueViolation matches SQLite unique-constraint failures without
// depending on driver error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
