// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nybras/domus/internal/models"
)

// InsertReview persists a rating. One review per user per property; a
// second review returns ErrDuplicate.
func (s *Store) InsertReview(ctx context.Context, r *models.Review) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO reviews (id, property_id, user_id, rating, comment, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.PropertyID.String(), r.UserID.String(), r.Rating, r.Comment, r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// ReviewsForProperty returns a property's reviews, newest first.
func (s *Store) ReviewsForProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, property_id, user_id, rating, comment, created_at
FROM reviews
WHERE property_id = ?
ORDER BY created_at DESC, id`, propertyID.String())
	if err != nil {
		return nil, fmt.Errorf("reviews for property: %w", err)
	}
	defer rows.Close()

	var out []*models.Review
	for rows.Next() {
		var (
			r                  models.Review
			id, propID, userID string
		)
		if err := rows.Scan(&id, &propID, &userID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse review id %q: %w", id, err)
		}
		r.PropertyID, err = uuid.Parse(propID)
		if err != nil {
			return nil, fmt.Errorf("parse property id %q: %w", propID, err)
		}
		r.UserID, err = uuid.Parse(userID)
		if err != nil {
			return nil, fmt.Errorf("parse user id %q: %w", userID, err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// AverageRating returns the mean rating and review count for a property.
// Zero count means no reviews yet.
func (s *Store) AverageRating(ctx context.Context, propertyID uuid.UUID) (float64, int, error) {
	var (
		avg   float64
		count int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE property_id = ?`,
		propertyID.String()).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, count, nil
}
