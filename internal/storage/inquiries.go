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

// InsertInquiry persists a contact request about a listing. Inquiries are
// open to visitors, so no user foreign key.
func (s *Store) InsertInquiry(ctx context.Context, inq *models.Inquiry) error {
	if inq.ID == uuid.Nil {
		inq.ID = uuid.New()
	}
	if inq.Status == "" {
		inq.Status = models.InquiryPending
	}
	inq.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO inquiries (id, property_id, name, email, phone, message, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inq.ID.String(), inq.PropertyID.String(), inq.Name, inq.Email, inq.Phone,
		inq.Message, string(inq.Status), inq.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert inquiry: %w", err)
	}
	return nil
}

// InquiriesForProperty returns a listing's inquiries, newest first.
func (s *Store) InquiriesForProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Inquiry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, property_id, name, email, phone, message, status, created_at
FROM inquiries
WHERE property_id = ?
ORDER BY created_at DESC, id`, propertyID.String())
	if err != nil {
		return nil, fmt.Errorf("inquiries for property: %w", err)
	}
	defer rows.Close()

	var out []*models.Inquiry
	for rows.Next() {
		var (
			inq        models.Inquiry
			id, propID string
			status     string
		)
		if err := rows.Scan(&id, &propID, &inq.Name, &inq.Email, &inq.Phone, &inq.Message, &status, &inq.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		inq.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse inquiry id %q: %w", id, err)
		}
		inq.PropertyID, err = uuid.Parse(propID)
		if err != nil {
			return nil, fmt.Errorf("parse property id %q: %w", propID, err)
		}
		inq.Status = models.InquiryStatus(status)
		out = append(out, &inq)
	}
	return out, rows.Err()
}

// SetInquiryStatus moves an inquiry through its lifecycle.
func (s *Store) SetInquiryStatus(ctx context.Context, id uuid.UUID, status models.InquiryStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE inquiries SET status = ? WHERE id = ?`, string(status), id.String())
	if err != nil {
		return fmt.Errorf("set inquiry status: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
