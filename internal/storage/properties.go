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
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nybras/domus/internal/models"
)

const propertyColumns = `id, title, description, price, property_type, status,
bedrooms, bathrooms, area, amenities_json, address, city, state, pincode,
latitude, longitude, images_json, is_featured, is_approved, agent_id, views,
created_at, updated_at`

// InsertProperty persists a new listing. A zero ID is assigned; CreatedAt
// and UpdatedAt are set to now. New listings start unapproved unless the
// caller marks them otherwise.
func (s *Store) InsertProperty(ctx context.Context, p *models.Property) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	amenities, _ := json.Marshal(p.Amenities)
	images, _ := json.Marshal(p.Images)

	_, err := s.db.ExecContext(ctx, `
INSERT INTO properties (`+propertyColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Title, p.Description, p.Price, string(p.PropertyType), string(p.Status),
		p.Bedrooms, p.Bathrooms, p.Area, string(amenities), p.Address, p.City, p.State, p.Pincode,
		p.Latitude, p.Longitude, string(images), p.IsFeatured, p.IsApproved, p.AgentID.String(), p.Views,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

// UpdateProperty overwrites the mutable fields of an existing listing and
// bumps UpdatedAt. Returns ErrNotFound if no row matches.
func (s *Store) UpdateProperty(ctx context.Context, p *models.Property) error {
	p.UpdatedAt = time.Now().UTC()

	amenities, _ := json.Marshal(p.Amenities)
	images, _ := json.Marshal(p.Images)

	res, err := s.db.ExecContext(ctx, `
UPDATE properties SET
  title = ?, description = ?, price = ?, property_type = ?, status = ?,
  bedrooms = ?, bathrooms = ?, area = ?, amenities_json = ?, address = ?,
  city = ?, state = ?, pincode = ?, latitude = ?, longitude = ?,
  images_json = ?, updated_at = ?
WHERE id = ?`,
		p.Title, p.Description, p.Price, string(p.PropertyType), string(p.Status),
		p.Bedrooms, p.Bathrooms, p.Area, string(amenities), p.Address,
		p.City, p.State, p.Pincode, p.Latitude, p.Longitude,
		string(images), p.UpdatedAt,
		p.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProperty removes a listing. Returns ErrNotFound if no row matches.
func (s *Store) DeleteProperty(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PropertyByID fetches one listing by ID.
func (s *Store) PropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id.String())
	return scanProperty(row)
}

// PropertyFilter narrows ListProperties results. Zero values mean "no
// constraint". ApprovedOnly restricts to listings visible to the public
// catalog.
type PropertyFilter struct {
	City         string
	PropertyType models.PropertyType
	Status       models.ListingStatus
	MinPrice     float64
	MaxPrice     float64
	MinBedrooms  int
	FeaturedOnly bool
	ApprovedOnly bool
	Limit        int
	Offset       int
}

// ListProperties returns listings matching the filter, newest first, plus
// the total match count for pagination.
func (s *Store) ListProperties(ctx context.Context, filter PropertyFilter) ([]*models.Property, int, error) {
	where := make([]string, 0, 6)
	args := make([]any, 0, 8)

	if filter.ApprovedOnly {
		where = append(where, "is_approved = 1")
	}
	if filter.FeaturedOnly {
		where = append(where, "is_featured = 1")
	}
	if strings.TrimSpace(filter.City) != "" {
		where = append(where, "LOWER(city) = LOWER(?)")
		args = append(args, filter.City)
	}
	if filter.PropertyType != "" {
		where = append(where, "property_type = ?")
		args = append(args, string(filter.PropertyType))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.MinPrice > 0 {
		where = append(where, "price >= ?")
		args = append(args, filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		where = append(where, "price <= ?")
		args = append(args, filter.MaxPrice)
	}
	if filter.MinBedrooms > 0 {
		where = append(where, "bedrooms >= ?")
		args = append(args, filter.MinBedrooms)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM properties "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + propertyColumns + ` FROM properties ` + whereSQL +
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	props, err := scanProperties(rows)
	if err != nil {
		return nil, 0, err
	}
	return props, total, nil
}

// ApprovedProperties returns the approved candidate pool for the
// recommendation engine, newest first, capped at limit.
func (s *Store) ApprovedProperties(ctx context.Context, limit int) ([]*models.Property, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+propertyColumns+` FROM properties
WHERE is_approved = 1
ORDER BY created_at DESC, id
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("approved properties: %w", err)
	}
	defer rows.Close()
	return scanProperties(rows)
}

// PropertiesByAgent returns all listings owned by an agent, newest first.
func (s *Store) PropertiesByAgent(ctx context.Context, agentID uuid.UUID) ([]*models.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+propertyColumns+` FROM properties
WHERE agent_id = ?
ORDER BY created_at DESC, id`, agentID.String())
	if err != nil {
		return nil, fmt.Errorf("properties by agent: %w", err)
	}
	defer rows.Close()
	return scanProperties(rows)
}

// SetPropertyApproved flips moderation state on a listing.
func (s *Store) SetPropertyApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE properties SET is_approved = ?, updated_at = ? WHERE id = ?`,
		approved, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("set property approved: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPropertyFeatured flips the featured flag on a listing.
func (s *Store) SetPropertyFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE properties SET is_featured = ?, updated_at = ? WHERE id = ?`,
		featured, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("set property featured: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementPropertyViews bumps the view counter. Best effort; a missing row
// is not an error.
func (s *Store) IncrementPropertyViews(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE properties SET views = views + 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var (
		p                    models.Property
		id, agentID          string
		propType, status     string
		amenities, images    string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(
		&id, &p.Title, &p.Description, &p.Price, &propType, &status,
		&p.Bedrooms, &p.Bathrooms, &p.Area, &amenities, &p.Address, &p.City, &p.State, &p.Pincode,
		&p.Latitude, &p.Longitude, &images, &p.IsFeatured, &p.IsApproved, &agentID, &p.Views,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan property: %w", err)
	}

	p.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse property id %q: %w", id, err)
	}
	p.AgentID, err = uuid.Parse(agentID)
	if err != nil {
		return nil, fmt.Errorf("parse agent id %q: %w", agentID, err)
	}
	p.PropertyType = models.PropertyType(propType)
	p.Status = models.ListingStatus(status)
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	_ = json.Unmarshal([]byte(amenities), &p.Amenities)
	_ = json.Unmarshal([]byte(images), &p.Images)
	return &p, nil
}

func scanProperties(rows *sql.Rows) ([]*models.Property, error) {
	var out []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
