// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

// Package models defines the persisted entities shared across Domus:
// properties, users, saved-property interactions, conversations, reviews,
// and inquiries.
package models

import (
	"time"

	"github.com/google/uuid"
)

// PropertyType is the listing category. The numeric codes returned by
// TypeCode feed the recommendation feature vector and must stay stable.
type PropertyType string

const (
	TypeApartment  PropertyType = "Apartment"
	TypeVilla      PropertyType = "Villa"
	TypePlot       PropertyType = "Plot"
	TypeCommercial PropertyType = "Commercial"
	TypeHouse      PropertyType = "House"
	TypePenthouse  PropertyType = "Penthouse"
)

// propertyTypeCodes maps each known type to its 1-based code.
// Unknown types map to 0 so that feature extraction never fails.
var propertyTypeCodes = map[PropertyType]int{
	TypeApartment:  1,
	TypeVilla:      2,
	TypePlot:       3,
	TypeCommercial: 4,
	TypeHouse:      5,
	TypePenthouse:  6,
}

// PropertyTypeCount is the number of known property types, used as the
// normalization divisor for the type dimension.
const PropertyTypeCount = 6

// TypeCode returns the 1-based categorical code for t, or 0 if unknown.
func (t PropertyType) TypeCode() int {
	return propertyTypeCodes[t]
}

// Valid reports whether t is one of the known property types.
func (t PropertyType) Valid() bool {
	_, ok := propertyTypeCodes[t]
	return ok
}

// ListingStatus is the sale/rent state of a listing.
type ListingStatus string

const (
	StatusForSale ListingStatus = "For Sale"
	StatusForRent ListingStatus = "For Rent"
)

// ListingStatusCount is the normalization divisor for the status dimension.
const ListingStatusCount = 2

// StatusCode returns the 1-based code for s, or 0 if unknown.
func (s ListingStatus) StatusCode() int {
	switch s {
	case StatusForSale:
		return 1
	case StatusForRent:
		return 2
	default:
		return 0
	}
}

// Valid reports whether s is one of the known listing statuses.
func (s ListingStatus) Valid() bool {
	return s.StatusCode() != 0
}

// Property is a marketplace listing.
type Property struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Price        float64       `json:"price"`
	PropertyType PropertyType  `json:"property_type"`
	Status       ListingStatus `json:"status"`
	Bedrooms     int           `json:"bedrooms"`
	Bathrooms    int           `json:"bathrooms"`
	Area         float64       `json:"area"`
	Amenities    []string      `json:"amenities,omitempty"`
	Address      string        `json:"address"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	Pincode      string        `json:"pincode"`
	Latitude     float64       `json:"latitude,omitempty"`
	Longitude    float64       `json:"longitude,omitempty"`
	Images       []string      `json:"images,omitempty"`
	IsFeatured   bool          `json:"is_featured"`
	IsApproved   bool          `json:"is_approved"`
	AgentID      uuid.UUID     `json:"agent_id"`
	Views        int           `json:"views"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Role is a user's authorization role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// User is a marketplace account. PasswordHash is never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Role         Role      `json:"role"`
	Bio          string    `json:"bio,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SavedProperty records a user's save of a listing. Saves are the
// interaction history the recommendation profile vector is built from.
type SavedProperty struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	PropertyID uuid.UUID `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Conversation is a chat thread between two participants about a property.
// Its ID doubles as the chat room key in the real-time hub.
type Conversation struct {
	ID           uuid.UUID   `json:"id"`
	Participants []uuid.UUID `json:"participants"`
	PropertyID   uuid.UUID   `json:"property_id"`
	LastMessage  string      `json:"last_message"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ChatMessage is a persisted message inside a conversation.
type ChatMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
}

// Review is a user rating of a property.
type Review struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// InquiryStatus tracks the lifecycle of a listing inquiry.
type InquiryStatus string

const (
	InquiryPending  InquiryStatus = "pending"
	InquiryAnswered InquiryStatus = "answered"
	InquiryClosed   InquiryStatus = "closed"
)

// Inquiry is a contact request about a listing. Unlike reviews, inquiries
// may be submitted by visitors without an account.
type Inquiry struct {
	ID         uuid.UUID     `json:"id"`
	PropertyID uuid.UUID     `json:"property_id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone,omitempty"`
	Message    string        `json:"message"`
	Status     InquiryStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}
