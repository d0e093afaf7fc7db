// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

// Package recommend implements content-based property recommendations:
// listings are encoded as fixed-order feature vectors, a user profile is the
// mean vector of their saved listings, and candidates are ranked by cosine
// similarity against that profile.
package recommend

import (
	"github.com/nybras/domus/internal/models"
)

// VectorDim is the fixed feature vector length. Dimension order:
// type, status, price, area, bedrooms, bathrooms.
const VectorDim = 6

// Normalization constants. Values above the ceiling clamp to 1; negative
// inputs are a data-quality concern outside this package's contract.
const (
	maxPrice = 100_000_000
	maxArea  = 10_000
	maxRooms = 10
)

// Vector is a normalized property feature vector. Every element lies in
// [0,1] and the dimension order is fixed across all vectors.
type Vector []float64

// BuildFeatureVector encodes a property as a feature vector. It is total:
// unknown categorical values contribute 0 to their dimension and missing
// bedroom/bathroom counts are treated as 0, so it never fails.
func BuildFeatureVector(p models.Property) Vector {
	return Vector{
		float64(p.PropertyType.TypeCode()) / models.PropertyTypeCount,
		float64(p.Status.StatusCode()) / models.ListingStatusCount,
		clampUnit(p.Price / maxPrice),
		clampUnit(p.Area / maxArea),
		clampUnit(float64(p.Bedrooms) / maxRooms),
		clampUnit(float64(p.Bathrooms) / maxRooms),
	}
}

// ProfileVector returns the element-wise mean of the feature vectors of the
// given properties. Returns nil for an empty input.
func ProfileVector(props []models.Property) Vector {
	if len(props) == 0 {
		return nil
	}

	profile := make(Vector, VectorDim)
	for _, p := range props {
		v := BuildFeatureVector(p)
		for i := range profile {
			profile[i] += v[i]
		}
	}
	n := float64(len(props))
	for i := range profile {
		profile[i] /= n
	}
	return profile
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	return x
}
