// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nybras/domus/internal/logging"
	"github.com/nybras/domus/internal/metrics"
	"github.com/nybras/domus/internal/models"
)

// DefaultLimit is the number of recommendations returned when a caller does
// not specify one.
const DefaultLimit = 6

// Recommend ranks pool candidates against the mean profile vector of
// userProps and returns the top limit matches as full property records.
//
// Properties already present in userProps are excluded. Empty inputs yield
// an empty result, never an error. Ties on score keep the original
// candidate-pool order (stable sort), so results are deterministic for the
// same input.
func Recommend(userProps, pool []models.Property, limit int) []models.Property {
	if len(userProps) == 0 || len(pool) == 0 {
		return []models.Property{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	profile := ProfileVector(userProps)

	seen := make(map[uuid.UUID]struct{}, len(userProps))
	for _, p := range userProps {
		seen[p.ID] = struct{}{}
	}

	type scored struct {
		property models.Property
		score    float64
	}
	candidates := make([]scored, 0, len(pool))
	for _, p := range pool {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		// Both vectors are VectorDim by construction, so the dimension
		// check in CosineSimilarity cannot fail here.
		score, _ := CosineSimilarity(profile, BuildFeatureVector(p))
		candidates = append(candidates, scored{property: p, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]models.Property, len(candidates))
	for i, c := range candidates {
		out[i] = c.property
	}
	return out
}

// PropertySource provides the candidate pool of listings to rank.
// Satisfied by *storage.Store.
type PropertySource interface {
	ApprovedProperties(ctx context.Context, limit int) ([]*models.Property, error)
}

// InteractionSource provides the listings a user has saved.
// Satisfied by *storage.Store.
type InteractionSource interface {
	SavedProperties(ctx context.Context, userID uuid.UUID) ([]*models.Property, error)
}

// Config holds engine tunables.
type Config struct {
	DefaultLimit  int
	MaxLimit      int
	MaxCandidates int
	CacheTTL      time.Duration
	CacheSize     int
}

// DefaultConfig returns production-ready engine defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:  DefaultLimit,
		MaxLimit:      50,
		MaxCandidates: 1000,
		CacheTTL:      5 * time.Minute,
		CacheSize:     1024,
	}
}

// Engine wires the pure ranking function to the property and interaction
// stores and caches results per user. The engine itself is stateless apart
// from the cache and safe for concurrent use.
type Engine struct {
	properties   PropertySource
	interactions InteractionSource
	cfg          Config
	cache        *resultCache
}

// NewEngine creates a recommendation engine over the given sources.
func NewEngine(properties PropertySource, interactions InteractionSource, cfg Config) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 50
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 1000
	}
	var cache *resultCache
	if cfg.CacheTTL > 0 {
		cache = newResultCache(cfg.CacheSize, cfg.CacheTTL)
	}
	return &Engine{
		properties:   properties,
		interactions: interactions,
		cfg:          cfg,
		cache:        cache,
	}
}

// RecommendForUser returns ranked recommendations for a user. A limit of 0
// uses the configured default; limits above the configured maximum clamp.
func (e *Engine) RecommendForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Property, error) {
	start := time.Now()

	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	if e.cache != nil {
		if props, ok := e.cache.get(userID, limit); ok {
			metrics.RecommendCacheHits.Inc()
			return props, nil
		}
		metrics.RecommendCacheMisses.Inc()
	}

	saved, err := e.interactions.SavedProperties(ctx, userID)
	if err != nil {
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load saved properties: %w", err)
	}
	if len(saved) == 0 {
		// No interaction history is a valid state, not an error.
		metrics.RecommendRequests.WithLabelValues("empty").Inc()
		logging.Debug().Str("user_id", userID.String()).Msg("no interactions, empty recommendations")
		return []models.Property{}, nil
	}

	pool, err := e.properties.ApprovedProperties(ctx, e.cfg.MaxCandidates)
	if err != nil {
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}

	props := Recommend(deref(saved), deref(pool), limit)

	if e.cache != nil {
		e.cache.put(userID, limit, props)
	}

	metrics.RecommendRequests.WithLabelValues("ok").Inc()
	metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	return props, nil
}

func deref(props []*models.Property) []models.Property {
	out := make([]models.Property, len(props))
	for i, p := range props {
		out[i] = *p
	}
	return out
}

// Invalidate drops any cached results for a user. Called when the user's
// saved set changes so the next request reflects the new profile.
func (e *Engine) Invalidate(userID uuid.UUID) {
	if e.cache != nil {
		e.cache.invalidate(userID)
	}
}
