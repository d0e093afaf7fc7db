// Domus - Real Estate Marketplace Platform
// Copyright 2026 Nyk B. (nybras)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nybras/domus

package recommend

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nybras/domus/internal/models"
)

// resultCache is a thread-safe LRU cache with TTL for ranked results,
// keyed by (user, limit). Expiration is lazy: entries are dropped on read.
type resultCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	key       string
	userID    uuid.UUID
	props     []models.Property
	expiresAt time.Time
}

func newResultCache(capacity int, ttl time.Duration) *resultCache {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &resultCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func cacheKey(userID uuid.UUID, limit int) string {
	return fmt.Sprintf("%s:%d", userID, limit)
}

func (c *resultCache) get(userID uuid.UUID, limit int) ([]models.Property, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[cacheKey(userID, limit)]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, entry.key)
		return nil, false
	}

	c.order.MoveToFront(el)
	return entry.props, true
}

func (c *resultCache) put(userID uuid.UUID, limit int, props []models.Property) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(userID, limit)
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.props = props
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}

	c.items[key] = c.order.PushFront(&cacheEntry{
		key:       key,
		userID:    userID,
		props:     props,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// invalidate removes every cached entry for the user, across all limits.
func (c *resultCache) invalidate(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*cacheEntry)
		if entry.userID == userID {
			c.order.Remove(el)
			delete(c.items, entry.key)
		}
		el = next
	}
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
