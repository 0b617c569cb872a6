package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"SearchAggregator/internal/domain"
	"SearchAggregator/internal/ports"
)

const defaultMemoryCapacity = 1024

// MemoryCache is an in-process fallback used when no Redis URL is
// configured. Entries expire on the TTL the cache was built with; Put
// requests carrying a different TTL still honor the cache-wide one, which
// is acceptable for a single-TTL deployment.
type MemoryCache struct {
	lru *expirable.LRU[string, domain.ResultBatch]
}

var _ ports.ResultCache = (*MemoryCache)(nil)

// NewMemory builds a bounded TTL cache.
func NewMemory(capacity int, ttl time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, domain.ResultBatch](capacity, nil, ttl),
	}
}

// Get returns the cached batch for the key, or a miss.
func (c *MemoryCache) Get(_ context.Context, key string) (domain.ResultBatch, bool) {
	return c.lru.Get(key)
}

// Put stores the batch under the key.
func (c *MemoryCache) Put(_ context.Context, key string, batch domain.ResultBatch, _ time.Duration) bool {
	c.lru.Add(key, batch)
	return true
}

// Delete removes the key; deleting an absent key reports false.
func (c *MemoryCache) Delete(_ context.Context, key string) bool {
	return c.lru.Remove(key)
}
