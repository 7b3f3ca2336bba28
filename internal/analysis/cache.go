package analysis

import (
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ramonehamilton/deck-engine/internal/deck"
	"github.com/ramonehamilton/deck-engine/internal/meta"
)

// DefaultCacheSize is the entry bound used when a size of zero is requested.
const DefaultCacheSize = 512

// Cache memoizes results by composition hash, format, tables version and
// meta snapshot. It is owned by the caller and bounded; a nil *Cache is a
// valid cache that never hits. Cached results are shared and must not be
// mutated.
type Cache struct {
	lru *lru.Cache[string, *Result]
}

// NewCache creates a cache holding at most size results.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, fmt.Errorf("create analysis cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// CacheKey builds the invalidation key for a composition under a format,
// tables version and meta snapshot.
func CacheKey(c deck.Composition, format, tablesVersion string, snap *meta.Snapshot) string {
	stamp := "none"
	if snap != nil {
		stamp = strconv.FormatInt(snap.UpdatedAt.Unix(), 36) + "/" + strconv.Itoa(len(snap.Archetypes))
	}
	return c.Hash(format) + "|" + tablesVersion + "|" + stamp
}

// Get returns the cached result for key.
func (c *Cache) Get(key string) (*Result, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// Add stores a result.
func (c *Cache) Add(key string, r *Result) {
	if c == nil || r == nil {
		return
	}
	c.lru.Add(key, r)
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every cached result, for example after the heuristic tables
// or the catalog change.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
