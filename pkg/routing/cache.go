package routing

import (
	"sync"
	"time"
)

// StickyEntry records a single cookie-to-server affinity assignment.
type StickyEntry struct {
	ServerID       string
	ExpiresAt      time.Time
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64
}

// StickyCache implements a thread-safe cache for cookie-based server affinity
// with TTL and LRU eviction. It maps cookie values to server IDs and
// automatically expires entries after the TTL given to NewStickyCache.
// When the cache reaches max capacity, it
// evicts the least recently accessed entry.
type StickyCache struct {
	entries map[string]*StickyEntry

	// ttl is the time-to-live for cache entries (0 = no expiry)
	ttl time.Duration

	// maxEntries is the maximum number of entries (0 = unlimited)
	maxEntries int

	mu sync.RWMutex

	stopCh chan struct{}

	cleanupInterval time.Duration
}

// NewStickyCache creates a new sticky cache with the specified TTL and max entries.
// If ttl is 0, entries never expire. If maxEntries is 0, the cache has unlimited size.
func NewStickyCache(ttl time.Duration, maxEntries int) *StickyCache {
	cleanupInterval := time.Minute
	if ttl > 0 {
		cleanupInterval = ttl / 2
		if cleanupInterval < 10*time.Second {
			cleanupInterval = 10 * time.Second
		}
	}

	cache := &StickyCache{
		entries:         make(map[string]*StickyEntry),
		ttl:             ttl,
		maxEntries:      maxEntries,
		stopCh:          make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}

	if ttl > 0 {
		go cache.cleanupExpired()
	}

	return cache
}

// Get retrieves a server ID from the cache.
// Returns (serverID, true) if found and not expired.
func (c *StickyCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	if !ok {
		c.mu.RUnlock()
		return "", false
	}

	if c.ttl > 0 && time.Now().After(entry.ExpiresAt) {
		c.mu.RUnlock()
		return "", false
	}
	serverID := entry.ServerID
	c.mu.RUnlock()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.LastAccessedAt = time.Now()
		entry.AccessCount++
	}
	c.mu.Unlock()

	return serverID, true
}

// Set stores a server ID in the cache with the configured TTL.
// If the cache is full, it evicts the least recently used entry.
func (c *StickyCache) Set(key string, serverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRU()
		}
	}

	now := time.Now()
	expiresAt := time.Time{}
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}

	c.entries[key] = &StickyEntry{
		ServerID:       serverID,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		LastAccessedAt: now,
		AccessCount:    1,
	}
}

// Delete removes an entry from the cache.
func (c *StickyCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Size returns the current number of entries in the cache.
func (c *StickyCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Clear removes all entries from the cache.
func (c *StickyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*StickyEntry)
}

// Close stops the background cleanup goroutine. After calling Close, the
// cache should not be used.
func (c *StickyCache) Close() {
	close(c.stopCh)
}

// evictLRU evicts the least recently used entry. Must be called with the
// write lock held.
func (c *StickyCache) evictLRU() {
	if len(c.entries) == 0 {
		return
	}

	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.LastAccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccessedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// cleanupExpired runs periodically to remove expired entries.
func (c *StickyCache) cleanupExpired() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

// removeExpired removes all expired entries from the cache.
func (c *StickyCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl == 0 {
		return
	}

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
}
