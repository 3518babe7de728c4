package classify

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/coffeebudget/recurrent/internal/model"
)

// Cache stores classification results so identical patterns skip the
// external call. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (model.ClassificationResult, bool)
	Set(key string, result model.ClassificationResult)
}

// CacheKey identifies a pattern for caching purposes. The amount is rounded
// to the nearest unit so minor amount noise does not bust the cache.
func CacheKey(merchant, category string, freq model.FrequencyType, averageAmount float64) string {
	return fmt.Sprintf("%s|%s|%s|%d", merchant, category, freq, int(math.Round(averageAmount)))
}

// cacheEntry represents a cached classification.
type cacheEntry struct {
	expiry time.Time
	result model.ClassificationResult
}

// memoryCache provides thread-safe TTL caching for classification results.
type memoryCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewMemoryCache creates an in-memory cache with the specified TTL.
func NewMemoryCache(ttl time.Duration) Cache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &memoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *memoryCache) Get(key string) (model.ClassificationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.expiry) {
		return model.ClassificationResult{}, false
	}

	return entry.result, true
}

func (c *memoryCache) Set(key string, result model.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistically drop expired entries to keep the map bounded.
	now := c.now()
	for k, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = cacheEntry{
		result: result,
		expiry: now.Add(c.ttl),
	}
}
