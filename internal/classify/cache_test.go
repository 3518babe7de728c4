package classify

import (
	"sync"
	"testing"
	"time"

	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "Netflix|Entertainment|monthly|-16",
		CacheKey("Netflix", "Entertainment", model.FrequencyMonthly, -15.99))

	// Minor amount noise rounds to the same key
	a := CacheKey("Netflix", "Entertainment", model.FrequencyMonthly, -15.99)
	b := CacheKey("Netflix", "Entertainment", model.FrequencyMonthly, -16.20)
	assert.Equal(t, a, b)

	// A materially different amount does not
	c := CacheKey("Netflix", "Entertainment", model.FrequencyMonthly, -19.99)
	assert.NotEqual(t, a, c)
}

func TestMemoryCache(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		cache := NewMemoryCache(time.Hour)

		result := model.ClassificationResult{
			PatternID:   "p1",
			ExpenseType: model.ExpenseSubscription,
			Confidence:  90,
		}
		cache.Set("key1", result)

		got, found := cache.Get("key1")
		assert.True(t, found)
		assert.Equal(t, result, got)

		_, found = cache.Get("missing")
		assert.False(t, found)
	})

	t.Run("expired entries are not returned", func(t *testing.T) {
		clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		cache := &memoryCache{
			entries: make(map[string]cacheEntry),
			ttl:     24 * time.Hour,
			now:     func() time.Time { return clock },
		}

		cache.Set("key", model.ClassificationResult{PatternID: "p1"})

		_, found := cache.Get("key")
		assert.True(t, found)

		clock = clock.Add(25 * time.Hour)
		_, found = cache.Get("key")
		assert.False(t, found)
	})

	t.Run("concurrent access", func(t *testing.T) {
		cache := NewMemoryCache(time.Hour)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					cache.Set("shared", model.ClassificationResult{PatternID: "p"})
					_, _ = cache.Get("shared")
				}
			}()
		}
		wg.Wait()

		_, found := cache.Get("shared")
		assert.True(t, found)
	})
}

func TestDailyQuota(t *testing.T) {
	t.Run("grants up to the limit", func(t *testing.T) {
		q := NewDailyQuota(10)

		assert.Equal(t, 7, q.TryAcquire(7))
		assert.Equal(t, 3, q.TryAcquire(5))
		assert.Equal(t, 0, q.TryAcquire(1))
		assert.Equal(t, 0, q.Remaining())
	})

	t.Run("zero limit grants nothing", func(t *testing.T) {
		q := NewDailyQuota(0)
		assert.Equal(t, 0, q.TryAcquire(3))
	})

	t.Run("resets on UTC date rollover", func(t *testing.T) {
		clock := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
		q := &dailyQuota{
			limit: 5,
			now:   func() time.Time { return clock },
		}

		assert.Equal(t, 5, q.TryAcquire(5))
		assert.Equal(t, 0, q.TryAcquire(1))

		clock = clock.Add(time.Hour) // past midnight UTC
		assert.Equal(t, 5, q.Remaining())
		assert.Equal(t, 2, q.TryAcquire(2))
	})

	t.Run("concurrent acquisition never over-spends", func(t *testing.T) {
		q := NewDailyQuota(100)

		var wg sync.WaitGroup
		granted := make([]int, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				granted[i] = q.TryAcquire(10)
			}(i)
		}
		wg.Wait()

		total := 0
		for _, g := range granted {
			total += g
		}
		assert.Equal(t, 100, total)
	})
}
