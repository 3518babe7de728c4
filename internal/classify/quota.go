package classify

import (
	"sync"
	"time"
)

// QuotaTracker limits how many patterns may be sent to the external
// classifier per calendar day. Implementations must be safe for concurrent
// use so parallel batches cannot over-spend the budget.
type QuotaTracker interface {
	// TryAcquire reserves up to n slots and returns how many were granted.
	TryAcquire(n int) int
	// Remaining reports the slots left today.
	Remaining() int
}

// dailyQuota counts accepted calls per UTC calendar day and resets on
// date rollover.
type dailyQuota struct {
	now   func() time.Time
	day   string
	limit int
	used  int
	mu    sync.Mutex
}

// NewDailyQuota creates a tracker capped at limit patterns per UTC day.
// A non-positive limit disables external calls entirely.
func NewDailyQuota(limit int) QuotaTracker {
	return &dailyQuota{
		limit: limit,
		now:   time.Now,
	}
}

func (q *dailyQuota) TryAcquire(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()

	remaining := q.limit - q.used
	if remaining <= 0 {
		return 0
	}
	if n > remaining {
		n = remaining
	}
	q.used += n

	return n
}

func (q *dailyQuota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()

	remaining := q.limit - q.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// rollover resets the counter when the UTC date changes. Caller holds the lock.
func (q *dailyQuota) rollover() {
	today := q.now().UTC().Format("2006-01-02")
	if q.day != today {
		q.day = today
		q.used = 0
	}
}
