package app

import (
	"sync"
	"time"

	"github.com/avlasov/WatchSync/internal/domain"
)

// SenderRateLimiter caps how many events one sender may submit within
// a sliding window.
type SenderRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.SenderID][]time.Time
	limit    int
	interval time.Duration
}

func NewSenderRateLimiter(limit int, interval time.Duration) *SenderRateLimiter {
	return &SenderRateLimiter{
		history:  make(map[domain.SenderID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *SenderRateLimiter) Allow(sender domain.SenderID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[sender]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[sender] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[sender] = fresh
	return true
}
