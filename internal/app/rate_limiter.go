package app

import (
	"sync"
	"time"

	"github.com/dkeye/VoiceClub/internal/domain"
)

type limiterKey struct {
	session domain.SessionID
	user    domain.UserID
}

// RateLimiter is a sliding-window limiter per (session, user).
// A non-positive limit disables it.
type RateLimiter struct {
	mu       sync.Mutex
	history  map[limiterKey][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		history:  make(map[limiterKey][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(session domain.SessionID, user domain.UserID) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := limiterKey{session: session, user: user}
	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[key]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[key] = fresh
		return false
	}
	rl.history[key] = append(fresh, now)
	return true
}

// Forget drops the history of a user that left.
func (rl *RateLimiter) Forget(session domain.SessionID, user domain.UserID) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, limiterKey{session: session, user: user})
}
