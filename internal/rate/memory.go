package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the in-process fixed-window fallback, used when the
// cache backend is memory. Per-instance only.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu      sync.Mutex
	hits    map[string]int64
	winKeys map[string]int64 // key -> window start unix
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:     int64(max),
		Window:  window,
		hits:    make(map[string]int64),
		winKeys: make(map[string]int64),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window).Unix()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.winKeys[key] != winStart {
		l.winKeys[key] = winStart
		l.hits[key] = 0
	}
	l.hits[key]++
	hits := l.hits[key]

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{Allowed: allowed, Remaining: remaining, CurrentHits: hits}
	if !allowed {
		res.RetryAfter = time.Unix(winStart, 0).Add(l.Window).Sub(now)
	}
	return res, nil
}
