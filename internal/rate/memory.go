package rate

import (
	"context"
	"sync"
	"time"
)

// Limiter is a fixed-window request counter keyed by caller and route.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
}

type bucket struct {
	count int
	start time.Time
}

type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]bucket
	lastGC  time.Time
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: map[string]bucket{}, lastGC: time.Now().UTC(), now: func() time.Time { return time.Now().UTC() }}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastGC) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.start) > 3*window {
				delete(l.buckets, k)
			}
		}
		l.lastGC = now
	}
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		l.buckets[key] = bucket{count: 1, start: now}
		return true
	}
	if b.count >= limit {
		return false
	}
	b.count++
	l.buckets[key] = b
	return true
}
