package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a key exceeds its rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitConfig holds configurable rate limits.
type RateLimitConfig struct {
	// MessagesPerMin is the number of chat turns one user may send per
	// minute. Zero selects the default; a negative value disables limiting.
	MessagesPerMin int `yaml:"messages_per_min"`
}

const defaultMessagesPerMin = 30

// RateLimiter implements per-key sliding window rate limiting.
// Each key tracks timestamps of its recent events within the window.
// A nil *RateLimiter allows everything.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	window  time.Duration
	limit   int
	now     func() time.Time
	calls   int
}

type bucket struct {
	events []time.Time
}

// sweepEvery is how many Allow calls pass between sweeps of idle keys.
const sweepEvery = 1024

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.MessagesPerMin == 0 {
		cfg.MessagesPerMin = defaultMessagesPerMin
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		window:  time.Minute,
		limit:   cfg.MessagesPerMin,
		now:     time.Now,
	}
}

// Allow records one event for key. Returns nil if allowed, ErrRateLimited
// if key already reached its limit within the window.
func (rl *RateLimiter) Allow(key string) error {
	if rl == nil || rl.limit < 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.calls++
	if rl.calls%sweepEvery == 0 {
		rl.sweep(now)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{}
		rl.buckets[key] = b
	}
	b.evict(now.Add(-rl.window))

	if len(b.events) >= rl.limit {
		return ErrRateLimited
	}
	b.events = append(b.events, now)
	return nil
}

// Limit returns the per-key limit per window, or a negative value when disabled.
func (rl *RateLimiter) Limit() int {
	if rl == nil {
		return -1
	}
	return rl.limit
}

// sweep drops keys with no events inside the window.
func (rl *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rl.window)
	for key, b := range rl.buckets {
		b.evict(cutoff)
		if len(b.events) == 0 {
			delete(rl.buckets, key)
		}
	}
}

// evict removes events older than cutoff. Events are chronologically ordered.
func (b *bucket) evict(cutoff time.Time) {
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
