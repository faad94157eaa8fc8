package security

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 5})

	for i := range 5 {
		if err := rl.Allow("alice"); err != nil {
			t.Fatalf("Allow(%d) returned error: %v", i, err)
		}
	}
	if err := rl.Allow("alice"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 1})

	if err := rl.Allow("alice"); err != nil {
		t.Fatalf("alice: %v", err)
	}
	if err := rl.Allow("bob"); err != nil {
		t.Errorf("bob limited by alice's usage: %v", err)
	}
	if err := rl.Allow("alice"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("alice second call: err = %v, want ErrRateLimited", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 2})
	rl.now = func() time.Time { return now }

	_ = rl.Allow("alice")
	_ = rl.Allow("alice")

	if err := rl.Allow("alice"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected rate limit")
	}

	now = now.Add(61 * time.Second)

	if err := rl.Allow("alice"); err != nil {
		t.Fatalf("expected allow after window, got %v", err)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	if rl.Limit() != defaultMessagesPerMin {
		t.Errorf("Limit() = %d, want %d", rl.Limit(), defaultMessagesPerMin)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: -1})
	for i := range 1000 {
		if err := rl.Allow("alice"); err != nil {
			t.Fatalf("Allow(%d) on disabled limiter: %v", i, err)
		}
	}

	var nilLimiter *RateLimiter
	if err := nilLimiter.Allow("alice"); err != nil {
		t.Errorf("nil limiter: %v", err)
	}
}

func TestRateLimiter_SweepDropsIdleKeys(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 10})
	rl.now = func() time.Time { return now }

	for i := range sweepEvery - 1 {
		_ = rl.Allow(fmt.Sprintf("user-%d", i))
	}
	now = now.Add(2 * time.Minute)
	_ = rl.Allow("late")

	rl.mu.Lock()
	n := len(rl.buckets)
	rl.mu.Unlock()
	if n != 1 {
		t.Errorf("buckets after sweep = %d, want 1", n)
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMin: 50})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("alice") == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}
