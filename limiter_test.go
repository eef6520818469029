package commentcard

import (
	"sync"
	"testing"
	"time"
)

func newTestLimiter(max int, window time.Duration) (*RenderLimiter, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewRenderLimiter(max, window)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestRenderLimiterBlocksAfterMax(t *testing.T) {
	limiter, _ := newTestLimiter(2, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.10"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first render to be allowed")
	}
	if !limiter.Allow(ip) {
		t.Fatalf("expected second render to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected third render to be blocked")
	}
}

func TestRenderLimiterResetsAfterWindow(t *testing.T) {
	var mu sync.Mutex
	limiter, now := newTestLimiter(1, time.Minute)
	defer limiter.Stop()
	limiter.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return *now
	}
	ip := "203.0.113.20"

	if !limiter.Allow(ip) {
		t.Fatalf("expected first render to be allowed")
	}
	if limiter.Allow(ip) {
		t.Fatalf("expected second render to be blocked")
	}

	mu.Lock()
	*now = now.Add(61 * time.Second)
	mu.Unlock()
	if !limiter.Allow(ip) {
		t.Fatalf("expected render after window to be allowed")
	}
}

func TestRenderLimiterIsPerIP(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)
	defer limiter.Stop()

	if !limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !limiter.Allow("203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if limiter.Allow("203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestRenderLimiterCheckDoesNotRecord(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.40"

	for i := 0; i < 3; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("check %d: expected allowed", i)
		}
	}
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected check to fail after record")
	}
	limiter.Stop()
	limiter.Stop()
}
