package commentcard

import (
	"sync"
	"time"
)

// RenderLimiter rate-limits requests per IP address with a sliding window.
// It guards the card renders and the stats endpoint.
type RenderLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewRenderLimiter creates a RenderLimiter that allows max renders per
// window. Call Stop to end its cleanup goroutine.
func NewRenderLimiter(max int, window time.Duration) *RenderLimiter {
	l := &RenderLimiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *RenderLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for ip, hits := range l.hits {
				if kept := prune(hits, cutoff); len(kept) == 0 {
					delete(l.hits, ip)
				} else {
					l.hits[ip] = kept
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *RenderLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Allow checks the IP against the limit and records the render if allowed.
func (l *RenderLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.check(ip) {
		return false
	}
	l.hits[ip] = append(l.hits[ip], l.now())
	return true
}

// Check returns true if the IP has not exceeded the rate limit.
// It does not record a render.
func (l *RenderLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(ip)
}

// Record registers a render for the given IP.
func (l *RenderLimiter) Record(ip string) {
	l.mu.Lock()
	l.hits[ip] = append(l.hits[ip], l.now())
	l.mu.Unlock()
}

// check prunes the IP's window. Callers hold mu.
func (l *RenderLimiter) check(ip string) bool {
	kept := prune(l.hits[ip], l.now().Add(-l.window))
	if len(kept) == 0 {
		delete(l.hits, ip)
	} else {
		l.hits[ip] = kept
	}
	return len(kept) < l.max
}

func prune(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
