package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter keeps counters in process memory. It is only correct for a
// single replica and is used when no external store is configured.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]memoryEntry
	now    func() time.Time
}

type memoryEntry struct {
	value   int64
	expires time.Time
}

// NewMemoryCounter returns an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]memoryEntry), now: time.Now}
}

// Increment adds one to key, starting a fresh counter if key expired.
func (m *MemoryCounter) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.counts[key]
	if !ok || (!e.expires.IsZero() && !now.Before(e.expires)) {
		e = memoryEntry{}
		if ttl > 0 {
			e.expires = now.Add(ttl)
		}
	}
	e.value++
	m.counts[key] = e
	m.sweep(now)
	return e.value, nil
}

// Get returns the current value of key, zero if absent or expired.
func (m *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.counts[key]
	if !ok || (!e.expires.IsZero() && !now.Before(e.expires)) {
		return 0, nil
	}
	return e.value, nil
}

// sweep drops expired keys. Callers hold mu.
func (m *MemoryCounter) sweep(now time.Time) {
	for k, e := range m.counts {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.counts, k)
		}
	}
}
