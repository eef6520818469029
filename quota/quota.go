// Package quota enforces a process-wide daily cap on upstream API calls
// through an atomic increment-and-get counter that can live outside the
// process (SQLite file, Redis) so several replicas share one budget.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExceeded is returned once the daily limit has been used up.
var ErrExceeded = errors.New("quota: daily limit reached")

// Counter is an atomic counter keyed by string. Increment must add one and
// return the new value in a single step; ttl applies when the key is created.
type Counter interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

const (
	DefaultLimit  = 1000
	DefaultPrefix = "youtube_quota_"
	// Keys outlive their day by an hour so a counter never resets early.
	DefaultTTL = 25 * time.Hour
)

// Guard spends one unit of the current UTC day's budget per call.
type Guard struct {
	counter Counter
	limit   int64
	prefix  string
	ttl     time.Duration
	now     func() time.Time
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithPrefix sets the key prefix (default "youtube_quota_").
func WithPrefix(p string) GuardOption {
	return func(g *Guard) { g.prefix = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// NewGuard returns a Guard allowing limit calls per day. A limit of zero or
// less uses DefaultLimit.
func NewGuard(c Counter, limit int64, opts ...GuardOption) *Guard {
	if limit <= 0 {
		limit = DefaultLimit
	}
	g := &Guard{
		counter: c,
		limit:   limit,
		prefix:  DefaultPrefix,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key is the counter key for the day containing t.
func (g *Guard) Key(t time.Time) string {
	return g.prefix + t.UTC().Format("2006-01-02")
}

// Take consumes one unit and reports ErrExceeded when the new count is over
// the limit. Counter failures are returned wrapped and do not consume.
func (g *Guard) Take(ctx context.Context) error {
	n, err := g.counter.Increment(ctx, g.Key(g.now()), g.ttl)
	if err != nil {
		return fmt.Errorf("quota: increment: %w", err)
	}
	if n > g.limit {
		return fmt.Errorf("%w (%d requests)", ErrExceeded, g.limit)
	}
	return nil
}

// Usage reports how many units today's key has recorded and the limit.
func (g *Guard) Usage(ctx context.Context) (used, limit int64, err error) {
	used, err = g.counter.Get(ctx, g.Key(g.now()))
	return used, g.limit, err
}
