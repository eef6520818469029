package quota

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counters(t *testing.T) map[string]Counter {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := NewRedisCounter(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rc.Close() })

	sc, err := NewSQLiteCounter(filepath.Join(t.TempDir(), "quota.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sc.Close() })

	return map[string]Counter{
		"memory": NewMemoryCounter(),
		"sqlite": sc,
		"redis":  rc,
	}
}

func TestGuardKeyUsesUTCDate(t *testing.T) {
	g := NewGuard(NewMemoryCounter(), 0)
	loc := time.FixedZone("UTC+10", 10*3600)
	ts := time.Date(2024, 3, 2, 5, 0, 0, 0, loc)
	assert.Equal(t, "youtube_quota_2024-03-01", g.Key(ts))
}

func TestGuardEnforcesLimit(t *testing.T) {
	for name, c := range counters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := NewGuard(c, 3)
			for i := 0; i < 3; i++ {
				require.NoError(t, g.Take(ctx))
			}
			err := g.Take(ctx)
			assert.True(t, errors.Is(err, ErrExceeded))

			used, limit, err := g.Usage(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(4), used)
			assert.Equal(t, int64(3), limit)
		})
	}
}

func TestGuardResetsOnNewDay(t *testing.T) {
	day := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	g := NewGuard(NewMemoryCounter(), 1, WithClock(func() time.Time { return day }))
	ctx := context.Background()
	require.NoError(t, g.Take(ctx))
	require.ErrorIs(t, g.Take(ctx), ErrExceeded)

	day = day.Add(2 * time.Minute)
	assert.NoError(t, g.Take(ctx))
}

func TestCounterIncrementIsAtomic(t *testing.T) {
	for name, c := range counters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := c.Increment(ctx, "k", time.Hour)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()
			n, err := c.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, int64(20), n)
		})
	}
}

func TestRedisCounterSetsExpiryOnFirstIncrement(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := NewRedisCounter(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	_, err := rc.Increment(ctx, "k", DefaultTTL)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, mr.TTL("k"))

	mr.FastForward(time.Hour)
	_, err = rc.Increment(ctx, "k", DefaultTTL)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL-time.Hour, mr.TTL("k"))

	mr.FastForward(DefaultTTL)
	n, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteCounterExpiry(t *testing.T) {
	sc, err := NewSQLiteCounter(filepath.Join(t.TempDir(), "q.db"))
	require.NoError(t, err)
	defer sc.Close()

	now := time.Unix(1_700_000_000, 0)
	sc.now = func() time.Time { return now }
	ctx := context.Background()

	n, err := sc.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = sc.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	now = now.Add(2 * time.Minute)
	got, err := sc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, got)

	n, err = sc.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	now = now.Add(2 * time.Minute)
	removed, err := sc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestMemoryCounterExpiry(t *testing.T) {
	m := NewMemoryCounter()
	now := time.Unix(0, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Increment(ctx, "k", time.Second)
	m.Increment(ctx, "k", time.Second)
	n, _ := m.Get(ctx, "k")
	assert.Equal(t, int64(2), n)

	now = now.Add(time.Second)
	n, _ = m.Get(ctx, "k")
	assert.Zero(t, n)
	n, _ = m.Increment(ctx, "k", time.Second)
	assert.Equal(t, int64(1), n)
}
