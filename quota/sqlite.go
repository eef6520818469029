package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCounter persists counters in a SQLite file so the daily budget
// survives restarts and is shared by processes on the same host.
type SQLiteCounter struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteCounter opens (or creates) the database at path and ensures the
// counters table exists.
func NewSQLiteCounter(path string) (*SQLiteCounter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them. WAL lets
	// readers proceed during an increment; busy_timeout makes writers queue
	// instead of failing with SQLITE_BUSY.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open quota db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	c := &SQLiteCounter{db: db, now: time.Now}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return c, nil
}

// Close closes the underlying database.
func (c *SQLiteCounter) Close() error {
	return c.db.Close()
}

func (c *SQLiteCounter) ensureSchema() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS counters (
    key TEXT PRIMARY KEY,
    value INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);
`)
	return err
}

// Increment adds one to key in a single statement. An expired row restarts
// at one with a fresh expiry.
func (c *SQLiteCounter) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := c.now().Unix()
	expires := c.now().Add(ttl).Unix()
	if ttl <= 0 {
		expires = 1 << 62
	}
	var n int64
	err := c.db.QueryRowContext(ctx, `
INSERT INTO counters (key, value, expires_at) VALUES (?, 1, ?)
ON CONFLICT(key) DO UPDATE SET
    value = CASE WHEN counters.expires_at <= ? THEN 1 ELSE counters.value + 1 END,
    expires_at = CASE WHEN counters.expires_at <= ? THEN excluded.expires_at ELSE counters.expires_at END
RETURNING value`, key, expires, now, now).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Get returns the live value of key, zero when absent or expired.
func (c *SQLiteCounter) Get(ctx context.Context, key string) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE key = ? AND expires_at > ?`, key, c.now().Unix()).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Cleanup deletes expired rows and reports how many were removed.
func (c *SQLiteCounter) Cleanup(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM counters WHERE expires_at <= ?`, c.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (c *SQLiteCounter) StartCleanup(ctx context.Context, interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.Cleanup(ctx); err != nil && onErr != nil {
					onErr(err)
				}
			}
		}
	}()
}
