package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Store persists the render ledger in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the ledger database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS renders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			backend TEXT NOT NULL,
			comment_id TEXT NOT NULL DEFAULT '',
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			status INTEGER NOT NULL,
			ip_hash TEXT NOT NULL,
			device TEXT NOT NULL,
			bot INTEGER NOT NULL DEFAULT 0,
			day TEXT NOT NULL,
			ts INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_renders_ts ON renders(ts);
		CREATE INDEX IF NOT EXISTS idx_renders_day_backend ON renders(day, backend);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

func (s *Store) migrate(ctx context.Context) error {
	verStr, err := s.GetSetting(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		if version, err = strconv.Atoi(verStr); err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version < currentSchemaVersion {
		version = currentSchemaVersion
	}
	return s.SetSetting(ctx, "schema_version", strconv.Itoa(version))
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// SaveRender appends r to the ledger. A zero Timestamp means now.
func (s *Store) SaveRender(ctx context.Context, r *Render) error {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO renders (backend, comment_id, width, height, bytes, duration_ms, status, ip_hash, device, bot, day, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Backend, r.CommentID, r.Width, r.Height, r.Bytes, r.DurationMS, r.Status,
		r.IPHash, r.Device, r.Bot, ts.Format("2006-01-02"), ts.Unix())
	return err
}

// GetStats aggregates renders with from <= ts < to.
func (s *Store) GetStats(ctx context.Context, from, to time.Time) (*Stats, error) {
	stats := &Stats{
		Period:   from.UTC().Format("2006-01-02") + " to " + to.UTC().Format("2006-01-02"),
		Backends: []BackendStat{},
		Devices:  []DimensionStat{},
		Daily:    []DailyRenders{},
	}
	lo, hi := from.Unix(), to.Unix()

	var avg sql.NullFloat64
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status >= 400 THEN 1 ELSE 0 END), 0),
		       COUNT(DISTINCT ip_hash),
		       SUM(bytes),
		       AVG(duration_ms)
		FROM renders WHERE ts >= ? AND ts < ?`, lo, hi).
		Scan(&stats.TotalRenders, &stats.Failed, &stats.UniqueClients, &total, &avg)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	stats.TotalBytes = total.Int64
	stats.AvgDurationMS = int(avg.Float64)

	rows, err := s.db.QueryContext(ctx, `
		SELECT backend, COUNT(*), SUM(CASE WHEN status >= 400 THEN 1 ELSE 0 END), AVG(duration_ms)
		FROM renders WHERE ts >= ? AND ts < ?
		GROUP BY backend ORDER BY COUNT(*) DESC, backend`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("backends: %w", err)
	}
	for rows.Next() {
		var b BackendStat
		var a float64
		if err := rows.Scan(&b.Name, &b.Renders, &b.Failed, &a); err != nil {
			rows.Close()
			return nil, err
		}
		b.AvgDurationMS = int(a)
		stats.Backends = append(stats.Backends, b)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT device, COUNT(*) FROM renders WHERE ts >= ? AND ts < ?
		GROUP BY device ORDER BY COUNT(*) DESC, device`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("devices: %w", err)
	}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.Devices = append(stats.Devices, d)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT day, backend, COUNT(*) FROM renders WHERE ts >= ? AND ts < ?
		GROUP BY day, backend ORDER BY day, backend`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("daily: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d DailyRenders
		if err := rows.Scan(&d.Date, &d.Backend, &d.Renders); err != nil {
			return nil, err
		}
		stats.Daily = append(stats.Daily, d)
	}
	return stats, rows.Err()
}

// CleanupOldRenders removes renders older than the retention period.
func (s *Store) CleanupOldRenders(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM renders WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup renders: %w", err)
	}
	return res.RowsAffected()
}

// StartCleanupScheduler runs periodic cleanup of old data. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				n, err := s.CleanupOldRenders(context.Background(), retentionDays)
				if err != nil {
					log.Error().Err(err).Msg("analytics cleanup failed")
					continue
				}
				if n > 0 {
					log.Debug().Int64("removed", n).Msg("analytics cleanup")
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
