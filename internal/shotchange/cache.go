package shotchange

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Cache keeps shot change lists in SQLite, keyed by video hash.
type Cache struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS shot_changes (
	hash TEXT PRIMARY KEY,
	timestamps TEXT NOT NULL,
	count INTEGER NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
)`

// OpenCache creates the database file and its directory when missing.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

func (c *Cache) Path() string { return c.path }

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns false when nothing is stored for hash.
func (c *Cache) Get(ctx context.Context, hash string) ([]float64, bool, error) {
	ctx = ensureContext(ctx)

	var encoded string
	err := retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			`SELECT timestamps FROM shot_changes WHERE hash = ?`, hash).Scan(&encoded)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query shot changes: %w", err)
	}

	times, err := Read(strings.NewReader(encoded))
	if err != nil {
		return nil, false, err
	}
	return times, true, nil
}

// Put stores or replaces the list for hash. Source names where the list
// came from, such as a video path.
func (c *Cache) Put(ctx context.Context, hash, source string, times []float64) error {
	ctx = ensureContext(ctx)

	var sb strings.Builder
	if err := Write(&sb, times); err != nil {
		return err
	}

	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx, `
			INSERT INTO shot_changes (hash, timestamps, count, source, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(hash) DO UPDATE SET
				timestamps = excluded.timestamps,
				count = excluded.count,
				source = excluded.source,
				updated_at = excluded.updated_at`,
			hash, sb.String(), len(times), source, time.Now().UTC().Format(time.RFC3339))
		return err
	})
}

func (c *Cache) Delete(ctx context.Context, hash string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx, `DELETE FROM shot_changes WHERE hash = ?`, hash)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
