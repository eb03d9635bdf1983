package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteKV is an expiring key-value store backed by a SQLite table. Expired
// rows read as absent and are reaped lazily on access.
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV opens (or creates) the SQLite database at path.
func NewSQLiteKV(path string) (*SQLiteKV, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv database: %w", err)
	}

	kv := &SQLiteKV{db: db}
	if err := kv.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate kv database: %w", err)
	}

	return kv, nil
}

func (kv *SQLiteKV) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at DATETIME,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_kv_entries_expires ON kv_entries(expires_at);
	`
	_, err := kv.db.Exec(schema)
	return err
}

// Get returns the value for key, treating expired rows as absent.
func (kv *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt sql.NullTime

	row := kv.db.QueryRowContext(ctx, `
		SELECT value, expires_at FROM kv_entries WHERE key = ?
	`, key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	if expiresAt.Valid && !expiresAt.Time.After(time.Now()) {
		// Lazy reap: the row is dead, remove it on the way out. The expiry
		// guard keeps a concurrent Put that refreshed the key intact.
		_, _ = kv.db.ExecContext(ctx,
			"DELETE FROM kv_entries WHERE key = ? AND expires_at <= ?", key, expiresAt.Time)
		return nil, false, nil
	}

	return value, true, nil
}

// Put stores value under key with an optional TTL. Writing resets the expiry
// clock.
func (kv *SQLiteKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	_, err := kv.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, key, value, expiresAt)
	return err
}

// Delete removes key. Deleting a missing key is a no-op.
func (kv *SQLiteKV) Delete(ctx context.Context, key string) error {
	_, err := kv.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key)
	return err
}

// Close closes the database connection.
func (kv *SQLiteKV) Close() error {
	return kv.db.Close()
}
