package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStateStorage persists per-session state in a SQLite table, one row
// per session.
type SQLiteStateStorage struct {
	db *sql.DB
}

// NewSQLiteStateStorage opens (or creates) the SQLite database at path.
func NewSQLiteStateStorage(path string) (*SQLiteStateStorage, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	s := &SQLiteStateStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStateStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_state (
		session_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadState returns the persisted state for a session, if any.
func (s *SQLiteStateStorage) LoadState(ctx context.Context, sessionID string) ([]byte, bool, error) {
	var state []byte
	row := s.db.QueryRowContext(ctx, "SELECT state FROM session_state WHERE session_id = ?", sessionID)
	if err := row.Scan(&state); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return state, true, nil
}

// SaveState overwrites the persisted state for a session.
func (s *SQLiteStateStorage) SaveState(ctx context.Context, sessionID string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_state (session_id, state, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			updated_at = CURRENT_TIMESTAMP
	`, sessionID, data)
	return err
}

// DeleteState removes the persisted state for a session.
func (s *SQLiteStateStorage) DeleteState(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM session_state WHERE session_id = ?", sessionID)
	return err
}

// Close closes the database connection.
func (s *SQLiteStateStorage) Close() error {
	return s.db.Close()
}
