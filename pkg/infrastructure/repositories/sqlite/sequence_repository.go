// Package sqlite persists code sequences in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

// SequenceRepository keeps one counter row per prefix. Increments run in a
// write transaction on a single connection, so concurrent callers queue
// instead of reading the same value.
type SequenceRepository struct {
	db *sql.DB
}

var _ repositories.SequenceRepository = (*SequenceRepository)(nil)

// NewSequenceRepository opens (creating if needed) the database at path
func NewSequenceRepository(path string) (*SequenceRepository, error) {
	if path == "" {
		path = "craftsman.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS craftsman_code_sequence (
		prefix TEXT PRIMARY KEY,
		last_value INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sequence table: %w", err)
	}
	return &SequenceRepository{db: db}, nil
}

// NextValue increments and returns the counter for prefix
func (r *SequenceRepository) NextValue(ctx context.Context, prefix string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO craftsman_code_sequence (prefix, last_value) VALUES (?, 0) ON CONFLICT(prefix) DO NOTHING`,
		prefix); err != nil {
		return 0, fmt.Errorf("insert sequence %s: %w", prefix, err)
	}

	var value int64
	if err := tx.QueryRowContext(ctx,
		`UPDATE craftsman_code_sequence SET last_value = last_value + 1 WHERE prefix = ? RETURNING last_value`,
		prefix).Scan(&value); err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", prefix, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return value, nil
}

// Close releases the database handle
func (r *SequenceRepository) Close() error {
	return r.db.Close()
}
