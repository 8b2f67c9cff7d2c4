package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is an open cross-match database.
// It owns a single connection; only one goroutine should write at a time.
type Store struct {
	db   *sql.DB
	path string

	// Now stamps created_at on flushed records.
	Now func() time.Time
}

// Create builds a fresh store at path.
//
// Any existing file at path (and its -journal/-wal/-shm siblings) is removed
// first; data is never merged. Every failure is a *CreationError.
func Create(ctx context.Context, path string, meta Metadata) (*Store, error) {
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &CreationError{Path: path, Step: "remove", Err: err}
		}
	}

	s, err := open(path)
	if err != nil {
		return nil, &CreationError{Path: path, Step: "open", Err: err}
	}

	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		s.Close()
		return nil, &CreationError{Path: path, Step: "schema", Err: err}
	}

	if err := s.writeMetadata(ctx, meta); err != nil {
		s.Close()
		return nil, &CreationError{Path: path, Step: "metadata", Err: err}
	}

	return s, nil
}

// Open opens an existing store for lookups and statistics.
// Returns ErrNotFound if the file does not exist.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open store %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	s, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	var name string
	err = s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='gaia_sao_xmatch'`).Scan(&name)
	if err != nil {
		s.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("open store %s: missing gaia_sao_xmatch table", path)
		}
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	return s, nil
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The builder is the only writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db, path: path, Now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SizeBytes returns the size of the database file on disk.
func (s *Store) SizeBytes() (int64, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("stat store: %w", err)
	}
	return fi.Size(), nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func (s *Store) writeMetadata(ctx context.Context, meta Metadata) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write metadata: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, kv := range meta.pairs(s.now()) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return fmt.Errorf("write metadata %s: %w", kv[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write metadata: commit: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
