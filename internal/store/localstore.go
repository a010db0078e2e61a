package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by LocalStore.Get for a missing key.
var ErrNotFound = errors.New("not found")

const localStoreFileName = "local.sqlite"

// LocalStore is a small persistent key/value store, the client's equivalent of
// browser local storage. It is safe for concurrent use.
type LocalStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenLocalStore opens (creating if needed) <dir>/local.sqlite.
func OpenLocalStore(ctx context.Context, dir string) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("local store: missing dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", filepath.Join(dir, localStoreFileName))
	if err != nil {
		return nil, err
	}
	// CLI and TUI may hold the file at the same time.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("local store: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("local store: migrate: %w", err)
	}
	return &LocalStore{db: db}, nil
}

// OpenDefaultLocalStore opens the store under ConfigDir.
func OpenDefaultLocalStore(ctx context.Context) (*LocalStore, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return OpenLocalStore(ctx, dir)
}

func (s *LocalStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *LocalStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv(k, v) VALUES(?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	return err
}

// Remove deletes key. Removing a missing key is not an error.
func (s *LocalStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, key)
	return err
}

func (s *LocalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
