// Package sqlite provides a SQLite-backed accelerator for the labeled-set
// index (lincode's C10), mirroring the append-only TSV log so has_label
// lookups don't require a linear scan once the labeled set grows into the
// tens of thousands of rows.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Index persists id -> lincode pairs to a single SQLite table. It never
// originates data: its rows are written by the caller from the
// authoritative log.
type Index struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewIndex opens (creating if necessary) a SQLite-backed index at path.
func NewIndex(path string) (*Index, error) {
	if path == "" {
		path = "lincode_index.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS labeled (
		id TEXT PRIMARY KEY,
		lincode TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create labeled table: %w", err)
	}
	return &Index{db: db, path: path}, nil
}

// Has reports whether id is already present in the index.
func (idx *Index) Has(id string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	var found int
	err := idx.db.QueryRow(`SELECT 1 FROM labeled WHERE id = ?`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query labeled index: %w", err)
	}
	return true, nil
}

// Put inserts or replaces the lincode recorded for id.
func (idx *Index) Put(id string, lincode string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, err := idx.db.Exec(`INSERT INTO labeled(id, lincode) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET lincode = excluded.lincode`, id, lincode)
	if err != nil {
		return fmt.Errorf("upsert labeled index: %w", err)
	}
	return nil
}

// Count returns the number of rows currently in the index.
func (idx *Index) Count() (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM labeled`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count labeled index: %w", err)
	}
	return n, nil
}

// Reset deletes every row from the index.
func (idx *Index) Reset() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, err := idx.db.Exec(`DELETE FROM labeled`); err != nil {
		return fmt.Errorf("reset labeled index: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}
