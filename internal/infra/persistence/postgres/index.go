// Package postgres provides an optional Postgres-backed mirror of the
// labeled-set log for downstream SQL consumers (lincode's C10), registered
// through pgx as a database/sql driver exactly the way a larger service
// would wire a shared read replica.
package postgres

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const defaultDriver = "pgx"

// sqlOpen is a package var so tests can substitute a stub driver without a
// live Postgres server.
var sqlOpen = sql.Open

// SetSQLOpenForTest overrides the package's sql.Open indirection for the
// duration of a test, returning a func that restores the previous value.
// Exported so the shared index contract test in internal/infra/persistence
// can substitute a stub driver from outside this package.
func SetSQLOpenForTest(open func(driverName, dataSourceName string) (*sql.DB, error)) (restore func()) {
	prev := sqlOpen
	sqlOpen = open
	return func() { sqlOpen = prev }
}

// Index mirrors id -> lincode pairs into a Postgres table. Like its SQLite
// counterpart it never originates data and writes are best-effort from the
// caller's perspective: a mirror failure must never block or fail the
// authoritative TSV append (SPEC_FULL §4.10).
type Index struct {
	db *sql.DB
	mu sync.Mutex
}

// NewIndex opens a Postgres-backed index using dsn and ensures its table
// exists.
func NewIndex(dsn string) (*Index, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres index: dsn required")
	}
	db, err := sqlOpen(defaultDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres index: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS lincode_labeled (
		id TEXT PRIMARY KEY,
		lincode TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create lincode_labeled table: %w", err)
	}
	return &Index{db: db}, nil
}

// Has reports whether id is already mirrored.
func (idx *Index) Has(id string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	var found string
	err := idx.db.QueryRow(`SELECT id FROM lincode_labeled WHERE id = $1`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query lincode_labeled: %w", err)
	}
	return true, nil
}

// Put inserts or replaces the lincode recorded for id.
func (idx *Index) Put(id, lincode string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, err := idx.db.Exec(`INSERT INTO lincode_labeled(id, lincode) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET lincode = excluded.lincode`, id, lincode)
	if err != nil {
		return fmt.Errorf("upsert lincode_labeled: %w", err)
	}
	return nil
}

// Count returns the number of mirrored rows.
func (idx *Index) Count() (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	rows, err := idx.db.Query(`SELECT id FROM lincode_labeled`)
	if err != nil {
		return 0, fmt.Errorf("count lincode_labeled: %w", err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

// Close closes the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}
