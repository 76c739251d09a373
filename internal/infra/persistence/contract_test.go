// Package persistence holds a shared contract test run against every
// labeled-set index backend (lincode's C10), mirroring the reference
// architecture's persistence_contract_test.go pattern: one behavioral
// contract, several drivers, no driver-specific assertions leaking in.
package persistence

import (
	"database/sql"
	"testing"

	"lincode/internal/infra/persistence/postgres"
	"lincode/internal/infra/persistence/postgres/testutil"
	"lincode/internal/infra/persistence/sqlite"
)

// indexContract is the shape both backends present to internal/core's
// indexAdapter. Defined locally so this package doesn't need to import
// internal/core just to describe the contract.
type indexContract interface {
	Has(id string) (bool, error)
	Put(id string, lincode string) error
	Close() error
}

func withSQLiteIndex(t *testing.T) indexContract {
	t.Helper()
	idx, err := sqlite.NewIndex(t.TempDir() + "/contract.db")
	if err != nil {
		t.Fatalf("sqlite.NewIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func withPostgresIndex(t *testing.T) indexContract {
	t.Helper()
	db, _ := testutil.NewStubDB()
	restore := postgres.SetSQLOpenForTest(func(string, string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	idx, err := postgres.NewIndex("stub-dsn")
	if err != nil {
		t.Fatalf("postgres.NewIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func contractDrivers(t *testing.T) map[string]func(*testing.T) indexContract {
	return map[string]func(*testing.T) indexContract{
		"sqlite":   withSQLiteIndex,
		"postgres": withPostgresIndex,
	}
}

func TestIndexContractHasOnEmptyIndex(t *testing.T) {
	for name, open := range contractDrivers(t) {
		t.Run(name, func(t *testing.T) {
			idx := open(t)
			has, err := idx.Has("missing-id")
			if err != nil {
				t.Fatalf("Has: %v", err)
			}
			if has {
				t.Fatal("Has on an empty index must report false")
			}
		})
	}
}

func TestIndexContractPutThenHas(t *testing.T) {
	for name, open := range contractDrivers(t) {
		t.Run(name, func(t *testing.T) {
			idx := open(t)
			if err := idx.Put("sample-1", "0_0_1"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			has, err := idx.Has("sample-1")
			if err != nil {
				t.Fatalf("Has: %v", err)
			}
			if !has {
				t.Fatal("Has must report true immediately after Put")
			}
		})
	}
}

func TestIndexContractPutIsIdempotentPerID(t *testing.T) {
	for name, open := range contractDrivers(t) {
		t.Run(name, func(t *testing.T) {
			idx := open(t)
			if err := idx.Put("sample-1", "0_0_1"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := idx.Put("sample-1", "0_0_9"); err != nil {
				t.Fatalf("Put (repeat): %v", err)
			}
			has, err := idx.Has("sample-1")
			if err != nil {
				t.Fatalf("Has: %v", err)
			}
			if !has {
				t.Fatal("Has must still report true after re-Put of the same id")
			}
		})
	}
}
