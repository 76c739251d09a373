package core

// Index is the pluggable accelerator over the append-only labeled-set log
// (spec SPEC_FULL §4.10). It is never authoritative: the TSV log remains
// the source of truth, and an Index must be rebuildable from it. A nil
// Index is valid everywhere one is accepted; callers fall back to a lookup
// in the in-memory set of labeled ids.
type Index interface {
	// Has reports whether id has already been assigned a code.
	Has(id string) (bool, error)
	// Put records that id now has the given code. Called once per
	// successful append to the authoritative log.
	Put(id string, code LINCode) error
	// Close releases any resources (file handles, connections).
	Close() error
}

// IndexDriver identifies a concrete Index backend.
type IndexDriver string

const (
	IndexMemory   IndexDriver = "memory"
	IndexSQLite   IndexDriver = "sqlite"
	IndexPostgres IndexDriver = "postgres"
)
