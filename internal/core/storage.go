package core

import (
	"fmt"

	"lincode/internal/infra/persistence/postgres"
	"lincode/internal/infra/persistence/sqlite"
)

// stringIndex is the shape both sqlite.Index and postgres.Index satisfy:
// they mirror id -> lincode as plain strings, since neither backend needs
// to know the LINcode type.
type stringIndex interface {
	Has(id string) (bool, error)
	Put(id string, lincode string) error
	Close() error
}

// indexAdapter adapts a stringIndex to the core.Index interface, converting
// between LINCode and its wire-format string on the way in.
type indexAdapter struct {
	backend stringIndex
}

func (a *indexAdapter) Has(id string) (bool, error) { return a.backend.Has(id) }

func (a *indexAdapter) Put(id string, code LINCode) error {
	return a.backend.Put(id, code.String())
}

func (a *indexAdapter) Close() error { return a.backend.Close() }

// OpenIndex constructs the accelerator index selected by driver. An empty
// or IndexMemory driver yields a nil Index, which every caller in this
// package treats as "fall back to a lookup in the in-memory set of labeled
// ids" (spec SPEC_FULL §4.10).
func OpenIndex(driver IndexDriver, dsn string) (Index, error) {
	switch driver {
	case "", IndexMemory:
		return nil, nil
	case IndexSQLite:
		idx, err := sqlite.NewIndex(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite index: %w", err)
		}
		return &indexAdapter{backend: idx}, nil
	case IndexPostgres:
		idx, err := postgres.NewIndex(dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres index: %w", err)
		}
		return &indexAdapter{backend: idx}, nil
	default:
		return nil, fmt.Errorf("unknown index driver %q", driver)
	}
}
