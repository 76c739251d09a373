package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
)

func TestStubConnStoresAndQueriesLabeledRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	if _, err := conn.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS lincode_labeled (id TEXT PRIMARY KEY, lincode TEXT NOT NULL)", nil); err != nil {
		t.Fatalf("ExecContext create: %v", err)
	}

	upsert := "INSERT INTO lincode_labeled(id, lincode) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET lincode = excluded.lincode"
	if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "sample-1"}, {Value: "0_0_1"}}); err != nil {
		t.Fatalf("ExecContext insert: %v", err)
	}
	if conn.rows["sample-1"] != "0_0_1" {
		t.Fatalf("expected sample-1 to be stored, got %v", conn.rows)
	}

	// Re-upsert under a new lincode: the row must be replaced, not duplicated.
	if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "sample-1"}, {Value: "0_0_9"}}); err != nil {
		t.Fatalf("ExecContext upsert: %v", err)
	}
	if conn.rows["sample-1"] != "0_0_9" {
		t.Fatalf("expected sample-1 to be updated to 0_0_9, got %v", conn.rows)
	}

	rows, err := conn.QueryContext(ctx, "SELECT id FROM lincode_labeled WHERE id = $1", []driver.NamedValue{{Value: "sample-1"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer rows.Close()

	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "sample-1" {
		t.Fatalf("unexpected row value: %v", dest)
	}
	if err := rows.Next(dest); err != io.EOF {
		t.Fatalf("expected io.EOF after the single matching row, got %v", err)
	}
}

func TestStubConnQueryMissesReturnNoRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	rows, err := conn.QueryContext(ctx, "SELECT id FROM lincode_labeled WHERE id = $1", []driver.NamedValue{{Value: "absent"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer rows.Close()

	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != io.EOF {
		t.Fatalf("expected io.EOF on an unmatched id, got %v", err)
	}
}
