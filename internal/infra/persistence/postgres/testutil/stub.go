// Package testutil provides a minimal in-memory stand-in for the
// lincode_labeled table so the postgres index (C10) can be exercised
// without a live Postgres server. It understands exactly the statements
// internal/infra/persistence/postgres.Index issues against that table and
// nothing more.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// LabeledConn backs a stubbed lincode_labeled table: id -> lincode.
type LabeledConn struct {
	mu   sync.Mutex
	rows map[string]string
}

// NewStubDB registers a sql.DB backed by a fresh, empty LabeledConn.
func NewStubDB() (*sql.DB, *LabeledConn) {
	conn := &LabeledConn{rows: make(map[string]string)}
	name := fmt.Sprintf("lincode-labeled-stub-%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *LabeledConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *LabeledConn) Prepare(string) (driver.Stmt, error) {
	return nil, fmt.Errorf("lincode_labeled stub: Prepare not implemented")
}

func (c *LabeledConn) Close() error { return nil }

func (c *LabeledConn) Begin() (driver.Tx, error) { return &noopTx{}, nil }

// Ping implements driver.Pinger.
func (c *LabeledConn) Ping(context.Context) error { return nil }

// ExecContext implements driver.ExecerContext, recognizing only the
// CREATE TABLE and upsert statements postgres.Index issues.
func (c *LabeledConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmt := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(stmt, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(stmt, "INSERT INTO LINCODE_LABELED"):
		if len(args) != 2 {
			return nil, fmt.Errorf("lincode_labeled stub: expected (id, lincode) args, got %d", len(args))
		}
		id, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("lincode_labeled stub: id arg is not a string")
		}
		lincode, ok := args[1].Value.(string)
		if !ok {
			return nil, fmt.Errorf("lincode_labeled stub: lincode arg is not a string")
		}
		c.rows[id] = lincode
		return driver.RowsAffected(1), nil
	default:
		return nil, fmt.Errorf("lincode_labeled stub: unsupported exec statement: %s", query)
	}
}

// QueryContext implements driver.QueryerContext, recognizing only the
// point lookup (SELECT ... WHERE id = $1) and the full scan (SELECT ...
// FROM lincode_labeled, used by Count) postgres.Index issues.
func (c *LabeledConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmt := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(stmt, "SELECT") || !strings.Contains(stmt, "LINCODE_LABELED") {
		return nil, fmt.Errorf("lincode_labeled stub: unsupported query statement: %s", query)
	}

	if strings.Contains(stmt, "WHERE") {
		if len(args) != 1 {
			return nil, fmt.Errorf("lincode_labeled stub: expected one id arg, got %d", len(args))
		}
		id, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("lincode_labeled stub: id arg is not a string")
		}
		if _, found := c.rows[id]; !found {
			return &idRows{}, nil
		}
		return &idRows{ids: []string{id}}, nil
	}

	ids := make([]string, 0, len(c.rows))
	for id := range c.rows {
		ids = append(ids, id)
	}
	return &idRows{ids: ids}, nil
}

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

// idRows presents a single "id" column, matching every SELECT
// postgres.Index issues against lincode_labeled.
type idRows struct {
	ids []string
	idx int
}

func (r *idRows) Columns() []string { return []string{"id"} }
func (r *idRows) Close() error      { return nil }

func (r *idRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.ids) {
		return io.EOF
	}
	dest[0] = r.ids[r.idx]
	r.idx++
	return nil
}
