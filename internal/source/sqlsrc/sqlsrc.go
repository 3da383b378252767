// Package sqlsrc exposes a database/sql result set as a rows.Cursor.
//
// Drivers for Postgres (pgx stdlib), SQL Server (go-mssqldb) and SQLite
// (modernc) are registered by this package; Open accepts their driver names
// and the aliases postgres and mssql.
package sqlsrc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"rowpipe/internal/rows"
)

// DriverName maps a configured driver or storage kind to a database/sql
// driver name.
func DriverName(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "pgx", "postgres", "postgresql":
		return "pgx", nil
	case "sqlserver", "mssql":
		return "sqlserver", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	}
	return "", fmt.Errorf("sqlsrc: unsupported driver %q", kind)
}

// Cursor iterates a *sql.Rows. []byte cells are copied into strings so
// values stay valid after the next Read.
type Cursor struct {
	rs     *sql.Rows
	owned  []io.Closer
	dir    *rows.Directory
	vals   []any
	ptrs   []any
	depth  int
	hasRow bool
	done   bool
	closed bool
}

// New wraps rs. The cursor closes rs, then owned, on Close.
func New(rs *sql.Rows, owned ...io.Closer) (*Cursor, error) {
	names, err := rs.Columns()
	if err != nil {
		_ = rs.Close()
		return nil, fmt.Errorf("sqlsrc: columns: %w", err)
	}
	dir, err := rows.NewDirectory(names)
	if err != nil {
		_ = rs.Close()
		return nil, err
	}
	c := &Cursor{
		rs:    rs,
		owned: owned,
		dir:   dir,
		vals:  make([]any, len(names)),
		ptrs:  make([]any, len(names)),
	}
	for i := range c.vals {
		c.ptrs[i] = &c.vals[i]
	}
	return c, nil
}

// Query runs query on db. The cursor does not own db.
func Query(ctx context.Context, db *sql.DB, query string, args ...any) (*Cursor, error) {
	rs, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlsrc: query: %w", err)
	}
	return New(rs)
}

// Open connects with driver and dsn, runs query and returns a cursor that
// owns the connection pool.
func Open(ctx context.Context, driver, dsn, query string) (*Cursor, error) {
	name, err := DriverName(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlsrc: DSN must not be empty")
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlsrc: open %s: %w", name, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlsrc: ping %s: %w", name, err)
	}

	rs, err := db.QueryContext(ctx, query)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlsrc: query: %w", err)
	}
	return New(rs, db)
}

func (c *Cursor) Read() (bool, error) {
	if c.closed {
		return false, rows.ErrCursorClosed
	}
	c.hasRow = false
	if c.done {
		return false, nil
	}
	if !c.rs.Next() {
		c.done = true
		if err := c.rs.Err(); err != nil {
			return false, fmt.Errorf("sqlsrc: next: %w", err)
		}
		return false, nil
	}
	if err := c.rs.Scan(c.ptrs...); err != nil {
		return false, fmt.Errorf("sqlsrc: scan row %d: %w", c.depth+1, err)
	}
	for i, v := range c.vals {
		if b, ok := v.([]byte); ok {
			c.vals[i] = string(b)
		}
	}
	c.depth++
	c.hasRow = true
	return true, nil
}

func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.hasRow = false
	errs := []error{c.rs.Close()}
	for _, o := range c.owned {
		errs = append(errs, o.Close())
	}
	return errors.Join(errs...)
}

func (c *Cursor) IsClosed() bool  { return c.closed }
func (c *Cursor) Depth() int      { return c.depth }
func (c *Cursor) FieldCount() int { return c.dir.Len() }

func (c *Cursor) Name(ordinal int) (string, error) {
	if c.closed {
		return "", rows.ErrCursorClosed
	}
	return c.dir.Name(ordinal)
}

func (c *Cursor) Ordinal(name string) (int, error) {
	if c.closed {
		return -1, rows.ErrCursorClosed
	}
	return c.dir.Ordinal(name)
}

func (c *Cursor) Value(ordinal int) (any, error) {
	if c.closed {
		return nil, rows.ErrCursorClosed
	}
	if !c.hasRow {
		return nil, fmt.Errorf("sqlsrc: no current row (depth %d)", c.depth)
	}
	if ordinal < 0 || ordinal >= len(c.vals) {
		return nil, &rows.ColumnNotFoundError{Ordinal: ordinal}
	}
	return c.vals[ordinal], nil
}

func (c *Cursor) Values(dst []any) (int, error) {
	if c.closed {
		return 0, rows.ErrCursorClosed
	}
	if !c.hasRow {
		return 0, fmt.Errorf("sqlsrc: no current row (depth %d)", c.depth)
	}
	return copy(dst, c.vals), nil
}

func (c *Cursor) IsNull(ordinal int) (bool, error) {
	v, err := c.Value(ordinal)
	return v == nil, err
}
