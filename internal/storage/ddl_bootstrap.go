package storage

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sync"

	"rowpipe/internal/ddl"
)

// DDLBootstrapper applies a table definition through repo, typically as a
// guarded CREATE TABLE.
type DDLBootstrapper func(ctx context.Context, repo Repository, def ddl.TableDef) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the bootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable runs the bootstrapper registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, def ddl.TableDef) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, def)
}

// CreateTable returns a bootstrapper that renders def in dialect d and
// executes it.
func CreateTable(d ddl.Dialect) DDLBootstrapper {
	return func(ctx context.Context, repo Repository, def ddl.TableDef) error {
		stmt, err := d.CreateTableSQL(def)
		if err != nil {
			return fmt.Errorf("render DDL: %w", err)
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
		return nil
	}
}

// DriverValue lowers values that implement driver.Valuer (decimals, GUIDs)
// to their driver representation for backends without native support.
func DriverValue(v any) (any, error) {
	dv, ok := v.(driver.Valuer)
	if !ok {
		return v, nil
	}
	return dv.Value()
}
