package ddl

import (
	"fmt"
	"strings"

	"rowpipe/internal/rows"
)

// CreateTableSQL renders an idempotent CREATE TABLE statement for t: Postgres
// and SQLite use IF NOT EXISTS, SQL Server guards the statement with
// OBJECT_ID. Columns render as `<name> <type> [NOT NULL]` in order. Column
// names must be unique under the same folding a rows.Directory applies.
func (d Dialect) CreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	lines := make([]string, len(t.Columns))
	seen := make(map[string]struct{}, len(t.Columns))
	for i, c := range t.Columns {
		line, err := d.columnSQL(c)
		if err != nil {
			return "", fmt.Errorf("ddl: table %s: %w", fqn, err)
		}
		k := rows.Key(c.Name)
		if _, dup := seen[k]; dup {
			return "", fmt.Errorf("ddl: table %s: duplicate column %q", fqn, c.Name)
		}
		seen[k] = struct{}{}
		lines[i] = line
	}

	body := "(\n  " + strings.Join(lines, ",\n  ") + "\n)"
	if d == SQLServer {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s %s;",
			strings.ReplaceAll(fqn, "'", "''"), d.QuoteFQN(fqn), body), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", d.QuoteFQN(fqn), body), nil
}

func (d Dialect) columnSQL(c ColumnDef) (string, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return "", fmt.Errorf("column with empty name")
	}
	typ := strings.TrimSpace(c.SQLType)
	if typ == "" {
		return "", fmt.Errorf("column %s missing SQLType", name)
	}
	s := d.Quote(name) + " " + typ
	if !c.Nullable {
		s += " NOT NULL"
	}
	return s, nil
}
