// Package ddl models SQL table definitions and renders them for the
// supported storage dialects: Postgres, SQL Server and SQLite.
package ddl

import (
	"fmt"
	"strings"

	"rowpipe/internal/infer"
	"rowpipe/internal/rows"
)

// Dialect names a SQL flavour. It doubles as an infer.Renderer.
type Dialect string

const (
	Postgres  Dialect = "postgres"
	SQLServer Dialect = "mssql"
	SQLite    Dialect = "sqlite"
)

var _ infer.Renderer = Postgres

// ParseDialect accepts the storage kind names and a few common aliases.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mssql", "sqlserver":
		return SQLServer, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("ddl: unknown dialect %q", s)
}

// Quote quotes a single identifier segment.
func (d Dialect) Quote(id string) string {
	if d == SQLServer {
		return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
	}
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// QuoteFQN quotes each dotted segment of a possibly schema-qualified name.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Quote(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

// MapType returns the column type used for a declared destination type.
func (d Dialect) MapType(t rows.Type) string {
	switch d {
	case SQLServer:
		return mssqlTypes[t.Kind]
	case SQLite:
		return sqliteTypes[t.Kind]
	}
	return postgresTypes[t.Kind]
}

var postgresTypes = map[rows.Kind]string{
	rows.KindString:   "text",
	rows.KindBool:     "boolean",
	rows.KindInt:      "bigint",
	rows.KindDecimal:  "numeric",
	rows.KindFloat:    "real",
	rows.KindDouble:   "double precision",
	rows.KindGUID:     "uuid",
	rows.KindDate:     "date",
	rows.KindDateTime: "timestamptz",
	rows.KindEnum:     "integer",
}

var mssqlTypes = map[rows.Kind]string{
	rows.KindString:   "nvarchar(max)",
	rows.KindBool:     "bit",
	rows.KindInt:      "bigint",
	rows.KindDecimal:  "decimal(38,10)",
	rows.KindFloat:    "real",
	rows.KindDouble:   "float",
	rows.KindGUID:     "uniqueidentifier",
	rows.KindDate:     "date",
	rows.KindDateTime: "datetime2",
	rows.KindEnum:     "int",
}

var sqliteTypes = map[rows.Kind]string{
	rows.KindString:   "TEXT",
	rows.KindBool:     "INTEGER",
	rows.KindInt:      "INTEGER",
	rows.KindDecimal:  "NUMERIC",
	rows.KindFloat:    "REAL",
	rows.KindDouble:   "REAL",
	rows.KindGUID:     "TEXT",
	rows.KindDate:     "DATE",
	rows.KindDateTime: "DATETIME",
	rows.KindEnum:     "INTEGER",
}

// maxVarchar is the widest bounded text column rendered for Postgres; wider
// samples become text.
const maxVarchar = 4000

// Render renders an inferred column in this dialect.
func (d Dialect) Render(c infer.Column) string {
	switch d {
	case SQLServer:
		return infer.SQLServer{}.Render(c)
	case SQLite:
		return sqliteTypes[c.Type().Kind]
	}
	switch c.Kind {
	case infer.Boolean:
		return "boolean"
	case infer.Date:
		return "date"
	case infer.DateTime:
		return "timestamp"
	case infer.Integer:
		if c.Wide {
			return "bigint"
		}
		return "integer"
	case infer.Decimal:
		return fmt.Sprintf("numeric(%d,%d)", c.Precision, c.Scale)
	case infer.Float:
		return "double precision"
	case infer.GUID:
		return "uuid"
	}
	if c.Length > maxVarchar {
		return "text"
	}
	return fmt.Sprintf("varchar(%d)", max(c.Length, 1))
}
