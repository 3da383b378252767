package ddl

import (
	"rowpipe/internal/infer"
	"rowpipe/internal/rows"
)

// ColumnDef is one rendered column. Name is unquoted; SQLType is already in
// the target dialect (bigint, nvarchar(40), numeric(5,2)).
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds a possibly schema-qualified table name ("dbo.payments") and
// its ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// FromSchema maps a destination schema onto a table definition in dialect d.
func FromSchema(table string, s rows.Schema, d Dialect) TableDef {
	def := TableDef{FQN: table, Columns: make([]ColumnDef, len(s))}
	for i, c := range s {
		def.Columns[i] = ColumnDef{Name: c.Name, SQLType: d.MapType(c.Type), Nullable: c.Type.Nullable}
	}
	return def
}

// FromInferred maps an inferred table, rendering its columns in dialect d.
func FromInferred(t infer.Table, d Dialect) TableDef {
	def := TableDef{FQN: t.Name, Columns: make([]ColumnDef, len(t.Columns))}
	for i, c := range t.Columns {
		def.Columns[i] = ColumnDef{Name: c.Name, SQLType: d.Render(c), Nullable: c.Nullable}
	}
	return def
}
