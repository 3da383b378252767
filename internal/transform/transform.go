// Package transform converts raw cell values into the representation of a
// declared destination type.
//
// A Group resolves a rows.Type to a Func. Default() is the coercing group used
// by smart mapping; None() passes every value through untouched. A Plan is a
// per-column list of Funcs compiled once for a schema, so the row loop never
// does a type lookup.
package transform

import (
	"fmt"
	"strings"

	"rowpipe/internal/rows"
)

// Func converts one raw value. It returns nil for absent values.
type Func func(v any) (any, error)

// Group is a pluggable lookup from destination type to conversion.
type Group interface {
	Lookup(t rows.Type) (Func, bool)
}

// Builder makes the Func for a concrete type of one kind. It receives the full
// type so that, for example, enums can see their symbols.
type Builder func(t rows.Type) Func

// Registry is a Group backed by per-kind builders.
type Registry struct {
	name     string
	builders map[rows.Kind]Builder
}

// NewRegistry returns an empty registry.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, builders: make(map[rows.Kind]Builder)}
}

// Register installs b for kind k, replacing any previous builder.
func (r *Registry) Register(k rows.Kind, b Builder) *Registry {
	r.builders[k] = b
	return r
}

func (r *Registry) Name() string { return r.name }

// Lookup builds the Func for t. Nullable types get a wrapper that maps blank,
// NULL and the kind's sentinel tokens to nil before conversion.
func (r *Registry) Lookup(t rows.Type) (Func, bool) {
	b, ok := r.builders[t.Kind]
	if !ok {
		return nil, false
	}
	fn := b(t)
	if t.Nullable {
		fn = nullable(t.Kind, fn)
	}
	return fn, true
}

func nullable(k rows.Kind, fn Func) Func {
	return func(v any) (any, error) {
		if rows.IsBlank(v) {
			return nil, nil
		}
		if s, ok := v.(string); ok && isSentinel(k, s) {
			return nil, nil
		}
		return fn(v)
	}
}

// sentinels are placeholder tokens that stand for "no value" in exported
// spreadsheets and reports.
var sentinels = map[rows.Kind][]string{
	rows.KindDecimal:  {"-", "n/a", "null"},
	rows.KindDouble:   {"-", "n/a", "null"},
	rows.KindFloat:    {"-", "n/a", "null"},
	rows.KindInt:      {"-", "n/a", "null"},
	rows.KindDate:     {"--/--/--", "-", "n/a"},
	rows.KindDateTime: {"--/--/--", "-", "n/a"},
}

func isSentinel(k rows.Kind, s string) bool {
	s = strings.TrimSpace(s)
	for _, tok := range sentinels[k] {
		if strings.EqualFold(s, tok) {
			return true
		}
	}
	return false
}

type identity struct{}

func (identity) Lookup(rows.Type) (Func, bool) {
	return func(v any) (any, error) { return v, nil }, true
}

// None returns the group that passes every value through unchanged.
func None() Group { return identity{} }

// Default returns a fresh registry with the standard coercions for every kind.
func Default() *Registry {
	return NewRegistry("default").
		Register(rows.KindString, func(rows.Type) Func { return toString }).
		Register(rows.KindBool, func(t rows.Type) Func { return wrap(t, toBool) }).
		Register(rows.KindInt, func(t rows.Type) Func { return wrap(t, toInt) }).
		Register(rows.KindDecimal, func(t rows.Type) Func { return wrap(t, toDecimal) }).
		Register(rows.KindFloat, func(t rows.Type) Func { return wrap(t, toFloat32) }).
		Register(rows.KindDouble, func(t rows.Type) Func { return wrap(t, toFloat64) }).
		Register(rows.KindGUID, func(t rows.Type) Func { return wrap(t, toGUID) }).
		Register(rows.KindDate, func(t rows.Type) Func { return wrap(t, toDate) }).
		Register(rows.KindDateTime, func(t rows.Type) Func { return wrap(t, toDateTime) }).
		Register(rows.KindEnum, enumBuilder)
}

// ByName resolves a configured group name.
func ByName(name string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return Default(), nil
	case "none", "identity":
		return None(), nil
	}
	return nil, fmt.Errorf("transform: unknown group %q", name)
}

// wrap adapts a conversion that may fail into a Func whose failures are
// *rows.ValueConversionError. Blank input converts to nil.
func wrap(t rows.Type, conv func(any) (any, error)) Func {
	return func(v any) (any, error) {
		if rows.IsBlank(v) {
			return nil, nil
		}
		out, err := conv(v)
		if err != nil {
			return nil, &rows.ValueConversionError{Ordinal: -1, Type: t, Raw: rows.Stringify(v), Err: err}
		}
		return out, nil
	}
}

// Plan is a compiled, per-ordinal list of conversions for a schema.
type Plan struct {
	schema rows.Schema
	fns    []Func
}

// Compile resolves a Func for every column of schema.
func Compile(g Group, schema rows.Schema) (*Plan, error) {
	p := &Plan{schema: schema, fns: make([]Func, len(schema))}
	for i, c := range schema {
		fn, ok := g.Lookup(c.Type)
		if !ok {
			return nil, fmt.Errorf("transform: no conversion for column %s", c)
		}
		p.fns[i] = fn
	}
	return p, nil
}

// Len returns the number of columns in the plan.
func (p *Plan) Len() int { return len(p.fns) }

// Apply converts v for column ordinal.
func (p *Plan) Apply(ordinal int, v any) (any, error) {
	if ordinal < 0 || ordinal >= len(p.fns) {
		return nil, &rows.ColumnNotFoundError{Ordinal: ordinal}
	}
	return p.fns[ordinal](v)
}

// ApplyRow converts a full row in place. Errors carry the column position.
func (p *Plan) ApplyRow(row []any) error {
	for i := 0; i < len(row) && i < len(p.fns); i++ {
		out, err := p.fns[i](row[i])
		if err != nil {
			return withColumn(err, p.schema[i])
		}
		row[i] = out
	}
	return nil
}

// withColumn fills in the column context of a conversion error raised without
// one.
func withColumn(err error, c rows.Column) error {
	if ve, ok := err.(*rows.ValueConversionError); ok && ve.Ordinal < 0 {
		cp := *ve
		cp.Ordinal, cp.Column = c.Ordinal, c.Name
		return &cp
	}
	return fmt.Errorf("transform: column %s: %w", c, err)
}
