package pipeline

import (
	"fmt"

	"rowpipe/internal/rows"
)

// Computed defines a column whose value is derived from the current row of
// the inner cursor.
type Computed struct {
	Name string
	Fn   func(inner rows.Cursor) (any, error)
}

// Added appends computed columns after its inner cursor's columns.
type Added struct {
	forward
	cols []Computed
	dir  *rows.Directory
}

// AddColumns appends cols to inner. Added ordinals start at
// inner.FieldCount(). A name clashing with an inner column or another added
// column fails, at construction when inner already knows its columns and on
// the first Read otherwise.
func AddColumns(inner rows.Cursor, cols ...Computed) (*Added, error) {
	a := &Added{forward: forward{inner: inner}, cols: cols}
	if inner.FieldCount() > 0 {
		if err := a.resolve(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Added) resolve() error {
	names, err := rows.Names(a.inner)
	if err != nil {
		return err
	}
	for _, c := range a.cols {
		names = append(names, c.Name)
	}
	dir, err := rows.NewDirectory(names)
	if err != nil {
		return fmt.Errorf("pipeline: add columns: %w", err)
	}
	a.dir = dir
	return nil
}

func (a *Added) Read() (bool, error) {
	ok, err := a.forward.Read()
	if ok && a.dir == nil {
		if err := a.resolve(); err != nil {
			return false, err
		}
	}
	return ok, err
}

// FieldCount is 0 until the inner columns are known, so callers that wait
// for a lazily-headed source do not see only the added columns.
func (a *Added) FieldCount() int {
	if a.dir == nil {
		return 0
	}
	return a.inner.FieldCount() + len(a.cols)
}

func (a *Added) Name(ordinal int) (string, error) {
	if a.closed {
		return "", rows.ErrCursorClosed
	}
	n := a.inner.FieldCount()
	if ordinal >= n && ordinal < n+len(a.cols) {
		return a.cols[ordinal-n].Name, nil
	}
	return a.inner.Name(ordinal)
}

func (a *Added) Ordinal(name string) (int, error) {
	if a.closed {
		return -1, rows.ErrCursorClosed
	}
	if a.dir != nil {
		return a.dir.Ordinal(name)
	}
	return a.inner.Ordinal(name)
}

func (a *Added) Value(ordinal int) (any, error) {
	if a.closed {
		return nil, rows.ErrCursorClosed
	}
	n := a.inner.FieldCount()
	if ordinal >= n && ordinal < n+len(a.cols) {
		return a.cols[ordinal-n].Fn(a.inner)
	}
	return a.inner.Value(ordinal)
}

func (a *Added) Values(dst []any) (int, error) {
	if a.closed {
		return 0, rows.ErrCursorClosed
	}
	n, err := a.inner.Values(dst)
	if err != nil {
		return n, err
	}
	if n < a.inner.FieldCount() {
		return n, nil
	}
	for i := 0; i < len(a.cols) && n < len(dst); i++ {
		v, err := a.cols[i].Fn(a.inner)
		if err != nil {
			return n, err
		}
		dst[n] = v
		n++
	}
	return n, nil
}

func (a *Added) IsNull(ordinal int) (bool, error) {
	v, err := a.Value(ordinal)
	return v == nil, err
}

// Projection defines one output column of Project.
type Projection struct {
	Name string
	Fn   func(inner rows.Cursor) (any, error)
}

// Select passes the named inner column through unchanged.
func Select(name string) Projection { return SelectAs(name, name) }

// SelectAs passes the named inner column through under a new name.
func SelectAs(name, as string) Projection {
	return Projection{Name: as, Fn: func(c rows.Cursor) (any, error) {
		return rows.ValueOf(c, name)
	}}
}

// Projected replaces its inner cursor's schema with a list of projections.
type Projected struct {
	shaped
	ps []Projection
}

// Project returns a cursor whose columns are exactly ps, in order.
func Project(inner rows.Cursor, ps ...Projection) (*Projected, error) {
	names := make([]string, len(ps))
	for i, p := range ps {
		if p.Fn == nil {
			return nil, fmt.Errorf("pipeline: projection %q has no function", p.Name)
		}
		names[i] = p.Name
	}
	dir, err := rows.NewDirectory(names)
	if err != nil {
		return nil, fmt.Errorf("pipeline: project: %w", err)
	}
	p := &Projected{
		shaped: shaped{kind: "Project", inner: []rows.Cursor{inner}, width: len(ps), dir: dir},
		ps:     ps,
	}
	p.value = func(i int) (any, error) { return p.ps[i].Fn(inner) }
	return p, nil
}

func (p *Projected) Read() (bool, error) {
	if p.closed {
		return false, rows.ErrCursorClosed
	}
	return p.inner[0].Read()
}

func (p *Projected) Depth() int { return p.inner[0].Depth() }
