// Package pipeline provides the row-cursor decorators that compose a
// streaming pipeline: renaming, filtering, limiting, counting, progress
// notification, computed columns, projection, union and unpivot.
//
// Every decorator exclusively owns the cursor(s) it wraps. Closing a
// decorator closes its inner cursors and any extra resources handed to it,
// exactly once. Decorators are single-consumer and take no locks.
package pipeline

import (
	"errors"
	"io"

	"rowpipe/internal/rows"
)

// forward delegates every member to inner. Shape-preserving decorators embed
// it and override only what they change.
type forward struct {
	inner  rows.Cursor
	extra  []io.Closer
	closed bool
}

func (f *forward) Read() (bool, error) {
	if f.closed {
		return false, rows.ErrCursorClosed
	}
	return f.inner.Read()
}

func (f *forward) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return closeOwned([]rows.Cursor{f.inner}, f.extra)
}

func (f *forward) IsClosed() bool       { return f.closed }
func (f *forward) Depth() int           { return f.inner.Depth() }
func (f *forward) FieldCount() int      { return f.inner.FieldCount() }
func (f *forward) Shape() rows.Shape    { return rows.ShapePreserving }
func (f *forward) Inner() []rows.Cursor { return []rows.Cursor{f.inner} }

func (f *forward) own(closers ...io.Closer) { f.extra = append(f.extra, closers...) }

func (f *forward) Name(ordinal int) (string, error) {
	if f.closed {
		return "", rows.ErrCursorClosed
	}
	return f.inner.Name(ordinal)
}

func (f *forward) Ordinal(name string) (int, error) {
	if f.closed {
		return -1, rows.ErrCursorClosed
	}
	return f.inner.Ordinal(name)
}

func (f *forward) Value(ordinal int) (any, error) {
	if f.closed {
		return nil, rows.ErrCursorClosed
	}
	return f.inner.Value(ordinal)
}

func (f *forward) Values(dst []any) (int, error) {
	if f.closed {
		return 0, rows.ErrCursorClosed
	}
	return f.inner.Values(dst)
}

func (f *forward) IsNull(ordinal int) (bool, error) {
	if f.closed {
		return false, rows.ErrCursorClosed
	}
	return f.inner.IsNull(ordinal)
}

// closeOwned closes cursors then closers, joining every error.
func closeOwned(cs []rows.Cursor, extra []io.Closer) error {
	errs := []error{rows.CloseAll(cs...)}
	for _, c := range extra {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Owned is an identity decorator that additionally owns resources whose
// lifetime is bound to the cursor, such as the file a CSV source reads from.
type Owned struct{ forward }

// Own wraps inner so that closing the result also closes closers.
func Own(inner rows.Cursor, closers ...io.Closer) *Owned {
	o := &Owned{forward{inner: inner}}
	o.own(closers...)
	return o
}

// shaped is the base of shape-replacing decorators. It owns a column
// directory of its own and answers Value with *rows.UnsupportedOperationError
// unless the concrete decorator installs a value function.
type shaped struct {
	kind   string
	inner  []rows.Cursor
	extra  []io.Closer
	width  int
	dir    *rows.Directory // nil until the output names are known
	value  func(ordinal int) (any, error)
	closed bool
}

func (s *shaped) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return closeOwned(s.inner, s.extra)
}

func (s *shaped) IsClosed() bool       { return s.closed }
func (s *shaped) FieldCount() int      { return s.width }
func (s *shaped) Shape() rows.Shape    { return rows.ShapeReplacing }
func (s *shaped) Inner() []rows.Cursor { return append([]rows.Cursor(nil), s.inner...) }

func (s *shaped) Name(ordinal int) (string, error) {
	if s.closed {
		return "", rows.ErrCursorClosed
	}
	if s.dir == nil {
		return "", &rows.ColumnNotFoundError{Ordinal: ordinal}
	}
	return s.dir.Name(ordinal)
}

func (s *shaped) Ordinal(name string) (int, error) {
	if s.closed {
		return -1, rows.ErrCursorClosed
	}
	if s.dir == nil {
		return -1, &rows.ColumnNotFoundError{Name: name}
	}
	return s.dir.Ordinal(name)
}

func (s *shaped) Value(ordinal int) (any, error) {
	if s.closed {
		return nil, rows.ErrCursorClosed
	}
	if s.value == nil {
		return nil, &rows.UnsupportedOperationError{Op: "Value", Cursor: s.kind}
	}
	if ordinal < 0 || ordinal >= s.width {
		return nil, &rows.ColumnNotFoundError{Ordinal: ordinal}
	}
	return s.value(ordinal)
}

func (s *shaped) Values(dst []any) (int, error) {
	n := min(len(dst), s.width)
	for i := 0; i < n; i++ {
		v, err := s.Value(i)
		if err != nil {
			return i, err
		}
		dst[i] = v
	}
	return n, nil
}

func (s *shaped) IsNull(ordinal int) (bool, error) {
	v, err := s.Value(ordinal)
	return v == nil, err
}
