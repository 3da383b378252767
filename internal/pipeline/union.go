package pipeline

import "rowpipe/internal/rows"

// Unioned reads one cursor to exhaustion, then another. Column names and
// values come from whichever cursor is active; the two schemas are not
// checked against each other.
type Unioned struct {
	a, b   rows.Cursor
	active rows.Cursor
	done   bool
	depth  int
	closed bool
}

// Union sequences a then b, switching exactly once.
func Union(a, b rows.Cursor) *Unioned {
	return &Unioned{a: a, b: b, active: a}
}

func (u *Unioned) Read() (bool, error) {
	if u.closed {
		return false, rows.ErrCursorClosed
	}
	if u.done {
		return false, nil
	}
	for {
		ok, err := u.active.Read()
		if err != nil {
			return false, err
		}
		if ok {
			u.depth++
			return true, nil
		}
		if u.active == u.b {
			u.done = true
			return false, nil
		}
		u.active = u.b
	}
}

func (u *Unioned) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	return rows.CloseAll(u.a, u.b)
}

func (u *Unioned) IsClosed() bool       { return u.closed }
func (u *Unioned) Depth() int           { return u.depth }
func (u *Unioned) FieldCount() int      { return u.active.FieldCount() }
func (u *Unioned) Shape() rows.Shape    { return rows.ShapePreserving }
func (u *Unioned) Inner() []rows.Cursor { return []rows.Cursor{u.a, u.b} }

func (u *Unioned) Name(ordinal int) (string, error) {
	if u.closed {
		return "", rows.ErrCursorClosed
	}
	return u.active.Name(ordinal)
}

func (u *Unioned) Ordinal(name string) (int, error) {
	if u.closed {
		return -1, rows.ErrCursorClosed
	}
	return u.active.Ordinal(name)
}

func (u *Unioned) Value(ordinal int) (any, error) {
	if u.closed {
		return nil, rows.ErrCursorClosed
	}
	return u.active.Value(ordinal)
}

func (u *Unioned) Values(dst []any) (int, error) {
	if u.closed {
		return 0, rows.ErrCursorClosed
	}
	return u.active.Values(dst)
}

func (u *Unioned) IsNull(ordinal int) (bool, error) {
	if u.closed {
		return false, rows.ErrCursorClosed
	}
	return u.active.IsNull(ordinal)
}
