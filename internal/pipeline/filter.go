package pipeline

import "rowpipe/internal/rows"

// Predicate decides whether the current row of c is kept.
type Predicate func(c rows.Cursor) (bool, error)

// Filtered yields only the rows of its inner cursor accepted by a predicate.
// The accepted row is snapshotted, so accessors stay stable even though the
// inner cursor may have moved past it.
type Filtered struct {
	forward
	pred  Predicate
	buf   []any
	have  bool
	depth int
}

// Filter returns a cursor over the rows of inner for which pred is true.
func Filter(inner rows.Cursor, pred Predicate) *Filtered {
	return &Filtered{forward: forward{inner: inner}, pred: pred}
}

func (f *Filtered) Read() (bool, error) {
	if f.closed {
		return false, rows.ErrCursorClosed
	}
	f.have = false
	for {
		ok, err := f.inner.Read()
		if err != nil || !ok {
			return false, err
		}
		keep, err := f.pred(f.inner)
		if err != nil {
			return false, err
		}
		if !keep {
			continue
		}
		if n := f.inner.FieldCount(); cap(f.buf) < n {
			f.buf = make([]any, n)
		} else {
			f.buf = f.buf[:n]
		}
		if _, err := f.inner.Values(f.buf); err != nil {
			return false, err
		}
		f.have = true
		f.depth++
		return true, nil
	}
}

// Depth counts yielded rows, not scanned ones.
func (f *Filtered) Depth() int { return f.depth }

func (f *Filtered) Value(ordinal int) (any, error) {
	if f.closed {
		return nil, rows.ErrCursorClosed
	}
	if ordinal < 0 || ordinal >= f.inner.FieldCount() {
		return nil, &rows.ColumnNotFoundError{Ordinal: ordinal}
	}
	if !f.have {
		return f.inner.Value(ordinal)
	}
	return f.buf[ordinal], nil
}

func (f *Filtered) Values(dst []any) (int, error) {
	if f.closed {
		return 0, rows.ErrCursorClosed
	}
	if !f.have {
		return f.inner.Values(dst)
	}
	return copy(dst, f.buf), nil
}

func (f *Filtered) IsNull(ordinal int) (bool, error) {
	v, err := f.Value(ordinal)
	return v == nil, err
}
