package pipeline

import (
	"fmt"

	"rowpipe/internal/rows"
)

// Unpivoted turns the value columns of each inner row into one output row
// per column: (dims..., column name, value).
type Unpivoted struct {
	shaped
	src       rows.Cursor
	dims      int
	pivotName string
	valueName string
	values    int  // M: inner columns after the dimensions
	sub       int  // index of the current value column within the row
	pending   bool // an inner row is current with sub-rows left to emit
	done      bool
	depth     int
}

// Unpivot keeps the first dims columns of inner and unpivots every column
// after them into a pivotName/valueName pair. The output has dims+2 columns,
// reported once the inner columns are known. An inner schema with no value
// columns yields no rows.
func Unpivot(inner rows.Cursor, dims int, pivotName, valueName string) (*Unpivoted, error) {
	if dims < 0 {
		return nil, fmt.Errorf("pipeline: unpivot: negative dimension count %d", dims)
	}
	u := &Unpivoted{
		shaped:    shaped{kind: "Unpivot", inner: []rows.Cursor{inner}},
		src:       inner,
		dims:      dims,
		pivotName: pivotName,
		valueName: valueName,
		values:    -1,
	}
	u.value = u.cell
	if inner.FieldCount() > 0 {
		if err := u.resolve(); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (u *Unpivoted) resolve() error {
	n := u.src.FieldCount()
	if n < u.dims {
		return fmt.Errorf("pipeline: unpivot: %d dimension columns but inner has %d", u.dims, n)
	}
	names := make([]string, 0, u.dims+2)
	for i := 0; i < u.dims; i++ {
		name, err := u.src.Name(i)
		if err != nil {
			return err
		}
		names = append(names, name)
	}
	names = append(names, u.pivotName, u.valueName)
	dir, err := rows.NewDirectory(names)
	if err != nil {
		return fmt.Errorf("pipeline: unpivot: %w", err)
	}
	u.dir = dir
	u.width = u.dims + 2
	u.values = n - u.dims
	return nil
}

func (u *Unpivoted) Read() (bool, error) {
	if u.closed {
		return false, rows.ErrCursorClosed
	}
	if u.done {
		return false, nil
	}
	if u.pending && u.sub+1 < u.values {
		u.sub++
		u.depth++
		return true, nil
	}
	u.pending = false
	ok, err := u.src.Read()
	if err != nil {
		return false, err
	}
	if !ok {
		u.done = true
		return false, nil
	}
	if u.values < 0 {
		if err := u.resolve(); err != nil {
			return false, err
		}
	}
	if u.values == 0 {
		u.done = true
		return false, nil
	}
	u.sub = 0
	u.pending = true
	u.depth++
	return true, nil
}

// Depth is the number of output rows: inner rows times value columns.
func (u *Unpivoted) Depth() int { return u.depth }

func (u *Unpivoted) cell(ordinal int) (any, error) {
	if !u.pending {
		return nil, fmt.Errorf("pipeline: unpivot: no current row")
	}
	switch {
	case ordinal < u.dims:
		return u.src.Value(ordinal)
	case ordinal == u.dims:
		return u.src.Name(u.dims + u.sub)
	default:
		return u.src.Value(u.dims + u.sub)
	}
}
