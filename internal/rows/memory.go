package rows

import "fmt"

// Memory is a Cursor over rows held in memory. Rows shorter than the schema
// read as nil in the missing positions; longer rows are truncated.
type Memory struct {
	dir    *Directory
	data   [][]any
	pos    int // index of the current row; -1 before the first Read
	done   bool
	closed bool
}

// NewMemory returns a cursor over data with the given column names.
func NewMemory(names []string, data [][]any) (*Memory, error) {
	dir, err := NewDirectory(names)
	if err != nil {
		return nil, err
	}
	return &Memory{dir: dir, data: data, pos: -1}, nil
}

// FromStrings is a convenience for textual fixtures: every cell becomes a
// string value.
func FromStrings(names []string, data ...[]string) (*Memory, error) {
	out := make([][]any, len(data))
	for i, r := range data {
		row := make([]any, len(r))
		for j, s := range r {
			row[j] = s
		}
		out[i] = row
	}
	return NewMemory(names, out)
}

func (m *Memory) Read() (bool, error) {
	if m.closed {
		return false, ErrCursorClosed
	}
	if m.done {
		return false, nil
	}
	if m.pos+1 >= len(m.data) {
		m.done = true
		m.pos = len(m.data)
		return false, nil
	}
	m.pos++
	return true, nil
}

func (m *Memory) Close() error {
	m.closed = true
	return nil
}

func (m *Memory) IsClosed() bool  { return m.closed }
func (m *Memory) FieldCount() int { return m.dir.Len() }

func (m *Memory) Depth() int {
	if m.pos < 0 {
		return 0
	}
	if m.pos >= len(m.data) {
		return len(m.data)
	}
	return m.pos + 1
}

func (m *Memory) Name(ordinal int) (string, error) {
	if m.closed {
		return "", ErrCursorClosed
	}
	return m.dir.Name(ordinal)
}

func (m *Memory) Ordinal(name string) (int, error) {
	if m.closed {
		return -1, ErrCursorClosed
	}
	return m.dir.Ordinal(name)
}

func (m *Memory) current() ([]any, error) {
	if m.closed {
		return nil, ErrCursorClosed
	}
	if m.pos < 0 || m.pos >= len(m.data) {
		return nil, fmt.Errorf("rows: no current row (depth %d)", m.Depth())
	}
	return m.data[m.pos], nil
}

func (m *Memory) Value(ordinal int) (any, error) {
	row, err := m.current()
	if err != nil {
		return nil, err
	}
	if ordinal < 0 || ordinal >= m.dir.Len() {
		return nil, &ColumnNotFoundError{Ordinal: ordinal}
	}
	if ordinal >= len(row) {
		return nil, nil
	}
	return row[ordinal], nil
}

func (m *Memory) Values(dst []any) (int, error) {
	row, err := m.current()
	if err != nil {
		return 0, err
	}
	n := min(len(dst), m.dir.Len())
	for i := 0; i < n; i++ {
		if i < len(row) {
			dst[i] = row[i]
		} else {
			dst[i] = nil
		}
	}
	return n, nil
}

func (m *Memory) IsNull(ordinal int) (bool, error) {
	v, err := m.Value(ordinal)
	return v == nil, err
}
