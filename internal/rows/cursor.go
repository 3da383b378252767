// Package rows defines the forward-only row cursor contract shared by every
// source and decorator in the pipeline, together with the column metadata it
// exposes (names, ordinals, declared types) and the error taxonomy used across
// the module.
//
// A Cursor is single-pass and single-consumer:
//
//	for {
//		ok, err := c.Read()
//		if err != nil { ... }
//		if !ok { break }
//		v, err := c.Value(0)
//		...
//	}
//
// Natural exhaustion does not close a cursor; Close must be called explicitly
// and cascades to any cursors the closed one owns.
package rows

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Cursor is a forward-only, single-pass row enumerator with named and ordinal
// column access.
type Cursor interface {
	// Read advances to the next row. It returns false at the end of data and
	// keeps returning false on further calls.
	Read() (bool, error)
	// Close releases the cursor and everything it owns. It is idempotent.
	Close() error
	IsClosed() bool
	// Depth is the number of rows yielded since the cursor was opened.
	Depth() int
	FieldCount() int
	Name(ordinal int) (string, error)
	Ordinal(name string) (int, error)
	Value(ordinal int) (any, error)
	// Values copies up to len(dst) values of the current row into dst and
	// returns how many were copied.
	Values(dst []any) (int, error)
	IsNull(ordinal int) (bool, error)
}

// Shape tells whether a decorator keeps its inner column set or replaces it.
type Shape uint8

const (
	ShapePreserving Shape = iota
	ShapeReplacing
)

func (s Shape) String() string {
	if s == ShapeReplacing {
		return "replacing"
	}
	return "preserving"
}

// Decorator is a Cursor that wraps one or more inner cursors.
type Decorator interface {
	Cursor
	Shape() Shape
	Inner() []Cursor
}

// ValueOf reads the current value of the named column.
func ValueOf(c Cursor, name string) (any, error) {
	i, err := c.Ordinal(name)
	if err != nil {
		return nil, err
	}
	return c.Value(i)
}

// Names returns the column names of c in ordinal order.
func Names(c Cursor) ([]string, error) {
	n := c.FieldCount()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		name, err := c.Name(i)
		if err != nil {
			return nil, err
		}
		out[i] = name
	}
	return out, nil
}

// ReadAll drains c and returns every remaining row. It does not close c.
func ReadAll(c Cursor) ([][]any, error) {
	var out [][]any
	for {
		ok, err := c.Read()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		row := make([]any, c.FieldCount())
		if _, err := c.Values(row); err != nil {
			return out, err
		}
		out = append(out, row)
	}
}

// CloseAll closes every cursor and joins their errors.
func CloseAll(cs ...Cursor) error {
	var errs []error
	for _, c := range cs {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsBlank reports whether v stands for an absent value: nil, an empty or
// whitespace-only string, or the literal NULL (any case).
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return IsBlankString(t)
	case []byte:
		return IsBlankString(string(t))
	}
	return false
}

// IsBlankString is IsBlank for strings.
func IsBlankString(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "NULL")
}

// Stringify renders v for diagnostics and sampling. nil renders as "".
// Times render in a layout the date conversions parse back: UTC values
// without a zone suffix, others as RFC 3339.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case pgtype.Numeric:
		return FormatDecimal(t)
	case time.Time:
		if t.Location() == time.UTC {
			return t.Format("2006-01-02 15:04:05.999999999")
		}
		return t.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	case driver.Valuer:
		if dv, err := t.Value(); err == nil {
			return Stringify(dv)
		}
	}
	return fmt.Sprint(v)
}
