package rows

import (
	"errors"
	"fmt"
)

// ErrCursorClosed is returned by any cursor operation attempted after Close.
var ErrCursorClosed = errors.New("rows: cursor is closed")

// ColumnNotFoundError reports an unknown column name or an out-of-range
// ordinal. Exactly one of Name or Ordinal is meaningful: Name is empty when the
// lookup was by ordinal.
type ColumnNotFoundError struct {
	Name    string
	Ordinal int
}

func (e *ColumnNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("rows: column %q not found", e.Name)
	}
	return fmt.Sprintf("rows: column ordinal %d out of range", e.Ordinal)
}

// DuplicateColumnNameError reports a schema in which two columns share a
// normalized name.
type DuplicateColumnNameError struct {
	Name     string
	Ordinals []int
}

func (e *DuplicateColumnNameError) Error() string {
	return fmt.Sprintf("rows: duplicate column name %q at ordinals %v", e.Name, e.Ordinals)
}

// ValueConversionError reports a value that could not be coerced into its
// destination type. Ordinal is -1 and Column is empty when the failure was
// raised by a bare transform that has no row context yet; the mapping layer
// re-wraps it with the source position before it leaves a cursor.
type ValueConversionError struct {
	Ordinal int
	Column  string
	Type    Type
	Raw     string
	Err     error
}

func (e *ValueConversionError) Error() string {
	if e.Column == "" && e.Ordinal < 0 {
		return fmt.Sprintf("rows: cannot convert %q to %s: %v", e.Raw, e.Type, e.Err)
	}
	return fmt.Sprintf("rows: column %d [%s]: cannot convert %q to %s: %v",
		e.Ordinal, e.Column, e.Raw, e.Type, e.Err)
}

func (e *ValueConversionError) Unwrap() error { return e.Err }

// UnsupportedOperationError is returned by shape-replacing cursors for members
// that the concrete decorator does not provide.
type UnsupportedOperationError struct {
	Op     string
	Cursor string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("rows: %s does not support %s", e.Cursor, e.Op)
}

// SchemaMismatchError reports a reference to a column that one side of a
// schema join does not have.
type SchemaMismatchError struct {
	Column string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("rows: column %q: %s", e.Column, e.Reason)
}
