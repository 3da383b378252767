package mapping

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"rowpipe/internal/rows"
	"rowpipe/internal/transform"
)

// Cursor is the smart-mapping decorator. Its columns are exactly the
// destination schema; source columns without a destination stay reachable by
// name through ordinals at or beyond FieldCount, but are not part of Values.
type Cursor struct {
	src     rows.Cursor
	dest    rows.Schema
	destDir *rows.Directory
	plan    *transform.Plan
	info    *rows.Deferred[*Info]
	extra   []io.Closer
	closed  bool
}

// New maps src onto dest, coercing through group. The destination schema is
// validated immediately. The name join is built immediately when src already
// knows its columns, otherwise after its first successful Read.
func New(src rows.Cursor, dest rows.Schema, group transform.Group, owned ...io.Closer) (*Cursor, error) {
	if err := dest.Validate(); err != nil {
		return nil, fmt.Errorf("mapping: destination schema: %w", err)
	}
	destDir, err := dest.Directory()
	if err != nil {
		return nil, err
	}
	plan, err := transform.Compile(group, dest)
	if err != nil {
		return nil, err
	}
	c := &Cursor{src: src, dest: dest, destDir: destDir, plan: plan, extra: owned}
	c.info = rows.Defer(func() (*Info, error) {
		names, err := rows.Names(src)
		if err != nil {
			return nil, err
		}
		return NewInfo(names, dest)
	})
	if src.FieldCount() > 0 {
		if _, err := c.info.Get(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Info returns the join tables, building them if the source is ready.
func (c *Cursor) Info() (*Info, error) {
	if !c.info.Resolved() && c.src.FieldCount() == 0 {
		return nil, errors.New("mapping: source columns not known before the first Read")
	}
	return c.info.Get()
}

func (c *Cursor) Read() (bool, error) {
	if c.closed {
		return false, rows.ErrCursorClosed
	}
	ok, err := c.src.Read()
	if err != nil || !ok {
		return false, err
	}
	if _, err := c.info.Get(); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	errs := []error{c.src.Close()}
	for _, x := range c.extra {
		errs = append(errs, x.Close())
	}
	return errors.Join(errs...)
}

func (c *Cursor) IsClosed() bool       { return c.closed }
func (c *Cursor) Depth() int           { return c.src.Depth() }
func (c *Cursor) FieldCount() int      { return len(c.dest) }
func (c *Cursor) Shape() rows.Shape    { return rows.ShapeReplacing }
func (c *Cursor) Inner() []rows.Cursor { return []rows.Cursor{c.src} }

// Schema returns the destination schema.
func (c *Cursor) Schema() rows.Schema { return c.dest }

func (c *Cursor) Name(ordinal int) (string, error) {
	if c.closed {
		return "", rows.ErrCursorClosed
	}
	if ordinal < len(c.dest) {
		return c.destDir.Name(ordinal)
	}
	info, err := c.Info()
	if err != nil {
		return "", err
	}
	src := ordinal - len(c.dest)
	if _, mapped := info.DestOrdinal(src); mapped || src >= info.SourceLen() {
		return "", &rows.ColumnNotFoundError{Ordinal: ordinal}
	}
	return c.src.Name(src)
}

func (c *Cursor) Ordinal(name string) (int, error) {
	if c.closed {
		return -1, rows.ErrCursorClosed
	}
	if d, err := c.destDir.Ordinal(name); err == nil {
		return d, nil
	}
	if c.info.Resolved() || c.src.FieldCount() > 0 {
		info, err := c.info.Get()
		if err != nil {
			return -1, err
		}
		if src, ok := info.SourceByName(name); ok {
			return len(c.dest) + src, nil
		}
	}
	return -1, &rows.ColumnNotFoundError{Name: name}
}

func (c *Cursor) Value(ordinal int) (any, error) {
	if c.closed {
		return nil, rows.ErrCursorClosed
	}
	if ordinal < 0 {
		return nil, &rows.ColumnNotFoundError{Ordinal: ordinal}
	}
	info, err := c.Info()
	if err != nil {
		return nil, err
	}
	if ordinal >= len(c.dest) {
		src := ordinal - len(c.dest)
		if _, mapped := info.DestOrdinal(src); mapped || src >= info.SourceLen() {
			return nil, &rows.ColumnNotFoundError{Ordinal: ordinal}
		}
		return c.src.Value(src)
	}

	src, ok := info.SourceOrdinal(ordinal)
	if !ok {
		return nil, &rows.SchemaMismatchError{Column: c.dest[ordinal].Name, Reason: "column not available in source"}
	}
	raw, err := c.src.Value(src)
	if err != nil {
		return nil, c.conversionError(src, ordinal, nil, err)
	}
	if !info.NeedsTransform(src) {
		return raw, nil
	}
	v, err := c.plan.Apply(ordinal, raw)
	if err != nil {
		return nil, c.conversionError(src, ordinal, raw, err)
	}
	return v, nil
}

// conversionError wraps a failure reading or coercing source column src with
// everything needed to find the offending cell in an unattended run.
func (c *Cursor) conversionError(src, dest int, raw any, cause error) error {
	var ve *rows.ValueConversionError
	if errors.As(cause, &ve) && ve.Err != nil {
		cause = ve.Err
	}
	name, err := c.src.Name(src)
	if err != nil {
		name = fmt.Sprintf("<unavailable: %v>", err)
	}
	return &rows.ValueConversionError{
		Ordinal: src,
		Column:  name,
		Type:    c.dest[dest].Type,
		Raw:     c.rawText(src, raw),
		Err:     cause,
	}
}

func (c *Cursor) rawText(src int, raw any) string {
	if raw != nil {
		return rows.Stringify(raw)
	}
	v, err := c.src.Value(src)
	if err != nil {
		return fmt.Sprintf("<unavailable: %v>", err)
	}
	return rows.Stringify(v)
}

func (c *Cursor) Values(dst []any) (int, error) {
	n := min(len(dst), len(c.dest))
	for i := 0; i < n; i++ {
		v, err := c.Value(i)
		if err != nil {
			return i, err
		}
		dst[i] = v
	}
	return n, nil
}

func (c *Cursor) IsNull(ordinal int) (bool, error) {
	v, err := c.Value(ordinal)
	return v == nil, err
}

// Report describes how the current row maps, one line per destination
// column:
//
//	3.[Amount](string) "($1,200)" -> 1.[amount](decimal) -1200
func (c *Cursor) Report() ([]string, error) {
	if c.closed {
		return nil, rows.ErrCursorClosed
	}
	info, err := c.Info()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(c.dest))
	for d, dc := range c.dest {
		src, ok := info.SourceOrdinal(d)
		if !ok {
			out = append(out, fmt.Sprintf("<none> -> %s <not available>", dc))
			continue
		}
		sc := info.mappings[src].Source
		var b strings.Builder
		fmt.Fprintf(&b, "%s %q -> %s ", sc, c.rawText(src, nil), dc)
		if v, err := c.Value(d); err != nil {
			fmt.Fprintf(&b, "<error: %v>", unwrapConversion(err))
		} else if v == nil {
			b.WriteString("NULL")
		} else {
			b.WriteString(rows.Stringify(v))
		}
		out = append(out, b.String())
	}
	return out, nil
}

func unwrapConversion(err error) error {
	var ve *rows.ValueConversionError
	if errors.As(err, &ve) && ve.Err != nil {
		return ve.Err
	}
	return err
}
