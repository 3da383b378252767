// Package csvsrc exposes delimited text as a rows.Cursor.
//
// Tokenizing is done by encoding/csv with ReuseRecord and a variable field
// count; the cursor pads short records with nil and drops surplus cells so
// every row has exactly FieldCount values. Empty cells read as nil.
//
// The header is resolved lazily from the first record: FieldCount reports 0
// until the first Read, Name or Ordinal call. In HeaderDetect mode the first
// record is taken as a header only if it looks like one (every cell non-blank,
// unique after folding and not a number or date); otherwise it is replayed as
// the first data row and columns are named column_1..column_N.
package csvsrc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rowpipe/internal/rows"
	"rowpipe/internal/transform"
)

const utf8BOM = "\uFEFF"

// HeaderMode selects how the first record is interpreted.
type HeaderMode string

const (
	HeaderPresent HeaderMode = "present"
	HeaderAbsent  HeaderMode = "absent"
	HeaderDetect  HeaderMode = "detect"
)

// ParseHeaderMode accepts present, absent or detect (any case). Empty means
// present.
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch m := HeaderMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return HeaderPresent, nil
	case HeaderPresent, HeaderAbsent, HeaderDetect:
		return m, nil
	}
	return "", fmt.Errorf("csvsrc: unknown header mode %q", s)
}

// Options tunes the reader. The zero value reads comma-separated text with a
// header row and untrimmed cells.
type Options struct {
	Comma      rune
	Header     HeaderMode
	LazyQuotes bool
	// TrimSpace trims leading and trailing blanks from every cell.
	TrimSpace bool
	// NormalizeNames rewrites header names to lower_snake ASCII.
	NormalizeNames bool
	// HeaderMap renames header cells (after trimming, before normalization).
	HeaderMap map[string]string
}

// Cursor reads records from a CSV stream.
type Cursor struct {
	src  io.ReadCloser
	cr   *csv.Reader
	opts Options

	dir     *rows.Deferred[*rows.Directory]
	pending []string // first record replayed as data when it was not a header
	row     []any
	line    int
	depth   int
	hasRow  bool
	done    bool
	closed  bool
}

// New wraps src. The cursor owns src and closes it on Close.
func New(src io.ReadCloser, opts Options) *Cursor {
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	if opts.Header == "" {
		opts.Header = HeaderPresent
	}
	cr := csv.NewReader(src)
	cr.Comma = opts.Comma
	cr.LazyQuotes = opts.LazyQuotes
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	c := &Cursor{src: src, cr: cr, opts: opts}
	c.dir = rows.Defer(c.readHeader)
	return c
}

func (c *Cursor) next() ([]string, error) {
	rec, err := c.cr.Read()
	if err != nil {
		return nil, err
	}
	c.line++
	return rec, nil
}

func (c *Cursor) readHeader() (*rows.Directory, error) {
	rec, err := c.next()
	if errors.Is(err, io.EOF) {
		c.done = true
		return rows.NewDirectory(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("csvsrc: read header: %w", err)
	}
	first := append([]string(nil), rec...)
	if len(first) > 0 {
		first[0] = strings.TrimPrefix(first[0], utf8BOM)
	}

	header := c.opts.Header == HeaderPresent ||
		(c.opts.Header == HeaderDetect && LooksLikeHeader(first))
	if !header {
		c.pending = first
		return rows.NewDirectory(positionalNames(len(first)))
	}

	names := make([]string, len(first))
	for i, h := range first {
		h = strings.TrimSpace(h)
		if mapped, ok := c.opts.HeaderMap[h]; ok {
			h = mapped
		}
		if c.opts.NormalizeNames {
			h = NormalizeName(h)
		}
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		names[i] = h
	}
	return rows.NewDirectory(names)
}

func positionalNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "column_" + strconv.Itoa(i+1)
	}
	return out
}

// LooksLikeHeader reports whether rec reads as column titles rather than data.
func LooksLikeHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(rec))
	for _, cell := range rec {
		s := strings.TrimSpace(cell)
		if rows.IsBlankString(s) {
			return false
		}
		if _, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
			return false
		}
		if _, ok := transform.ParseTime(s); ok {
			return false
		}
		k := rows.Key(s)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
	}
	return true
}

func (c *Cursor) directory() (*rows.Directory, error) {
	if c.closed {
		return nil, rows.ErrCursorClosed
	}
	return c.dir.Get()
}

func (c *Cursor) Read() (bool, error) {
	dir, err := c.directory()
	if err != nil {
		return false, err
	}
	c.hasRow = false
	if c.done {
		return false, nil
	}

	rec := c.pending
	c.pending = nil
	if rec == nil {
		rec, err = c.next()
		if errors.Is(err, io.EOF) {
			c.done = true
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("csvsrc: read: %w", err)
		}
	}

	width := dir.Len()
	if c.row == nil {
		c.row = make([]any, width)
	}
	for i := 0; i < width; i++ {
		if i >= len(rec) {
			c.row[i] = nil
			continue
		}
		v := rec[i]
		if c.opts.TrimSpace {
			v = strings.TrimSpace(v)
		}
		if v == "" {
			c.row[i] = nil
		} else {
			c.row[i] = v
		}
	}
	c.depth++
	c.hasRow = true
	return true, nil
}

// Line is the number of physical records consumed, header included.
func (c *Cursor) Line() int { return c.line }

func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.hasRow = false
	return c.src.Close()
}

func (c *Cursor) IsClosed() bool { return c.closed }
func (c *Cursor) Depth() int     { return c.depth }

func (c *Cursor) FieldCount() int {
	if !c.dir.Resolved() {
		return 0
	}
	dir, err := c.dir.Get()
	if err != nil {
		return 0
	}
	return dir.Len()
}

func (c *Cursor) Name(ordinal int) (string, error) {
	dir, err := c.directory()
	if err != nil {
		return "", err
	}
	return dir.Name(ordinal)
}

func (c *Cursor) Ordinal(name string) (int, error) {
	dir, err := c.directory()
	if err != nil {
		return -1, err
	}
	return dir.Ordinal(name)
}

func (c *Cursor) Value(ordinal int) (any, error) {
	if c.closed {
		return nil, rows.ErrCursorClosed
	}
	if !c.hasRow {
		return nil, fmt.Errorf("csvsrc: no current row (depth %d)", c.depth)
	}
	if ordinal < 0 || ordinal >= len(c.row) {
		return nil, &rows.ColumnNotFoundError{Ordinal: ordinal}
	}
	return c.row[ordinal], nil
}

func (c *Cursor) Values(dst []any) (int, error) {
	if c.closed {
		return 0, rows.ErrCursorClosed
	}
	if !c.hasRow {
		return 0, fmt.Errorf("csvsrc: no current row (depth %d)", c.depth)
	}
	return copy(dst, c.row), nil
}

func (c *Cursor) IsNull(ordinal int) (bool, error) {
	v, err := c.Value(ordinal)
	return v == nil, err
}
