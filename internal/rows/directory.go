package rows

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Directory is a bijective map between column names and ordinals. Names are
// compared after trimming and Unicode case folding, so "Amount", "AMOUNT" and
// " amount " address the same column. The spelling supplied at construction is
// what Name returns.
type Directory struct {
	names []string
	byKey map[string]int
}

// folders holds case folders for non-ASCII names; a cases.Caser is not safe
// for concurrent use.
var folders = sync.Pool{New: func() any { c := cases.Fold(); return &c }}

// Key returns the normalized form of a column name used for lookups.
func Key(name string) string {
	name = strings.TrimSpace(name)
	if isASCII(name) {
		return strings.ToLower(name)
	}
	c := folders.Get().(*cases.Caser)
	defer folders.Put(c)
	return c.String(name)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// NewDirectory builds a Directory over names, where names[i] has ordinal i.
// It fails with *DuplicateColumnNameError if two names normalize to the same
// key; nothing is silently overwritten.
func NewDirectory(names []string) (*Directory, error) {
	d := &Directory{
		names: append([]string(nil), names...),
		byKey: make(map[string]int, len(names)),
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = Key(n)
		d.byKey[keys[i]] = i
	}
	if len(d.byKey) == len(names) {
		return d, nil
	}

	// Cardinality mismatch: report the first duplicated key with all its ordinals.
	seen := make(map[string][]int, len(names))
	for i, k := range keys {
		seen[k] = append(seen[k], i)
	}
	for i, k := range keys {
		if ords := seen[k]; len(ords) > 1 {
			return nil, &DuplicateColumnNameError{Name: names[i], Ordinals: ords}
		}
	}
	return nil, &DuplicateColumnNameError{}
}

// MustDirectory is NewDirectory for names known to be unique (tests, literals).
func MustDirectory(names ...string) *Directory {
	d, err := NewDirectory(names)
	if err != nil {
		panic(err)
	}
	return d
}

// Len returns the number of columns.
func (d *Directory) Len() int { return len(d.names) }

// Name returns the name at ordinal.
func (d *Directory) Name(ordinal int) (string, error) {
	if ordinal < 0 || ordinal >= len(d.names) {
		return "", &ColumnNotFoundError{Ordinal: ordinal}
	}
	return d.names[ordinal], nil
}

// Ordinal returns the ordinal of name.
func (d *Directory) Ordinal(name string) (int, error) {
	if i, ok := d.byKey[Key(name)]; ok {
		return i, nil
	}
	return -1, &ColumnNotFoundError{Name: name}
}

// Has reports whether name resolves to a column.
func (d *Directory) Has(name string) bool {
	_, ok := d.byKey[Key(name)]
	return ok
}

// Names returns a copy of the names in ordinal order.
func (d *Directory) Names() []string {
	return append([]string(nil), d.names...)
}
