package pipeline

import (
	"fmt"

	"rowpipe/internal/rows"
)

// Aliased renames columns of its inner cursor. Values and ordinals are
// unchanged; only Name and Ordinal see the new names.
type Aliased struct {
	forward
	renames map[string]string // folded old name -> new name
	reverse map[string]string // folded new name -> old name
	checked bool
}

// Alias renames inner's columns according to names (old -> new). Old names
// are matched case-insensitively. An empty or nil map yields a transparent
// decorator.
func Alias(inner rows.Cursor, names map[string]string) (*Aliased, error) {
	a := &Aliased{
		forward: forward{inner: inner},
		renames: make(map[string]string, len(names)),
		reverse: make(map[string]string, len(names)),
	}
	for oldName, newName := range names {
		ok, nk := rows.Key(oldName), rows.Key(newName)
		if prev, dup := a.reverse[nk]; dup {
			return nil, fmt.Errorf("pipeline: alias %q used for both %q and %q", newName, prev, oldName)
		}
		a.renames[ok] = newName
		a.reverse[nk] = oldName
	}
	if inner.FieldCount() > 0 {
		if err := a.check(); err != nil {
			return nil, err
		}
		a.checked = true
	}
	return a, nil
}

// Read checks the renamed column set after the first row of an inner cursor
// whose columns were unknown at construction.
func (a *Aliased) Read() (bool, error) {
	ok, err := a.forward.Read()
	if ok && !a.checked {
		if err := a.check(); err != nil {
			return false, fmt.Errorf("pipeline: alias: %w", err)
		}
		a.checked = true
	}
	return ok, err
}

// check verifies the renamed column set is still a valid directory.
func (a *Aliased) check() error {
	names, err := rows.Names(a)
	if err != nil {
		return err
	}
	_, err = rows.NewDirectory(names)
	return err
}

func (a *Aliased) Name(ordinal int) (string, error) {
	name, err := a.forward.Name(ordinal)
	if err != nil {
		return "", err
	}
	if alias, ok := a.renames[rows.Key(name)]; ok {
		return alias, nil
	}
	return name, nil
}

func (a *Aliased) Ordinal(name string) (int, error) {
	if a.closed {
		return -1, rows.ErrCursorClosed
	}
	key := rows.Key(name)
	if oldName, ok := a.reverse[key]; ok {
		return a.inner.Ordinal(oldName)
	}
	if _, renamed := a.renames[key]; renamed {
		return -1, &rows.ColumnNotFoundError{Name: name}
	}
	return a.inner.Ordinal(name)
}
