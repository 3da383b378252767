package pipeline

import (
	"strings"

	"github.com/zeebo/xxh3"

	"rowpipe/internal/rows"
)

// Require keeps rows where every named column holds a non-blank value.
func Require(names ...string) Predicate {
	return func(c rows.Cursor) (bool, error) {
		for _, n := range names {
			v, err := rows.ValueOf(c, n)
			if err != nil {
				return false, err
			}
			if rows.IsBlank(v) {
				return false, nil
			}
		}
		return true, nil
	}
}

// Equals keeps rows where the named column's trimmed text equals want.
func Equals(name, want string) Predicate {
	return func(c rows.Cursor) (bool, error) {
		v, err := rows.ValueOf(c, name)
		if err != nil {
			return false, err
		}
		return strings.TrimSpace(rows.Stringify(v)) == want, nil
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(c rows.Cursor) (bool, error) {
		ok, err := p(c)
		return !ok && err == nil, err
	}
}

// Dedup keeps the first row seen for each combination of the key columns.
// Keys are the columns' text joined with a unit separator (nil as NUL) and
// remembered as 128-bit xxh3 hashes, so memory grows with distinct keys, not
// with row width.
func Dedup(keys ...string) Predicate {
	seen := make(map[xxh3.Uint128]struct{})
	var b strings.Builder
	return func(c rows.Cursor) (bool, error) {
		b.Reset()
		for i, k := range keys {
			v, err := rows.ValueOf(c, k)
			if err != nil {
				return false, err
			}
			if i > 0 {
				b.WriteByte('\x1f')
			}
			if v == nil {
				b.WriteByte('\x00')
				continue
			}
			b.WriteString(rows.Stringify(v))
		}
		h := xxh3.HashString128(b.String())
		if _, dup := seen[h]; dup {
			return false, nil
		}
		seen[h] = struct{}{}
		return true, nil
	}
}
