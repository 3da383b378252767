package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowpipe/internal/rows"
)

// closeCounter records how many times the wrapped cursor was closed.
type closeCounter struct {
	rows.Cursor
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return c.Cursor.Close()
}

func mem(t *testing.T, names []string, data ...[]string) *rows.Memory {
	t.Helper()
	m, err := rows.FromStrings(names, data...)
	require.NoError(t, err)
	return m
}

func numbered(t *testing.T, n int) *rows.Memory {
	t.Helper()
	data := make([][]string, n)
	for i := range data {
		data[i] = []string{fmt.Sprint(i + 1), fmt.Sprintf("name-%d", i+1)}
	}
	return mem(t, []string{"id", "name"}, data...)
}

func drain(t *testing.T, c rows.Cursor) [][]any {
	t.Helper()
	out, err := rows.ReadAll(c)
	require.NoError(t, err)
	return out
}

func TestAlias_EmptyMapIsTransparent(t *testing.T) {
	src := numbered(t, 2)
	a, err := Alias(numbered(t, 2), nil)
	require.NoError(t, err)

	for i := 0; i < src.FieldCount(); i++ {
		want, _ := src.Name(i)
		got, err := a.Name(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		ord, err := a.Ordinal(want)
		require.NoError(t, err)
		assert.Equal(t, i, ord)
	}
	assert.Equal(t, drain(t, src), drain(t, a))
}

func TestAlias_Renames(t *testing.T) {
	a, err := Alias(numbered(t, 1), map[string]string{"NAME": "label"})
	require.NoError(t, err)
	ok, err := a.Read()
	require.NoError(t, err)
	require.True(t, ok)

	name, err := a.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "label", name)

	v, err := rows.ValueOf(a, "Label")
	require.NoError(t, err)
	assert.Equal(t, "name-1", v)

	_, err = a.Ordinal("name")
	var nf *rows.ColumnNotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = Alias(numbered(t, 1), map[string]string{"name": "id"})
	var dup *rows.DuplicateColumnNameError
	assert.True(t, errors.As(err, &dup))
}

func TestFilter_YieldsAcceptedRows(t *testing.T) {
	even := func(c rows.Cursor) (bool, error) {
		v, err := rows.ValueOf(c, "id")
		if err != nil {
			return false, err
		}
		var n int
		_, err = fmt.Sscan(v.(string), &n)
		return n%2 == 0, err
	}
	f := Filter(numbered(t, 7), even)
	got := drain(t, f)
	require.Len(t, got, 3)
	assert.Equal(t, []any{"6", "name-6"}, got[2])
	assert.Equal(t, 3, f.Depth())
	assert.Equal(t, rows.ShapePreserving, f.Shape())
}

func TestFilter_SnapshotSurvivesInnerAdvance(t *testing.T) {
	f := Filter(numbered(t, 3), Equals("id", "2"))
	ok, err := f.Read()
	require.NoError(t, err)
	require.True(t, ok)

	// Advance the inner cursor behind the filter's back.
	_, err = f.Inner()[0].Read()
	require.NoError(t, err)

	v, err := f.Value(1)
	require.NoError(t, err)
	assert.Equal(t, "name-2", v)
}

func TestLimit(t *testing.T) {
	inner := &closeCounter{Cursor: numbered(t, 10)}
	l := Limit(inner, 4)
	assert.Len(t, drain(t, l), 4)
	assert.Equal(t, 4, l.Depth())
	ok, err := l.Read()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, inner.closes)
	assert.False(t, inner.IsClosed())

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 1, inner.closes)

	assert.Len(t, drain(t, Limit(numbered(t, 3), -1)), 3)
}

func TestCount(t *testing.T) {
	c := Count(numbered(t, 5))
	drain(t, c)
	assert.Equal(t, 5, c.Count())
}

func TestNotify(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		every int
		want  []int
	}{
		{"terminal call when not a multiple", 7, 3, []int{3, 6, 7}},
		{"no extra call on a multiple", 6, 3, []int{3, 6}},
		{"every row without modulus", 3, 0, []int{1, 2, 3}},
		{"empty input", 0, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			n := Notify(numbered(t, tt.rows), tt.every, func(c int) { got = append(got, c) })
			drain(t, n)
			require.NoError(t, n.Close())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotify_TerminalCallOnEarlyClose(t *testing.T) {
	var got []int
	n := Notify(numbered(t, 10), 4, func(c int) { got = append(got, c) })
	for i := 0; i < 5; i++ {
		_, err := n.Read()
		require.NoError(t, err)
	}
	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
	assert.Equal(t, []int{4, 5}, got)
}

func TestAddColumns(t *testing.T) {
	upper := Computed{Name: "tag", Fn: func(c rows.Cursor) (any, error) {
		v, err := rows.ValueOf(c, "id")
		return "#" + rows.Stringify(v), err
	}}
	a, err := AddColumns(numbered(t, 2), upper)
	require.NoError(t, err)
	assert.Equal(t, 3, a.FieldCount())

	ord, err := a.Ordinal("TAG")
	require.NoError(t, err)
	assert.Equal(t, 2, ord)

	got := drain(t, a)
	assert.Equal(t, [][]any{{"1", "name-1", "#1"}, {"2", "name-2", "#2"}}, got)

	_, err = AddColumns(numbered(t, 1), Computed{Name: "Name", Fn: upper.Fn})
	var dup *rows.DuplicateColumnNameError
	assert.True(t, errors.As(err, &dup))
}

func TestProject(t *testing.T) {
	p, err := Project(numbered(t, 2), SelectAs("name", "label"), Select("id"))
	require.NoError(t, err)
	assert.Equal(t, rows.ShapeReplacing, p.Shape())
	assert.Equal(t, 2, p.FieldCount())

	got := drain(t, p)
	assert.Equal(t, [][]any{{"name-1", "1"}, {"name-2", "2"}}, got)

	_, err = p.Ordinal("id")
	require.NoError(t, err)
	_, err = p.Ordinal("name")
	assert.Error(t, err)
}

func TestShaped_ValueUnsupportedWithoutOverride(t *testing.T) {
	s := &shaped{kind: "Bare", width: 1}
	_, err := s.Value(0)
	var uo *rows.UnsupportedOperationError
	require.True(t, errors.As(err, &uo))
	assert.Equal(t, "Bare", uo.Cursor)
}

func TestUnion(t *testing.T) {
	a := &closeCounter{Cursor: numbered(t, 2)}
	b := &closeCounter{Cursor: mem(t, []string{"code"}, []string{"x"}, []string{"y"}, []string{"z"})}
	u := Union(a, b)

	ok, err := u.Read()
	require.NoError(t, err)
	require.True(t, ok)
	name, _ := u.Name(0)
	assert.Equal(t, "id", name)

	rest := drain(t, u)
	assert.Len(t, rest, 4)
	assert.Equal(t, 5, u.Depth())
	name, _ = u.Name(0)
	assert.Equal(t, "code", name)

	for i := 0; i < 2; i++ {
		ok, err = u.Read()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	require.NoError(t, u.Close())
	require.NoError(t, u.Close())
	assert.Equal(t, 1, a.closes)
	assert.Equal(t, 1, b.closes)
}

func TestUnpivot(t *testing.T) {
	src := mem(t, []string{"region", "q1", "q2", "q3"},
		[]string{"north", "1", "2", "3"},
		[]string{"south", "4", "5", "6"},
		[]string{"east", "7", "8", "9"},
		[]string{"west", "10", "11", "12"},
	)
	u, err := Unpivot(src, 1, "quarter", "sales")
	require.NoError(t, err)
	assert.Equal(t, 3, u.FieldCount())

	got := drain(t, u)
	require.Len(t, got, 12)
	assert.Equal(t, 12, u.Depth())
	assert.Equal(t, []any{"north", "q1", "1"}, got[0])
	assert.Equal(t, []any{"north", "q3", "3"}, got[2])
	assert.Equal(t, []any{"west", "q2", "11"}, got[10])

	ord, err := u.Ordinal("SALES")
	require.NoError(t, err)
	assert.Equal(t, 2, ord)
}

func TestUnpivot_NoValueColumns(t *testing.T) {
	u, err := Unpivot(mem(t, []string{"k"}, []string{"a"}), 1, "col", "val")
	require.NoError(t, err)
	assert.Empty(t, drain(t, u))
}

func TestDedup_FirstOccurrenceWins(t *testing.T) {
	src := mem(t, []string{"k", "v"},
		[]string{"a", "1"},
		[]string{"b", "2"},
		[]string{"a", "3"},
		[]string{"b", "4"},
		[]string{"c", "5"},
	)
	got := drain(t, Filter(src, Dedup("k")))
	assert.Equal(t, [][]any{{"a", "1"}, {"b", "2"}, {"c", "5"}}, got)
}

func TestRequireAndNot(t *testing.T) {
	src := mem(t, []string{"k", "v"},
		[]string{"a", "1"},
		[]string{"b", ""},
		[]string{"c", "NULL"},
	)
	got := drain(t, Filter(src, Not(Require("v"))))
	assert.Equal(t, [][]any{{"b", ""}, {"c", "NULL"}}, got)
}

func TestClosedDecoratorFails(t *testing.T) {
	f := Filter(numbered(t, 1), Require("id"))
	require.NoError(t, f.Close())
	_, err := f.Read()
	assert.True(t, errors.Is(err, rows.ErrCursorClosed))
	_, err = f.Value(0)
	assert.True(t, errors.Is(err, rows.ErrCursorClosed))
	assert.True(t, f.Inner()[0].IsClosed())
}

type nopCloser struct{ closed int }

func (n *nopCloser) Close() error {
	n.closed++
	return nil
}

func TestOwn_ClosesExtraResources(t *testing.T) {
	res := &nopCloser{}
	o := Own(numbered(t, 1), res)
	require.NoError(t, o.Close())
	require.NoError(t, o.Close())
	assert.Equal(t, 1, res.closed)
}

// lazy reports no columns until its first Read, like a CSV source that
// takes its header from content.
type lazy struct {
	*rows.Memory
	started bool
}

func (l *lazy) Read() (bool, error) {
	l.started = true
	return l.Memory.Read()
}

func (l *lazy) FieldCount() int {
	if !l.started {
		return 0
	}
	return l.Memory.FieldCount()
}

func TestAddColumns_LazyInner(t *testing.T) {
	origin := Computed{Name: "origin", Fn: func(rows.Cursor) (any, error) { return "feed", nil }}
	a, err := AddColumns(&lazy{Memory: numbered(t, 2)}, origin)
	require.NoError(t, err)
	assert.Equal(t, 0, a.FieldCount())

	ok, err := a.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, a.FieldCount())
	v, err := rows.ValueOf(a, "origin")
	require.NoError(t, err)
	assert.Equal(t, "feed", v)
}

func TestUnpivot_LazyInner(t *testing.T) {
	src := &lazy{Memory: mem(t, []string{"id", "jan", "feb"}, []string{"1", "5", "6"})}
	u, err := Unpivot(src, 1, "month", "amount")
	require.NoError(t, err)
	assert.Equal(t, 0, u.FieldCount())

	got := drain(t, u)
	assert.Equal(t, 3, u.FieldCount())
	assert.Equal(t, [][]any{{"1", "jan", "5"}, {"1", "feb", "6"}}, got)
}

func TestAlias_LazyInnerCheckedOnFirstRead(t *testing.T) {
	a, err := Alias(&lazy{Memory: numbered(t, 2)}, map[string]string{"id": "name"})
	require.NoError(t, err)

	ok, err := a.Read()
	assert.False(t, ok)
	var dup *rows.DuplicateColumnNameError
	assert.True(t, errors.As(err, &dup))

	a, err = Alias(&lazy{Memory: numbered(t, 2)}, map[string]string{"id": "key"})
	require.NoError(t, err)
	got := drain(t, a)
	assert.Len(t, got, 2)
	name, err := a.Name(0)
	require.NoError(t, err)
	assert.Equal(t, "key", name)
}
