package transform

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowpipe/internal/rows"
)

func lookup(t *testing.T, typ rows.Type) Func {
	t.Helper()
	fn, ok := Default().Lookup(typ)
	require.True(t, ok, "no conversion for %s", typ)
	return fn
}

func decimalFloat(t *testing.T, v any) float64 {
	t.Helper()
	n, ok := v.(pgtype.Numeric)
	require.True(t, ok, "want pgtype.Numeric, got %T", v)
	f, err := n.Float64Value()
	require.NoError(t, err)
	return f.Float64
}

func TestBool(t *testing.T) {
	fn := lookup(t, rows.Bool)
	tests := []struct {
		in   any
		want any
	}{
		{"true", true}, {" FALSE ", false}, {"1", true}, {"0", false},
		{"t", true}, {"F", false}, {"y", true}, {"N", false},
		{"", nil}, {"null", nil}, {true, true}, {int64(1), true},
	}
	for _, tt := range tests {
		got, err := fn(tt.in)
		require.NoError(t, err, "%#v", tt.in)
		assert.Equal(t, tt.want, got, "%#v", tt.in)
	}

	_, err := fn("yes")
	var ve *rows.ValueConversionError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "yes", ve.Raw)
	assert.Equal(t, -1, ve.Ordinal)
}

func TestDecimal(t *testing.T) {
	fn := lookup(t, rows.Decimal)
	tests := []struct {
		in   string
		want float64
	}{
		{"($1,200)", -1200},
		{"1,234.56", 1234.56},
		{"$120.50", 120.5},
		{"-$5", -5},
		{"12%", 12},
		{"1.5e3", 1500},
		{"€ 7", 7},
		{"-0.25", -0.25},
	}
	for _, tt := range tests {
		got, err := fn(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, decimalFloat(t, got), 1e-9, tt.in)
	}

	for _, s := range []string{"-", "n/a", "NULL", ""} {
		got, err := fn(s)
		require.NoError(t, err, s)
		assert.Nil(t, got, s)
	}

	_, err := fn("12abc")
	assert.Error(t, err)
}

func TestDecimal_KeepsExactDigits(t *testing.T) {
	n, present, err := ParseDecimal("$120.50")
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, "12050", n.Int.String())
	assert.Equal(t, int32(-2), n.Exp)
}

func TestFloatAndDouble(t *testing.T) {
	got, err := lookup(t, rows.Double)("(2.5)")
	require.NoError(t, err)
	assert.Equal(t, -2.5, got)

	got, err = lookup(t, rows.Float)("1,000.5")
	require.NoError(t, err)
	assert.Equal(t, float32(1000.5), got)
}

func TestInt_TruncatesFraction(t *testing.T) {
	fn := lookup(t, rows.Int)
	tests := map[string]int64{"42": 42, "12.9": 12, "-3.7": -3, "1,000": 1000, "1e3": 1000}
	for in, want := range tests {
		got, err := fn(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := fn("twelve")
	assert.Error(t, err)
}

func TestGUID(t *testing.T) {
	fn := lookup(t, rows.GUID)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	got, err := fn(" 6BA7B810-9DAD-11D1-80B4-00C04FD430C8 ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = fn(id[:])
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = fn("not-a-guid")
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	fn := lookup(t, rows.Date)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		in   any
		want any
	}{
		{"1", day(1899, 12, 31)},
		{"2023-04-05", day(2023, 4, 5)},
		{"05.04.2023", day(2023, 4, 5)},
		{"4/5/2023", day(2023, 4, 5)},
		{"20230405", day(2023, 4, 5)},
		{"45021", day(2023, 4, 5)},
		{"2023-04-05T10:30:00Z", day(2023, 4, 5)},
		{"--/--/--", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := fn(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	_, err := fn("someday")
	assert.Error(t, err)
}

func TestSentinelsAreNullWithoutNullable(t *testing.T) {
	for _, typ := range []rows.Type{rows.Int, rows.Decimal, rows.Date, rows.DateTime} {
		fn := lookup(t, typ)
		for _, in := range []string{"-", "n/a", " N/A "} {
			got, err := fn(in)
			require.NoError(t, err, "%s %q", typ, in)
			assert.Nil(t, got, "%s %q", typ, in)
		}
	}
}

func TestDateTime_KeepsTimeOfDay(t *testing.T) {
	got, err := lookup(t, rows.DateTime)("2023-04-05 10:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 4, 5, 10, 30, 0, 0, time.UTC), got)

	got, err = lookup(t, rows.DateTime)("1.5")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1899, 12, 31, 12, 0, 0, 0, time.UTC), got)
}

func TestEnum(t *testing.T) {
	typ := rows.Type{Kind: rows.KindEnum, Enum: &rows.EnumDef{Name: "status", Symbols: []string{"Active", "Closed"}}}
	fn := lookup(t, typ)

	got, err := fn("closed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = fn("0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = fn("Pending")
	var ve *rows.ValueConversionError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Pending", ve.Raw)
	assert.Equal(t, "status", ve.Type.String())
}

func TestString(t *testing.T) {
	fn := lookup(t, rows.String)
	got, err := fn("  hi ")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	got, err = fn("  ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNullableShortCircuitsSentinels(t *testing.T) {
	fn := lookup(t, rows.Date.OrNull())
	got, err := fn("n/a")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Non-nullable dates reject the same token.
	_, err = lookup(t, rows.Date)("n/a")
	assert.Error(t, err)
}

func TestNone_IsIdentity(t *testing.T) {
	fn, ok := None().Lookup(rows.Decimal)
	require.True(t, ok)
	got, err := fn("($1,200)")
	require.NoError(t, err)
	assert.Equal(t, "($1,200)", got)
}

func TestPlan_ApplyRowAddsColumnContext(t *testing.T) {
	schema, err := rows.NewSchema([]string{"id", "paid"}, []rows.Type{rows.Int, rows.Bool})
	require.NoError(t, err)
	p, err := Compile(Default(), schema)
	require.NoError(t, err)

	row := []any{"7", "y"}
	require.NoError(t, p.ApplyRow(row))
	assert.Equal(t, []any{int64(7), true}, row)

	err = p.ApplyRow([]any{"8", "maybe"})
	var ve *rows.ValueConversionError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.Ordinal)
	assert.Equal(t, "paid", ve.Column)
}

func TestByName(t *testing.T) {
	g, err := ByName("none")
	require.NoError(t, err)
	assert.Equal(t, None(), g)
	_, err = ByName("fancy")
	assert.Error(t, err)
}
