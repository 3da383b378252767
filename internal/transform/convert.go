package transform

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"rowpipe/internal/rows"
)

var (
	errNotBool   = errors.New("not a boolean")
	errNotNumber = errors.New("not a number")
	errNotDate   = errors.New("not a date")
	errNotGUID   = errors.New("not a GUID")
)

func toString(v any) (any, error) {
	if rows.IsBlank(v) {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case []byte:
		return strings.TrimSpace(string(t)), nil
	}
	return rows.Stringify(v), nil
}

func toBool(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return intBool(t)
	case int:
		return intBool(int64(t))
	}
	switch strings.ToLower(strings.TrimSpace(rows.Stringify(v))) {
	case "true", "1", "t", "y":
		return true, nil
	case "false", "0", "f", "n":
		return false, nil
	}
	return nil, errNotBool
}

func intBool(i int64) (any, error) {
	switch i {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, errNotBool
}

// numberPattern is a cleaned number: optional sign, digits with an optional
// fraction, optional exponent.
var numberPattern = regexp.MustCompile(`^([+-]?)(\d+(?:\.\d*)?|\.\d+)(?:[eE]([+-]?\d+))?$`)

// cleanNumber strips the decorations found in exported reports: currency
// symbols, percent signs, thousands separators and accounting negatives
// "(1,200)". ok is false for a sentinel meaning "no value".
func cleanNumber(s string) (clean string, ok bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "-", "n/a", "null":
		return "", false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	}
	s = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", "%", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)
	if neg {
		s = "-" + s
	}
	return s, true
}

// ParseDecimal parses s as an exact decimal after cleanNumber. The second
// result is false when s is a "no value" sentinel.
func ParseDecimal(s string) (pgtype.Numeric, bool, error) {
	clean, ok := cleanNumber(s)
	if !ok {
		return pgtype.Numeric{}, false, nil
	}
	m := numberPattern.FindStringSubmatch(clean)
	if m == nil {
		return pgtype.Numeric{}, true, errNotNumber
	}
	digits, exp := m[2], int64(0)
	if dot := strings.IndexByte(digits, '.'); dot >= 0 {
		exp = -int64(len(digits) - dot - 1)
		digits = digits[:dot] + digits[dot+1:]
	}
	if m[3] != "" {
		e, err := strconv.ParseInt(m[3], 10, 32)
		if err != nil {
			return pgtype.Numeric{}, true, errNotNumber
		}
		exp += e
	}
	if exp < math.MinInt32 || exp > math.MaxInt32 {
		return pgtype.Numeric{}, true, errNotNumber
	}
	n, ok := new(big.Int).SetString(m[1]+digits, 10)
	if !ok {
		return pgtype.Numeric{}, true, errNotNumber
	}
	return pgtype.Numeric{Int: n, Exp: int32(exp), Valid: true}, true, nil
}

func toDecimal(v any) (any, error) {
	switch t := v.(type) {
	case pgtype.Numeric:
		return t, nil
	case int64:
		return pgtype.Numeric{Int: big.NewInt(t), Valid: true}, nil
	case int:
		return pgtype.Numeric{Int: big.NewInt(int64(t)), Valid: true}, nil
	case float64:
		v = strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		v = strconv.FormatFloat(float64(t), 'g', -1, 32)
	}
	n, present, err := ParseDecimal(rows.Stringify(v))
	if err != nil || !present {
		return nil, err
	}
	return n, nil
}

func parseFloat(v any, bits int) (float64, bool, error) {
	switch t := v.(type) {
	case float64:
		return t, true, nil
	case float32:
		return float64(t), true, nil
	case int64:
		return float64(t), true, nil
	case int:
		return float64(t), true, nil
	}
	clean, ok := cleanNumber(rows.Stringify(v))
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(clean, bits)
	if err != nil {
		return 0, true, errNotNumber
	}
	return f, true, nil
}

func toFloat64(v any) (any, error) {
	f, present, err := parseFloat(v, 64)
	if err != nil || !present {
		return nil, err
	}
	return f, nil
}

func toFloat32(v any) (any, error) {
	f, present, err := parseFloat(v, 32)
	if err != nil || !present {
		return nil, err
	}
	return float32(f), nil
}

// toInt parses a whole number, truncating any fractional part ("12.9" -> 12).
func toInt(v any) (any, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		return truncInt(t)
	}
	clean, ok := cleanNumber(rows.Stringify(v))
	if !ok {
		return nil, nil
	}
	if i, err := strconv.ParseInt(clean, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil, errNotNumber
	}
	return truncInt(f)
}

func truncInt(f float64) (any, error) {
	f = math.Trunc(f)
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%v out of integer range", f)
	}
	return int64(f), nil
}

func toGUID(v any) (any, error) {
	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case [16]byte:
		return uuid.UUID(t), nil
	case []byte:
		if len(t) == 16 {
			return uuid.FromBytes(t)
		}
	}
	u, err := uuid.Parse(strings.TrimSpace(rows.Stringify(v)))
	if err != nil {
		return nil, errNotGUID
	}
	return u, nil
}

func enumBuilder(t rows.Type) Func {
	var symbols []string
	if t.Enum != nil {
		symbols = t.Enum.Symbols
	}
	return wrap(t, func(v any) (any, error) {
		switch n := v.(type) {
		case int64:
			return enumOrdinal(n, len(symbols))
		case int:
			return enumOrdinal(int64(n), len(symbols))
		}
		s := strings.TrimSpace(rows.Stringify(v))
		for i, sym := range symbols {
			if strings.EqualFold(s, sym) {
				return int64(i), nil
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return enumOrdinal(n, len(symbols))
		}
		return nil, fmt.Errorf("no symbol %q in %s", s, t)
	})
}

func enumOrdinal(n int64, size int) (any, error) {
	if n < 0 || n >= int64(size) {
		return nil, fmt.Errorf("ordinal %d out of range [0,%d)", n, size)
	}
	return n, nil
}

func toDate(v any) (any, error) {
	tm, present, err := parseTime(v)
	if err != nil || !present {
		return nil, err
	}
	y, m, d := tm.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func toDateTime(v any) (any, error) {
	tm, present, err := parseTime(v)
	if err != nil || !present {
		return nil, err
	}
	return tm, nil
}

func parseTime(v any) (time.Time, bool, error) {
	switch t := v.(type) {
	case time.Time:
		return t, true, nil
	case pgtype.Date:
		return t.Time, t.Valid, nil
	case pgtype.Timestamp:
		return t.Time, t.Valid, nil
	case float64:
		tm, ok := FromSerial(t)
		if !ok {
			return time.Time{}, true, errNotDate
		}
		return tm, true, nil
	}
	s := strings.TrimSpace(rows.Stringify(v))
	if isSentinel(rows.KindDate, s) {
		return time.Time{}, false, nil
	}
	if tm, ok := ParseTime(s); ok {
		return tm, true, nil
	}
	if tm, err := time.Parse("20060102", s); err == nil {
		return tm, true, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if tm, ok := FromSerial(f); ok {
			return tm, true, nil
		}
	}
	return time.Time{}, true, errNotDate
}
