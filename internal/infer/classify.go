// Package infer derives a best-fit column type from sampled textual values
// and aggregates samples from several row sources into one table definition
// suitable for DDL rendering.
package infer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"rowpipe/internal/rows"
	"rowpipe/internal/transform"
)

// Kind is an inferred atomic column type.
type Kind uint8

const (
	String Kind = iota
	Boolean
	Date
	DateTime
	Integer
	Decimal
	Float
	GUID
)

var kindNames = [...]string{
	String:   "string",
	Boolean:  "boolean",
	Date:     "date",
	DateTime: "datetime",
	Integer:  "integer",
	Decimal:  "decimal",
	Float:    "float",
	GUID:     "guid",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Column is the inference result for one column.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
	// Precision and Scale are the exact widths observed for decimals:
	// Precision = widest integer part + widest fraction part.
	Precision int
	Scale     int
	// Length is the longest observed value in characters, for strings.
	Length int
	// Money is set for whole-number decimals written with a currency symbol.
	Money bool
	// Wide is set for integers outside the 32-bit range.
	Wide bool
	// SQLType is the rendered column type.
	SQLType string
}

// Type maps the inferred column onto the pipeline's declared types.
func (c Column) Type() rows.Type {
	t := rows.String
	switch c.Kind {
	case Boolean:
		t = rows.Bool
	case Date:
		t = rows.Date
	case DateTime:
		t = rows.DateTime
	case Integer:
		t = rows.Int
	case Decimal:
		t = rows.Decimal
	case Float:
		t = rows.Double
	case GUID:
		t = rows.GUID
	}
	t.Nullable = c.Nullable
	return t
}

// Classify infers the type of column name from its sample. The first rule
// that accepts every value wins, in the order boolean, date/datetime,
// integer, decimal, float, GUID, string. A sample with no non-null values is
// a string column.
func Classify(s *Sample) Column {
	col := Column{Name: s.Name, Nullable: s.Nullable(), Kind: String}
	values := s.Values()
	if len(values) == 0 {
		return col
	}
	switch {
	case allBool(values):
		col.Kind = Boolean
	case classifyTime(s.Name, values, &col):
	case allInt(values, &col):
		col.Kind = Integer
	case classifyDecimal(values, &col):
		col.Kind = Decimal
	case allFloat(values):
		col.Kind = Float
	case allGUID(values):
		col.Kind = GUID
	default:
		for _, v := range values {
			col.Length = max(col.Length, utf8.RuneCountInString(v))
		}
	}
	return col
}

// ClassifyValues is Classify over a plain list of raw values.
func ClassifyValues(name string, raw []string) Column {
	s := NewSample(name)
	for _, v := range raw {
		s.Add(v)
	}
	return Classify(s)
}

// allBool accepts only true/false/0/1. The runtime boolean conversion also
// takes t/f/y/n; inference is deliberately narrower.
func allBool(values []string) bool {
	for _, v := range values {
		switch strings.ToLower(v) {
		case "true", "false", "0", "1":
		default:
			return false
		}
	}
	return true
}

func classifyTime(name string, values []string, col *Column) bool {
	midnight := true
	for _, v := range values {
		t, ok := transform.ParseTime(v)
		if !ok {
			if strings.Contains(strings.ToLower(name), "date") {
				col.Kind = DateTime
				return true
			}
			return false
		}
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
			midnight = false
		}
	}
	if midnight {
		col.Kind = Date
	} else {
		col.Kind = DateTime
	}
	return true
}

func allInt(values []string, col *Column) bool {
	wide := false
	for _, v := range values {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			wide = true
		}
	}
	col.Wide = wide
	return true
}

var (
	// plainDecimal allows thousands separators in groups of three.
	plainDecimal = regexp.MustCompile(`^[+-]?(?:\d{1,3}(?:,\d{3})+|\d+)?(?:\.\d+)?$`)
	// currencyDecimal is "$1,200.50", "-$5" or "($1,200)".
	currencyDecimal = regexp.MustCompile(`^(?:-?\$(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?|\(\$?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?\))$`)
	percentDecimal  = regexp.MustCompile(`^[+-]?(?:\d{1,3}(?:,\d{3})+|\d+)?(?:\.\d+)?%$`)
)

func classifyDecimal(values []string, col *Column) bool {
	plain, currency, percent := true, true, true
	for _, v := range values {
		hasDigit := strings.ContainsAny(v, "0123456789")
		plain = plain && hasDigit && plainDecimal.MatchString(v)
		currency = currency && currencyDecimal.MatchString(v)
		percent = percent && hasDigit && percentDecimal.MatchString(v)
		if !plain && !currency && !percent {
			return false
		}
	}
	intW, fracW := 0, 0
	for _, v := range values {
		i, f := numberWidths(v)
		intW, fracW = max(intW, i), max(fracW, f)
	}
	col.Precision = max(intW+fracW, 1)
	col.Scale = fracW
	col.Money = currency && !plain && fracW == 0
	return true
}

// numberWidths returns the digit counts of the integer and fraction parts of
// a decimal after stripping sign, currency, parentheses, percent and
// thousands separators.
func numberWidths(v string) (intW, fracW int) {
	v = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' {
			return r
		}
		return -1
	}, v)
	ip, fp, _ := strings.Cut(v, ".")
	return len(ip), len(fp)
}

func allFloat(values []string) bool {
	plain, dollar := true, true
	for _, v := range values {
		_, err := strconv.ParseFloat(v, 64)
		plain = plain && err == nil
		if rest, ok := strings.CutPrefix(v, "$"); ok {
			_, err = strconv.ParseFloat(rest, 64)
			dollar = dollar && err == nil
		} else {
			dollar = false
		}
		if !plain && !dollar {
			return false
		}
	}
	return true
}

func allGUID(values []string) bool {
	for _, v := range values {
		if _, err := uuid.Parse(v); err != nil {
			return false
		}
	}
	return true
}
