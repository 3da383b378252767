package rows

import (
	"fmt"
	"strings"
)

// Kind is the atomic value category of a column.
type Kind uint8

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindDecimal
	KindFloat
	KindDouble
	KindGUID
	KindDate
	KindDateTime
	KindEnum
)

var kindNames = [...]string{
	KindString:   "string",
	KindBool:     "bool",
	KindInt:      "int",
	KindDecimal:  "decimal",
	KindFloat:    "float",
	KindDouble:   "double",
	KindGUID:     "guid",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindEnum:     "enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind maps a loosely-specified type name onto a Kind. It accepts the
// canonical names plus the aliases commonly found in pipeline configs and
// SQL schemas ("text", "integer", "bigint", "numeric", "uuid", "timestamp"...).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "text", "varchar", "nvarchar":
		return KindString, nil
	case "bool", "boolean", "bit":
		return KindBool, nil
	case "int", "integer", "bigint", "long", "smallint":
		return KindInt, nil
	case "decimal", "numeric", "money":
		return KindDecimal, nil
	case "float", "real", "single":
		return KindFloat, nil
	case "double", "float64", "double precision":
		return KindDouble, nil
	case "guid", "uuid", "uniqueidentifier":
		return KindGUID, nil
	case "date":
		return KindDate, nil
	case "datetime", "timestamp", "timestamptz", "datetime2":
		return KindDateTime, nil
	case "enum":
		return KindEnum, nil
	}
	return KindString, fmt.Errorf("rows: unknown type %q", s)
}

// EnumDef names the symbols of an enum-like destination type. The ordinal of
// a symbol in Symbols is its numeric value.
type EnumDef struct {
	Name    string
	Symbols []string
}

// Type is a declared column type.
type Type struct {
	Kind     Kind
	Nullable bool
	Enum     *EnumDef
}

// Common non-nullable types.
var (
	String   = Type{Kind: KindString}
	Bool     = Type{Kind: KindBool}
	Int      = Type{Kind: KindInt}
	Decimal  = Type{Kind: KindDecimal}
	Float    = Type{Kind: KindFloat}
	Double   = Type{Kind: KindDouble}
	GUID     = Type{Kind: KindGUID}
	Date     = Type{Kind: KindDate}
	DateTime = Type{Kind: KindDateTime}
)

// OrNull returns t marked nullable.
func (t Type) OrNull() Type {
	t.Nullable = true
	return t
}

func (t Type) String() string {
	name := t.Kind.String()
	if t.Kind == KindEnum && t.Enum != nil && t.Enum.Name != "" {
		name = t.Enum.Name
	}
	if t.Nullable {
		return name + "?"
	}
	return name
}

// IsText reports whether values of t are passed through without coercion.
func (t Type) IsText() bool { return t.Kind == KindString }
