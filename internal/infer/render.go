package infer

import "fmt"

// Renderer turns an inferred column into a SQL column type.
type Renderer interface {
	Render(c Column) string
}

// maxBoundedText is the widest nvarchar(n) SQL Server accepts.
const maxBoundedText = 4000

// SQLServer renders SQL Server column types. It is the default renderer.
type SQLServer struct{}

func (SQLServer) Render(c Column) string {
	switch c.Kind {
	case Boolean:
		return "bit"
	case Date:
		return "date"
	case DateTime:
		return "datetime2"
	case Integer:
		if c.Wide {
			return "bigint"
		}
		return "int"
	case Decimal:
		if c.Money {
			return "money"
		}
		return fmt.Sprintf("decimal(%d,%d)", c.Precision, c.Scale)
	case Float:
		return "float"
	case GUID:
		return "uniqueidentifier"
	}
	if c.Length > maxBoundedText {
		return "nvarchar(max)"
	}
	return fmt.Sprintf("nvarchar(%d)", max(c.Length, 1))
}
