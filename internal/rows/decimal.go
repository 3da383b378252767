package rows

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// FormatDecimal renders n in plain positional notation ("-12.50"), the form
// SQL drivers and reports expect. An invalid value renders as "".
func FormatDecimal(n pgtype.Numeric) string {
	if !n.Valid {
		return ""
	}
	if n.NaN {
		return "NaN"
	}
	if n.Int == nil {
		return "0"
	}
	digits := n.Int.String()
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var out string
	switch {
	case n.Exp >= 0:
		out = digits + strings.Repeat("0", int(n.Exp))
		if digits == "0" {
			out = "0"
		}
	default:
		scale := int(-n.Exp)
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		cut := len(digits) - scale
		out = digits[:cut] + "." + digits[cut:]
	}
	if neg {
		return "-" + out
	}
	return out
}
