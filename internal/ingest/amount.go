package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a numeric cell permissively. A lone comma is taken as the
// decimal separator, then every character other than digits, '.' and '-' is
// dropped ("1 234,50 ₽" -> 1234.50). ok is false when nothing numeric is left.
func ParseAmount(raw string) (v decimal.Decimal, ok bool) {
	s := strings.TrimSpace(raw)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return decimal.Zero, false
	}

	v, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// amountOr returns the parsed cell or def when it is not numeric.
func amountOr(raw string, def decimal.Decimal) decimal.Decimal {
	if v, ok := ParseAmount(raw); ok {
		return v
	}
	return def
}
