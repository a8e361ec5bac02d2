package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const stellarPrecision = 7

// FormatAmount rounds to Stellar precision (7 decimal places) and strips trailing zeros.
func FormatAmount(d decimal.Decimal) string {
	s := d.Round(stellarPrecision).StringFixed(stellarPrecision)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
