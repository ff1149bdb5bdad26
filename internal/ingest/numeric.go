package ingest

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// normalizeNumber rewrites a locale-ambiguous number into Go syntax.
// Returns "" when the text carries no number.
//
//	"1.234,56" -> "1234.56"  (dot thousands, comma decimal)
//	"1234,56"  -> "1234.56"
//	"1234.56"  -> "1234.56"  (two digits after the dot stay decimal)
//	"1.234"    -> "1234"     (three or more digits after a single dot are thousands)
func normalizeNumber(text string) string {
	s := strings.Join(strings.Fields(text), "")
	if s == "" || s == "-" {
		return ""
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	case hasDot && strings.Count(s, ".") == 1:
		if idx := strings.Index(s, "."); len(s)-idx-1 > 2 {
			s = s[:idx] + s[idx+1:]
		}
	}

	return s
}

// ParseLocaleNumber converts a broker export number into a float64.
// Anything that does not parse yields 0; it never fails.
func ParseLocaleNumber(text string) float64 {
	s := normalizeNumber(text)
	if s == "" {
		return 0
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return value
}

// ParseLocaleDecimal is ParseLocaleNumber for monetary fields.
// Keeps the exact decimal value so threshold comparisons do not drift.
func ParseLocaleDecimal(text string) decimal.Decimal {
	s := normalizeNumber(text)
	if s == "" {
		return decimal.Zero
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return value
}
