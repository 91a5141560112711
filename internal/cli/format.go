// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/tiercost/internal/pipeline"
)

// CurrencySymbol prefixes every money value. Amounts are NZD.
const CurrencySymbol = "$"

// FormatMoney formats a currency amount with grouping and two decimals.
// e.g., 1234.5 -> "$1,234.50", -0.125 -> "-$0.13"
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return CurrencySymbol + "-"
	}
	s := pipeline.Exact(v).Round(2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if neg && strings.Trim(s, "0.") == "" {
		neg = false
	}

	intPart, frac, _ := strings.Cut(s, ".")
	out := CurrencySymbol + groupDigits(intPart) + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// FormatCount formats a quantity with grouping and up to three decimals.
// e.g., 1234567 -> "1,234,567", 30.416666 -> "30.417"
func FormatCount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	s := pipeline.Exact(v).Round(3).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, hasFrac := strings.Cut(s, ".")
	out := groupDigits(intPart)
	if hasFrac {
		out += "." + frac
	}
	if neg && out != "0" {
		return "-" + out
	}
	return out
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	return groupDigits(strconv.FormatInt(n, 10))
}

func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatRate formats a tier rate against its display unit label.
// e.g., (5, "1 million") -> "$5.00 / 1 million"
func FormatRate(rate float64, unit string) string {
	return FormatMoney(rate) + " / " + unit
}

// FormatOptional formats a pointer value, or returns a dash for nil.
func FormatOptional(v *float64, format func(float64) string) string {
	if v == nil {
		return "-"
	}
	return format(*v)
}
