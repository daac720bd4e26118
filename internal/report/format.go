package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"GBP": "£",
	"EUR": "€",
	"CAD": "CA$",
	"AUD": "A$",
}

// CurrencyFormatter renders monetary values for the given ISO currency code,
// e.g. "£1,234.50". Unknown codes fall back to a code prefix.
func CurrencyFormatter(currency string) Formatter {
	symbol, known := currencySymbols[strings.ToUpper(currency)]
	return func(v float64) string {
		amount := decimal.NewFromFloat(v).Round(2)
		formatted := groupThousands(amount.StringFixed(2))
		if known {
			return symbol + formatted
		}
		return strings.ToUpper(currency) + " " + formatted
	}
}

// FormatCount renders whole quantities with thousands separators.
func FormatCount(v float64) string {
	return groupThousands(decimal.NewFromFloat(v).Round(0).StringFixed(0))
}

// FormatPercent renders a percentage with one decimal place.
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).Round(1).StringFixed(1) + "%"
}

// FormatRatio renders multiples such as ROAS, e.g. "3.42x".
func FormatRatio(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2) + "x"
}

// FormatDuration renders a second count as "1m 32s".
func FormatDuration(seconds float64) string {
	total := int(seconds + 0.5)
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// groupThousands inserts comma separators into the integer part of a plain
// decimal string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}

	if len(intPart) <= 3 {
		return sign + intPart + fracPart
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + fracPart
}
