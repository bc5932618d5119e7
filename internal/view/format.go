package view

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders d the way es-ES locale formatting does: at most three
// fraction digits, comma as decimal separator, and dot grouping only when the
// integer part has five or more digits.
func FormatAmount(d decimal.Decimal) string {
	r := d.Round(3)
	s := r.Abs().String()

	intPart, frac, _ := strings.Cut(s, ".")
	if len(intPart) >= 5 {
		intPart = group(intPart)
	}

	var b strings.Builder
	if r.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(intPart)
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// FormatPrice prefixes FormatAmount with the currency sign.
func FormatPrice(d decimal.Decimal) string {
	return "$" + FormatAmount(d)
}

// FormatPercent renders a percentage such as "20%".
func FormatPercent(d decimal.Decimal) string {
	return FormatAmount(d) + "%"
}

func group(digits string) string {
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
