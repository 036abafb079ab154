package utils

import (
	"fmt"
	"math"
)

// CentsFromAmount converts a decimal amount (as received in JSON) into minor units.
func CentsFromAmount(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// AmountFromCents converts minor units back into a decimal amount for JSON output.
func AmountFromCents(cents int64) float64 {
	return float64(cents) / 100
}

// FormatMoney keeps consistent two-decimal formatting for currency fields.
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d", sign, formatThousand(cents/100), cents%100)
}

func formatThousand(n int64) string {
	s := fmt.Sprintf("%d", n)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := 0; i < len(s); i++ {
		if i != 0 && (len(s)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i])
	}
	return string(out)
}
