package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatCents renders an amount in cents as a decimal string, e.g. 6000 -> "60.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseCents parses a non-negative decimal amount ("60", "60.5", "60.25")
// into cents. More than two fractional digits is rejected rather than rounded.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	var fracCents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("invalid amount %q: use at most two decimal places", s)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		fracCents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || fracCents < 0 {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	return units*100 + fracCents, nil
}
