package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseCents converts a decimal money string to fixed-point cents. It
// tolerates currency symbols, thousands separators, and surrounding
// whitespace, but rejects anything that is not a plain decimal amount.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	s = strings.TrimLeft(s, "$£€ ")
	s = strings.ReplaceAll(s, ",", "")

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		// accountant negative
		neg = true
		s = s[1 : len(s)-1]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}

	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return cents, nil
}

// FormatCents renders fixed-point cents as a plain decimal string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// centsWithinTolerance reports whether two amounts agree within one
// cent, the slack allowed for quantity-times-price rounding.
func centsWithinTolerance(computed float64, stated int64) bool {
	return math.Abs(computed-float64(stated)) <= 1.0
}
