package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a monetary value in minor units (1/100 of the currency unit).
type Amount int64

const MinorUnitsPerMajor = 100

func (a Amount) IsPositive() bool {
	return a > 0
}

// String renders the amount as a fixed two-decimal string without touching floats.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/MinorUnitsPerMajor, v%MinorUnitsPerMajor)
}

// ParseAmount parses "300", "300.5" or "300.50" into minor units.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("invalid amount %q: at most two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	v := w*MinorUnitsPerMajor + f
	if neg {
		v = -v
	}
	return Amount(v), nil
}
