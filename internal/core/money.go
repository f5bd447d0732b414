// Package core holds the domain types shared by the store, the conversation
// flows and the reporting layer.
//
// This file contains amount parsing and formatting. Amounts are whole units
// of the local currency; there is no fractional handling.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an expense amount in the smallest currency unit.
type Money struct {
	Units int64
}

func (m Money) Validate() error {
	if m.Units <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Format renders the amount with spaces as thousands separators,
// e.g. 50000 -> "50 000".
func (m Money) Format() string {
	return FormatUnits(m.Units)
}

// FormatUnits renders a raw integer amount with space grouping.
func FormatUnits(units int64) string {
	neg := units < 0
	if neg {
		units = -units
	}
	digits := strconv.FormatInt(units, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// ParseAmount converts user input to a positive amount.
//
// Embedded spaces are tolerated so that grouped input round-trips
// ("50 000" parses as 50000). Anything non-numeric, zero or negative is
// ErrInvalidAmount.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, " ", "")
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	units, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if units <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Units: units}, nil
}
