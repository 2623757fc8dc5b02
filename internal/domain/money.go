package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents.
type Money int64

// NewMoney converts a decimal amount such as 1800.00 to cents, rounding half away from zero.
func NewMoney(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// ErrMoneyOverflow is returned when an amount does not fit in int64 cents.
var ErrMoneyOverflow = errors.New("amount out of range")

// ParseMoney parses a decimal string with at most two fractional digits and
// an optional leading minus sign.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse money: empty amount")
	}
	raw := s
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("parse money %q: no digits", raw)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("parse money %q: invalid amount", raw)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("parse money %q: more than two decimal places", raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", raw, ErrMoneyOverflow)
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("parse money %q: %w", raw, ErrMoneyOverflow)
	}
	m := Money(units*100 + cents)
	if neg {
		m = -m
	}
	return m, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Times multiplies a unit price by a seat count.
func (m Money) Times(n int) (Money, error) {
	if n < 0 || m < 0 {
		return 0, fmt.Errorf("multiply %s by %d: negative operand", m, n)
	}
	if n != 0 && int64(m) > math.MaxInt64/int64(n) {
		return 0, fmt.Errorf("multiply %s by %d: %w", m, n, ErrMoneyOverflow)
	}
	return m * Money(n), nil
}

// String renders the amount with two decimals, e.g. "5400.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return nil
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
