package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Decimals is the number of fractional digits an amount carries.
const Decimals = 8

// unit is the number of base units in one whole coin.
const unit = 100_000_000

// ErrInvalidAmount is returned when an amount string can't be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount represents a value in base units of 10^-8 of a coin.
type Amount int64

// ParseAmount converts a decimal string like "12.5" into an Amount. More
// than 8 fractional digits or a negative value is an error.
func ParseAmount(s string) (Amount, error) {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > Decimals {
		return 0, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, Decimals)
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %s", ErrInvalidAmount, s, err)
	}

	var f int64
	if frac != "" {
		if !digits(frac) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}

		frac += strings.Repeat("0", Decimals-len(frac))
		if f, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}

	if w > (1<<63-1-f)/unit {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}

	return Amount(w*unit + f), nil
}

// digits reports whether s holds only the characters 0 to 9.
func digits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// String renders the amount with exactly 8 fractional digits.
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}

	return fmt.Sprintf("%s%d.%08d", sign, v/unit, v%unit)
}

// MarshalJSON writes the amount as a quoted decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON reads the amount from a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}

	v, err := ParseAmount(s)
	if err != nil {
		return err
	}

	*a = v
	return nil
}
