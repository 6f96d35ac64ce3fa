// Package pesel verifies the check digit of 11-digit PESEL identification
// numbers.
package pesel

import (
	"errors"
	"fmt"
	"strings"
)

// Length is the number of digits in a PESEL number.
const Length = 11

var weights = [Length - 1]int{1, 3, 7, 9, 1, 3, 7, 9, 1, 3}

// ErrInvalidFormat is returned for input that is not exactly eleven ASCII
// digits.
var ErrInvalidFormat = errors.New("invalid pesel format")

// Verify returns 1 when the last digit of number matches the check digit
// computed from the first ten, and 0 otherwise. Malformed input yields 0
// together with an error wrapping ErrInvalidFormat.
func Verify(number string) (int, error) {
	if err := Validate(number); err != nil {
		return 0, err
	}
	expected := checkDigit(number)
	if expected == int(number[Length-1]-'0') {
		return 1, nil
	}
	return 0, nil
}

// IsValid reports whether number is well-formed and carries a correct check
// digit.
func IsValid(number string) bool {
	result, err := Verify(number)
	return err == nil && result == 1
}

// CheckDigit computes the expected check digit. It accepts either the ten
// data digits alone or a full eleven-digit number, whose last digit is
// ignored.
func CheckDigit(number string) (int, error) {
	switch len(number) {
	case Length - 1:
		if err := validateDigits(number); err != nil {
			return 0, err
		}
	case Length:
		if err := validateDigits(number[:Length-1]); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("%w: want %d or %d digits, got %d characters",
			ErrInvalidFormat, Length-1, Length, len(number))
	}
	return checkDigit(number), nil
}

// Validate checks the format only: exactly eleven ASCII digits.
func Validate(number string) error {
	if len(number) != Length {
		return fmt.Errorf("%w: want %d digits, got %d characters", ErrInvalidFormat, Length, len(number))
	}
	return validateDigits(number)
}

// Mask hides the serial and check digits so numbers can be logged.
func Mask(number string) string {
	const visible = 6
	if len(number) <= visible {
		return strings.Repeat("*", len(number))
	}
	return number[:visible] + strings.Repeat("*", len(number)-visible)
}

func validateDigits(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return fmt.Errorf("%w: non-digit %q at position %d", ErrInvalidFormat, s[i], i)
		}
	}
	return nil
}

// checkDigit expects at least ten validated digits.
func checkDigit(number string) int {
	total := 0
	for i, w := range weights {
		total += int(number[i]-'0') * w
	}
	return (10 - total%10) % 10
}
