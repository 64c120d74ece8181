// Package matka implements the numeric rules of the game: deriving single
// digits and the jodi from declared panna strings, and classifying panna
// patterns.
package matka

import (
	"fmt"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
)

// ParseResult derives a DeclaredResult from the two declared panna strings.
// The open and close digits are the digit sums mod 10 and the jodi is their
// two-character concatenation, so "580"/"190" yields digit 3, digit 0 and
// jodi "30". It returns domain.ErrInvalidResultFormat unless both inputs are
// exactly three decimal digits.
func ParseResult(openPanna, closePanna string, at time.Time) (domain.DeclaredResult, error) {
	if !IsPanna(openPanna) {
		return domain.DeclaredResult{}, fmt.Errorf("open panna %q: %w", openPanna, domain.ErrInvalidResultFormat)
	}
	if !IsPanna(closePanna) {
		return domain.DeclaredResult{}, fmt.Errorf("close panna %q: %w", closePanna, domain.ErrInvalidResultFormat)
	}

	openDigit := DigitSum(openPanna)
	closeDigit := DigitSum(closePanna)

	return domain.DeclaredResult{
		OpenPanna:  openPanna,
		ClosePanna: closePanna,
		OpenDigit:  openDigit,
		CloseDigit: closeDigit,
		Jodi:       fmt.Sprintf("%d%d", openDigit, closeDigit),
		DeclaredAt: at,
	}, nil
}

// IsPanna reports whether s is a well-formed panna: exactly three decimal
// digits.
func IsPanna(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DigitSum returns the sum of the panna's digits mod 10. The caller must
// have validated s with IsPanna.
func DigitSum(panna string) int {
	sum := 0
	for i := 0; i < len(panna); i++ {
		sum += int(panna[i] - '0')
	}
	return sum % 10
}

// IsSinglePanna reports whether all three digits of the panna are distinct.
func IsSinglePanna(panna string) bool {
	if !IsPanna(panna) {
		return false
	}
	return panna[0] != panna[1] && panna[0] != panna[2] && panna[1] != panna[2]
}

// IsDoublePanna reports whether exactly two of the panna's three digits are
// equal.
func IsDoublePanna(panna string) bool {
	if !IsPanna(panna) {
		return false
	}
	a, b, c := panna[0], panna[1], panna[2]
	switch {
	case a == b && b == c:
		return false
	case a == b || a == c || b == c:
		return true
	}
	return false
}

// IsTriplePanna reports whether all three digits of the panna are equal.
func IsTriplePanna(panna string) bool {
	if !IsPanna(panna) {
		return false
	}
	return panna[0] == panna[1] && panna[1] == panna[2]
}
