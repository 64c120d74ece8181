package matcher

import (
	"strings"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/matka"
)

// ValidNumber reports whether number has the shape (and, for the patterned
// pannas, the pattern) required by the game. Placement uses it to reject
// wagers that could never be evaluated; settlement still tolerates bad rows
// that predate this check.
func ValidNumber(g domain.GameType, number string) bool {
	switch g {
	case domain.GameSingleDigit:
		return isDigitStr(number)
	case domain.GameJodi:
		return len(number) == 2 && isDigitStr(number[:1]) && isDigitStr(number[1:])
	case domain.GameSinglePanna:
		return matka.IsPanna(number)
	case domain.GameDoublePanna:
		return matka.IsDoublePanna(number)
	case domain.GameTriplePanna:
		return matka.IsTriplePanna(number)
	case domain.GameHalfSangam:
		left, right, ok := strings.Cut(number, "-")
		if !ok {
			return false
		}
		return (matka.IsPanna(left) && isDigitStr(right)) ||
			(isDigitStr(left) && matka.IsPanna(right))
	case domain.GameFullSangam:
		left, right, ok := strings.Cut(number, "-")
		return ok && matka.IsPanna(left) && matka.IsPanna(right)
	default:
		return false
	}
}
