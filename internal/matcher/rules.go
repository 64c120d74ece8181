package matcher

import (
	"strconv"
	"strings"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/matka"
)

// sidePanna returns the declared panna targeted by the wager's side. A wager
// with no explicit side targets the close value, mirroring the "if open,
// else close" convention of the source rules.
func sidePanna(w domain.Wager, r domain.DeclaredResult) string {
	if w.Side == domain.SideOpen {
		return r.OpenPanna
	}
	return r.ClosePanna
}

func sideDigit(w domain.Wager, r domain.DeclaredResult) int {
	if w.Side == domain.SideOpen {
		return r.OpenDigit
	}
	return r.CloseDigit
}

func won(b bool) Outcome {
	if b {
		return OutcomeWon
	}
	return OutcomeLost
}

func isDigitStr(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

// singleDigitRule matches a one-digit pick against the side's derived digit.
type singleDigitRule struct{}

func (singleDigitRule) Game() domain.GameType { return domain.GameSingleDigit }

func (singleDigitRule) Evaluate(w domain.Wager, r domain.DeclaredResult) Outcome {
	if !isDigitStr(w.Number) {
		return OutcomeUnevaluable
	}
	n, _ := strconv.Atoi(w.Number)
	return won(n == sideDigit(w, r))
}

// jodiRule matches a two-digit pick against the jodi, side-independent.
type jodiRule struct{}

func (jodiRule) Game() domain.GameType { return domain.GameJodi }

func (jodiRule) Evaluate(w domain.Wager, r domain.DeclaredResult) Outcome {
	if len(w.Number) != 2 || !isDigitStr(w.Number[:1]) || !isDigitStr(w.Number[1:]) {
		return OutcomeUnevaluable
	}
	return won(w.Number == r.Jodi)
}

// singlePannaRule matches a three-digit pick against the side's panna.
type singlePannaRule struct{}

func (singlePannaRule) Game() domain.GameType { return domain.GameSinglePanna }

func (singlePannaRule) Evaluate(w domain.Wager, r domain.DeclaredResult) Outcome {
	if !matka.IsPanna(w.Number) {
		return OutcomeUnevaluable
	}
	return won(w.Number == sidePanna(w, r))
}

// doublePannaRule additionally requires the pick itself to be a double
// panna. A pick that equals the declared panna but fails the pattern test is
// a loser: the wager claimed the wrong bet type.
type doublePannaRule struct{}

func (doublePannaRule) Game() domain.GameType { return domain.GameDoublePanna }

func (doublePannaRule) Evaluate(w domain.Wager, r domain.DeclaredResult) Outcome {
	if !matka.IsPanna(w.Number) {
		return OutcomeUnevaluable
	}
	return won(matka.IsDoublePanna(w.Number) && w.Number == sidePanna(w, r))
}

// triplePannaRule requires all three digits equal plus the exact match.
type triplePannaRule struct{}

func (triplePannaRule) Game() domain.GameType { return domain.GameTriplePanna }

func (triplePannaRule) Evaluate(w domain.Wager, r domain.DeclaredResult) Outcome {
	if !matka.IsPanna(w.Number) {
		return OutcomeUnevaluable
	}
	return won(matka.IsTriplePanna(w.Number) && w.Number == sidePanna(w, r))
}

// halfSangamRule matches a hyphenated panna+digit pair across sides. Either
// cross-combination wins: open panna with close digit, or close panna with
// open digit. The pick may be written "panna-digit" or "digit-panna".
type halfSangamRule struct{}

func (halfSangamRule) Game() domain.GameType { return domain.GameHalfSangam }

func (halfSangamRule) Evaluate(w domain.Wager, r domain.DeclaredResult) Outcome {
	left, right, ok := strings.Cut(w.Number, "-")
	if !ok {
		return OutcomeUnevaluable
	}

	var panna, digit string
	switch {
	case matka.IsPanna(left) && isDigitStr(right):
		panna, digit = left, right
	case isDigitStr(left) && matka.IsPanna(right):
		digit, panna = left, right
	default:
		return OutcomeUnevaluable
	}

	d, _ := strconv.Atoi(digit)
	return won((panna == r.OpenPanna && d == r.CloseDigit) ||
		(panna == r.ClosePanna && d == r.OpenDigit))
}

// fullSangamRule matches "openPanna-closePanna" exactly.
type fullSangamRule struct{}

func (fullSangamRule) Game() domain.GameType { return domain.GameFullSangam }

func (fullSangamRule) Evaluate(w domain.Wager, r domain.DeclaredResult) Outcome {
	left, right, ok := strings.Cut(w.Number, "-")
	if !ok || !matka.IsPanna(left) || !matka.IsPanna(right) {
		return OutcomeUnevaluable
	}
	return won(left == r.OpenPanna && right == r.ClosePanna)
}
