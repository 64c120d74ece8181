// Package matcher decides whether a wager wins against a declared result. It
// is a pure classifier: one Rule per game type, dispatched through a
// Registry keyed by the GameType enum, with no side effects on its inputs.
package matcher

import "github.com/matkaops/matkacore/internal/domain"

// Outcome is the result of evaluating one wager against a declared result.
//
// Unevaluable means the wager's number does not have the shape its game
// requires (wrong digit count, missing hyphen). Such wagers are settled as
// losers so a single bad row can never stall a settlement run, but callers
// get to log and count them separately from ordinary losses.
type Outcome int

const (
	OutcomeLost Outcome = iota
	OutcomeWon
	OutcomeUnevaluable
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	case OutcomeUnevaluable:
		return "unevaluable"
	default:
		return "unknown"
	}
}

// Rule is the win predicate for a single game type.
type Rule interface {
	Game() domain.GameType
	Evaluate(wager domain.Wager, result domain.DeclaredResult) Outcome
}
