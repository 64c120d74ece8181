package matcher

import (
	"fmt"

	"github.com/matkaops/matkacore/internal/domain"
)

// Registry dispatches wagers to the rule for their game type. The rule set
// is fixed at construction; lookups are read-only and safe for concurrent
// use.
type Registry struct {
	rules map[domain.GameType]Rule
}

// NewRegistry builds a Registry covering every supported game type. It
// returns an error if any enum value is left without a rule, which turns a
// forgotten rule into a startup failure instead of silently-lost wagers.
func NewRegistry() (*Registry, error) {
	all := []Rule{
		singleDigitRule{},
		jodiRule{},
		singlePannaRule{},
		doublePannaRule{},
		triplePannaRule{},
		halfSangamRule{},
		fullSangamRule{},
	}

	rules := make(map[domain.GameType]Rule, len(all))
	for _, r := range all {
		rules[r.Game()] = r
	}

	for _, g := range domain.AllGameTypes() {
		if _, ok := rules[g]; !ok {
			return nil, fmt.Errorf("matcher: no rule registered for game %q", g)
		}
	}

	return &Registry{rules: rules}, nil
}

// MustRegistry is NewRegistry for wiring paths where a missing rule is a
// programming error.
func MustRegistry() *Registry {
	reg, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return reg
}

// Evaluate classifies the wager against the declared result. A wager whose
// game type is not in the registry evaluates to OutcomeUnevaluable: the
// caller logs it as unmatched and settles it as a loser rather than failing
// the whole run.
func (reg *Registry) Evaluate(wager domain.Wager, result domain.DeclaredResult) Outcome {
	rule, ok := reg.rules[wager.Game]
	if !ok {
		return OutcomeUnevaluable
	}
	return rule.Evaluate(wager, result)
}

// IsWinner reports whether the wager wins against the declared result. It is
// pure and never mutates its arguments.
func (reg *Registry) IsWinner(wager domain.Wager, result domain.DeclaredResult) bool {
	return reg.Evaluate(wager, result) == OutcomeWon
}
