package matcher_test

import (
	"testing"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/matcher"
	"github.com/matkaops/matkacore/internal/matka"
)

// specResult is the worked example from the product rules: open "580" gives
// digit 3, close "190" gives digit 0, jodi "30".
func specResult(t *testing.T) domain.DeclaredResult {
	t.Helper()
	res, err := matka.ParseResult("580", "190", time.Now())
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	return res
}

func wager(game domain.GameType, side domain.BetSide, number string) domain.Wager {
	return domain.Wager{
		ID:       "w1",
		UserID:   "u1",
		MarketID: "m1",
		Game:     game,
		Side:     side,
		Number:   number,
		Stake:    10,
		Ratio:    9,
		Status:   domain.WagerPending,
	}
}

func TestEvaluate(t *testing.T) {
	reg := matcher.MustRegistry()
	res := specResult(t)

	tests := []struct {
		name   string
		game   domain.GameType
		side   domain.BetSide
		number string
		want   matcher.Outcome
	}{
		{"single digit open hit", domain.GameSingleDigit, domain.SideOpen, "3", matcher.OutcomeWon},
		{"single digit open miss", domain.GameSingleDigit, domain.SideOpen, "0", matcher.OutcomeLost},
		{"single digit close hit", domain.GameSingleDigit, domain.SideClose, "0", matcher.OutcomeWon},
		{"single digit close miss", domain.GameSingleDigit, domain.SideClose, "3", matcher.OutcomeLost},
		{"single digit malformed", domain.GameSingleDigit, domain.SideOpen, "33", matcher.OutcomeUnevaluable},

		{"jodi hit", domain.GameJodi, domain.SideNone, "30", matcher.OutcomeWon},
		{"jodi miss", domain.GameJodi, domain.SideNone, "03", matcher.OutcomeLost},
		{"jodi malformed", domain.GameJodi, domain.SideNone, "3", matcher.OutcomeUnevaluable},

		{"single panna open hit", domain.GameSinglePanna, domain.SideOpen, "580", matcher.OutcomeWon},
		{"single panna close hit", domain.GameSinglePanna, domain.SideClose, "190", matcher.OutcomeWon},
		{"single panna wrong side", domain.GameSinglePanna, domain.SideClose, "580", matcher.OutcomeLost},
		{"single panna malformed", domain.GameSinglePanna, domain.SideOpen, "58", matcher.OutcomeUnevaluable},

		{"triple panna miss", domain.GameTriplePanna, domain.SideOpen, "555", matcher.OutcomeLost},
		{"triple panna malformed", domain.GameTriplePanna, domain.SideOpen, "5555", matcher.OutcomeUnevaluable},

		{"half sangam open panna close digit", domain.GameHalfSangam, domain.SideNone, "580-0", matcher.OutcomeWon},
		{"half sangam close panna open digit", domain.GameHalfSangam, domain.SideNone, "190-3", matcher.OutcomeWon},
		{"half sangam digit first", domain.GameHalfSangam, domain.SideNone, "0-580", matcher.OutcomeWon},
		{"half sangam wrong pairing", domain.GameHalfSangam, domain.SideNone, "580-3", matcher.OutcomeLost},
		{"half sangam no hyphen", domain.GameHalfSangam, domain.SideNone, "5800", matcher.OutcomeUnevaluable},
		{"half sangam two pannas", domain.GameHalfSangam, domain.SideNone, "580-190", matcher.OutcomeUnevaluable},

		{"full sangam hit", domain.GameFullSangam, domain.SideNone, "580-190", matcher.OutcomeWon},
		{"full sangam reversed", domain.GameFullSangam, domain.SideNone, "190-580", matcher.OutcomeLost},
		{"full sangam malformed", domain.GameFullSangam, domain.SideNone, "580190", matcher.OutcomeUnevaluable},

		{"unknown game", domain.GameType("roulette"), domain.SideOpen, "7", matcher.OutcomeUnevaluable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reg.Evaluate(wager(tt.game, tt.side, tt.number), res)
			if got != tt.want {
				t.Errorf("Evaluate(%s %s %q) = %v, want %v", tt.game, tt.side, tt.number, got, tt.want)
			}
		})
	}
}

// Double panna wins require BOTH the pattern and the exact match: "558"
// against a declared "558" wins, but "555" against a declared "555" loses
// because a triple is not a double panna.
func TestEvaluate_DoublePannaPredicate(t *testing.T) {
	reg := matcher.MustRegistry()

	res, err := matka.ParseResult("558", "190", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got := reg.Evaluate(wager(domain.GameDoublePanna, domain.SideOpen, "558"), res); got != matcher.OutcomeWon {
		t.Errorf("double panna 558 vs 558 = %v, want won", got)
	}

	res, err = matka.ParseResult("555", "190", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got := reg.Evaluate(wager(domain.GameDoublePanna, domain.SideOpen, "555"), res); got != matcher.OutcomeLost {
		t.Errorf("double panna 555 vs 555 = %v, want lost (triple is not a double)", got)
	}
	if got := reg.Evaluate(wager(domain.GameTriplePanna, domain.SideOpen, "555"), res); got != matcher.OutcomeWon {
		t.Errorf("triple panna 555 vs 555 = %v, want won", got)
	}
}

// IsWinner must be pure: identical inputs always give identical output and
// the wager argument is never mutated.
func TestIsWinner_Pure(t *testing.T) {
	reg := matcher.MustRegistry()
	res := specResult(t)
	w := wager(domain.GameJodi, domain.SideNone, "30")
	before := w

	for i := 0; i < 100; i++ {
		if !reg.IsWinner(w, res) {
			t.Fatalf("iteration %d: jodi 30 should win", i)
		}
	}
	if w != before {
		t.Errorf("wager mutated by IsWinner: %+v != %+v", w, before)
	}
}

func TestNewRegistry_CoversAllGames(t *testing.T) {
	reg, err := matcher.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	// A well-formed number for each game must evaluate to won or lost,
	// never fall through to the unevaluable default.
	wellFormed := map[domain.GameType]string{
		domain.GameSingleDigit: "3",
		domain.GameJodi:        "30",
		domain.GameSinglePanna: "580",
		domain.GameDoublePanna: "558",
		domain.GameTriplePanna: "555",
		domain.GameHalfSangam:  "580-0",
		domain.GameFullSangam:  "580-190",
	}

	res := specResult(t)
	for _, g := range domain.AllGameTypes() {
		num, ok := wellFormed[g]
		if !ok {
			t.Fatalf("test is missing a number for game %s", g)
		}
		if got := reg.Evaluate(wager(g, domain.SideOpen, num), res); got == matcher.OutcomeUnevaluable {
			t.Errorf("game %s: well-formed number %q evaluated as unevaluable", g, num)
		}
	}
}
