package domain

import "time"

// WagerStatus tracks the lifecycle of a wager. A wager is created pending and
// is moved to exactly one of the terminal states by settlement.
type WagerStatus string

const (
	WagerPending WagerStatus = "pending"
	WagerWon     WagerStatus = "won"
	WagerLost    WagerStatus = "lost"
)

// Terminal reports whether the status is a settled end state.
func (s WagerStatus) Terminal() bool {
	return s == WagerWon || s == WagerLost
}

// Wager is a single bet placed by a user on a market. Wagers reference the
// market by its identity key, not by display name, so renaming a market
// cannot reattribute bets.
//
// Number is the player's pick and its shape depends on the game: a single
// digit ("7"), a two-digit jodi ("05"), a three-digit panna ("580"), or a
// hyphenated compound for the sangams ("580-0", "580-190").
type Wager struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	MarketID  string      `json:"market_id"`
	Game      GameType    `json:"game"`
	Side      BetSide     `json:"side,omitempty"`
	Number    string      `json:"number"`
	Stake     float64     `json:"stake"`
	Ratio     float64     `json:"ratio"`
	Status    WagerStatus `json:"status"`
	Reward    float64     `json:"reward"`
	CreatedAt time.Time   `json:"created_at"`
	SettledAt *time.Time  `json:"settled_at,omitempty"`
}

// Payout is the amount credited to the owner if the wager wins.
func (w Wager) Payout() float64 {
	return w.Stake * w.Ratio
}

// SettlementReport summarizes one declareResult run.
type SettlementReport struct {
	MarketID    string         `json:"market_id"`
	Result      DeclaredResult `json:"result"`
	Processed   int            `json:"processed"`
	Winners     int            `json:"winners"`
	Losers      int            `json:"losers"`
	Unevaluable int            `json:"unevaluable"`
	TotalPayout float64        `json:"total_payout"`
}
