package domain

import "time"

// Market represents one matka market and its current lifecycle flags.
//
// OpenTime and CloseTime are times of day in "HH:MM" (24h) form; the cycle
// repeats daily and carries no date. The two booleans are the lifecycle
// state: BettingOpen gates all bets, OpenBetting additionally gates
// open-sided bets, which close ten minutes before the market does.
// OpenBetting implies BettingOpen in every state the scheduler produces.
type Market struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	OpenTime    string          `json:"open_time"`
	CloseTime   string          `json:"close_time"`
	BettingOpen bool            `json:"betting_open"`
	OpenBetting bool            `json:"open_betting"`
	Result      *DeclaredResult `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AcceptsBet reports whether the market currently accepts a wager for the
// given side. Only close-sided wagers survive into the close-only window;
// side-independent games (jodi, sangam) involve the open session and close
// with it.
func (m Market) AcceptsBet(side BetSide) bool {
	if !m.BettingOpen {
		return false
	}
	if side == SideClose {
		return true
	}
	return m.OpenBetting
}

// DeclaredResult is the outcome of one trading cycle. The single digits and
// the jodi are derived from the two panna strings and never stored
// independently of them.
type DeclaredResult struct {
	OpenPanna  string    `json:"open_panna"`
	ClosePanna string    `json:"close_panna"`
	OpenDigit  int       `json:"open_digit"`
	CloseDigit int       `json:"close_digit"`
	Jodi       string    `json:"jodi"`
	DeclaredAt time.Time `json:"declared_at"`
}
