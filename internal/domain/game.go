package domain

// GameType identifies one of the supported matka bet types. Using a closed
// enum instead of free-text game names means the matcher registry can be
// checked for exhaustiveness at startup.
type GameType string

const (
	GameSingleDigit GameType = "single_digit"
	GameJodi        GameType = "jodi"
	GameSinglePanna GameType = "single_panna"
	GameDoublePanna GameType = "double_panna"
	GameTriplePanna GameType = "triple_panna"
	GameHalfSangam  GameType = "half_sangam"
	GameFullSangam  GameType = "full_sangam"
)

// AllGameTypes returns every supported game type in a stable order.
func AllGameTypes() []GameType {
	return []GameType{
		GameSingleDigit,
		GameJodi,
		GameSinglePanna,
		GameDoublePanna,
		GameTriplePanna,
		GameHalfSangam,
		GameFullSangam,
	}
}

// Valid reports whether g is one of the supported game types.
func (g GameType) Valid() bool {
	switch g {
	case GameSingleDigit, GameJodi, GameSinglePanna,
		GameDoublePanna, GameTriplePanna, GameHalfSangam, GameFullSangam:
		return true
	}
	return false
}

// SideIndependent reports whether the game matches against both sides of the
// declared result at once, so the wager carries no open/close indicator.
// Jodi and the sangams combine the open and close values by definition.
func (g GameType) SideIndependent() bool {
	switch g {
	case GameJodi, GameHalfSangam, GameFullSangam:
		return true
	}
	return false
}

// BetSide indicates whether a wager targets the market's open (morning) or
// close (evening) declared value.
type BetSide string

const (
	SideNone  BetSide = ""
	SideOpen  BetSide = "open"
	SideClose BetSide = "close"
)

// Valid reports whether s is a usable side indicator.
func (s BetSide) Valid() bool {
	return s == SideNone || s == SideOpen || s == SideClose
}
