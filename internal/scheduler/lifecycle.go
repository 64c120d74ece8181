// Package scheduler drives the daily market lifecycle. A controller ticks on
// a fixed interval, recomputes the desired lifecycle state of every market
// from the wall-clock time of day, and writes back any market whose flags
// disagree. Because each tick derives the state from scratch, the controller
// is idempotent and self-heals after missed ticks, restarts, or manual flag
// tampering.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
)

// openCloseLeadMinutes is how long before close time open-sided bets stop
// being accepted.
const openCloseLeadMinutes = 10

// State is a market's lifecycle state. The daily cycle is
// Closed -> OpenFull -> OpenCloseOnly -> Closed.
type State int

const (
	StateClosed State = iota
	StateOpenFull
	StateOpenCloseOnly
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpenFull:
		return "open_full"
	case StateOpenCloseOnly:
		return "open_close_only"
	default:
		return "unknown"
	}
}

// Flags maps the state to the two market booleans. OpenBetting implies
// BettingOpen in every state.
func (s State) Flags() (bettingOpen, openBetting bool) {
	switch s {
	case StateOpenFull:
		return true, true
	case StateOpenCloseOnly:
		return true, false
	default:
		return false, false
	}
}

// ParseClock parses an "HH:MM" time of day into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("scheduler: malformed time of day %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("scheduler: malformed hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("scheduler: malformed minute in %q", s)
	}
	return h*60 + m, nil
}

// minuteOfDay returns now as minutes since midnight, ignoring the date.
func minuteOfDay(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

// DesiredState computes the lifecycle state a market should be in at the
// given wall-clock time. Comparison is on time of day only; the window must
// open and close within one calendar day.
func DesiredState(market domain.Market, now time.Time) (State, error) {
	open, err := ParseClock(market.OpenTime)
	if err != nil {
		return StateClosed, err
	}
	close, err := ParseClock(market.CloseTime)
	if err != nil {
		return StateClosed, err
	}
	if close <= open {
		return StateClosed, fmt.Errorf("scheduler: market %s closes at %s before it opens at %s",
			market.ID, market.CloseTime, market.OpenTime)
	}

	switch n := minuteOfDay(now); {
	case n < open || n >= close:
		return StateClosed, nil
	case n >= close-openCloseLeadMinutes:
		return StateOpenCloseOnly, nil
	default:
		return StateOpenFull, nil
	}
}

// openInstant returns the market's open time on now's date.
func openInstant(market domain.Market, now time.Time) (time.Time, error) {
	open, err := ParseClock(market.OpenTime)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, open/60, open%60, 0, 0, now.Location()), nil
}

// resultCurrent reports whether the market's declared result belongs to the
// trading cycle that opened today. A result declared before today's open is
// stale and due for reset; a current result pins the market closed until an
// explicit reset, so a lifecycle tick can never reopen a settled market.
func resultCurrent(market domain.Market, now time.Time) (bool, error) {
	if market.Result == nil {
		return false, nil
	}
	open, err := openInstant(market, now)
	if err != nil {
		return false, err
	}
	return !market.Result.DeclaredAt.Before(open), nil
}
