package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// DefaultListLimit bounds unpaginated list queries.
const DefaultListLimit = 100

// LimitOrDefault returns the requested limit, or DefaultListLimit when unset.
func (o ListOpts) LimitOrDefault() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// MarketStore persists market definitions and lifecycle state.
type MarketStore interface {
	Create(ctx context.Context, market Market) error
	Update(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	List(ctx context.Context) ([]Market, error)
	ListOpen(ctx context.Context) ([]Market, error)
}

// WagerStore persists wagers. Place and Settle are the two multi-row
// operations of the core and each must be atomic: Place debits the stake and
// inserts the wager (plus its ledger entry) in one transaction, Settle moves
// a wager terminal and credits the reward in one transaction.
type WagerStore interface {
	// Place inserts the wager, debits the stake from the owner's balance and
	// records a bet transaction, all in one unit. It returns
	// ErrInsufficientBalance without side effects when the balance would go
	// negative.
	Place(ctx context.Context, wager Wager) error

	// Settle transitions the wager from pending to the given terminal status
	// and, when reward > 0, credits the owner's balance and records a win
	// transaction. The transition is guarded on the current status being
	// pending: it returns applied=false (and no error) when the wager is
	// already terminal, so settlement re-runs never double-credit.
	Settle(ctx context.Context, wagerID string, status WagerStatus, reward float64, at time.Time) (applied bool, err error)

	GetByID(ctx context.Context, id string) (Wager, error)
	ListPending(ctx context.Context, marketID string) ([]Wager, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Wager, error)
	// ListSettledBefore returns wagers settled strictly before the cutoff,
	// for cold-storage archival.
	ListSettledBefore(ctx context.Context, before time.Time) ([]Wager, error)
}

// UserStore persists users and their wallet balances.
type UserStore interface {
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, user User) error
	GetByID(ctx context.Context, id string) (User, error)
	List(ctx context.Context, opts ListOpts) ([]User, error)

	// AdjustBalance applies delta to the user's balance atomically and
	// returns the new balance. Negative deltas fail with
	// ErrInsufficientBalance rather than driving the balance below zero.
	AdjustBalance(ctx context.Context, userID string, delta float64) (float64, error)
}

// TransactionStore persists the wallet ledger.
type TransactionStore interface {
	Create(ctx context.Context, txn Transaction) error
	GetByID(ctx context.Context, id string) (Transaction, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Transaction, error)

	// Decide approves or rejects a pending deposit/withdraw request. On
	// approval the user's balance is adjusted in the same transaction. The
	// status flip is guarded on pending, so repeated decisions are no-ops.
	Decide(ctx context.Context, txnID string, approve bool) (Transaction, error)
}

// RatioStore persists per-game winning ratios.
type RatioStore interface {
	Get(ctx context.Context, game GameType) (WinningRatio, error)
	Upsert(ctx context.Context, ratio WinningRatio) error
	List(ctx context.Context) ([]WinningRatio, error)
}
