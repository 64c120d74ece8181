package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrAlreadyExists         = errors.New("already exists")
	ErrMarketNotFound        = errors.New("market not found")
	ErrMarketClosed          = errors.New("market not open for betting")
	ErrInvalidResultFormat   = errors.New("invalid result format")
	ErrResultAlreadyDeclared = errors.New("result already declared")
	ErrInsufficientBalance   = errors.New("insufficient wallet balance")
	ErrSettlementInProgress  = errors.New("settlement already in progress")
	ErrInvalidWager          = errors.New("invalid wager parameters")
	ErrRateLimited           = errors.New("rate limited")
	ErrLockHeld              = errors.New("lock already held")
)
