package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matkaops/matkacore/internal/domain"
)

// TopUpRequest is the inbound payload for a deposit request. The credit is
// applied only when an admin approves the pending transaction.
type TopUpRequest struct {
	UserID     string  `json:"user_id" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Reference  string  `json:"reference" validate:"required"`
	ReceiptURL string  `json:"receipt_url"`
}

// WithdrawRequest is the inbound payload for a withdrawal request. The debit
// is applied on approval, guarded against a negative balance.
type WithdrawRequest struct {
	UserID string  `json:"user_id" validate:"required"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// WalletService handles wallet top-ups, withdrawals and balance queries.
// Payment rails and receipt storage live outside this core; the service only
// tracks the ledger and moves the balance on approval.
type WalletService struct {
	users  domain.UserStore
	txns   domain.TransactionStore
	clock  func() time.Time
	logger *slog.Logger
}

// NewWalletService creates a WalletService.
func NewWalletService(users domain.UserStore, txns domain.TransactionStore, logger *slog.Logger) *WalletService {
	return &WalletService{
		users:  users,
		txns:   txns,
		clock:  time.Now,
		logger: logger.With(slog.String("component", "wallet")),
	}
}

// WithClock overrides the service's time source for tests.
func (s *WalletService) WithClock(clock func() time.Time) *WalletService {
	s.clock = clock
	return s
}

// RequestTopUp records a pending deposit awaiting admin approval.
func (s *WalletService) RequestTopUp(ctx context.Context, req TopUpRequest) (domain.Transaction, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Transaction{}, fmt.Errorf("wallet: invalid top-up request: %v", err)
	}
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return domain.Transaction{}, fmt.Errorf("wallet: user %s: %w", req.UserID, err)
	}

	now := s.clock()
	txn := domain.Transaction{
		ID:         uuid.New().String(),
		UserID:     req.UserID,
		Type:       domain.TxnDeposit,
		Amount:     req.Amount,
		Reference:  req.Reference,
		ReceiptURL: req.ReceiptURL,
		Status:     domain.TxnPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		return domain.Transaction{}, fmt.Errorf("wallet: create top-up: %w", err)
	}

	s.logger.Info("top-up requested",
		slog.String("txn_id", txn.ID),
		slog.String("user_id", txn.UserID),
		slog.Float64("amount", txn.Amount),
	)
	return txn, nil
}

// RequestWithdraw records a pending withdrawal awaiting admin approval. The
// balance check happens at approval time, not here.
func (s *WalletService) RequestWithdraw(ctx context.Context, req WithdrawRequest) (domain.Transaction, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Transaction{}, fmt.Errorf("wallet: invalid withdraw request: %v", err)
	}
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return domain.Transaction{}, fmt.Errorf("wallet: user %s: %w", req.UserID, err)
	}

	now := s.clock()
	txn := domain.Transaction{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Type:      domain.TxnWithdraw,
		Amount:    req.Amount,
		Status:    domain.TxnPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		return domain.Transaction{}, fmt.Errorf("wallet: create withdrawal: %w", err)
	}

	s.logger.Info("withdrawal requested",
		slog.String("txn_id", txn.ID),
		slog.String("user_id", txn.UserID),
		slog.Float64("amount", txn.Amount),
	)
	return txn, nil
}

// Decide approves or rejects a pending request. Approval moves the balance
// in the same storage transaction as the status flip; deciding an
// already-decided transaction changes nothing.
func (s *WalletService) Decide(ctx context.Context, txnID string, approve bool) (domain.Transaction, error) {
	txn, err := s.txns.Decide(ctx, txnID, approve)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return domain.Transaction{}, fmt.Errorf("wallet: approve withdrawal %s: %w", txnID, err)
		}
		return domain.Transaction{}, fmt.Errorf("wallet: decide %s: %w", txnID, err)
	}

	s.logger.Info("transaction decided",
		slog.String("txn_id", txn.ID),
		slog.String("user_id", txn.UserID),
		slog.String("status", string(txn.Status)),
		slog.Float64("amount", txn.Amount),
	)
	return txn, nil
}

// Balance returns the user's current wallet balance.
func (s *WalletService) Balance(ctx context.Context, userID string) (float64, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("wallet: user %s: %w", userID, err)
	}
	return user.WalletBalance, nil
}

// Transactions returns the user's ledger entries, most recent first.
func (s *WalletService) Transactions(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Transaction, error) {
	txns, err := s.txns.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("wallet: transactions for %s: %w", userID, err)
	}
	return txns, nil
}
