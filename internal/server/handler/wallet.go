package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/service"
)

// WalletService defines the methods the wallet handler requires from the
// service layer.
type WalletService interface {
	RequestTopUp(ctx context.Context, req service.TopUpRequest) (domain.Transaction, error)
	RequestWithdraw(ctx context.Context, req service.WithdrawRequest) (domain.Transaction, error)
	Decide(ctx context.Context, txnID string, approve bool) (domain.Transaction, error)
	Balance(ctx context.Context, userID string) (float64, error)
	Transactions(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Transaction, error)
}

// WalletHandler serves wallet top-up, withdrawal and balance endpoints.
type WalletHandler struct {
	wallet WalletService
	logger *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallet WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		wallet: wallet,
		logger: logger,
	}
}

// TopUp records a pending deposit awaiting admin approval.
// POST /api/wallet/topup
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req service.TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	txn, err := h.wallet.RequestTopUp(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

// Withdraw records a pending withdrawal awaiting admin approval.
// POST /api/wallet/withdraw
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req service.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	txn, err := h.wallet.RequestWithdraw(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

// decideRequest is the admin payload approving or rejecting a transaction.
type decideRequest struct {
	Approve bool `json:"approve"`
}

// Decide approves or rejects a pending deposit or withdrawal.
// POST /api/admin/transactions/{id}/decide
func (h *WalletHandler) Decide(w http.ResponseWriter, r *http.Request) {
	txnID := pathParam(r, "id")
	if txnID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	txn, err := h.wallet.Decide(r.Context(), txnID, req.Approve)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "transaction not found")
		case errors.Is(err, domain.ErrInsufficientBalance):
			writeError(w, http.StatusConflict, "insufficient balance for withdrawal")
		default:
			h.logger.ErrorContext(r.Context(), "handler: decide transaction failed",
				slog.String("txn_id", txnID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to decide transaction")
		}
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

// Balance returns the user's current wallet balance.
// GET /api/users/{id}/balance
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	balance, err := h.wallet.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get balance failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "balance": balance})
}

// ListTransactions returns the user's ledger entries, most recent first.
// GET /api/users/{id}/transactions
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	txns, err := h.wallet.Transactions(r.Context(), userID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list transactions failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}
