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

// BetService defines the methods the bet handler requires from the service
// layer.
type BetService interface {
	PlaceBet(ctx context.Context, req service.PlaceBetRequest) (domain.Wager, error)
	UserBets(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Wager, error)
}

// BetHandler serves wager placement and listing endpoints.
type BetHandler struct {
	bets   BetService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler with the given service and logger.
func NewBetHandler(bets BetService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		bets:   bets,
		logger: logger,
	}
}

// PlaceBet places a wager for a user on an open market.
// POST /api/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	wager, err := h.bets.PlaceBet(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidWager):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrMarketNotFound):
			writeError(w, http.StatusNotFound, "market not found")
		case errors.Is(err, domain.ErrMarketClosed):
			writeError(w, http.StatusConflict, "market is not accepting this bet")
		case errors.Is(err, domain.ErrInsufficientBalance):
			writeError(w, http.StatusPaymentRequired, "insufficient wallet balance")
		case errors.Is(err, domain.ErrRateLimited):
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many bets, slow down")
		default:
			h.logger.ErrorContext(r.Context(), "handler: place bet failed",
				slog.String("user_id", req.UserID),
				slog.String("market_id", req.MarketID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to place bet")
		}
		return
	}

	writeJSON(w, http.StatusCreated, wager)
}

// ListUserBets returns the user's wagers, most recent first.
// GET /api/users/{id}/bets
func (h *BetHandler) ListUserBets(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	wagers, err := h.bets.UserBets(r.Context(), userID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list user bets failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bets")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"wagers": wagers})
}
