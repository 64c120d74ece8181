package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/matkaops/matkacore/internal/domain"
)

// SettlementService defines the methods the settlement handler requires from
// the service layer.
type SettlementService interface {
	DeclareResult(ctx context.Context, marketID, openPanna, closePanna string) (domain.SettlementReport, error)
}

// SettlementHandler serves the result declaration endpoint.
type SettlementHandler struct {
	settlement SettlementService
	logger     *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler.
func NewSettlementHandler(settlement SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlement: settlement,
		logger:     logger,
	}
}

// declareRequest is the admin payload carrying the two winning pannas.
type declareRequest struct {
	OpenPanna  string `json:"open_panna"`
	ClosePanna string `json:"close_panna"`
}

// DeclareResult declares the market's result and settles all pending wagers.
// POST /api/admin/markets/{id}/result
func (h *SettlementHandler) DeclareResult(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req declareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	report, err := h.settlement.DeclareResult(r.Context(), marketID, req.OpenPanna, req.ClosePanna)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMarketNotFound):
			writeError(w, http.StatusNotFound, "market not found")
		case errors.Is(err, domain.ErrInvalidResultFormat):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrResultAlreadyDeclared):
			writeError(w, http.StatusConflict, "a different result is already declared; reset it first")
		case errors.Is(err, domain.ErrSettlementInProgress):
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusConflict, "settlement already running for this market")
		default:
			h.logger.ErrorContext(r.Context(), "handler: declare result failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "settlement failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}
