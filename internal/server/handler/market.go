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

// MarketService defines the methods the market handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, req service.CreateMarketRequest) (domain.Market, error)
	Get(ctx context.Context, id string) (domain.Market, error)
	List(ctx context.Context) ([]domain.Market, error)
	ListOpen(ctx context.Context) ([]domain.Market, error)
	Override(ctx context.Context, id string, bettingOpen, openBetting bool) (domain.Market, error)
	ResetResult(ctx context.Context, id string) (domain.Market, error)
	Ratios(ctx context.Context) ([]domain.WinningRatio, error)
	SetRatio(ctx context.Context, game domain.GameType, ratio float64) error
}

// MarketHandler serves market and winning-ratio HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// ListMarkets returns every configured market.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.markets.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": markets})
}

// ListOpenMarkets returns markets currently accepting bets.
// GET /api/markets/open
func (h *MarketHandler) ListOpenMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.markets.ListOpen(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list open markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list open markets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": markets})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrMarketNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// CreateMarket defines a new market.
// POST /api/admin/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	market, err := h.markets.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "market already exists")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, market)
}

// overrideRequest is the admin payload to force a market's betting flags.
type overrideRequest struct {
	BettingOpen bool `json:"betting_open"`
	OpenBetting bool `json:"open_betting"`
}

// OverrideMarket forces the market's betting flags, overriding the scheduler
// until its next sweep.
// POST /api/admin/markets/{id}/override
func (h *MarketHandler) OverrideMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	market, err := h.markets.Override(r.Context(), id, req.BettingOpen, req.OpenBetting)
	if err != nil {
		if errors.Is(err, domain.ErrMarketNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: override market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to override market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// ResetResult clears the market's declared result so a corrected one can be
// declared.
// POST /api/admin/markets/{id}/reset
func (h *MarketHandler) ResetResult(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.ResetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrMarketNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: reset result failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to reset result")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// ListRatios returns the payout multiplier for every game type.
// GET /api/ratios
func (h *MarketHandler) ListRatios(w http.ResponseWriter, r *http.Request) {
	ratios, err := h.markets.Ratios(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list ratios failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list ratios")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ratios": ratios})
}

// setRatioRequest is the admin payload for adjusting a payout multiplier.
type setRatioRequest struct {
	Ratio float64 `json:"ratio"`
}

// SetRatio updates the payout multiplier for one game type.
// PUT /api/admin/ratios/{game}
func (h *MarketHandler) SetRatio(w http.ResponseWriter, r *http.Request) {
	game := domain.GameType(pathParam(r, "game"))
	if !game.Valid() {
		writeError(w, http.StatusBadRequest, "unknown game type")
		return
	}

	var req setRatioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Ratio <= 0 {
		writeError(w, http.StatusBadRequest, "ratio must be positive")
		return
	}

	if err := h.markets.SetRatio(r.Context(), game, req.Ratio); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: set ratio failed",
			slog.String("game", string(game)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to set ratio")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"game": game, "ratio": req.Ratio})
}
