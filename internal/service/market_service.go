package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/scheduler"
)

// CreateMarketRequest is the admin payload for defining a market.
type CreateMarketRequest struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	OpenTime  string `json:"open_time" validate:"required"`
	CloseTime string `json:"close_time" validate:"required"`
}

// MarketService manages market definitions, administrative overrides, and
// the per-game winning ratios.
type MarketService struct {
	markets domain.MarketStore
	ratios  domain.RatioStore
	cache   domain.MarketCache
	clock   func() time.Time
	logger  *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(
	markets domain.MarketStore,
	ratios domain.RatioStore,
	cache domain.MarketCache,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets: markets,
		ratios:  ratios,
		cache:   cache,
		clock:   time.Now,
		logger:  logger.With(slog.String("component", "markets")),
	}
}

// WithClock overrides the service's time source for tests.
func (s *MarketService) WithClock(clock func() time.Time) *MarketService {
	s.clock = clock
	return s
}

// Create defines a new market. The open/close window must parse and close
// after it opens; markets start closed and the scheduler opens them on its
// next sweep.
func (s *MarketService) Create(ctx context.Context, req CreateMarketRequest) (domain.Market, error) {
	if err := validate.Struct(req); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			return domain.Market{}, fmt.Errorf("markets: invalid request: %v", verr)
		}
		return domain.Market{}, fmt.Errorf("markets: invalid request: %w", err)
	}

	open, err := scheduler.ParseClock(req.OpenTime)
	if err != nil {
		return domain.Market{}, fmt.Errorf("markets: open time: %w", err)
	}
	close, err := scheduler.ParseClock(req.CloseTime)
	if err != nil {
		return domain.Market{}, fmt.Errorf("markets: close time: %w", err)
	}
	if close <= open {
		return domain.Market{}, fmt.Errorf("markets: close time %s must be after open time %s",
			req.CloseTime, req.OpenTime)
	}

	now := s.clock()
	market := domain.Market{
		ID:        req.ID,
		Name:      req.Name,
		OpenTime:  req.OpenTime,
		CloseTime: req.CloseTime,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.markets.Create(ctx, market); err != nil {
		return domain.Market{}, fmt.Errorf("markets: create %s: %w", req.ID, err)
	}

	s.logger.Info("market created",
		slog.String("market_id", market.ID),
		slog.String("window", market.OpenTime+"-"+market.CloseTime),
	)
	return market, nil
}

// Get returns a market by ID, reading through the cache when one is wired.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Market{}, fmt.Errorf("market %s: %w", id, domain.ErrMarketNotFound)
		}
		return domain.Market{}, fmt.Errorf("markets: get %s: %w", id, err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, m)
	}
	return m, nil
}

// List returns all markets.
func (s *MarketService) List(ctx context.Context) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("markets: list: %w", err)
	}
	return markets, nil
}

// ListOpen returns markets currently accepting bets.
func (s *MarketService) ListOpen(ctx context.Context) ([]domain.Market, error) {
	markets, err := s.markets.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("markets: list open: %w", err)
	}
	return markets, nil
}

// Override force-sets the lifecycle flags, for administrative intervention
// outside the scheduler's windows. The openBetting flag is clamped so it can
// never be set on a market whose betting is closed.
func (s *MarketService) Override(ctx context.Context, id string, bettingOpen, openBetting bool) (domain.Market, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return domain.Market{}, err
	}

	m.BettingOpen = bettingOpen
	m.OpenBetting = openBetting && bettingOpen
	m.UpdatedAt = s.clock()

	if err := s.markets.Update(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("markets: override %s: %w", id, err)
	}
	s.invalidate(ctx, id)

	s.logger.Info("market flags overridden",
		slog.String("market_id", id),
		slog.Bool("betting_open", m.BettingOpen),
		slog.Bool("open_betting", m.OpenBetting),
	)
	return m, nil
}

// ResetResult clears a declared result so a new one can be declared. This is
// the explicit step required before re-declaring with different pannas.
func (s *MarketService) ResetResult(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return domain.Market{}, err
	}
	if m.Result == nil {
		return m, nil
	}

	m.Result = nil
	m.UpdatedAt = s.clock()

	if err := s.markets.Update(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("markets: reset result %s: %w", id, err)
	}
	s.invalidate(ctx, id)

	s.logger.Info("market result reset", slog.String("market_id", id))
	return m, nil
}

// Ratios returns the winning ratios for all games.
func (s *MarketService) Ratios(ctx context.Context) ([]domain.WinningRatio, error) {
	ratios, err := s.ratios.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("markets: list ratios: %w", err)
	}
	return ratios, nil
}

// SetRatio updates the payout multiplier for one game.
func (s *MarketService) SetRatio(ctx context.Context, game domain.GameType, ratio float64) error {
	if !game.Valid() {
		return fmt.Errorf("markets: unknown game %q", game)
	}
	if ratio <= 0 {
		return fmt.Errorf("markets: ratio must be positive, got %v", ratio)
	}
	if err := s.ratios.Upsert(ctx, domain.WinningRatio{
		Game:      game,
		Ratio:     ratio,
		UpdatedAt: s.clock(),
	}); err != nil {
		return fmt.Errorf("markets: set ratio for %s: %w", game, err)
	}
	return nil
}

func (s *MarketService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("market cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}
