package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/matcher"
)

// betChannel carries placed-bet events for live dashboards.
const betChannel = "ch:bet"

// Per-user placement rate limit.
const (
	betRateLimit  = 10
	betRateWindow = time.Second
)

var validate = validator.New()

// PlaceBetRequest is the inbound payload for placing a wager. The winning
// ratio is looked up server-side by game type; clients cannot supply it.
type PlaceBetRequest struct {
	UserID   string          `json:"user_id" validate:"required"`
	MarketID string          `json:"market_id" validate:"required"`
	Game     domain.GameType `json:"game" validate:"required"`
	Side     domain.BetSide  `json:"side"`
	Number   string          `json:"number" validate:"required"`
	Stake    float64         `json:"stake" validate:"required,gt=0"`
}

// Validate checks field presence and the game-specific constraints: a known
// game type, a side indicator matching the game's sidedness, and a number of
// the right shape.
func (r PlaceBetRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidWager, err)
	}
	if !r.Game.Valid() {
		return fmt.Errorf("%w: unknown game %q", domain.ErrInvalidWager, r.Game)
	}
	if r.Game.SideIndependent() {
		if r.Side != domain.SideNone {
			return fmt.Errorf("%w: game %s takes no side", domain.ErrInvalidWager, r.Game)
		}
	} else if r.Side != domain.SideOpen && r.Side != domain.SideClose {
		return fmt.Errorf("%w: game %s requires side open or close", domain.ErrInvalidWager, r.Game)
	}
	if !matcher.ValidNumber(r.Game, r.Number) {
		return fmt.Errorf("%w: number %q is not valid for game %s", domain.ErrInvalidWager, r.Number, r.Game)
	}
	return nil
}

// BetService places wagers and lists them.
type BetService struct {
	markets domain.MarketStore
	wagers  domain.WagerStore
	ratios  domain.RatioStore
	cache   domain.MarketCache
	limiter domain.RateLimiter
	bus     domain.SignalBus
	clock   func() time.Time
	logger  *slog.Logger
}

// NewBetService creates a BetService. cache, limiter and bus may be nil.
func NewBetService(
	markets domain.MarketStore,
	wagers domain.WagerStore,
	ratios domain.RatioStore,
	cache domain.MarketCache,
	limiter domain.RateLimiter,
	bus domain.SignalBus,
	logger *slog.Logger,
) *BetService {
	return &BetService{
		markets: markets,
		wagers:  wagers,
		ratios:  ratios,
		cache:   cache,
		limiter: limiter,
		bus:     bus,
		clock:   time.Now,
		logger:  logger.With(slog.String("component", "bets")),
	}
}

// WithClock overrides the service's time source for tests.
func (s *BetService) WithClock(clock func() time.Time) *BetService {
	s.clock = clock
	return s
}

// PlaceBet validates the request, checks the market window for the wager's
// side, resolves the winning ratio, and atomically debits the stake while
// inserting the pending wager. The debit and insert are one storage
// transaction: a failed insert never leaves a dangling debit.
func (s *BetService) PlaceBet(ctx context.Context, req PlaceBetRequest) (domain.Wager, error) {
	if err := req.Validate(); err != nil {
		return domain.Wager{}, err
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "bets:"+req.UserID, betRateLimit, betRateWindow)
		if err != nil {
			return domain.Wager{}, fmt.Errorf("bets: rate limiter: %w", err)
		}
		if !allowed {
			return domain.Wager{}, fmt.Errorf("user %s: %w", req.UserID, domain.ErrRateLimited)
		}
	}

	market, err := s.getMarket(ctx, req.MarketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Wager{}, fmt.Errorf("market %s: %w", req.MarketID, domain.ErrMarketNotFound)
		}
		return domain.Wager{}, fmt.Errorf("bets: get market %s: %w", req.MarketID, err)
	}
	if !market.AcceptsBet(req.Side) {
		return domain.Wager{}, fmt.Errorf("market %s: %w", req.MarketID, domain.ErrMarketClosed)
	}

	ratio, err := s.ratios.Get(ctx, req.Game)
	if err != nil {
		return domain.Wager{}, fmt.Errorf("bets: ratio for game %s: %w", req.Game, err)
	}

	wager := domain.Wager{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		MarketID:  req.MarketID,
		Game:      req.Game,
		Side:      req.Side,
		Number:    req.Number,
		Stake:     req.Stake,
		Ratio:     ratio.Ratio,
		Status:    domain.WagerPending,
		CreatedAt: s.clock(),
	}

	if err := s.wagers.Place(ctx, wager); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return domain.Wager{}, fmt.Errorf("user %s: %w", req.UserID, domain.ErrInsufficientBalance)
		}
		return domain.Wager{}, fmt.Errorf("bets: place wager: %w", err)
	}

	s.logger.Info("wager placed",
		slog.String("wager_id", wager.ID),
		slog.String("user_id", wager.UserID),
		slog.String("market_id", wager.MarketID),
		slog.String("game", string(wager.Game)),
		slog.Float64("stake", wager.Stake),
	)

	if s.bus != nil {
		if payload, err := json.Marshal(wager); err == nil {
			_ = s.bus.Publish(ctx, betChannel, payload)
		}
	}

	return wager, nil
}

// UserBets returns the user's wagers, most recent first.
func (s *BetService) UserBets(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Wager, error) {
	wagers, err := s.wagers.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("bets: list for user %s: %w", userID, err)
	}
	return wagers, nil
}

// getMarket reads through the cache when one is wired.
func (s *BetService) getMarket(ctx context.Context, id string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}
	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, m)
	}
	return m, nil
}
