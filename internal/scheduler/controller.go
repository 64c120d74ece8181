package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
)

// Clock abstracts time.Now so ticks can be tested against a virtual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Controller sweeps all markets on a fixed interval and reconciles their
// lifecycle flags with the current time of day.
type Controller struct {
	markets  domain.MarketStore
	cache    domain.MarketCache
	clock    Clock
	interval time.Duration
	logger   *slog.Logger
}

// NewController creates a Controller. cache may be nil when no market cache
// is wired; interval defaults to one minute.
func NewController(
	markets domain.MarketStore,
	cache domain.MarketCache,
	clock Clock,
	interval time.Duration,
	logger *slog.Logger,
) *Controller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Controller{
		markets:  markets,
		cache:    cache,
		clock:    clock,
		interval: interval,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Run ticks immediately and then on every interval until the context is
// cancelled. Ticks run sequentially on this goroutine and time.Ticker drops
// intervals that elapse while a tick is still running, so a slow sweep is
// skipped over, never overlapped.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("lifecycle controller starting",
		slog.Duration("interval", c.interval),
	)

	if err := c.Tick(ctx, c.clock.Now()); err != nil {
		c.logger.Error("lifecycle tick failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("lifecycle controller stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := c.Tick(ctx, c.clock.Now()); err != nil {
				c.logger.Error("lifecycle tick failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Tick performs one sweep: for every market it computes the desired state at
// now and saves the market if its flags (or a stale result) need correcting.
// A broken market definition or a failed save is logged and skipped so one
// bad market cannot stall the sweep; the error returned covers the sweep
// listing only.
func (c *Controller) Tick(ctx context.Context, now time.Time) error {
	markets, err := c.markets.List(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: list markets: %w", err)
	}

	for _, m := range markets {
		if err := c.reconcile(ctx, m, now); err != nil {
			c.logger.Warn("market reconcile failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// reconcile moves one market to its desired state. Reapplying the current
// state is a no-op. A market holding a result from the current cycle stays
// closed regardless of the window; one holding a stale result from an
// earlier day has it cleared as the new cycle opens.
func (c *Controller) reconcile(ctx context.Context, m domain.Market, now time.Time) error {
	desired, err := DesiredState(m, now)
	if err != nil {
		return err
	}

	current, err := resultCurrent(m, now)
	if err != nil {
		return err
	}

	resetResult := false
	if current {
		desired = StateClosed
	} else if m.Result != nil && desired != StateClosed {
		resetResult = true
	}

	bettingOpen, openBetting := desired.Flags()
	if m.BettingOpen == bettingOpen && m.OpenBetting == openBetting && !resetResult {
		return nil
	}

	m.BettingOpen = bettingOpen
	m.OpenBetting = openBetting
	if resetResult {
		m.Result = nil
	}
	m.UpdatedAt = now

	if err := c.markets.Update(ctx, m); err != nil {
		return fmt.Errorf("update market %s: %w", m.ID, err)
	}
	if c.cache != nil {
		if err := c.cache.Invalidate(ctx, m.ID); err != nil {
			c.logger.Warn("market cache invalidate failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.logger.Info("market lifecycle transition",
		slog.String("market_id", m.ID),
		slog.String("state", desired.String()),
		slog.Bool("betting_open", bettingOpen),
		slog.Bool("open_betting", openBetting),
		slog.Bool("result_reset", resetResult),
	)
	return nil
}
