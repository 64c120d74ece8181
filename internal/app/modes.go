package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matkaops/matkacore/internal/matcher"
	"github.com/matkaops/matkacore/internal/scheduler"
	"github.com/matkaops/matkacore/internal/server"
	"github.com/matkaops/matkacore/internal/server/handler"
	"github.com/matkaops/matkacore/internal/server/ws"
	"github.com/matkaops/matkacore/internal/service"
)

// ServerMode runs the HTTP + WebSocket API without the lifecycle sweeper.
// Useful for scaling the API tier separately from the single scheduler.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// SchedulerMode runs the market lifecycle sweeper and, when configured, the
// cold-storage archiver. Exactly one scheduler instance should run per
// deployment; the settlement lock protects against overlap regardless.
func (a *App) SchedulerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scheduler mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startScheduler(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// FullMode runs everything in a single process: API, lifecycle sweeper, and
// archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	a.startScheduler(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// startHTTPServer builds the service layer and adds the HTTP server and
// WebSocket hub goroutines to the given errgroup. The server is shut down
// gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "HTTP server disabled by config")
		return
	}

	registry := matcher.MustRegistry()

	marketSvc := service.NewMarketService(deps.MarketStore, deps.RatioStore, deps.MarketCache, a.logger)
	betSvc := service.NewBetService(deps.MarketStore, deps.WagerStore, deps.RatioStore,
		deps.MarketCache, deps.RateLimiter, deps.SignalBus, a.logger)
	settlementSvc := service.NewSettlementService(deps.MarketStore, deps.WagerStore,
		deps.MarketCache, deps.LockManager, deps.SignalBus, registry, a.logger)
	if deps.Archiver != nil {
		settlementSvc.WithArchiver(deps.Archiver)
	}
	walletSvc := service.NewWalletService(deps.UserStore, deps.TransactionStore, a.logger)
	userSvc := service.NewUserService(deps.UserStore, a.logger)

	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		Limiter:         deps.RateLimiter,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, server.Handlers{
		Health:     handler.NewHealthHandler(a.logger),
		Markets:    handler.NewMarketHandler(marketSvc, a.logger),
		Bets:       handler.NewBetHandler(betSvc, a.logger),
		Settlement: handler.NewSettlementHandler(settlementSvc, a.logger),
		Wallet:     handler.NewWalletHandler(walletSvc, a.logger),
		Users:      handler.NewUserHandler(userSvc, a.logger),
	}, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startScheduler adds the market lifecycle controller to the errgroup.
func (a *App) startScheduler(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Scheduler.Enabled {
		a.logger.InfoContext(ctx, "lifecycle scheduler disabled by config")
		return
	}

	ctrl := scheduler.NewController(
		deps.MarketStore,
		deps.MarketCache,
		scheduler.SystemClock{},
		a.cfg.Scheduler.Interval.Duration,
		a.logger,
	)
	g.Go(func() error {
		return ctrl.Run(ctx)
	})
}

// startArchiver adds the periodic cold-storage export to the errgroup. Wagers
// settled longer ago than the retention window are written to object storage
// as JSONL.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Archive.Enabled {
		return
	}
	if deps.Archiver == nil {
		a.logger.WarnContext(ctx, "archive enabled but no S3 bucket configured; skipping")
		return
	}

	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	g.Go(func() error {
		a.logger.InfoContext(ctx, "archiver starting",
			slog.Duration("interval", interval),
			slog.Int("retention_days", a.cfg.Archive.RetentionDays),
		)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				n, err := deps.Archiver.ArchiveSettledWagers(ctx, cutoff)
				if err != nil {
					a.logger.ErrorContext(ctx, "archive run failed",
						slog.String("error", err.Error()),
					)
					continue
				}
				if n > 0 {
					a.logger.InfoContext(ctx, "archive run complete",
						slog.Int64("wagers", n),
					)
				}
			}
		}
	})
}
