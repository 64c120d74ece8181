package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/matcher"
	"github.com/matkaops/matkacore/internal/matka"
)

// settleLockTTL bounds how long a settlement run may hold its per-market
// lock. A crashed run's lock expires after this and a retry can proceed.
const settleLockTTL = 5 * time.Minute

// resultChannel is the pub/sub channel carrying declared results, and
// settledStream the durable stream of settled wagers.
const (
	resultChannel = "ch:result"
	settledStream = "stream:settled"
)

// ReportArchiver receives the final report of a settlement run for cold
// storage. The S3 archiver satisfies it.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, report domain.SettlementReport) error
}

// SettlementService declares market results and settles pending wagers
// against them.
type SettlementService struct {
	markets  domain.MarketStore
	wagers   domain.WagerStore
	cache    domain.MarketCache
	locks    domain.LockManager
	bus      domain.SignalBus
	registry *matcher.Registry
	archiver ReportArchiver
	clock    func() time.Time
	logger   *slog.Logger
}

// NewSettlementService creates a SettlementService. cache and bus may be nil
// when the corresponding infrastructure is not wired (tests, tools).
func NewSettlementService(
	markets domain.MarketStore,
	wagers domain.WagerStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	registry *matcher.Registry,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		markets:  markets,
		wagers:   wagers,
		cache:    cache,
		locks:    locks,
		bus:      bus,
		registry: registry,
		clock:    time.Now,
		logger:   logger.With(slog.String("component", "settlement")),
	}
}

// WithClock overrides the service's time source. Tests use it to pin
// declaration timestamps.
func (s *SettlementService) WithClock(clock func() time.Time) *SettlementService {
	s.clock = clock
	return s
}

// WithArchiver attaches a cold-storage destination for settlement reports.
// Archival is best effort; a failed upload never fails the run.
func (s *SettlementService) WithArchiver(archiver ReportArchiver) *SettlementService {
	s.archiver = archiver
	return s
}

// DeclareResult records the market's result and settles every pending wager.
//
// The call fails fast, before any wager is touched, on an unknown market, a
// malformed panna pair, or a conflicting earlier declaration. Re-declaring
// the identical panna pair is allowed and acts as a retry: it settles
// whatever pending wagers a crashed or aborted run left behind. Runs for the
// same market are serialized through the lock manager; a second concurrent
// call returns ErrSettlementInProgress.
//
// Each wager settles as its own atomic unit (status transition plus winner
// credit), so an abort between wagers leaves processed wagers terminal and
// the rest pending and retryable. A wager that cannot be evaluated is
// settled as a loser and counted separately rather than failing the run.
func (s *SettlementService) DeclareResult(ctx context.Context, marketID, openPanna, closePanna string) (domain.SettlementReport, error) {
	unlock, err := s.locks.Acquire(ctx, "settle:"+marketID, settleLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return domain.SettlementReport{}, fmt.Errorf("market %s: %w", marketID, domain.ErrSettlementInProgress)
		}
		return domain.SettlementReport{}, fmt.Errorf("settlement: acquire lock: %w", err)
	}
	defer unlock()

	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SettlementReport{}, fmt.Errorf("market %s: %w", marketID, domain.ErrMarketNotFound)
		}
		return domain.SettlementReport{}, fmt.Errorf("settlement: get market %s: %w", marketID, err)
	}

	result, err := matka.ParseResult(openPanna, closePanna, s.clock())
	if err != nil {
		return domain.SettlementReport{}, err
	}

	if prev := market.Result; prev != nil {
		if prev.OpenPanna != result.OpenPanna || prev.ClosePanna != result.ClosePanna {
			return domain.SettlementReport{}, fmt.Errorf(
				"market %s already declared %s-%s: %w",
				marketID, prev.OpenPanna, prev.ClosePanna, domain.ErrResultAlreadyDeclared,
			)
		}
		// Same pannas: a retry of an interrupted run. Keep the original
		// declaration time.
		result = *prev
	} else {
		market.Result = &result
		market.BettingOpen = false
		market.OpenBetting = false
		market.UpdatedAt = s.clock()
		if err := s.markets.Update(ctx, market); err != nil {
			return domain.SettlementReport{}, fmt.Errorf("settlement: persist result for %s: %w", marketID, err)
		}
		s.invalidate(ctx, marketID)
	}

	report := domain.SettlementReport{MarketID: marketID, Result: result}

	pending, err := s.wagers.ListPending(ctx, marketID)
	if err != nil {
		return report, fmt.Errorf("settlement: list pending wagers for %s: %w", marketID, err)
	}

	for _, w := range pending {
		// Safe abort point: already-settled wagers stay terminal, the rest
		// stay pending for a retry.
		select {
		case <-ctx.Done():
			return report, fmt.Errorf("settlement: aborted after %d of %d wagers: %w",
				report.Processed, len(pending), ctx.Err())
		default:
		}

		outcome := s.registry.Evaluate(w, result)

		status := domain.WagerLost
		reward := 0.0
		switch outcome {
		case matcher.OutcomeWon:
			status = domain.WagerWon
			reward = w.Payout()
		case matcher.OutcomeUnevaluable:
			s.logger.Warn("wager could not be evaluated, settling as loser",
				slog.String("wager_id", w.ID),
				slog.String("market_id", marketID),
				slog.String("game", string(w.Game)),
				slog.String("number", w.Number),
			)
		}

		applied, err := s.wagers.Settle(ctx, w.ID, status, reward, s.clock())
		if err != nil {
			return report, fmt.Errorf("settlement: settle wager %s: %w", w.ID, err)
		}
		if !applied {
			// Already terminal from an earlier run; never re-credit.
			continue
		}

		report.Processed++
		switch outcome {
		case matcher.OutcomeWon:
			report.Winners++
			report.TotalPayout += reward
		case matcher.OutcomeUnevaluable:
			report.Unevaluable++
		default:
			report.Losers++
		}

		s.appendSettled(ctx, w, status, reward)
	}

	s.publishResult(ctx, report)

	if s.archiver != nil {
		if err := s.archiver.ArchiveReport(ctx, report); err != nil {
			s.logger.Warn("report archive failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("settlement complete",
		slog.String("market_id", marketID),
		slog.String("jodi", result.Jodi),
		slog.Int("processed", report.Processed),
		slog.Int("winners", report.Winners),
		slog.Int("unevaluable", report.Unevaluable),
		slog.Float64("total_payout", report.TotalPayout),
	)
	return report, nil
}

// invalidate drops the market from the cache; failures are logged only.
func (s *SettlementService) invalidate(ctx context.Context, marketID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.Warn("market cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

type settledEvent struct {
	WagerID  string             `json:"wager_id"`
	UserID   string             `json:"user_id"`
	MarketID string             `json:"market_id"`
	Game     domain.GameType    `json:"game"`
	Status   domain.WagerStatus `json:"status"`
	Reward   float64            `json:"reward"`
}

func (s *SettlementService) appendSettled(ctx context.Context, w domain.Wager, status domain.WagerStatus, reward float64) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(settledEvent{
		WagerID:  w.ID,
		UserID:   w.UserID,
		MarketID: w.MarketID,
		Game:     w.Game,
		Status:   status,
		Reward:   reward,
	})
	if err != nil {
		return
	}
	if err := s.bus.StreamAppend(ctx, settledStream, payload); err != nil {
		s.logger.Warn("settled stream append failed",
			slog.String("wager_id", w.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SettlementService) publishResult(ctx context.Context, report domain.SettlementReport) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, resultChannel, payload); err != nil {
		s.logger.Warn("result publish failed",
			slog.String("market_id", report.MarketID),
			slog.String("error", err.Error()),
		)
	}
}
