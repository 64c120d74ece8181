package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/service"
)

func newBetFixture(t *testing.T) (*service.BetService, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := service.NewBetService(
		store, wagerStore{store}, ratioStore{store}, nil, nil, nil, testLogger(),
	).WithClock(fixedClock(declaredAt))
	return svc, store
}

func seedRatio(store *memStore, game domain.GameType, ratio float64) {
	store.ratios[game] = domain.WinningRatio{Game: game, Ratio: ratio}
}

func TestPlaceBet_DebitsAndRecordsPendingWager(t *testing.T) {
	svc, store := newBetFixture(t)
	seedMarket(store, "mk1")
	seedUser(store, "u1", 100)
	seedRatio(store, domain.GameJodi, 90)

	w, err := svc.PlaceBet(context.Background(), service.PlaceBetRequest{
		UserID:   "u1",
		MarketID: "mk1",
		Game:     domain.GameJodi,
		Number:   "30",
		Stake:    25,
	})
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	if w.Status != domain.WagerPending {
		t.Errorf("status = %s, want pending", w.Status)
	}
	if w.Ratio != 90 {
		t.Errorf("ratio = %v, want server-side 90", w.Ratio)
	}
	if got := store.users["u1"].WalletBalance; got != 75 {
		t.Errorf("balance = %v, want 75 after debit", got)
	}
	if _, ok := store.wagers[w.ID]; !ok {
		t.Error("wager not persisted")
	}
}

func TestPlaceBet_InsufficientBalance(t *testing.T) {
	svc, store := newBetFixture(t)
	seedMarket(store, "mk1")
	seedUser(store, "u1", 10)
	seedRatio(store, domain.GameJodi, 90)

	_, err := svc.PlaceBet(context.Background(), service.PlaceBetRequest{
		UserID:   "u1",
		MarketID: "mk1",
		Game:     domain.GameJodi,
		Number:   "30",
		Stake:    25,
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := store.users["u1"].WalletBalance; got != 10 {
		t.Errorf("balance = %v, want untouched 10", got)
	}
	if len(store.wagers) != 0 {
		t.Error("wager persisted despite failed debit")
	}
}

func TestPlaceBet_MarketWindow(t *testing.T) {
	svc, store := newBetFixture(t)
	seedUser(store, "u1", 100)
	seedRatio(store, domain.GameSingleDigit, 9)
	seedRatio(store, domain.GameJodi, 90)

	closed := domain.Market{ID: "closed", Name: "closed", OpenTime: "09:30", CloseTime: "21:00"}
	store.markets[closed.ID] = closed
	closeOnly := domain.Market{ID: "late", Name: "late", OpenTime: "09:30", CloseTime: "21:00", BettingOpen: true}
	store.markets[closeOnly.ID] = closeOnly

	_, err := svc.PlaceBet(context.Background(), service.PlaceBetRequest{
		UserID: "u1", MarketID: "closed", Game: domain.GameJodi, Number: "30", Stake: 5,
	})
	if !errors.Is(err, domain.ErrMarketClosed) {
		t.Errorf("closed market: err = %v, want ErrMarketClosed", err)
	}

	// Close-only window rejects open-side single digit but accepts close side.
	_, err = svc.PlaceBet(context.Background(), service.PlaceBetRequest{
		UserID: "u1", MarketID: "late", Game: domain.GameSingleDigit, Side: domain.SideOpen, Number: "3", Stake: 5,
	})
	if !errors.Is(err, domain.ErrMarketClosed) {
		t.Errorf("open side in close-only window: err = %v, want ErrMarketClosed", err)
	}
	if _, err := svc.PlaceBet(context.Background(), service.PlaceBetRequest{
		UserID: "u1", MarketID: "late", Game: domain.GameSingleDigit, Side: domain.SideClose, Number: "3", Stake: 5,
	}); err != nil {
		t.Errorf("close side in close-only window: %v", err)
	}

	// Jodi needs both sides, so a close-only window rejects it.
	_, err = svc.PlaceBet(context.Background(), service.PlaceBetRequest{
		UserID: "u1", MarketID: "late", Game: domain.GameJodi, Number: "30", Stake: 5,
	})
	if !errors.Is(err, domain.ErrMarketClosed) {
		t.Errorf("jodi in close-only window: err = %v, want ErrMarketClosed", err)
	}
}

func TestPlaceBet_Validation(t *testing.T) {
	svc, store := newBetFixture(t)
	seedMarket(store, "mk1")
	seedUser(store, "u1", 100)
	seedRatio(store, domain.GameJodi, 90)
	seedRatio(store, domain.GameSingleDigit, 9)
	seedRatio(store, domain.GameDoublePanna, 300)

	tests := []struct {
		name string
		req  service.PlaceBetRequest
	}{
		{"missing user", service.PlaceBetRequest{MarketID: "mk1", Game: domain.GameJodi, Number: "30", Stake: 5}},
		{"zero stake", service.PlaceBetRequest{UserID: "u1", MarketID: "mk1", Game: domain.GameJodi, Number: "30"}},
		{"negative stake", service.PlaceBetRequest{UserID: "u1", MarketID: "mk1", Game: domain.GameJodi, Number: "30", Stake: -5}},
		{"unknown game", service.PlaceBetRequest{UserID: "u1", MarketID: "mk1", Game: "roulette", Number: "17", Stake: 5}},
		{"jodi with side", service.PlaceBetRequest{UserID: "u1", MarketID: "mk1", Game: domain.GameJodi, Side: domain.SideOpen, Number: "30", Stake: 5}},
		{"single digit without side", service.PlaceBetRequest{UserID: "u1", MarketID: "mk1", Game: domain.GameSingleDigit, Number: "3", Stake: 5}},
		{"jodi wrong shape", service.PlaceBetRequest{UserID: "u1", MarketID: "mk1", Game: domain.GameJodi, Number: "3", Stake: 5}},
		{"double panna without pair", service.PlaceBetRequest{UserID: "u1", MarketID: "mk1", Game: domain.GameDoublePanna, Side: domain.SideOpen, Number: "123", Stake: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceBet(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrInvalidWager) {
				t.Fatalf("err = %v, want ErrInvalidWager", err)
			}
		})
	}

	if got := store.users["u1"].WalletBalance; got != 100 {
		t.Errorf("balance = %v, want untouched 100", got)
	}
}

func TestPlaceBet_UnknownMarket(t *testing.T) {
	svc, store := newBetFixture(t)
	seedUser(store, "u1", 100)
	seedRatio(store, domain.GameJodi, 90)

	_, err := svc.PlaceBet(context.Background(), service.PlaceBetRequest{
		UserID: "u1", MarketID: "nope", Game: domain.GameJodi, Number: "30", Stake: 5,
	})
	if !errors.Is(err, domain.ErrMarketNotFound) {
		t.Fatalf("err = %v, want ErrMarketNotFound", err)
	}
}

func TestPlaceBet_RateLimited(t *testing.T) {
	store := newMemStore()
	svc := service.NewBetService(
		store, wagerStore{store}, ratioStore{store}, nil, denyLimiter{}, nil, testLogger(),
	)
	seedMarket(store, "mk1")
	seedUser(store, "u1", 100)
	seedRatio(store, domain.GameJodi, 90)

	_, err := svc.PlaceBet(context.Background(), service.PlaceBetRequest{
		UserID: "u1", MarketID: "mk1", Game: domain.GameJodi, Number: "30", Stake: 5,
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

func (denyLimiter) Wait(context.Context, string) error {
	return domain.ErrRateLimited
}
