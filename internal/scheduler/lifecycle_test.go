package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/scheduler"
)

func at(hh, mm int) time.Time {
	return time.Date(2026, 8, 31, hh, mm, 0, 0, time.UTC)
}

func market(open, close string) domain.Market {
	return domain.Market{
		ID:        "kalyan",
		Name:      "Kalyan",
		OpenTime:  open,
		CloseTime: close,
	}
}

func TestDesiredState(t *testing.T) {
	m := market("10:00", "12:00")

	tests := []struct {
		name string
		now  time.Time
		want scheduler.State
	}{
		{"before open", at(9, 59), scheduler.StateClosed},
		{"at open", at(10, 0), scheduler.StateOpenFull},
		{"mid window", at(11, 0), scheduler.StateOpenFull},
		{"just before lead", at(11, 49), scheduler.StateOpenFull},
		{"at close minus 10", at(11, 50), scheduler.StateOpenCloseOnly},
		{"just before close", at(11, 59), scheduler.StateOpenCloseOnly},
		{"at close", at(12, 0), scheduler.StateClosed},
		{"after close", at(15, 0), scheduler.StateClosed},
		{"midnight", at(0, 0), scheduler.StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scheduler.DesiredState(m, tt.now)
			if err != nil {
				t.Fatalf("DesiredState: %v", err)
			}
			if got != tt.want {
				t.Errorf("DesiredState(%s) = %v, want %v", tt.now.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestDesiredState_InvalidWindow(t *testing.T) {
	for _, m := range []domain.Market{
		market("10am", "12:00"),
		market("10:00", "9:00"),
		market("10:00", "10:00"),
		market("25:00", "26:00"),
	} {
		if _, err := scheduler.DesiredState(m, at(11, 0)); err == nil {
			t.Errorf("DesiredState(%q-%q) expected error", m.OpenTime, m.CloseTime)
		}
	}
}

func TestStateFlags_OpenBettingImpliesBettingOpen(t *testing.T) {
	for _, s := range []scheduler.State{
		scheduler.StateClosed, scheduler.StateOpenFull, scheduler.StateOpenCloseOnly,
	} {
		bettingOpen, openBetting := s.Flags()
		if openBetting && !bettingOpen {
			t.Errorf("state %v: openBetting without bettingOpen", s)
		}
	}
}

// fakeMarketStore is an in-memory MarketStore for controller tests.
type fakeMarketStore struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	updates int
}

func newFakeMarketStore(ms ...domain.Market) *fakeMarketStore {
	s := &fakeMarketStore{markets: make(map[string]domain.Market)}
	for _, m := range ms {
		s.markets[m.ID] = m
	}
	return s
}

func (s *fakeMarketStore) Create(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.ID] = m
	return nil
}

func (s *fakeMarketStore) Update(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.ID] = m
	s.updates++
	return nil
}

func (s *fakeMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *fakeMarketStore) List(_ context.Context) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

func (s *fakeMarketStore) ListOpen(ctx context.Context) ([]domain.Market, error) {
	all, _ := s.List(ctx)
	var out []domain.Market
	for _, m := range all {
		if m.BettingOpen {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMarketStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newController(store *fakeMarketStore, clock *fakeClock) *scheduler.Controller {
	return scheduler.NewController(store, nil, clock, time.Minute, testLogger())
}

func TestTick_TransitionsThroughDailyCycle(t *testing.T) {
	store := newFakeMarketStore(market("10:00", "12:00"))
	clock := &fakeClock{now: at(9, 0)}
	ctrl := newController(store, clock)
	ctx := context.Background()

	steps := []struct {
		now                      time.Time
		bettingOpen, openBetting bool
	}{
		{at(9, 0), false, false},
		{at(10, 0), true, true},
		{at(11, 0), true, true},
		{at(11, 50), true, false}, // scenario: open bets close 10 min early
		{at(12, 0), false, false},
	}

	for _, step := range steps {
		if err := ctrl.Tick(ctx, step.now); err != nil {
			t.Fatalf("Tick(%s): %v", step.now.Format("15:04"), err)
		}
		m, _ := store.GetByID(ctx, "kalyan")
		if m.BettingOpen != step.bettingOpen || m.OpenBetting != step.openBetting {
			t.Errorf("at %s: flags = (%v, %v), want (%v, %v)",
				step.now.Format("15:04"), m.BettingOpen, m.OpenBetting,
				step.bettingOpen, step.openBetting)
		}
	}
}

func TestTick_Idempotent(t *testing.T) {
	store := newFakeMarketStore(market("10:00", "12:00"))
	clock := &fakeClock{now: at(11, 0)}
	ctrl := newController(store, clock)
	ctx := context.Background()

	if err := ctrl.Tick(ctx, at(11, 0)); err != nil {
		t.Fatal(err)
	}
	writes := store.updateCount()

	// Re-applying the same state must not write again.
	for i := 0; i < 3; i++ {
		if err := ctrl.Tick(ctx, at(11, 1)); err != nil {
			t.Fatal(err)
		}
	}
	if got := store.updateCount(); got != writes {
		t.Errorf("idempotent ticks wrote %d extra updates", got-writes)
	}
}

// A market whose flags were tampered with (or that missed ticks across a
// restart) is corrected on the next sweep, whatever state it was left in.
func TestTick_SelfHealing(t *testing.T) {
	m := market("10:00", "12:00")
	m.BettingOpen = true
	m.OpenBetting = true // tampered: should be close-only at 11:55
	store := newFakeMarketStore(m)
	ctrl := newController(store, &fakeClock{now: at(11, 55)})
	ctx := context.Background()

	if err := ctrl.Tick(ctx, at(11, 55)); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByID(ctx, "kalyan")
	if !got.BettingOpen || got.OpenBetting {
		t.Errorf("flags = (%v, %v), want (true, false)", got.BettingOpen, got.OpenBetting)
	}
}

// A market with a result declared in the current cycle must stay closed even
// inside its betting window: settlement closed it, and only an explicit
// reset (or the next day's open) may reopen it.
func TestTick_DeclaredResultPinsMarketClosed(t *testing.T) {
	m := market("10:00", "12:00")
	m.Result = &domain.DeclaredResult{
		OpenPanna: "580", ClosePanna: "190",
		DeclaredAt: at(11, 0),
	}
	store := newFakeMarketStore(m)
	ctrl := newController(store, &fakeClock{now: at(11, 30)})
	ctx := context.Background()

	if err := ctrl.Tick(ctx, at(11, 30)); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByID(ctx, "kalyan")
	if got.BettingOpen || got.OpenBetting {
		t.Errorf("settled market reopened: flags = (%v, %v)", got.BettingOpen, got.OpenBetting)
	}
	if got.Result == nil {
		t.Error("current-cycle result must not be cleared")
	}
}

// Yesterday's result is cleared when the new trading day opens.
func TestTick_StaleResultClearedAtOpen(t *testing.T) {
	m := market("10:00", "12:00")
	m.Result = &domain.DeclaredResult{
		OpenPanna: "580", ClosePanna: "190",
		DeclaredAt: at(12, 1).AddDate(0, 0, -1),
	}
	store := newFakeMarketStore(m)
	ctrl := newController(store, &fakeClock{now: at(10, 0)})
	ctx := context.Background()

	if err := ctrl.Tick(ctx, at(10, 0)); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByID(ctx, "kalyan")
	if got.Result != nil {
		t.Error("stale result not cleared at open")
	}
	if !got.BettingOpen || !got.OpenBetting {
		t.Errorf("flags = (%v, %v), want (true, true)", got.BettingOpen, got.OpenBetting)
	}
}

// A market with a broken time definition is skipped, not fatal to the sweep.
func TestTick_BrokenMarketDoesNotStallSweep(t *testing.T) {
	bad := market("10:00", "09:00")
	bad.ID = "broken"
	good := market("10:00", "12:00")
	store := newFakeMarketStore(bad, good)
	ctrl := newController(store, &fakeClock{now: at(11, 0)})
	ctx := context.Background()

	if err := ctrl.Tick(ctx, at(11, 0)); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	m, _ := store.GetByID(ctx, "kalyan")
	if !m.BettingOpen {
		t.Error("healthy market not transitioned alongside broken one")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"10:30", 630, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"10:60", 0, true},
		{"1030", 0, true},
		{"aa:bb", 0, true},
	}
	for _, tt := range tests {
		got, err := scheduler.ParseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
