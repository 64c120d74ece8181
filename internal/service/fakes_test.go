package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/matkaops/matkacore/internal/domain"
)

// memStore is an in-memory implementation of every store interface the
// services need, with the same atomicity guarantees the Postgres stores
// provide: Place debits and inserts together, Settle flips status and
// credits together, both guarded on current state.
type memStore struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	wagers  map[string]domain.Wager
	users   map[string]domain.User
	txns    map[string]domain.Transaction
	ratios  map[domain.GameType]domain.WinningRatio

	// failSettleAt makes the Nth Settle call (1-based) fail, simulating a
	// storage outage mid-batch. Zero disables.
	failSettleAt int
	settleCalls  int
}

func newMemStore() *memStore {
	return &memStore{
		markets: make(map[string]domain.Market),
		wagers:  make(map[string]domain.Wager),
		users:   make(map[string]domain.User),
		txns:    make(map[string]domain.Transaction),
		ratios:  make(map[domain.GameType]domain.WinningRatio),
	}
}

var errStorage = errors.New("storage unavailable")

// --- MarketStore ---

func (s *memStore) Create(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.markets[m.ID] = m
	return nil
}

func (s *memStore) Update(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.ID] = m
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memStore) List(_ context.Context) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

func (s *memStore) ListOpen(ctx context.Context) ([]domain.Market, error) {
	all, _ := s.List(ctx)
	var out []domain.Market
	for _, m := range all {
		if m.BettingOpen {
			out = append(out, m)
		}
	}
	return out, nil
}

// --- WagerStore ---

func (s *memStore) Place(_ context.Context, w domain.Wager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[w.UserID]
	if !ok {
		return domain.ErrNotFound
	}
	if u.WalletBalance < w.Stake {
		return domain.ErrInsufficientBalance
	}
	u.WalletBalance -= w.Stake
	s.users[w.UserID] = u
	s.wagers[w.ID] = w
	return nil
}

func (s *memStore) Settle(_ context.Context, wagerID string, status domain.WagerStatus, reward float64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settleCalls++
	if s.failSettleAt > 0 && s.settleCalls == s.failSettleAt {
		return false, errStorage
	}

	w, ok := s.wagers[wagerID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if w.Status != domain.WagerPending {
		return false, nil
	}

	w.Status = status
	w.Reward = reward
	w.SettledAt = &at
	s.wagers[wagerID] = w

	if reward > 0 {
		u := s.users[w.UserID]
		u.WalletBalance += reward
		s.users[w.UserID] = u
	}
	return true, nil
}

func (s *memStore) ListPending(_ context.Context, marketID string) ([]domain.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Wager
	for _, w := range s.wagers {
		if w.MarketID == marketID && w.Status == domain.WagerPending {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Wager
	for _, w := range s.wagers {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListSettledBefore(_ context.Context, before time.Time) ([]domain.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Wager
	for _, w := range s.wagers {
		if w.Status.Terminal() && w.SettledAt != nil && w.SettledAt.Before(before) {
			out = append(out, w)
		}
	}
	return out, nil
}

// wagerStore adapts memStore to domain.WagerStore (GetByID collides with
// MarketStore on the shared struct).
type wagerStore struct{ *memStore }

func (s wagerStore) GetByID(_ context.Context, id string) (domain.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wagers[id]
	if !ok {
		return domain.Wager{}, domain.ErrNotFound
	}
	return w, nil
}

// --- UserStore ---

func (s *memStore) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *memStore) UpdateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	s.users[u.ID] = u
	return nil
}

func (s *memStore) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *memStore) ListUsers(_ context.Context, _ domain.ListOpts) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *memStore) AdjustBalance(_ context.Context, userID string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if u.WalletBalance+delta < 0 {
		return u.WalletBalance, domain.ErrInsufficientBalance
	}
	u.WalletBalance += delta
	s.users[userID] = u
	return u.WalletBalance, nil
}

// userStore adapts memStore to domain.UserStore (method names collide with
// MarketStore on the shared struct).
type userStore struct{ *memStore }

func (s userStore) Create(ctx context.Context, u domain.User) error { return s.CreateUser(ctx, u) }
func (s userStore) Update(ctx context.Context, u domain.User) error { return s.UpdateUser(ctx, u) }
func (s userStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	return s.GetUser(ctx, id)
}
func (s userStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.User, error) {
	return s.ListUsers(ctx, opts)
}

// --- TransactionStore ---

type txnStore struct{ *memStore }

func (s txnStore) Create(_ context.Context, t domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[t.ID] = t
	return nil
}

func (s txnStore) GetByID(_ context.Context, id string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return t, nil
}

func (s txnStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, t := range s.txns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s txnStore) Decide(_ context.Context, txnID string, approve bool) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[txnID]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	if t.Status != domain.TxnPending {
		return t, nil
	}

	if approve {
		delta := t.Amount
		if t.Type == domain.TxnWithdraw {
			delta = -t.Amount
		}
		u, ok := s.users[t.UserID]
		if !ok {
			return domain.Transaction{}, domain.ErrNotFound
		}
		if u.WalletBalance+delta < 0 {
			return domain.Transaction{}, domain.ErrInsufficientBalance
		}
		u.WalletBalance += delta
		s.users[t.UserID] = u
		t.Status = domain.TxnApproved
	} else {
		t.Status = domain.TxnRejected
	}
	s.txns[txnID] = t
	return t, nil
}

// --- RatioStore ---

type ratioStore struct{ *memStore }

func (s ratioStore) Get(_ context.Context, game domain.GameType) (domain.WinningRatio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratios[game]
	if !ok {
		return domain.WinningRatio{}, domain.ErrNotFound
	}
	return r, nil
}

func (s ratioStore) Upsert(_ context.Context, r domain.WinningRatio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratios[r.Game] = r
	return nil
}

func (s ratioStore) List(_ context.Context) ([]domain.WinningRatio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WinningRatio
	for _, r := range s.ratios {
		out = append(out, r)
	}
	return out, nil
}

// --- LockManager ---

type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks {
	return &memLocks{held: make(map[string]bool)}
}

func (l *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	released := false
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(l.held, key)
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
