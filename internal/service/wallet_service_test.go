package service_test

import (
	"context"
	"testing"

	"github.com/matkaops/matkacore/internal/domain"
	"github.com/matkaops/matkacore/internal/service"
)

func newWalletFixture(t *testing.T) (*service.WalletService, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := service.NewWalletService(userStore{store}, txnStore{store}, testLogger()).
		WithClock(fixedClock(declaredAt))
	return svc, store
}

func TestTopUp_CreditsOnlyOnApproval(t *testing.T) {
	svc, store := newWalletFixture(t)
	seedUser(store, "u1", 50)

	txn, err := svc.RequestTopUp(context.Background(), service.TopUpRequest{
		UserID: "u1", Amount: 200, Reference: "upi-123",
	})
	if err != nil {
		t.Fatalf("RequestTopUp: %v", err)
	}
	if txn.Status != domain.TxnPending || txn.Type != domain.TxnDeposit {
		t.Fatalf("txn = %+v, want pending deposit", txn)
	}
	if got := store.users["u1"].WalletBalance; got != 50 {
		t.Fatalf("balance = %v, want 50 before approval", got)
	}

	decided, err := svc.Decide(context.Background(), txn.ID, true)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != domain.TxnApproved {
		t.Errorf("status = %s, want approved", decided.Status)
	}
	if got := store.users["u1"].WalletBalance; got != 250 {
		t.Errorf("balance = %v, want 250 after approval", got)
	}

	// Deciding again is a no-op, never a second credit.
	if _, err := svc.Decide(context.Background(), txn.ID, true); err != nil {
		t.Fatalf("second Decide: %v", err)
	}
	if got := store.users["u1"].WalletBalance; got != 250 {
		t.Errorf("balance = %v after repeat decision, want 250", got)
	}
}

func TestTopUp_RejectionLeavesBalance(t *testing.T) {
	svc, store := newWalletFixture(t)
	seedUser(store, "u1", 50)

	txn, err := svc.RequestTopUp(context.Background(), service.TopUpRequest{
		UserID: "u1", Amount: 200, Reference: "upi-123",
	})
	if err != nil {
		t.Fatalf("RequestTopUp: %v", err)
	}

	decided, err := svc.Decide(context.Background(), txn.ID, false)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != domain.TxnRejected {
		t.Errorf("status = %s, want rejected", decided.Status)
	}
	if got := store.users["u1"].WalletBalance; got != 50 {
		t.Errorf("balance = %v, want untouched 50", got)
	}
}

func TestWithdraw_ApprovalGuardsBalance(t *testing.T) {
	svc, store := newWalletFixture(t)
	seedUser(store, "u1", 100)

	txn, err := svc.RequestWithdraw(context.Background(), service.WithdrawRequest{
		UserID: "u1", Amount: 80,
	})
	if err != nil {
		t.Fatalf("RequestWithdraw: %v", err)
	}

	if _, err := svc.Decide(context.Background(), txn.ID, true); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got := store.users["u1"].WalletBalance; got != 20 {
		t.Errorf("balance = %v, want 20 after withdrawal", got)
	}

	// Balance is checked at approval time, not request time.
	over, err := svc.RequestWithdraw(context.Background(), service.WithdrawRequest{
		UserID: "u1", Amount: 80,
	})
	if err != nil {
		t.Fatalf("RequestWithdraw: %v", err)
	}
	if _, err := svc.Decide(context.Background(), over.ID, true); err == nil {
		t.Fatal("approval succeeded despite insufficient balance")
	}
	if got := store.users["u1"].WalletBalance; got != 20 {
		t.Errorf("balance = %v, want untouched 20", got)
	}
}

func TestBalance(t *testing.T) {
	svc, store := newWalletFixture(t)
	seedUser(store, "u1", 42.5)

	got, err := svc.Balance(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if got != 42.5 {
		t.Errorf("balance = %v, want 42.5", got)
	}
}
