package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matkaops/matkacore/internal/domain"
)

// TransactionStore implements domain.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *pgxpool.Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

const txnCols = `id, user_id, type, amount, reference, receipt_url, status, created_at, updated_at`

// Create inserts a ledger entry.
func (s *TransactionStore) Create(ctx context.Context, t domain.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, reference, receipt_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.UserID, string(t.Type), t.Amount, t.Reference, t.ReceiptURL,
		string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert transaction %s: %w", t.ID, err)
	}
	return nil
}

// GetByID retrieves a ledger entry by its primary key.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (domain.Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE id = $1`, id)
	t, err := scanTxn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, domain.ErrNotFound
		}
		return domain.Transaction{}, fmt.Errorf("postgres: get transaction %s: %w", id, err)
	}
	return t, nil
}

// ListByUser returns the user's ledger entries, most recent first.
func (s *TransactionStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+txnCols+` FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, opts.LimitOrDefault(), opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate transactions: %w", err)
	}
	return out, nil
}

// Decide approves or rejects a pending deposit or withdrawal. Approval moves
// the wallet balance in the same transaction as the status flip, guarded
// against overdrawing. Deciding an already-decided entry returns it
// unchanged.
func (s *TransactionStore) Decide(ctx context.Context, txnID string, approve bool) (domain.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the row so concurrent decisions serialize.
	row := tx.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE id = $1 FOR UPDATE`, txnID)
	t, err := scanTxn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, domain.ErrNotFound
		}
		return domain.Transaction{}, fmt.Errorf("postgres: lock transaction %s: %w", txnID, err)
	}
	if t.Status != domain.TxnPending {
		return t, nil
	}

	status := domain.TxnRejected
	if approve {
		status = domain.TxnApproved

		delta := t.Amount
		if t.Type == domain.TxnWithdraw {
			delta = -t.Amount
		}
		tag, err := tx.Exec(ctx, `
			UPDATE users SET wallet_balance = wallet_balance + $2, updated_at = NOW()
			WHERE id = $1 AND wallet_balance + $2 >= 0`,
			t.UserID, delta,
		)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("postgres: move balance for transaction %s: %w", txnID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.Transaction{}, domain.ErrInsufficientBalance
		}
	}

	err = tx.QueryRow(ctx, `
		UPDATE transactions SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		txnID, string(status),
	).Scan(&t.UpdatedAt)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: decide transaction %s: %w", txnID, err)
	}
	t.Status = status

	if err := tx.Commit(ctx); err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: commit decide %s: %w", txnID, err)
	}
	return t, nil
}

func scanTxn(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	var typ, status string
	err := row.Scan(
		&t.ID, &t.UserID, &typ, &t.Amount, &t.Reference, &t.ReceiptURL,
		&status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Type = domain.TransactionType(typ)
	t.Status = domain.TransactionStatus(status)
	return t, nil
}
