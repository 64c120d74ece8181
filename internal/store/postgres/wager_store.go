package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matkaops/matkacore/internal/domain"
)

// WagerStore implements domain.WagerStore using PostgreSQL. Placement and
// settlement each run as one transaction so the wager row and the wallet
// movement commit or roll back together.
type WagerStore struct {
	pool *pgxpool.Pool
}

// NewWagerStore creates a new WagerStore.
func NewWagerStore(pool *pgxpool.Pool) *WagerStore {
	return &WagerStore{pool: pool}
}

const wagerCols = `id, user_id, market_id, game, side, number,
	stake, ratio, status, reward, created_at, settled_at`

// Place debits the stake from the user's wallet, inserts the pending wager,
// and records the bet ledger entry, all in one transaction. A balance below
// the stake aborts with ErrInsufficientBalance and leaves nothing behind.
func (s *WagerStore) Place(ctx context.Context, w domain.Wager) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE users SET wallet_balance = wallet_balance - $2, updated_at = NOW()
		WHERE id = $1 AND wallet_balance >= $2`,
		w.UserID, w.Stake,
	)
	if err != nil {
		return fmt.Errorf("postgres: debit stake for user %s: %w", w.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the user does not exist or the balance is short.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, w.UserID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check user %s: %w", w.UserID, err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO wagers (id, user_id, market_id, game, side, number,
			stake, ratio, status, reward, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10)`,
		w.ID, w.UserID, w.MarketID, string(w.Game), string(w.Side), w.Number,
		w.Stake, w.Ratio, string(w.Status), w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert wager %s: %w", w.ID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, reference, status, created_at, updated_at)
		VALUES (gen_random_uuid()::text, $1, 'bet', $2, $3, 'approved', $4, $4)`,
		w.UserID, w.Stake, w.ID, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record bet transaction for wager %s: %w", w.ID, err)
	}

	return tx.Commit(ctx)
}

// Settle moves a pending wager to its terminal status and, for winners,
// credits the reward and records the win ledger entry in the same
// transaction. It reports applied=false without error when the wager is
// already terminal, which makes settlement retries idempotent.
func (s *WagerStore) Settle(ctx context.Context, wagerID string, status domain.WagerStatus, reward float64, at time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID string
	err = tx.QueryRow(ctx, `
		UPDATE wagers SET status = $2, reward = $3, settled_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING user_id`,
		wagerID, string(status), reward, at,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already terminal, or unknown. Distinguish the two.
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM wagers WHERE id = $1)`, wagerID,
			).Scan(&exists); err != nil {
				return false, fmt.Errorf("postgres: check wager %s: %w", wagerID, err)
			}
			if !exists {
				return false, domain.ErrNotFound
			}
			return false, nil
		}
		return false, fmt.Errorf("postgres: settle wager %s: %w", wagerID, err)
	}

	if reward > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE users SET wallet_balance = wallet_balance + $2, updated_at = NOW()
			WHERE id = $1`,
			userID, reward,
		)
		if err != nil {
			return false, fmt.Errorf("postgres: credit reward for wager %s: %w", wagerID, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO transactions (id, user_id, type, amount, reference, status, created_at, updated_at)
			VALUES (gen_random_uuid()::text, $1, 'win', $2, $3, 'approved', $4, $4)`,
			userID, reward, wagerID, at,
		)
		if err != nil {
			return false, fmt.Errorf("postgres: record win transaction for wager %s: %w", wagerID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("postgres: commit settle %s: %w", wagerID, err)
	}
	return true, nil
}

// GetByID retrieves a wager by its primary key.
func (s *WagerStore) GetByID(ctx context.Context, id string) (domain.Wager, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+wagerCols+` FROM wagers WHERE id = $1`, id)
	w, err := scanWager(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wager{}, domain.ErrNotFound
		}
		return domain.Wager{}, fmt.Errorf("postgres: get wager %s: %w", id, err)
	}
	return w, nil
}

// ListPending returns the market's unsettled wagers in placement order.
func (s *WagerStore) ListPending(ctx context.Context, marketID string) ([]domain.Wager, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+wagerCols+` FROM wagers
		 WHERE market_id = $1 AND status = 'pending'
		 ORDER BY created_at, id`,
		marketID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending wagers for %s: %w", marketID, err)
	}
	defer rows.Close()
	return collectWagers(rows)
}

// ListByUser returns the user's wagers, most recent first.
func (s *WagerStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Wager, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+wagerCols+` FROM wagers
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, opts.LimitOrDefault(), opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list wagers for user %s: %w", userID, err)
	}
	defer rows.Close()
	return collectWagers(rows)
}

// ListSettledBefore returns terminal wagers settled strictly before the cutoff.
func (s *WagerStore) ListSettledBefore(ctx context.Context, before time.Time) ([]domain.Wager, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+wagerCols+` FROM wagers
		 WHERE settled_at IS NOT NULL AND settled_at < $1
		 ORDER BY settled_at`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settled wagers: %w", err)
	}
	defer rows.Close()
	return collectWagers(rows)
}

func scanWager(row pgx.Row) (domain.Wager, error) {
	var w domain.Wager
	var game, side, status string
	err := row.Scan(
		&w.ID, &w.UserID, &w.MarketID, &game, &side, &w.Number,
		&w.Stake, &w.Ratio, &status, &w.Reward, &w.CreatedAt, &w.SettledAt,
	)
	if err != nil {
		return domain.Wager{}, err
	}
	w.Game = domain.GameType(game)
	w.Side = domain.BetSide(side)
	w.Status = domain.WagerStatus(status)
	return w, nil
}

func collectWagers(rows pgx.Rows) ([]domain.Wager, error) {
	var out []domain.Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan wager: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate wagers: %w", err)
	}
	return out, nil
}
