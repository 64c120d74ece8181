package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matkaops/matkacore/internal/domain"
)

// RatioStore implements domain.RatioStore using PostgreSQL. The table is
// seeded with the standard multipliers by migration; admins adjust them
// through Upsert.
type RatioStore struct {
	pool *pgxpool.Pool
}

// NewRatioStore creates a new RatioStore.
func NewRatioStore(pool *pgxpool.Pool) *RatioStore {
	return &RatioStore{pool: pool}
}

// Get returns the payout multiplier for the game type.
func (s *RatioStore) Get(ctx context.Context, game domain.GameType) (domain.WinningRatio, error) {
	var r domain.WinningRatio
	var g string
	err := s.pool.QueryRow(ctx,
		`SELECT game, ratio, updated_at FROM winning_ratios WHERE game = $1`,
		string(game),
	).Scan(&g, &r.Ratio, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WinningRatio{}, domain.ErrNotFound
		}
		return domain.WinningRatio{}, fmt.Errorf("postgres: get ratio for %s: %w", game, err)
	}
	r.Game = domain.GameType(g)
	return r, nil
}

// Upsert inserts or updates the multiplier for a game type.
func (s *RatioStore) Upsert(ctx context.Context, r domain.WinningRatio) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO winning_ratios (game, ratio, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (game) DO UPDATE SET
			ratio = EXCLUDED.ratio,
			updated_at = EXCLUDED.updated_at`,
		string(r.Game), r.Ratio, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert ratio for %s: %w", r.Game, err)
	}
	return nil
}

// List returns every configured multiplier.
func (s *RatioStore) List(ctx context.Context) ([]domain.WinningRatio, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT game, ratio, updated_at FROM winning_ratios ORDER BY game`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ratios: %w", err)
	}
	defer rows.Close()

	var out []domain.WinningRatio
	for rows.Next() {
		var r domain.WinningRatio
		var g string
		if err := rows.Scan(&g, &r.Ratio, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan ratio: %w", err)
		}
		r.Game = domain.GameType(g)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate ratios: %w", err)
	}
	return out, nil
}
