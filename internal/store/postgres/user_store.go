package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matkaops/matkacore/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userCols = `id, name, email, phone_number, wallet_balance, created_at, updated_at`

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, u domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, phone_number, wallet_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PhoneNumber, u.WalletBalance, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert user %s: %w", u.ID, err)
	}
	return nil
}

// Update replaces the user's profile fields. The wallet balance is not
// touched here; it moves only through Place, Settle and Decide.
func (s *UserStore) Update(ctx context.Context, u domain.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, phone_number = $4, updated_at = $5
		WHERE id = $1`,
		u.ID, u.Name, u.Email, u.PhoneNumber, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: update user %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a user by its primary key.
func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.WalletBalance, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("postgres: get user %s: %w", id, err)
	}
	return u, nil
}

// List returns users ordered by creation time.
func (s *UserStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userCols+` FROM users ORDER BY created_at LIMIT $1 OFFSET $2`,
		opts.LimitOrDefault(), opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber,
			&u.WalletBalance, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate users: %w", err)
	}
	return out, nil
}

// AdjustBalance moves the wallet by delta and returns the new balance. A
// move that would take the balance negative fails with
// ErrInsufficientBalance and changes nothing.
func (s *UserStore) AdjustBalance(ctx context.Context, userID string, delta float64) (float64, error) {
	var balance float64
	err := s.pool.QueryRow(ctx, `
		UPDATE users SET wallet_balance = wallet_balance + $2, updated_at = NOW()
		WHERE id = $1 AND wallet_balance + $2 >= 0
		RETURNING wallet_balance`,
		userID, delta,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := s.pool.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID,
			).Scan(&exists); err != nil {
				return 0, fmt.Errorf("postgres: check user %s: %w", userID, err)
			}
			if !exists {
				return 0, domain.ErrNotFound
			}
			return 0, domain.ErrInsufficientBalance
		}
		if isCheckViolation(err) {
			return 0, domain.ErrInsufficientBalance
		}
		return 0, fmt.Errorf("postgres: adjust balance for %s: %w", userID, err)
	}
	return balance, nil
}
