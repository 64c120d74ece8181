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

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, name, open_time, close_time, betting_open, open_betting,
	open_panna, close_panna, open_digit, close_digit, jodi, declared_at,
	created_at, updated_at`

// Create inserts a new market.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	var r resultCols
	r.from(m.Result)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO markets (
			id, name, open_time, close_time, betting_open, open_betting,
			open_panna, close_panna, open_digit, close_digit, jodi, declared_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		m.ID, m.Name, m.OpenTime, m.CloseTime, m.BettingOpen, m.OpenBetting,
		r.openPanna, r.closePanna, r.openDigit, r.closeDigit, r.jodi, r.declaredAt,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert market %s: %w", m.ID, err)
	}
	return nil
}

// Update replaces every mutable column of the market.
func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	var r resultCols
	r.from(m.Result)
	tag, err := s.pool.Exec(ctx, `
		UPDATE markets SET
			name = $2, open_time = $3, close_time = $4,
			betting_open = $5, open_betting = $6,
			open_panna = $7, close_panna = $8, open_digit = $9,
			close_digit = $10, jodi = $11, declared_at = $12,
			updated_at = $13
		WHERE id = $1`,
		m.ID, m.Name, m.OpenTime, m.CloseTime, m.BettingOpen, m.OpenBetting,
		r.openPanna, r.closePanna, r.openDigit, r.closeDigit, r.jodi, r.declaredAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns all markets ordered by open time.
func (s *MarketStore) List(ctx context.Context) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets ORDER BY open_time, name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

// ListOpen returns markets currently accepting bets.
func (s *MarketStore) ListOpen(ctx context.Context) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets WHERE betting_open ORDER BY open_time, name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open markets: %w", err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

// resultCols flattens the optional declared result into nullable columns.
type resultCols struct {
	openPanna  *string
	closePanna *string
	openDigit  *int
	closeDigit *int
	jodi       *string
	declaredAt *time.Time
}

func (r *resultCols) from(res *domain.DeclaredResult) {
	if res == nil {
		return
	}
	r.openPanna = &res.OpenPanna
	r.closePanna = &res.ClosePanna
	r.openDigit = &res.OpenDigit
	r.closeDigit = &res.CloseDigit
	r.jodi = &res.Jodi
	r.declaredAt = &res.DeclaredAt
}

func (r resultCols) toResult() *domain.DeclaredResult {
	if r.openPanna == nil {
		return nil
	}
	return &domain.DeclaredResult{
		OpenPanna:  *r.openPanna,
		ClosePanna: *r.closePanna,
		OpenDigit:  *r.openDigit,
		CloseDigit: *r.closeDigit,
		Jodi:       *r.jodi,
		DeclaredAt: *r.declaredAt,
	}
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var r resultCols
	err := row.Scan(
		&m.ID, &m.Name, &m.OpenTime, &m.CloseTime,
		&m.BettingOpen, &m.OpenBetting,
		&r.openPanna, &r.closePanna, &r.openDigit, &r.closeDigit,
		&r.jodi, &r.declaredAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Result = r.toResult()
	return m, nil
}

func collectMarkets(rows pgx.Rows) ([]domain.Market, error) {
	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate markets: %w", err)
	}
	return out, nil
}
