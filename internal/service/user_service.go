package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matkaops/matkacore/internal/domain"
)

// CreateUserRequest is the admin payload for adding a betting account.
type CreateUserRequest struct {
	Name           string  `json:"name" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	PhoneNumber    string  `json:"phone_number"`
	InitialBalance float64 `json:"initial_balance" validate:"gte=0"`
}

// UserService manages betting accounts. Authentication is handled upstream;
// this service only maintains the account records the core settles against.
type UserService struct {
	users  domain.UserStore
	clock  func() time.Time
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users domain.UserStore, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		clock:  time.Now,
		logger: logger.With(slog.String("component", "users")),
	}
}

// Create adds a new account, optionally seeded with a starting balance.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return domain.User{}, fmt.Errorf("users: invalid request: %v", err)
	}

	now := s.clock()
	user := domain.User{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		WalletBalance: req.InitialBalance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("users: create: %w", err)
	}

	s.logger.Info("user created", slog.String("user_id", user.ID))
	return user, nil
}

// Update changes profile fields (not the balance; the wallet owns that).
func (s *UserService) Update(ctx context.Context, id, name, email, phone string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("users: get %s: %w", id, err)
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}
	if phone != "" {
		user.PhoneNumber = phone
	}
	user.UpdatedAt = s.clock()

	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("users: update %s: %w", id, err)
	}
	return user, nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("users: get %s: %w", id, err)
	}
	return user, nil
}

// List returns accounts with pagination.
func (s *UserService) List(ctx context.Context, opts domain.ListOpts) ([]domain.User, error) {
	users, err := s.users.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return users, nil
}
