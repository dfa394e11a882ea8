package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/provexlabs/provex-backend/internal/model"
	"github.com/provexlabs/provex-backend/internal/repository"
)

// ErrUsernameTaken is returned when registering an already-used username.
var ErrUsernameTaken = errors.New("username already taken")

// UserService handles user account management.
type UserService struct {
	repo *repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Create registers a new user with an already-hashed password.
func (s *UserService) Create(ctx context.Context, username, passwordHash string) (*model.User, error) {
	user := &model.User{
		Username:     username,
		PasswordHash: passwordHash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetByUsername looks up a user by username. Returns ErrInvalidCredentials
// on a miss so login cannot distinguish unknown users from bad passwords.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetByID looks up a user by primary key.
func (s *UserService) GetByID(ctx context.Context, id int) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
