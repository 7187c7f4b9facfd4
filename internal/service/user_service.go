package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbtprep/cbtprep-backend/internal/model"
	"github.com/jackc/pgx/v5"
)

// userStore is the user persistence surface this service needs.
type userStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// UserService covers login and profile reads.
type UserService struct {
	users userStore
	auth  *AuthService
}

// NewUserService creates a new UserService.
func NewUserService(users userStore, auth *AuthService) *UserService {
	return &UserService{users: users, auth: auth}
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password both return ErrInvalidCredentials so the response doesn't leak
// which one failed.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if err := s.auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, "", err
	}

	token, err := s.auth.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Profile returns the user's own record.
func (s *UserService) Profile(ctx context.Context, userID int) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
