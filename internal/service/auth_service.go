package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// AuthService authenticates roster members and issues tokens.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
}

// LoginResult bundles a signed token with the authenticated user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:  users,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login authenticates a staff number and PIN.
func (s *AuthService) Login(ctx context.Context, staffNumber, pin string) (*LoginResult, error) {
	staffNumber = strings.TrimSpace(staffNumber)
	if staffNumber == "" || pin == "" {
		return nil, apperrors.NewValidationError("staff number and password required", nil)
	}

	user, err := s.users.GetByStaffNumber(ctx, staffNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("wrong username or password")
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	if err := auth.ComparePassword(user.PINHash, pin); err != nil {
		return nil, apperrors.NewUnauthorized("wrong username or password")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
