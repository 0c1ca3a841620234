package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servcore/helpdesk/internal/auth"
	"github.com/servcore/helpdesk/internal/config"
	"github.com/servcore/helpdesk/internal/domain"
	"github.com/servcore/helpdesk/internal/repository"
	apperrors "github.com/servcore/helpdesk/pkg/errorutil"
)

// ResetTokenStore keeps short-lived password reset tokens. Tokens are
// single-use: Consume removes the token and returns the user id it was
// issued for, or empty when unknown or expired.
type ResetTokenStore interface {
	StoreResetToken(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (string, error)
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	resets     ResetTokenStore
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, resets ResetTokenStore) *AuthService {
	return &AuthService{
		users:      users,
		resets:     resets,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a new end-user account. Agents and admins are
// provisioned out of band, never through self-registration.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name and email required", nil)
	}
	if len(password) < 6 {
		return nil, "", time.Time{}, apperrors.NewValidationError("password must be at least 6 characters", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Login authenticates a principal of any role.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// RequestPasswordReset issues a short-lived reset token for the account.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("account", nil)
		}
		return "", apperrors.MapError(err)
	}

	token := uuid.NewString()
	if err := s.resets.StoreResetToken(ctx, token, user.ID, s.resetTTL); err != nil {
		return "", apperrors.MapError(err)
	}
	return token, nil
}

// ConfirmPasswordReset consumes the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 6 {
		return apperrors.NewValidationError("password must be at least 6 characters", nil)
	}
	userID, err := s.resets.ConsumeResetToken(ctx, token)
	if err != nil {
		return apperrors.MapError(err)
	}
	if userID == "" {
		return apperrors.NewValidationError("reset token expired or unknown", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	return apperrors.MapError(s.users.Update(ctx, user))
}

// ChangePassword verifies the current password before updating to the new
// hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("actor required")
	}
	if len(newPassword) < 6 {
		return apperrors.NewValidationError("password must be at least 6 characters", nil)
	}
	if err := auth.ComparePassword(actor.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	actor.PasswordHash = hash
	return apperrors.MapError(s.users.Update(ctx, actor))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
