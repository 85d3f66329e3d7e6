package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rankforge/ladderboard/internal/apperrors"
	"github.com/rankforge/ladderboard/internal/hash"
	"github.com/rankforge/ladderboard/internal/logging"
	"github.com/rankforge/ladderboard/internal/models"
	"github.com/rankforge/ladderboard/internal/repo"
	"github.com/rankforge/ladderboard/internal/tokens"
)

// Service is the full token issuer/verifier plus credential validation.
// It has credential store access; the constrained verifier in
// internal/edgejwt does not.
type Service struct {
	Users         repo.UserRepository
	AccessSecret  []byte
	RefreshSecret []byte
}

func NewService(users repo.UserRepository, accessSecret, refreshSecret []byte) *Service {
	return &Service{Users: users, AccessSecret: accessSecret, RefreshSecret: refreshSecret}
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RegisterCredentials struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ValidateCredentials returns the user for a matching email/password pair
// and nil for an unknown email, an inactive account or a wrong password.
// An error means infrastructure failure, never "not found".
func (s *Service) ValidateCredentials(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.validate_credentials")

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		l.Error("lookup_failed", "error", err)
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, nil
	}

	if err := s.Users.UpdateLastLogin(ctx, user.ID); err != nil {
		l.Error("last_login_update_failed", "user_id", user.ID, "error", err)
		return nil, err
	}
	return user, nil
}

// CreateUser registers a new account. Input shape problems surface as
// *apperrors.ValidationError, duplicates as *apperrors.ConflictError, both
// detected before any mutation.
func (s *Service) CreateUser(ctx context.Context, creds RegisterCredentials) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.create_user")

	if creds.Password != creds.ConfirmPassword {
		return nil, apperrors.NewValidationError("passwords do not match")
	}
	if len(creds.Password) < 6 {
		return nil, apperrors.NewValidationError("password must be at least 6 characters")
	}

	email := strings.ToLower(strings.TrimSpace(creds.Email))
	username := strings.TrimSpace(creds.Username)
	name := strings.TrimSpace(creds.Name)

	if !IsValidEmail(email) {
		return nil, apperrors.NewValidationError("invalid email format")
	}
	if !IsValidUsername(username) {
		return nil, apperrors.NewValidationError("username must be 3-20 characters and contain only letters, numbers, hyphens, and underscores")
	}

	pwHash, err := hash.HashPassword(creds.Password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		Name:         name,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	created, err := s.Users.Create(ctx, user)
	if err != nil {
		if apperrors.IsConflict(err) {
			l.Warn("register_failed", "reason", "duplicate", "error", err)
			return nil, err
		}
		l.Error("register_failed", "reason", "db_error", "error", err)
		return nil, err
	}
	return created, nil
}

// GenerateTokens mints the access/refresh pair. A signing failure is fatal
// for the caller: it means broken secret material, not bad input.
func (s *Service) GenerateTokens(user *models.User) (*TokenPair, error) {
	now := time.Now()

	accessClaims := tokens.AccessClaims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokens.AccessTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshClaims := tokens.RefreshClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokens.RefreshTTL)),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyToken returns the access token claims, or nil for any signature,
// shape or expiry problem. Verification failure is never an error so call
// sites stay branch-free on the happy path.
func (s *Service) VerifyToken(token string) *tokens.AccessClaims {
	claims, err := tokens.AccessClaimsFromToken(token, s.AccessSecret)
	if err != nil {
		return nil
	}
	return claims
}

// RefreshTokens verifies a refresh token, re-fetches the user and mints a
// fresh pair. The consumed refresh token stays valid until its natural
// expiry; there is no rotation or blacklist.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, nil
	}

	user, err := s.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}
	return s.GenerateTokens(user)
}

// GetUserFromToken chains verification with a store lookup, filtering
// inactive users.
func (s *Service) GetUserFromToken(ctx context.Context, token string) (*models.User, error) {
	claims := s.VerifyToken(token)
	if claims == nil {
		return nil, nil
	}
	user, err := s.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}
	return user, nil
}

// ChangePassword swaps the stored hash after checking the current password.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (bool, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil || !hash.CheckPassword(user.PasswordHash, currentPassword) {
		return false, nil
	}
	if len(newPassword) < 6 {
		return false, apperrors.NewValidationError("password must be at least 6 characters")
	}

	newHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.Users.Update(ctx, userID, repo.UserPatch{PasswordHash: &newHash}); err != nil {
		return false, err
	}
	return true, nil
}
