// Package services – AuthService
//
// This file implements the AuthService, which owns the identity lifecycle:
// email/password and anonymous sign-in, bearer-token issuing and parsing,
// staged email changes (the address only changes once the verification token
// is confirmed), password resets, and account deletion with its cascade over
// watches and entitlements.
//
// Service-level errors (e.g. ErrInvalidCredentials, ErrEmailTaken) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/watchdex/go-watch-backend/internal/domain"
)

// minPasswordLen matches the upstream identity provider's minimum.
const minPasswordLen = 6

// UserRepo defines the repository contract required by AuthService.
// Implementations are responsible for persistence of user aggregates and the
// cascade targets removed with an account.
type UserRepo interface {
	// CreateUser inserts a new user row.
	CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error

	// GetUser fetches a user by ID.
	GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)

	// GetUserByEmail fetches a user by sign-in address.
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)

	// UpdateUser persists every column of the user row.
	UpdateUser(ctx context.Context, db *gorm.DB, u *domain.User) error

	// DeleteUser removes the user row.
	DeleteUser(ctx context.Context, db *gorm.DB, id string) error

	// DeleteWatchesForUser removes all watches owned by the user.
	DeleteWatchesForUser(ctx context.Context, db *gorm.DB, userID string) error

	// DeleteEntitlementsForUser removes all entitlement rows for the user.
	DeleteEntitlementsForUser(ctx context.Context, db *gorm.DB, userID string) error
}

// Session is the result of a successful sign-in: the account plus the signed
// bearer token the client presents on subsequent requests.
type Session struct {
	User  *domain.User
	Token string
}

// AuthService implements the identity use-cases. There is no process-global
// session state: every request resolves its user from the presented token.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo

	// JWTSecret signs and verifies bearer tokens (HS256).
	JWTSecret []byte
	// TokenTTL bounds token validity.
	TokenTTL time.Duration
	// BcryptCost is the password hashing work factor.
	BcryptCost int
}

// NewAuthService constructs an AuthService with sane token and hash defaults.
func NewAuthService(db *gorm.DB, r UserRepo, secret string) *AuthService {
	return &AuthService{
		DB:         db,
		Repo:       r,
		JWTSecret:  []byte(secret),
		TokenTTL:   24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// SignUp creates an email/password account and returns a live session.
// The email must be unused and the password at least six characters.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrValidation
	}
	if len(password) < minPasswordLen {
		return nil, ErrValidation
	}

	if _, err := s.Repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.Repo.CreateUser(ctx, s.DB, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// SignIn authenticates an email/password pair and returns a live session.
// Unknown addresses and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.Repo.GetUserByEmail(ctx, s.DB, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// SignInAnonymously creates a credential-less account and returns a session.
func (s *AuthService) SignInAnonymously(ctx context.Context) (*Session, error) {
	u := &domain.User{
		ID:        uuid.NewString(),
		Anonymous: true,
	}
	if err := s.Repo.CreateUser(ctx, s.DB, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

// DeleteAccount removes the user and, transitively, every watch and
// entitlement row the account owns. The whole cascade runs in one
// transaction.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Repo.GetUser(ctx, tx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := s.Repo.DeleteWatchesForUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.Repo.DeleteEntitlementsForUser(ctx, tx, userID); err != nil {
			return err
		}
		return s.Repo.DeleteUser(ctx, tx, userID)
	})
}

// RequestEmailChange stages a new address for the account and returns the
// verification token. The address in use does not change until the token is
// confirmed; delivering the token to the new address is the mailer's job.
func (s *AuthService) RequestEmailChange(ctx context.Context, userID, newEmail string) (string, error) {
	newEmail = normalizeEmail(newEmail)
	if newEmail == "" || !strings.Contains(newEmail, "@") {
		return "", ErrValidation
	}
	if other, err := s.Repo.GetUserByEmail(ctx, s.DB, newEmail); err == nil && other.ID != userID {
		return "", ErrEmailTaken
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	u, err := s.Repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	u.PendingEmail = newEmail
	u.EmailChangeToken = uuid.NewString()
	if err := s.Repo.UpdateUser(ctx, s.DB, u); err != nil {
		return "", err
	}
	return u.EmailChangeToken, nil
}

// ConfirmEmailChange applies a staged email change when the presented token
// matches the outstanding one.
func (s *AuthService) ConfirmEmailChange(ctx context.Context, userID, token string) error {
	u, err := s.Repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if token == "" || u.EmailChangeToken != token || u.PendingEmail == "" {
		return ErrBadToken
	}
	u.Email = u.PendingEmail
	u.PendingEmail = ""
	u.EmailChangeToken = ""
	return s.Repo.UpdateUser(ctx, s.DB, u)
}

// RequestPasswordReset issues a reset token for the account behind email.
// The token is handed to the mailer; callers must not disclose whether the
// address exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	u, err := s.Repo.GetUserByEmail(ctx, s.DB, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	u.ResetToken = uuid.NewString()
	if err := s.Repo.UpdateUser(ctx, s.DB, u); err != nil {
		return "", err
	}
	return u.ResetToken, nil
}

// ConfirmPasswordReset sets a new password when the presented token matches
// the outstanding reset token for the account behind email.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return ErrValidation
	}
	u, err := s.Repo.GetUserByEmail(ctx, s.DB, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBadToken // do not disclose account existence
		}
		return err
	}
	if token == "" || u.ResetToken != token {
		return ErrBadToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.BcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.ResetToken = ""
	return s.Repo.UpdateUser(ctx, s.DB, u)
}

// IssueToken signs a bearer token for userID.
func (s *AuthService) IssueToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := &jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}

// ParseToken verifies a bearer token and returns the user id it carries.
// Any parse or validity failure maps to ErrNotAuthenticated.
func (s *AuthService) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrNotAuthenticated
		}
		return s.JWTSecret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrNotAuthenticated
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrNotAuthenticated
	}
	return claims.Subject, nil
}

// session issues a token for u and bundles the pair.
func (s *AuthService) session(u *domain.User) (*Session, error) {
	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

// normalizeEmail lower-cases and trims a sign-in address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
