// Package auth implements registration, login, refresh token rotation and
// revocation on top of the user store and the token service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dkotenko/auth-service/internal/token"
	"github.com/dkotenko/auth-service/internal/user"
)

const passwordHashCost = 12

// UserStore is the storage capability the service needs. *user.Repository
// satisfies it.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (*user.User, error)
	ByEmail(ctx context.Context, email string) (*user.User, error)
	ByID(ctx context.Context, id int64) (*user.User, error)
	IncrementTokenVersion(ctx context.Context, id int64) error
	List(ctx context.Context) ([]user.User, error)
}

// TokenPair bundles a short-lived access token and a long-lived refresh
// token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshResult is the uniform outcome of the refresh flow. On denial only
// OK=false is reported; the cause is logged server-side, never returned.
type RefreshResult struct {
	OK           bool
	AccessToken  string
	RefreshToken string
}

type Service struct {
	users          UserStore
	tokens         *token.Service
	log            *slog.Logger
	emailPolicy    func(string) error
	passwordPolicy func(string) error
}

type Option func(*Service)

// WithEmailPolicy replaces the registration email check.
func WithEmailPolicy(fn func(string) error) Option {
	return func(s *Service) { s.emailPolicy = fn }
}

// WithPasswordPolicy replaces the registration password check.
func WithPasswordPolicy(fn func(string) error) Option {
	return func(s *Service) { s.passwordPolicy = fn }
}

func NewService(users UserStore, tokens *token.Service, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:          users,
		tokens:         tokens,
		log:            log,
		emailPolicy:    defaultEmailPolicy,
		passwordPolicy: defaultPasswordPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultEmailPolicy(email string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	return nil
}

func defaultPasswordPolicy(password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty password", ErrValidation)
	}
	return nil
}

// Register hashes the password and creates the user. Duplicate emails
// surface as user.ErrEmailTaken.
func (s *Service) Register(ctx context.Context, email, password string) error {
	if err := s.emailPolicy(email); err != nil {
		return err
	}
	if err := s.passwordPolicy(password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.users.Create(ctx, email, string(hash)); err != nil {
		return err
	}
	return nil
}

// Login verifies the credentials and issues a fresh token pair. Unknown
// email and wrong password both come back as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	u, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issuePair(u)
}

// Refresh redeems a refresh token: validate, check the version snapshot
// against the stored counter, and rotate. Every denial is uniform.
func (s *Service) Refresh(ctx context.Context, raw string) RefreshResult {
	denied := RefreshResult{}

	if raw == "" {
		s.log.Info("refresh denied", "reason", "no token presented")
		return denied
	}

	claims, err := s.tokens.ParseRefreshToken(raw)
	if err != nil {
		s.log.Warn("refresh denied", "reason", err.Error())
		return denied
	}

	u, err := s.users.ByID(ctx, claims.UserID)
	if err != nil {
		s.log.Warn("refresh denied", "reason", "unknown user", "userId", claims.UserID)
		return denied
	}

	if u.TokenVersion != claims.TokenVersion {
		s.log.Warn("refresh denied",
			"reason", ErrStaleTokenVersion.Error(),
			"userId", u.ID,
			"currentVersion", u.TokenVersion,
			"tokenVersion", claims.TokenVersion,
		)
		return denied
	}

	pair, err := s.issuePair(u)
	if err != nil {
		s.log.Error("refresh denied", "reason", err.Error(), "userId", u.ID)
		return denied
	}

	return RefreshResult{OK: true, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}

// RevokeAll invalidates every outstanding refresh token for the user by
// bumping the stored token version. Access tokens already in flight keep
// working until they expire.
func (s *Service) RevokeAll(ctx context.Context, userID int64) error {
	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return err
	}
	s.log.Info("refresh tokens revoked", "userId", userID)
	return nil
}

func (s *Service) Users(ctx context.Context) ([]user.User, error) {
	return s.users.List(ctx)
}

func (s *Service) issuePair(u *user.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(u)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
