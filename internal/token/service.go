package token

import (
	"time"

	"github.com/dkotenko/auth-service/internal/user"
)

// Service issues and parses both token classes. Issuing is a pure function
// of the user's current state; nothing is persisted.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (s *Service) IssueAccessToken(u *user.User) (string, error) {
	return encode(AccessClaims{
		UserID:           u.ID,
		RegisteredClaims: registered(s.accessTTL),
	}, s.accessSecret)
}

func (s *Service) IssueRefreshToken(u *user.User) (string, error) {
	return encode(RefreshClaims{
		UserID:           u.ID,
		TokenVersion:     u.TokenVersion,
		RegisteredClaims: registered(s.refreshTTL),
	}, s.refreshSecret)
}

func (s *Service) ParseAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := decode(raw, claims, s.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) ParseRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := decode(raw, claims, s.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// RefreshTTL reports the refresh token lifetime, used by the transport layer
// to scope the delivery cookie.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}
