// Package token encodes and decodes the signed, expiring credentials the
// service hands out: short-lived access tokens and long-lived refresh tokens,
// each signed with its own secret.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalid = errors.New("invalid token")
	ErrExpired = errors.New("expired token")
)

// AccessClaims prove recent authentication. They carry no version counter;
// access tokens are trusted by signature and expiry alone.
type AccessClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// RefreshClaims carry a snapshot of the user's token version taken at
// issuance. A refresh token is live only while the snapshot still matches
// the stored counter.
type RefreshClaims struct {
	UserID       int64 `json:"userId"`
	TokenVersion int64 `json:"tokenVersion"`
	jwt.RegisteredClaims
}

func registered(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func encode(claims jwt.Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
}

func decode(raw string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !parsed.Valid {
		return ErrInvalid
	}
	return nil
}
