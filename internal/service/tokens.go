package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

const leeway = 30 * time.Second

// issueAccessToken creates a signed HS256 JWT for the given subject.
func issueAccessToken(key []byte, ttl time.Duration, userID uuid.UUID, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	return signed, exp, err
}

// ParseAccessToken verifies an HS256 token and returns its subject.
// Every failure wraps errs.ErrUnauthorized.
func ParseAccessToken(key []byte, token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}, jwt.WithLeeway(leeway))
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("access token: %w", errs.ErrUnauthorized)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("access token subject: %w", errs.ErrUnauthorized)
	}
	return id, nil
}
