// Package auth issues and verifies signed access tokens.
//
// The codec is stateless: it checks the signature, algorithm and expiry of a
// token and never consults the blocklist. Revocation is the caller's job.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/timex"
)

// MinSecretLength is the shortest accepted signing secret, in bytes.
const MinSecretLength = 32

var ErrWeakSecret = errors.New("signing secret must be at least 32 bytes")

// Claims is what a verified access token tells the caller.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Codec signs access tokens with HS256.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    timex.Clock
}

// NewCodec fails fast when the secret is absent or too short. A nil clock
// means the system clock.
func NewCodec(secret string, ttl time.Duration, now timex.Clock) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive, got %s", ttl)
	}
	if now == nil {
		now = timex.SystemClock
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Issue returns a token for subject that expires TTL from now. Each call
// yields a distinct token.
func (c *Codec) Issue(subject string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		// Unique per token; the blocklist is keyed by the token string.
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})

	s, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return s, nil
}

// Verify checks tokenString and returns its claims. Every failure, including
// a token at or past its expiry instant, is reported as common.ErrInvalidToken.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, common.ErrInvalidToken
	}

	return &Claims{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}
