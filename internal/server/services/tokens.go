package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/dbx"
	"github.com/nakgoalgo/nakgo/internal/server/models"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/repomanager"
	"github.com/nakgoalgo/nakgo/internal/timex"
)

// RefreshTokenBytes is the entropy of a raw refresh secret.
const RefreshTokenBytes = 48

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshTokenService issues and rotates refresh tokens. Raw secrets are
// returned once and only their SHA-256 is stored. Every method takes the
// handle to run on so callers can group calls into one transaction.
type RefreshTokenService struct {
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	now         timex.Clock
}

func NewRefreshTokenService(m repomanager.RepositoryManager, ttl time.Duration, now timex.Clock) *RefreshTokenService {
	if now == nil {
		now = timex.SystemClock
	}
	return &RefreshTokenService{repomanager: m, ttl: ttl, now: now}
}

// Issue stores a new refresh token for userID and returns its raw secret.
func (s *RefreshTokenService) Issue(ctx context.Context, db dbx.DBTX, userID int64) (string, error) {
	raw, err := common.MakeRandURLString(RefreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	_, err = s.repomanager.RefreshTokens(db).Create(ctx, &models.RefreshToken{
		UserID:    userID,
		TokenHash: common.HashSHA256Hex(raw),
		ExpiresAt: s.now().Add(s.ttl),
	})
	if err != nil {
		return "", fmt.Errorf("error creating refresh token: %w", err)
	}
	return raw, nil
}

// Rotate consumes raw and returns the record it belonged to. Unknown,
// revoked and expired secrets all yield common.ErrorNotFound.
func (s *RefreshTokenService) Rotate(ctx context.Context, db dbx.DBTX, raw string) (*models.RefreshToken, error) {
	if raw == "" {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.RefreshTokens(db).Rotate(ctx, common.HashSHA256Hex(raw), s.now())
}

// Revoke invalidates raw and reports whether it was still active.
func (s *RefreshTokenService) Revoke(ctx context.Context, db dbx.DBTX, raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return s.repomanager.RefreshTokens(db).Revoke(ctx, common.HashSHA256Hex(raw), s.now())
}

// PurgeExpired deletes refresh tokens that expired before now.
func (s *RefreshTokenService) PurgeExpired(ctx context.Context, db dbx.DBTX, now time.Time) (int64, error) {
	return s.repomanager.RefreshTokens(db).DeleteExpired(ctx, now)
}
