// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/nakgoalgo/nakgo/internal/server/models"
)

// Repository stores refresh tokens by the hash of their raw secret.
type Repository interface {
	// Create stores t (UserID, TokenHash, ExpiresAt) and returns it with
	// ID and CreatedAt filled in.
	Create(ctx context.Context, t *models.RefreshToken) (*models.RefreshToken, error)

	// Rotate revokes the row for hash if it is unrevoked and not expired at
	// now, and returns the record as it was before revocation. It returns
	// common.ErrorNotFound otherwise. Of several concurrent calls for the
	// same hash at most one succeeds.
	Rotate(ctx context.Context, hash string, now time.Time) (*models.RefreshToken, error)

	// Revoke marks the unrevoked row for hash as revoked and reports whether
	// a row was affected.
	Revoke(ctx context.Context, hash string, now time.Time) (bool, error)

	// DeleteExpired removes every row whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
