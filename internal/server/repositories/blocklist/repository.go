// Package blocklist stores access tokens invalidated before their expiry.
package blocklist

import (
	"context"
	"time"
)

// Repository persists blocked access tokens until their natural expiry.
type Repository interface {
	// Insert blocks token until expiresAt. It reports whether the token was
	// newly inserted; a duplicate insert is not an error.
	Insert(ctx context.Context, token string, expiresAt time.Time) (bool, error)

	// Exists reports whether token is blocked.
	Exists(ctx context.Context, token string) (bool, error)

	// DeleteExpired removes entries whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
