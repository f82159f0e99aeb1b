package models

import "time"

// RefreshToken is a stored refresh credential. Only the hex SHA-256 of the
// raw secret is kept.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
