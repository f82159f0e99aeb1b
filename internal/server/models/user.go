// Package models defines server-side data models persisted in the database.
package models

import "time"

// RoleAdmin is the role value that grants administrative rights.
const RoleAdmin = "admin"

// User is a local account linked to an external identity.
type User struct {
	ID           int64
	ExternalID   string
	Nickname     string
	Email        *string
	ProfileImage *string
	Role         string
	CreatedAt    time.Time
}

// UserSummary is the public view of a user returned by login and verify.
type UserSummary struct {
	ID           int64
	Nickname     string
	Email        *string
	ProfileImage *string
	IsAdmin      bool
}

// Summary projects u onto its public view.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Nickname:     u.Nickname,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		IsAdmin:      u.Role == RoleAdmin,
	}
}
