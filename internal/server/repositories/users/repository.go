package users

import (
	"context"

	"github.com/nakgoalgo/nakgo/internal/server/models"
)

// Repository is the user directory needed by the session layer.
type Repository interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	// Upsert inserts user, or overwrites the profile of the row already
	// holding its external id, and fills in ID, Role and CreatedAt.
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	// Update overwrites nickname, email and profile image of user.ID.
	Update(ctx context.Context, user *models.User) error
}
