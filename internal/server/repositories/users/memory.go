package users

import (
	"context"
	"sync"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/server/models"
)

// MemoryRepository is an in-process user directory with the same
// uniqueness rule on external id as the users table.
type MemoryRepository struct {
	mu         sync.Mutex
	nextID     int64
	byID       map[int64]models.User
	byExternal map[string]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[int64]models.User),
		byExternal: make(map[string]int64),
	}
}

func (r *MemoryRepository) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byExternal[externalID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byExternal[user.ExternalID]; ok {
		u := r.byID[id]
		u.Nickname = user.Nickname
		u.Email = user.Email
		u.ProfileImage = user.ProfileImage
		r.byID[id] = u
		return &u, nil
	}
	r.nextID++
	user.ID = r.nextID
	if user.Role == "" {
		user.Role = "user"
	}
	user.CreatedAt = time.Now().UTC()

	r.byID[user.ID] = *user
	r.byExternal[user.ExternalID] = user.ID
	return user, nil
}

func (r *MemoryRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[user.ID]
	if !ok {
		return common.ErrorNotFound
	}
	u.Nickname = user.Nickname
	u.Email = user.Email
	u.ProfileImage = user.ProfileImage
	r.byID[user.ID] = u
	return nil
}

// Delete removes a user. The session layer never deletes users; tests use
// it to model an account removed by another part of the system.
func (r *MemoryRepository) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byExternal, u.ExternalID)
		delete(r.byID, id)
	}
}
