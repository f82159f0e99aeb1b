package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/server/models"
)

// MemoryRepository keeps refresh tokens in process memory. Every method
// holds one lock, which gives Rotate the same single-winner behaviour as
// the conditional UPDATE in PostgresRepository.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]models.RefreshToken)}
}

func (r *MemoryRepository) Create(_ context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[t.TokenHash]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.nextID++
	t.ID = r.nextID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.rows[t.TokenHash] = *t
	return t, nil
}

func (r *MemoryRepository) Rotate(_ context.Context, hash string, now time.Time) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[hash]
	if !ok || row.RevokedAt != nil || row.ExpiresAt.Before(now) {
		return nil, common.ErrorNotFound
	}
	before := row

	revokedAt := now
	row.RevokedAt = &revokedAt
	r.rows[hash] = row

	return &before, nil
}

func (r *MemoryRepository) Revoke(_ context.Context, hash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[hash]
	if !ok || row.RevokedAt != nil {
		return false, nil
	}
	revokedAt := now
	row.RevokedAt = &revokedAt
	r.rows[hash] = row
	return true, nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, row := range r.rows {
		if row.ExpiresAt.Before(now) {
			delete(r.rows, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored rows.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
