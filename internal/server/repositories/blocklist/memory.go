package blocklist

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps blocked tokens in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]time.Time)}
}

func (r *MemoryRepository) Insert(_ context.Context, token string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token]; ok {
		return false, nil
	}
	r.tokens[token] = expiresAt
	return true, nil
}

func (r *MemoryRepository) Exists(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tokens[token]
	return ok, nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for token, exp := range r.tokens {
		if exp.Before(now) {
			delete(r.tokens, token)
			n++
		}
	}
	return n, nil
}

// Len returns the number of blocked tokens.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
