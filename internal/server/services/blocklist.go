package services

import (
	"context"
	"time"

	"github.com/nakgoalgo/nakgo/internal/server/repositories/repomanager"
)

// BlocklistService records access tokens revoked at logout. It is kept
// apart from the token codec, which stays stateless.
type BlocklistService struct {
	repomanager repomanager.RepositoryManager
}

func NewBlocklistService(m repomanager.RepositoryManager) *BlocklistService {
	return &BlocklistService{repomanager: m}
}

// Block adds token until expiresAt. Blocking a token twice is not an error.
func (s *BlocklistService) Block(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := s.repomanager.Blocklist(s.repomanager.Runner().Conn()).Insert(ctx, token, expiresAt)
	return err
}

func (s *BlocklistService) IsBlocked(ctx context.Context, token string) (bool, error) {
	return s.repomanager.Blocklist(s.repomanager.Runner().Conn()).Exists(ctx, token)
}

func (s *BlocklistService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.repomanager.Blocklist(s.repomanager.Runner().Conn()).DeleteExpired(ctx, now)
}
