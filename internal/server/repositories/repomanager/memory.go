package repomanager

import (
	"context"

	"github.com/nakgoalgo/nakgo/internal/dbx"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/blocklist"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/refreshtokens"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/users"
)

// MemoryDSN selects the in-memory manager instead of PostgreSQL.
const MemoryDSN = "memory://"

// InMemoryRepositoryManager hands out process-local repositories. The DBTX
// argument is ignored; every call returns the same shared instance.
type InMemoryRepositoryManager struct {
	users         *users.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
	blocklist     blocklist.Repository
}

// NewInMemoryRepositoryManager builds empty repositories. bl replaces the
// in-memory blocklist when non-nil.
func NewInMemoryRepositoryManager(bl blocklist.Repository) *InMemoryRepositoryManager {
	if bl == nil {
		bl = blocklist.NewMemoryRepository()
	}
	return &InMemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
		blocklist:     bl,
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Runner() dbx.Runner { return dbx.NoTxRunner{} }

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *InMemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}

func (m *InMemoryRepositoryManager) Blocklist(dbx.DBTX) blocklist.Repository { return m.blocklist }

func (m *InMemoryRepositoryManager) Close() error { return nil }

// UserStore exposes the concrete user repository for tests.
func (m *InMemoryRepositoryManager) UserStore() *users.MemoryRepository { return m.users }

// RefreshTokenStore exposes the concrete refresh token repository for tests.
func (m *InMemoryRepositoryManager) RefreshTokenStore() *refreshtokens.MemoryRepository {
	return m.refreshTokens
}
