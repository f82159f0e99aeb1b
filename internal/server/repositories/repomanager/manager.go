// Package repomanager vends repository implementations bound to a database
// handle and runs schema migrations.
package repomanager

import (
	"context"

	"github.com/nakgoalgo/nakgo/internal/dbx"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/blocklist"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/refreshtokens"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Runner() dbx.Runner
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Blocklist(db dbx.DBTX) blocklist.Repository
	Close() error
}
