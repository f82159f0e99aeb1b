package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nakgoalgo/nakgo/internal/dbx"
	"github.com/nakgoalgo/nakgo/internal/server/migrations"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/blocklist"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/refreshtokens"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations. The blocklist may be moved to Redis with WithRedisBlocklist.
type PostgresRepositoryManager struct {
	db       *sql.DB
	runner   *dbx.SQLRunner
	redisBL  *blocklist.RedisRepository
	closeFns []func() error
}

// Option configures a PostgresRepositoryManager.
type Option func(*PostgresRepositoryManager)

// WithRedisBlocklist stores blocked tokens in Redis instead of the
// token_blocklist table. The manager closes client on Close.
func WithRedisBlocklist(client redis.UniversalClient, repo *blocklist.RedisRepository) Option {
	return func(m *PostgresRepositoryManager) {
		m.redisBL = repo
		m.closeFns = append(m.closeFns, client.Close)
	}
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenPostgres opens a pgx-backed pool for dsn and checks connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewPostgresRepositoryManager wraps db. The manager owns db and closes it
// on Close.
func NewPostgresRepositoryManager(db *sql.DB, opts ...Option) *PostgresRepositoryManager {
	m := &PostgresRepositoryManager{
		db:       db,
		runner:   dbx.NewSQLRunner(db, nil),
		closeFns: []func() error{db.Close},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *PostgresRepositoryManager) Runner() dbx.Runner { return m.runner }

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

// Blocklist returns the Redis repository when configured, otherwise one
// bound to the provided DBTX.
func (m *PostgresRepositoryManager) Blocklist(db dbx.DBTX) blocklist.Repository {
	if m.redisBL != nil {
		return m.redisBL
	}
	return blocklist.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

// Close releases the database pool and any Redis client.
func (m *PostgresRepositoryManager) Close() error {
	var errs []error
	for _, fn := range m.closeFns {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
