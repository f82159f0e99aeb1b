package blocklist

import (
	"context"
	"time"

	"github.com/nakgoalgo/nakgo/internal/dbx"
)

// PostgresRepository implements Repository over the token_blocklist table.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	query := `
		INSERT INTO token_blocklist (token, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, token, expiresAt)
	if err != nil {
		return false, dbx.StoreError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbx.StoreError(err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM token_blocklist WHERE token = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&exists); err != nil {
		return false, dbx.StoreError(err)
	}
	return exists, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM token_blocklist WHERE expires_at < $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, dbx.StoreError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.StoreError(err)
	}
	return n, nil
}
