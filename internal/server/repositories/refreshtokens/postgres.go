package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/dbx"
	"github.com/nakgoalgo/nakgo/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, t.UserID, t.TokenHash, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt); err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, dbx.StoreError(err)
	}
	return t, nil
}

func (r *PostgresRepository) Rotate(ctx context.Context, hash string, now time.Time) (*models.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at >= $2
		RETURNING id, user_id, token_hash, expires_at, created_at
	`
	t := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, hash, now).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.StoreError(err)
	}
	return t, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, hash string, now time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, hash, now)
	if err != nil {
		return false, dbx.StoreError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbx.StoreError(err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
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
