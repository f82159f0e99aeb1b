package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/dbx"
	"github.com/nakgoalgo/nakgo/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, external_id, nickname, email, profile_image, role, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.ExternalID, &user.Nickname, &user.Email, &user.ProfileImage, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbx.StoreError(err)
	}
	return user, nil
}

func (r *PostgresRepository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE external_id = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, externalID))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (external_id, nickname, email, profile_image)
         VALUES ($1, $2, $3, $4)
		 ON CONFLICT (external_id) DO UPDATE
		 SET nickname = EXCLUDED.nickname, email = EXCLUDED.email, profile_image = EXCLUDED.profile_image
		 RETURNING id, role, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ExternalID, user.Nickname, user.Email, user.ProfileImage).Scan(&user.ID, &user.Role, &user.CreatedAt)

	if err != nil {
		return nil, dbx.StoreError(err)
	}

	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET nickname = $2, email = $3, profile_image = $4
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, user.ID, user.Nickname, user.Email, user.ProfileImage)
	if err != nil {
		return dbx.StoreError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.StoreError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
