package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/dbx"
	"github.com/nakgoalgo/nakgo/internal/server/identity"
	"github.com/nakgoalgo/nakgo/internal/server/models"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/repomanager"
)

// nicknamePrefix and nicknameSuffixLen build the fallback nickname for
// identities without one, e.g. "kakao_653589".
const (
	nicknamePrefix    = "kakao_"
	nicknameSuffixLen = 6
)

// UserService links external identities to local users.
type UserService struct {
	repomanager repomanager.RepositoryManager
}

func NewUserService(m repomanager.RepositoryManager) *UserService {
	return &UserService{repomanager: m}
}

// UpsertExternal finds the user for id.ExternalID and refreshes its profile,
// or creates it. The create is a single upsert statement, so a concurrent
// first login of the same account resolves to one row without a failed
// statement inside tx.
func (s *UserService) UpsertExternal(ctx context.Context, db dbx.DBTX, id *identity.Identity) (*models.User, error) {
	repo := s.repomanager.Users(db)

	nickname := fallbackNickname(id.ExternalID)
	if id.Nickname != nil && *id.Nickname != "" {
		nickname = *id.Nickname
	}

	user, err := repo.FindByExternalID(ctx, id.ExternalID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if user == nil {
		user, err = repo.Upsert(ctx, &models.User{
			ExternalID:   id.ExternalID,
			Nickname:     nickname,
			Email:        id.Email,
			ProfileImage: id.ProfileImage,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating user: %w", err)
		}
		return user, nil
	}

	user.Nickname = nickname
	user.Email = id.Email
	user.ProfileImage = id.ProfileImage
	if err := repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return user, nil
}

// Get returns the user with the given id or common.ErrorNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.repomanager.Runner().Conn()).FindByID(ctx, id)
}

func fallbackNickname(externalID string) string {
	suffix := externalID
	if len(suffix) > nicknameSuffixLen {
		suffix = suffix[len(suffix)-nicknameSuffixLen:]
	}
	return nicknamePrefix + suffix
}
