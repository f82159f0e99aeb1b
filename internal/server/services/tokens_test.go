package services

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/repomanager"
	"github.com/nakgoalgo/nakgo/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRefreshTokenService(t *testing.T) (*RefreshTokenService, *repomanager.InMemoryRepositoryManager, *timex.FakeClock) {
	t.Helper()
	clock := timex.NewFakeClock(epoch)
	rm := repomanager.NewInMemoryRepositoryManager(nil)
	return NewRefreshTokenService(rm, 30*24*time.Hour, clock.Now), rm, clock
}

func TestRefreshTokenService_IssueStoresOnlyHash(t *testing.T) {
	s, rm, _ := newRefreshTokenService(t)
	ctx := context.Background()

	raw, err := s.Issue(ctx, nil, 42)
	require.NoError(t, err)

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Len(t, decoded, RefreshTokenBytes)

	repo := rm.RefreshTokenStore()
	_, err = repo.Rotate(ctx, raw, epoch)
	assert.ErrorIs(t, err, common.ErrorNotFound, "raw secret must not be a key")

	row, err := repo.Rotate(ctx, common.HashSHA256Hex(raw), epoch)
	require.NoError(t, err)
	assert.Equal(t, int64(42), row.UserID)
	assert.True(t, row.ExpiresAt.Equal(epoch.Add(30*24*time.Hour)))
}

func TestRefreshTokenService_RotateIsSingleUse(t *testing.T) {
	s, _, _ := newRefreshTokenService(t)
	ctx := context.Background()

	raw, err := s.Issue(ctx, nil, 7)
	require.NoError(t, err)

	row, err := s.Rotate(ctx, nil, raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), row.UserID)

	for i := 0; i < 3; i++ {
		_, err = s.Rotate(ctx, nil, raw)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	}

	_, err = s.Rotate(ctx, nil, "")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRefreshTokenService_RotateConcurrent(t *testing.T) {
	s, _, _ := newRefreshTokenService(t)
	ctx := context.Background()

	raw, err := s.Issue(ctx, nil, 7)
	require.NoError(t, err)

	const n = 20
	var ok, notFound atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Rotate(ctx, nil, raw)
			if err == nil {
				ok.Add(1)
			} else if errors.Is(err, common.ErrorNotFound) {
				notFound.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), notFound.Load())
}

func TestRefreshTokenService_Expiry(t *testing.T) {
	s, _, clock := newRefreshTokenService(t)
	ctx := context.Background()

	raw, err := s.Issue(ctx, nil, 7)
	require.NoError(t, err)

	clock.Advance(30*24*time.Hour + time.Second)
	_, err = s.Rotate(ctx, nil, raw)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	n, err := s.PurgeExpired(ctx, nil, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRefreshTokenService_RevokeIdempotent(t *testing.T) {
	s, _, _ := newRefreshTokenService(t)
	ctx := context.Background()

	raw, err := s.Issue(ctx, nil, 7)
	require.NoError(t, err)

	first, err := s.Revoke(ctx, nil, raw)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.Revoke(ctx, nil, raw)
	require.NoError(t, err)
	assert.False(t, second)

	_, err = s.Rotate(ctx, nil, raw)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	empty, err := s.Revoke(ctx, nil, "")
	require.NoError(t, err)
	assert.False(t, empty)
}
