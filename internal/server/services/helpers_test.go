package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/server/auth"
	"github.com/nakgoalgo/nakgo/internal/server/guard"
	"github.com/nakgoalgo/nakgo/internal/server/identity"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/blocklist"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/repomanager"
	"github.com/nakgoalgo/nakgo/internal/timex"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

type fakeProvider struct {
	mu    sync.Mutex
	id    *identity.Identity
	err   error
	calls int
}

func (f *fakeProvider) FetchIdentity(_ context.Context, _ string) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.id
	return &cp, nil
}

func (f *fakeProvider) set(id *identity.Identity, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id, f.err = id, err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingPurgeBlocklist behaves like the in-memory blocklist except that
// purging always fails.
type failingPurgeBlocklist struct {
	*blocklist.MemoryRepository
}

func (failingPurgeBlocklist) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.Join(common.ErrStoreUnavailable, errors.New("purge failed"))
}

type testEnv struct {
	clock    *timex.FakeClock
	rm       *repomanager.InMemoryRepositoryManager
	guard    *guard.LoginGuard
	provider *fakeProvider
	codec    *auth.Codec
	svc      *SessionService
}

type envOption func(*SessionDeps)

func newTestEnv(t *testing.T, bl blocklist.Repository, opts ...envOption) *testEnv {
	t.Helper()

	clock := timex.NewFakeClock(epoch)
	rm := repomanager.NewInMemoryRepositoryManager(bl)

	codec, err := auth.NewCodec(testSecret, 60*time.Minute, clock.Now)
	require.NoError(t, err)

	lg, err := guard.NewLoginGuard(guard.DefaultMaxFailures, guard.DefaultLockoutDuration, 0)
	require.NoError(t, err)

	provider := &fakeProvider{id: &identity.Identity{
		ExternalID: "3141592653",
		Nickname:   strPtr("angler"),
		Email:      strPtr("angler@example.com"),
	}}

	deps := SessionDeps{
		Runner:        rm.Runner(),
		Codec:         codec,
		Users:         NewUserService(rm),
		RefreshTokens: NewRefreshTokenService(rm, 30*24*time.Hour, clock.Now),
		Blocklist:     NewBlocklistService(rm),
		Guard:         lg,
		Provider:      provider,
		Now:           clock.Now,
	}
	for _, o := range opts {
		o(&deps)
	}

	return &testEnv{
		clock:    clock,
		rm:       rm,
		guard:    lg,
		provider: provider,
		codec:    codec,
		svc:      NewSessionService(deps),
	}
}
