package grpc

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/logging"
	"github.com/nakgoalgo/nakgo/internal/server/auth"
	"github.com/nakgoalgo/nakgo/internal/server/guard"
	"github.com/nakgoalgo/nakgo/internal/server/identity"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/repomanager"
	"github.com/nakgoalgo/nakgo/internal/server/services"
	"github.com/nakgoalgo/nakgo/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type stubProvider struct {
	mu  sync.Mutex
	err error
}

func (p *stubProvider) FetchIdentity(_ context.Context, credential string) (*identity.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	nickname := "angler"
	return &identity.Identity{ExternalID: "kakao-" + credential, Nickname: &nickname}, nil
}

func (p *stubProvider) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func newSessions(t *testing.T, clock *timex.FakeClock, provider services.IdentityProvider) *services.SessionService {
	t.Helper()

	rm := repomanager.NewInMemoryRepositoryManager(nil)
	codec, err := auth.NewCodec(testSecret, time.Hour, clock.Now)
	require.NoError(t, err)
	lg, err := guard.NewLoginGuard(guard.DefaultMaxFailures, guard.DefaultLockoutDuration, 0)
	require.NoError(t, err)

	return services.NewSessionService(services.SessionDeps{
		Runner:        rm.Runner(),
		Codec:         codec,
		Users:         services.NewUserService(rm),
		RefreshTokens: services.NewRefreshTokenService(rm, 30*24*time.Hour, clock.Now),
		Blocklist:     services.NewBlocklistService(rm),
		Guard:         lg,
		Provider:      provider,
		Now:           clock.Now,
	})
}

// startServer serves sessions over an in-memory listener and returns a
// client connected to it.
func startServer(t *testing.T, sessions Sessions, limiter RateLimiter, clock timex.Clock, opts ...ServerOption) *AuthServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv, err := NewGRPCServer("bufnet", logging.Nop{}, sessions, limiter, clock, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})
	return NewAuthServiceClient(conn)
}

func fromAddress(address string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), forwardedForHeader, address)
}

func TestServer_Ping(t *testing.T) {
	client := startServer(t, &fakeSessions{}, nil, nil)

	var header metadata.MD
	err := client.Ping(context.Background(), grpc.Header(&header))
	require.NoError(t, err)
	assert.NotEmpty(t, header.Get(requestIDHeader), "request id is echoed")
}

func TestServer_RequestIDIsPropagated(t *testing.T) {
	client := startServer(t, &fakeSessions{}, nil, nil)

	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDHeader, "req-1")
	var header metadata.MD
	require.NoError(t, client.Ping(ctx, grpc.Header(&header)))
	assert.Equal(t, []string{"req-1"}, header.Get(requestIDHeader))
}

func TestServer_OversizedRequestIsRejected(t *testing.T) {
	clock := timex.NewFakeClock(epoch)
	provider := &stubProvider{}
	client := startServer(t, newSessions(t, clock, provider), nil, clock.Now, WithMaxRequestBytes(256))
	ctx := context.Background()

	_, err := client.Login(ctx, "cred")
	require.NoError(t, err)

	_, err = client.Login(ctx, strings.Repeat("x", 1024))
	require.Error(t, err)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestServer_SessionLifecycle(t *testing.T) {
	clock := timex.NewFakeClock(epoch)
	client := startServer(t, newSessions(t, clock, &stubProvider{}), nil, clock.Now)
	ctx := context.Background()

	login, err := client.Login(ctx, "cred")
	require.NoError(t, err)
	fields := login.GetFields()
	token := fields["token"].GetStringValue()
	refresh := fields["refreshToken"].GetStringValue()
	require.NotEmpty(t, token)
	require.NotEmpty(t, refresh)
	user := fields["user"].GetStructValue().GetFields()
	assert.Equal(t, float64(1), user["id"].GetNumberValue())
	assert.Equal(t, "angler", user["nickname"].GetStringValue())
	assert.False(t, user["isAdmin"].GetBoolValue())

	verified, err := client.Verify(WithAccessToken(ctx, token))
	require.NoError(t, err)
	assert.True(t, verified.GetFields()["valid"].GetBoolValue())
	assert.Equal(t, "angler", verified.GetFields()["user"].GetStructValue().GetFields()["nickname"].GetStringValue())

	rotated, err := client.Refresh(ctx, refresh)
	require.NoError(t, err)
	newToken := rotated.GetFields()["token"].GetStringValue()
	newRefresh := rotated.GetFields()["refreshToken"].GetStringValue()
	require.NotEmpty(t, newToken)

	_, err = client.Refresh(ctx, refresh)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.CodeInvalidRefreshToken, ErrorReason(err))

	out, err := client.Logout(WithAccessToken(ctx, newToken), newRefresh)
	require.NoError(t, err)
	assert.True(t, out.GetFields()["success"].GetBoolValue())

	_, err = client.Verify(WithAccessToken(ctx, newToken))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.CodeUnauthorized, ErrorReason(err))

	_, err = client.Refresh(ctx, newRefresh)
	assert.Equal(t, common.CodeInvalidRefreshToken, ErrorReason(err))

	_, err = client.Verify(WithAccessToken(ctx, token))
	require.NoError(t, err, "tokens of other sessions stay valid")
}

func TestServer_VerifyWithoutToken(t *testing.T) {
	clock := timex.NewFakeClock(epoch)
	client := startServer(t, newSessions(t, clock, &stubProvider{}), nil, clock.Now)

	_, err := client.Verify(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.CodeUnauthorized, ErrorReason(err))
}

func TestServer_LoginLockout(t *testing.T) {
	clock := timex.NewFakeClock(epoch)
	provider := &stubProvider{}
	client := startServer(t, newSessions(t, clock, provider), nil, clock.Now)
	ctx := fromAddress("1.2.3.4, 10.0.0.1")

	provider.fail(common.ErrExternalAuthFailed)
	for i := 0; i < guard.DefaultMaxFailures; i++ {
		_, err := client.Login(ctx, "bad")
		require.Equal(t, codes.Unauthenticated, status.Code(err))
		require.Equal(t, common.CodeExternalAuthFailed, ErrorReason(err))
	}

	provider.fail(nil)
	_, err := client.Login(ctx, "good")
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, common.CodeLoginBlocked, ErrorReason(err))

	_, err = client.Login(fromAddress("5.6.7.8"), "good")
	require.NoError(t, err)

	clock.Advance(guard.DefaultLockoutDuration)
	_, err = client.Login(ctx, "good")
	assert.NoError(t, err)
}

func TestServer_RateLimit(t *testing.T) {
	clock := timex.NewFakeClock(epoch)
	limiter, err := guard.NewRateGuard(time.Minute, 2, 0)
	require.NoError(t, err)
	client := startServer(t, &fakeSessions{}, limiter, clock.Now)
	ctx := fromAddress("1.2.3.4")

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.Ping(ctx))

	var header metadata.MD
	err = client.Ping(ctx, grpc.Header(&header))
	require.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, common.CodeRateLimited, ErrorReason(err))
	assert.Equal(t, time.Minute, RetryDelay(err))
	assert.Equal(t, []string{"60"}, header.Get(retryAfterHeader))

	require.NoError(t, client.Ping(fromAddress("5.6.7.8")), "other addresses have their own budget")

	clock.Advance(time.Minute)
	assert.NoError(t, client.Ping(ctx))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv, err := NewGRPCServer("127.0.0.1:0", logging.Nop{}, &fakeSessions{}, nil, nil)
	if err != nil {
		t.Fatalf("NewGRPCServer error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv, err := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, &fakeSessions{}, nil, nil)
	if err != nil {
		t.Fatalf("NewGRPCServer error (constructor should not fail here): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
