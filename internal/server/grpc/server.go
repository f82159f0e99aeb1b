// Package grpc exposes the session core as the nakgo.auth.v1.AuthService
// gRPC service.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/nakgoalgo/nakgo/internal/logging"
	"github.com/nakgoalgo/nakgo/internal/server/guard"
	"github.com/nakgoalgo/nakgo/internal/server/models"
	"github.com/nakgoalgo/nakgo/internal/server/services"
	"github.com/nakgoalgo/nakgo/internal/timex"
	"google.golang.org/grpc"
)

// Sessions is the part of services.SessionService the transport needs.
type Sessions interface {
	Login(ctx context.Context, credential, address string) (*services.LoginResult, error)
	Refresh(ctx context.Context, raw string) (*services.TokenPair, error)
	Verify(ctx context.Context, token string) (*models.UserSummary, error)
	Logout(ctx context.Context, token, raw string) error
}

// RateLimiter admits or rejects a call from address.
type RateLimiter interface {
	Admit(address string, now time.Time) guard.Decision
}

type GRPCServer struct {
	address         string
	sessions        Sessions
	limiter         RateLimiter
	logger          logging.Logger
	now             timex.Clock
	maxRequestBytes int
}

// ServerOption configures a GRPCServer.
type ServerOption func(*GRPCServer)

// WithMaxRequestBytes rejects request messages larger than n bytes with
// codes.ResourceExhausted before any handler runs. n <= 0 keeps the grpc
// default of 4 MiB.
func WithMaxRequestBytes(n int) ServerOption {
	return func(s *GRPCServer) {
		s.maxRequestBytes = n
	}
}

var _ AuthServiceServer = (*GRPCServer)(nil)

// NewGRPCServer builds the server. A nil limiter disables rate limiting and
// a nil clock means the wall clock.
func NewGRPCServer(address string, l logging.Logger, sessions Sessions, limiter RateLimiter, now timex.Clock, opts ...ServerOption) (*GRPCServer, error) {
	if now == nil {
		now = timex.SystemClock
	}
	s := &GRPCServer{
		address:  address,
		sessions: sessions,
		limiter:  limiter,
		logger:   l.With("module", "grpc_server"),
		now:      now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.rateLimitInterceptor)}
	if s.maxRequestBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(s.maxRequestBytes))
	}
	srv := grpc.NewServer(opts...)
	RegisterAuthServiceServer(srv, s)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
