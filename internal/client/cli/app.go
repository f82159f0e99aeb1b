// Package cli implements an interactive shell for the nakgo auth service:
// log in with an external credential, then verify, refresh or log out the
// resulting session.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nakgoalgo/nakgo/internal/client/config"
	gs "github.com/nakgoalgo/nakgo/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// AuthClient is the subset of gs.AuthServiceClient used by the shell.
type AuthClient interface {
	Login(ctx context.Context, credential string, opts ...grpc.CallOption) (*structpb.Struct, error)
	Refresh(ctx context.Context, refreshToken string, opts ...grpc.CallOption) (*structpb.Struct, error)
	Verify(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error)
	Logout(ctx context.Context, refreshToken string, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ping(ctx context.Context, opts ...grpc.CallOption) error
}

type App struct {
	config *config.Config
	client AuthClient
	conn   io.Closer
	in     io.Reader
	out    io.Writer

	userName     string
	accessToken  string
	refreshToken string
}

// NewApp dials the configured server. The connection is established
// lazily by gRPC, so an unreachable server is reported by the first call.
func NewApp(c *config.Config) (*App, error) {
	conn, err := grpc.NewClient(c.ServerEndpointAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.ServerEndpointAddr, err)
	}
	return &App{
		config: c,
		client: gs.NewAuthServiceClient(conn),
		conn:   conn,
		in:     os.Stdin,
		out:    os.Stdout,
	}, nil
}

func (a *App) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

func (a *App) isLoggedIn() bool {
	return a.accessToken != ""
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

func (a *App) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config != nil && a.config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, a.config.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
