// Package server wires configuration, storage, guards and the session
// service together and runs the gRPC endpoint until the process is
// signalled to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nakgoalgo/nakgo/internal/logging"
	"github.com/nakgoalgo/nakgo/internal/server/auth"
	"github.com/nakgoalgo/nakgo/internal/server/config"
	gs "github.com/nakgoalgo/nakgo/internal/server/grpc"
	"github.com/nakgoalgo/nakgo/internal/server/guard"
	"github.com/nakgoalgo/nakgo/internal/server/identity"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/blocklist"
	"github.com/nakgoalgo/nakgo/internal/server/repositories/repomanager"
	"github.com/nakgoalgo/nakgo/internal/server/services"
	"github.com/nakgoalgo/nakgo/internal/timex"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	repos     repomanager.RepositoryManager
	closers   []func() error
	sessions  *services.SessionService
	rateGuard *guard.RateGuard
}

// NewApp builds every component from c. Storage is opened and migrated
// here so a misconfigured server fails before it starts listening.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}

	if err := app.openRepositories(ctx); err != nil {
		return nil, err
	}
	if err := app.repos.RunMigrations(ctx); err != nil {
		_ = app.close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	if err := app.buildServices(); err != nil {
		_ = app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) openRepositories(ctx context.Context) error {
	c := app.config

	var (
		redisClient *redis.Client
		redisBL     *blocklist.RedisRepository
	)
	if c.BlocklistBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return fmt.Errorf("redis init error: %w", err)
		}
		redisBL = blocklist.NewRedisRepository(redisClient, timex.SystemClock)
	}

	if c.DatabaseDSN == repomanager.MemoryDSN {
		app.logger.Warn(ctx, "using in-memory storage, data is lost on restart")
		if redisBL != nil {
			app.repos = repomanager.NewInMemoryRepositoryManager(redisBL)
			app.closers = append(app.closers, redisClient.Close)
		} else {
			app.repos = repomanager.NewInMemoryRepositoryManager(nil)
		}
		return nil
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return fmt.Errorf("db init error: %w", err)
	}

	var opts []repomanager.Option
	if redisBL != nil {
		opts = append(opts, repomanager.WithRedisBlocklist(redisClient, redisBL))
	}
	app.repos = repomanager.NewPostgresRepositoryManager(db, opts...)
	return nil
}

func (app *App) buildServices() error {
	c := app.config

	codec, err := auth.NewCodec(c.SecretKey, c.AccessTokenValidityDuration, timex.SystemClock)
	if err != nil {
		return fmt.Errorf("token codec init error: %w", err)
	}

	loginGuard, err := guard.NewLoginGuard(c.LoginMaxFailures, c.LoginLockoutDuration, c.GuardMaxAddresses)
	if err != nil {
		return fmt.Errorf("login guard init error: %w", err)
	}
	app.rateGuard, err = guard.NewRateGuard(c.RateLimitWindow, c.RateLimitPerWindow, c.GuardMaxAddresses)
	if err != nil {
		return fmt.Errorf("rate guard init error: %w", err)
	}

	app.sessions = services.NewSessionService(services.SessionDeps{
		Runner:        app.repos.Runner(),
		Codec:         codec,
		Users:         services.NewUserService(app.repos),
		RefreshTokens: services.NewRefreshTokenService(app.repos, c.RefreshTokenValidityDuration, timex.SystemClock),
		Blocklist:     services.NewBlocklistService(app.repos),
		Guard:         loginGuard,
		Provider:      identity.NewKakaoClient(c.IdentityEndpoint, c.IdentityTimeout, nil),
		Logger:        app.logger.With("module", "sessions"),
		SweepInterval: c.SweepInterval,
		Now:           timex.SystemClock,
	})
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run purges expired tokens once and serves gRPC until ctx is done or a
// stop signal arrives. Storage is closed on return.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if err := app.sessions.Sweep(ctx); err != nil {
		app.logger.Error(ctx, "initial token sweep failed", "error", err)
	}

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.rateGuard, timex.SystemClock,
		gs.WithMaxRequestBytes(app.config.MaxRequestBytes))
	if err == nil {
		err = s.Run(ctx)
	}
	if err != nil {
		app.logger.Error(ctx, err.Error())
	}

	if cerr := app.close(); cerr != nil {
		app.logger.Error(ctx, "close storage", "error", cerr)
		err = errors.Join(err, cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) close() error {
	var errs []error
	if app.repos != nil {
		errs = append(errs, app.repos.Close())
	}
	for _, fn := range app.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
