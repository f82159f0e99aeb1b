package config

import (
	"flag"
	"time"

	"github.com/nakgoalgo/nakgo/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-l int      requests allowed per address per rate window
//	-f int      failed logins before lockout
//	-k int      login lockout, minutes
//	-b string   blocklist backend (postgres|redis)
//	-R string   Redis address for the redis blocklist backend
//	-m int      largest accepted request message, bytes
//	-v string   log level
//
// Arguments are filtered with flagx.FilterArgs first so flags owned by
// other loaders (-c, -env) do not break parsing.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-r", "-l", "-f", "-k", "-b", "-R", "-m", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.IntVar(&config.RateLimitPerWindow, "l", config.RateLimitPerWindow, "requests per address per rate window")
	fs.IntVar(&config.LoginMaxFailures, "f", config.LoginMaxFailures, "failed logins before lockout")
	lockout := fs.Int("k", int(config.LoginLockoutDuration.Minutes()), "login lockout (in minutes)")

	fs.StringVar(&config.BlocklistBackend, "b", config.BlocklistBackend, "blocklist backend: postgres or redis")
	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "redis address")
	fs.IntVar(&config.MaxRequestBytes, "m", config.MaxRequestBytes, "max request message size (in bytes)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Minute flags only override when given, so sub-minute values loaded
	// earlier are not truncated.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		case "k":
			config.LoginLockoutDuration = time.Duration(*lockout) * time.Minute
		}
	})
	return nil
}
