package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nakgoalgo/nakgo/internal/flagx"
)

// parseEnv overlays values from the process environment and from the
// dotenv file selected with -env (default ".env"). Process variables win
// over the file; the process environment itself is never modified.
//
// Recognised variables:
//
//	GRPC_ADDR, DATABASE_URL, JWT_SECRET_KEY, JWT_EXPIRE_MINUTES,
//	REFRESH_TOKEN_EXPIRE_DAYS, GLOBAL_RATE_LIMIT_PER_MINUTE,
//	RATE_LIMIT_WINDOW, GUARD_MAX_ADDRESSES, KAKAO_LOGIN_MAX_ATTEMPTS,
//	KAKAO_LOGIN_BLOCK_MINUTES, TOKEN_SWEEP_INTERVAL, KAKAO_USER_ENDPOINT,
//	IDENTITY_TIMEOUT, BLOCKLIST_BACKEND, REDIS_ADDR, MAX_REQUEST_SIZE_BYTES,
//	LOG_LEVEL
func parseEnv(cfg *Config, args []string) error {
	fileValues, err := godotenv.Read(flagx.EnvFileFlag(args))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileValues[key]
		return v, ok
	}

	return applyEnv(cfg, lookup)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	units := func(key string, unit time.Duration, dst *time.Duration) error {
		n := -1
		if err := num(key, &n); err != nil || n < 0 {
			return err
		}
		*dst = time.Duration(n) * unit
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("GRPC_ADDR", &cfg.EndpointAddrGRPC)
	str("DATABASE_URL", &cfg.DatabaseDSN)
	str("JWT_SECRET_KEY", &cfg.SecretKey)
	str("KAKAO_USER_ENDPOINT", &cfg.IdentityEndpoint)
	str("BLOCKLIST_BACKEND", &cfg.BlocklistBackend)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("LOG_LEVEL", &cfg.LogLevel)

	return errors.Join(
		units("JWT_EXPIRE_MINUTES", time.Minute, &cfg.AccessTokenValidityDuration),
		units("REFRESH_TOKEN_EXPIRE_DAYS", 24*time.Hour, &cfg.RefreshTokenValidityDuration),
		num("GLOBAL_RATE_LIMIT_PER_MINUTE", &cfg.RateLimitPerWindow),
		dur("RATE_LIMIT_WINDOW", &cfg.RateLimitWindow),
		num("GUARD_MAX_ADDRESSES", &cfg.GuardMaxAddresses),
		num("KAKAO_LOGIN_MAX_ATTEMPTS", &cfg.LoginMaxFailures),
		units("KAKAO_LOGIN_BLOCK_MINUTES", time.Minute, &cfg.LoginLockoutDuration),
		dur("TOKEN_SWEEP_INTERVAL", &cfg.SweepInterval),
		dur("IDENTITY_TIMEOUT", &cfg.IdentityTimeout),
		num("MAX_REQUEST_SIZE_BYTES", &cfg.MaxRequestBytes),
	)
}
