package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/nakgoalgo/nakgo/internal/flagx"
	"github.com/nakgoalgo/nakgo/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Durations accept both "10m" strings and integer nanoseconds. Absent or
// zero-valued fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RateLimitWindow              timex.Duration `json:"rate_limit_window"`
	RateLimitPerWindow           int            `json:"rate_limit_per_window"`
	GuardMaxAddresses            int            `json:"guard_max_addresses"`
	LoginMaxFailures             int            `json:"login_max_failures"`
	LoginLockoutDuration         timex.Duration `json:"login_lockout_duration"`
	SweepInterval                timex.Duration `json:"sweep_interval"`
	IdentityEndpoint             string         `json:"identity_endpoint"`
	IdentityTimeout              timex.Duration `json:"identity_timeout"`
	BlocklistBackend             string         `json:"blocklist_backend"`
	RedisAddr                    string         `json:"redis_addr"`
	MaxRequestBytes              int            `json:"max_request_bytes"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config, if any, into config.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFileFlag(args)
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)
	setInt(&config.RateLimitPerWindow, c.RateLimitPerWindow)
	setInt(&config.GuardMaxAddresses, c.GuardMaxAddresses)
	setInt(&config.LoginMaxFailures, c.LoginMaxFailures)
	setDuration(&config.LoginLockoutDuration, c.LoginLockoutDuration)
	setDuration(&config.SweepInterval, c.SweepInterval)
	setString(&config.IdentityEndpoint, c.IdentityEndpoint)
	setDuration(&config.IdentityTimeout, c.IdentityTimeout)
	setString(&config.BlocklistBackend, c.BlocklistBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setInt(&config.MaxRequestBytes, c.MaxRequestBytes)
	setString(&config.LogLevel, c.LogLevel)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
