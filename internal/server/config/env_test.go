package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestApplyEnv_AllKeys(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	err := applyEnv(c, mapLookup(map[string]string{
		"GRPC_ADDR":                    ":7000",
		"DATABASE_URL":                 "postgres://x",
		"JWT_SECRET_KEY":               " " + testSecret + " ",
		"JWT_EXPIRE_MINUTES":           "15",
		"REFRESH_TOKEN_EXPIRE_DAYS":    "7",
		"GLOBAL_RATE_LIMIT_PER_MINUTE": "30",
		"RATE_LIMIT_WINDOW":            "30s",
		"GUARD_MAX_ADDRESSES":          "500",
		"KAKAO_LOGIN_MAX_ATTEMPTS":     "3",
		"KAKAO_LOGIN_BLOCK_MINUTES":    "2",
		"TOKEN_SWEEP_INTERVAL":         "1m",
		"KAKAO_USER_ENDPOINT":          "http://localhost:9999/me",
		"IDENTITY_TIMEOUT":             "2s",
		"BLOCKLIST_BACKEND":            "redis",
		"REDIS_ADDR":                   "localhost:6379",
		"MAX_REQUEST_SIZE_BYTES":       "1024",
		"LOG_LEVEL":                    "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":7000", c.EndpointAddrGRPC)
	assert.Equal(t, "postgres://x", c.DatabaseDSN)
	assert.Equal(t, testSecret, c.SecretKey)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, 30, c.RateLimitPerWindow)
	assert.Equal(t, 30*time.Second, c.RateLimitWindow)
	assert.Equal(t, 500, c.GuardMaxAddresses)
	assert.Equal(t, 3, c.LoginMaxFailures)
	assert.Equal(t, 2*time.Minute, c.LoginLockoutDuration)
	assert.Equal(t, time.Minute, c.SweepInterval)
	assert.Equal(t, "http://localhost:9999/me", c.IdentityEndpoint)
	assert.Equal(t, 2*time.Second, c.IdentityTimeout)
	assert.Equal(t, "redis", c.BlocklistBackend)
	assert.Equal(t, "localhost:6379", c.RedisAddr)
	assert.Equal(t, 1024, c.MaxRequestBytes)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestApplyEnv_EmptyLeavesDefaults(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	require.NoError(t, applyEnv(c, mapLookup(map[string]string{"GRPC_ADDR": "  ", "JWT_EXPIRE_MINUTES": ""})))
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, 60*time.Minute, c.AccessTokenValidityDuration)
}

func TestApplyEnv_BadNumbers(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	err := applyEnv(c, mapLookup(map[string]string{
		"JWT_EXPIRE_MINUTES": "sixty",
		"RATE_LIMIT_WINDOW":  "minute",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_EXPIRE_MINUTES")
	assert.Contains(t, err.Error(), "RATE_LIMIT_WINDOW")
}

func TestParseEnv_ReadsDotenvFileAndProcessWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"JWT_SECRET_KEY="+testSecret+"\nKAKAO_LOGIN_MAX_ATTEMPTS=5\nLOG_LEVEL=warn\n"), 0o600))
	t.Setenv("LOG_LEVEL", "error")

	c := &Config{}
	c.LoadDefaults()
	require.NoError(t, parseEnv(c, []string{"-env", path}))

	assert.Equal(t, testSecret, c.SecretKey)
	assert.Equal(t, 5, c.LoginMaxFailures)
	assert.Equal(t, "error", c.LogLevel)
}

func TestParseEnv_MissingFileIsFine(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()
	require.NoError(t, parseEnv(c, []string{"-env", filepath.Join(t.TempDir(), "nope.env")}))
}
