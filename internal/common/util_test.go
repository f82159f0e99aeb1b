package common

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- MakeRandURLString ----------

func TestMakeRandURLString_LengthAndAlphabet(t *testing.T) {
	const n = 48
	s, err := MakeRandURLString(n)
	require.NoError(t, err)
	assert.Len(t, s, 64)

	raw, err := base64.RawURLEncoding.DecodeString(s)
	require.NoError(t, err, "string is not valid base64url")
	assert.Len(t, raw, n)
}

func TestMakeRandURLString_ZeroSize(t *testing.T) {
	s, err := MakeRandURLString(0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestMakeRandURLString_EntropyHint(t *testing.T) {
	a, err := MakeRandURLString(48)
	require.NoError(t, err)
	b, err := MakeRandURLString(48)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// ---------- HashSHA256Hex ----------

func TestHashSHA256Hex_KnownVector(t *testing.T) {
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		HashSHA256Hex("hello"))
	assert.Len(t, HashSHA256Hex(""), 64)
}

// ---------- errors ----------

func TestUnauthorizedError_MatchesSentinel(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrap: %w", &UnauthorizedError{Reason: ReasonTokenBlocked, Err: cause})

	assert.ErrorIs(t, err, ErrorUnauthorized)
	assert.ErrorIs(t, err, cause)

	var ue *UnauthorizedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ReasonTokenBlocked, ue.Reason)
	assert.Contains(t, err.Error(), "token_blocked")
}

func TestRateLimitError_RetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int64
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{59 * time.Second, 59},
	}
	for _, tt := range tests {
		e := &RateLimitError{RetryAfter: tt.in}
		assert.Equal(t, tt.want, e.RetryAfterSeconds(), "in=%s", tt.in)
		assert.ErrorIs(t, e, ErrRateLimited)
	}
}

func TestDescribe_StableCodes(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{&RateLimitError{RetryAfter: time.Second}, CodeRateLimited},
		{ErrTooManyFailures, CodeLoginBlocked},
		{fmt.Errorf("x: %w", ErrExternalAuthFailed), CodeExternalAuthFailed},
		{ErrUpstreamUnavailable, CodeUpstreamError},
		{ErrInvalidIdentityPayload, CodeIdentityInvalid},
		{ErrInvalidRefreshToken, CodeInvalidRefreshToken},
		{&UnauthorizedError{Reason: ReasonUserNotFound}, CodeUnauthorized},
		{&UnauthorizedError{Reason: ReasonTokenBlocked}, CodeUnauthorized},
		{ErrInvalidToken, CodeUnauthorized},
		{ErrValidation, CodeValidation},
		{fmt.Errorf("%w: %w", ErrStoreUnavailable, errors.New("conn refused")), CodeInternalServerError},
		{errors.New("anything"), CodeInternalServerError},
	}
	for _, tt := range tests {
		code, msg := Describe(tt.err)
		assert.Equal(t, tt.code, code, "err=%v", tt.err)
		assert.NotEmpty(t, msg)
	}
}
