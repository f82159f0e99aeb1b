// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrStoreUnavailable marks failures of the persistent store. It is
	// never reported as an authentication failure.
	ErrStoreUnavailable = errors.New("db error")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrValidation     = errors.New("validation error")

	// Token errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	// Guard errors.
	ErrRateLimited     = errors.New("rate limited")
	ErrTooManyFailures = errors.New("too many login failures")

	// External login errors.
	ErrExternalAuthFailed     = errors.New("external authentication failed")
	ErrUpstreamUnavailable    = errors.New("identity provider unavailable")
	ErrInvalidIdentityPayload = errors.New("invalid identity payload")
)

// UnauthorizedReason is the internal sub-reason of a verify failure. It is
// logged but never returned to callers.
type UnauthorizedReason string

const (
	ReasonInvalidToken UnauthorizedReason = "invalid_token"
	ReasonTokenBlocked UnauthorizedReason = "token_blocked"
	ReasonUserNotFound UnauthorizedReason = "user_not_found"
)

// UnauthorizedError is returned by the verify and logout paths. It matches
// ErrorUnauthorized with errors.Is regardless of Reason.
type UnauthorizedError struct {
	Reason UnauthorizedReason
	Err    error
}

func (e *UnauthorizedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unauthorized (%s)", e.Reason)
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrorUnauthorized }

func (e *UnauthorizedError) Unwrap() error { return e.Err }

// RateLimitError carries the hint after which the caller may retry.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfterSeconds returns the hint rounded up to whole seconds, at least 1.
func (e *RateLimitError) RetryAfterSeconds() int64 {
	secs := int64(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Stable machine-readable codes exposed to clients.
const (
	CodeRateLimited         = "RATE_LIMITED"
	CodeLoginBlocked        = "LOGIN_BLOCKED"
	CodeExternalAuthFailed  = "EXTERNAL_AUTH_FAILED"
	CodeUpstreamError       = "EXTERNAL_UPSTREAM_ERROR"
	CodeIdentityInvalid     = "EXTERNAL_USER_INFO_INVALID"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// Describe maps err to its public code and message. Composite errors
// (verify, refresh) collapse to a single code on purpose.
func Describe(err error) (code string, message string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited, "too many requests, try again later"
	case errors.Is(err, ErrTooManyFailures):
		return CodeLoginBlocked, "too many login attempts, try again later"
	case errors.Is(err, ErrExternalAuthFailed):
		return CodeExternalAuthFailed, "external credential is not valid"
	case errors.Is(err, ErrUpstreamUnavailable):
		return CodeUpstreamError, "could not reach the identity provider"
	case errors.Is(err, ErrInvalidIdentityPayload):
		return CodeIdentityInvalid, "could not read user information from the identity provider"
	case errors.Is(err, ErrInvalidRefreshToken):
		return CodeInvalidRefreshToken, "refresh token is invalid or expired"
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrInvalidToken):
		return CodeUnauthorized, "authentication required"
	case errors.Is(err, ErrValidation):
		return CodeValidation, "invalid request"
	default:
		return CodeInternalServerError, "internal server error"
	}
}
