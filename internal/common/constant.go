// Package common contains shared constants and sentinel errors used across
// the nakgo server components.
package common

// AuthorizationHeaderName is the gRPC metadata key carrying the bearer
// access token.
const AuthorizationHeaderName = "authorization"

// ForwardedForHeaderName is the metadata key set by proxies in front of the
// server. Only its first entry is trusted as the client address.
const ForwardedForHeaderName = "x-forwarded-for"

// UnknownClientAddress is the shared bucket used when no address can be
// resolved for a caller.
const UnknownClientAddress = "unknown"

// RetryAfterHeaderName is set on rate limited responses.
const RetryAfterHeaderName = "retry-after"
