package grpc

import (
	"context"
	"net"
	"strings"

	"github.com/nakgoalgo/nakgo/internal/common"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

const (
	authorizationHeader = common.AuthorizationHeaderName
	forwardedForHeader  = common.ForwardedForHeaderName
	retryAfterHeader    = common.RetryAfterHeaderName
	requestIDHeader     = "x-request-id"

	bearerPrefix   = "Bearer "
	unknownAddress = common.UnknownClientAddress
)

// WithAccessToken returns a context that sends token as a bearer
// credential on outgoing calls.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, authorizationHeader, bearerPrefix+token)
}

func firstIncoming(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// clientAddress identifies the caller for the guards: the first
// x-forwarded-for entry, else the transport peer host, else "unknown".
func clientAddress(ctx context.Context) string {
	if fwd := firstIncoming(ctx, forwardedForHeader); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return unknownAddress
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		return unknownAddress
	}
	return addr
}

// bearerToken extracts the access token from the authorization metadata.
// The scheme is matched case-insensitively.
func bearerToken(ctx context.Context) string {
	v := strings.TrimSpace(firstIncoming(ctx, authorizationHeader))
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
