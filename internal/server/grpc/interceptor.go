package grpc

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// loggerFrom returns the request-scoped logger stored by the logging
// interceptor, or fallback.
func loggerFrom(ctx context.Context, fallback logging.Logger) logging.Logger {
	if l, ok := ctx.Value(loggerKey).(logging.Logger); ok {
		return l
	}
	return fallback
}

// loggingInterceptor tags every call with a request id (taken from
// x-request-id or generated) and logs its outcome.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	requestID := firstIncoming(ctx, requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, requestID))

	l := s.logger.With("request_id", requestID, "method", info.FullMethod)
	ctx = context.WithValue(ctx, loggerKey, l)

	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		l.Info(ctx, "request failed", "code", status.Code(err).String(), "duration", elapsed)
		return resp, err
	}
	l.Info(ctx, "request served", "duration", elapsed)
	return resp, nil
}

// rateLimitInterceptor applies the global per-address rate guard before
// any handler runs.
func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.limiter == nil {
		return handler(ctx, req)
	}

	address := clientAddress(ctx)
	decision := s.limiter.Admit(address, s.now())
	if decision.Allowed {
		return handler(ctx, req)
	}

	rl := &common.RateLimitError{RetryAfter: decision.RetryAfter}
	_ = grpc.SetHeader(ctx, metadata.Pairs(retryAfterHeader, strconv.FormatInt(rl.RetryAfterSeconds(), 10)))
	loggerFrom(ctx, s.logger).Warn(ctx, "rate limited", "client_ip", address, "retry_after", rl.RetryAfterSeconds())
	return nil, toStatus(rl)
}
