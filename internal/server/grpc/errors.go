package grpc

import (
	"errors"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/durationpb"
)

// ErrorDomain is the ErrorInfo domain attached to every failed call.
const ErrorDomain = "nakgo"

var grpcCodes = map[string]codes.Code{
	common.CodeRateLimited:         codes.ResourceExhausted,
	common.CodeLoginBlocked:        codes.PermissionDenied,
	common.CodeExternalAuthFailed:  codes.Unauthenticated,
	common.CodeUpstreamError:       codes.Unavailable,
	common.CodeIdentityInvalid:     codes.InvalidArgument,
	common.CodeInvalidRefreshToken: codes.Unauthenticated,
	common.CodeUnauthorized:        codes.Unauthenticated,
	common.CodeValidation:          codes.InvalidArgument,
	common.CodeInternalServerError: codes.Internal,
}

// toStatus converts a service error into a gRPC status error. The public
// code goes into ErrorInfo.Reason; rate limiting adds a RetryInfo.
func toStatus(err error) error {
	code, msg := common.Describe(err)

	grpcCode, ok := grpcCodes[code]
	if !ok {
		grpcCode = codes.Internal
	}
	st := status.New(grpcCode, msg)

	details := []protoadapt.MessageV1{&errdetails.ErrorInfo{Reason: code, Domain: ErrorDomain}}
	var rl *common.RateLimitError
	if errors.As(err, &rl) {
		details = append(details, &errdetails.RetryInfo{
			RetryDelay: durationpb.New(time.Duration(rl.RetryAfterSeconds()) * time.Second),
		})
	}
	if withDetails, derr := st.WithDetails(details...); derr == nil {
		st = withDetails
	}
	return st.Err()
}

// ErrorReason returns the public code carried by a status error, or "" if
// there is none.
func ErrorReason(err error) string {
	for _, d := range status.Convert(err).Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}

// RetryDelay returns the RetryInfo hint of a status error, or 0.
func RetryDelay(err error) time.Duration {
	for _, d := range status.Convert(err).Details() {
		if info, ok := d.(*errdetails.RetryInfo); ok {
			return info.GetRetryDelay().AsDuration()
		}
	}
	return 0
}
