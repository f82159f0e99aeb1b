package grpc

import (
	"context"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/server/models"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Login exchanges an external credential for a token pair and the user
// summary.
func (s *GRPCServer) Login(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	res, err := s.sessions.Login(ctx, req.GetValue(), clientAddress(ctx))
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return s.reply(ctx, map[string]any{
		"token":        res.AccessToken,
		"refreshToken": res.RefreshToken,
		"user":         userFields(&res.User),
	})
}

func (s *GRPCServer) Refresh(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	pair, err := s.sessions.Refresh(ctx, req.GetValue())
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return s.reply(ctx, map[string]any{
		"token":        pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Verify resolves the bearer token of the call.
func (s *GRPCServer) Verify(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	user, err := s.sessions.Verify(ctx, bearerToken(ctx))
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return s.reply(ctx, map[string]any{
		"valid": true,
		"user":  userFields(user),
	})
}

// Logout blocks the bearer token of the call and revokes the refresh
// token in req, if any.
func (s *GRPCServer) Logout(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.sessions.Logout(ctx, bearerToken(ctx), req.GetValue()); err != nil {
		return nil, s.fail(ctx, err)
	}
	return s.reply(ctx, map[string]any{"success": true})
}

func (s *GRPCServer) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) fail(ctx context.Context, err error) error {
	if code, _ := common.Describe(err); code == common.CodeInternalServerError {
		loggerFrom(ctx, s.logger).Error(ctx, "request error", "error", err)
	}
	return toStatus(err)
}

func (s *GRPCServer) reply(ctx context.Context, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return out, nil
}

func userFields(u *models.UserSummary) map[string]any {
	return map[string]any{
		"id":           u.ID,
		"nickname":     u.Nickname,
		"email":        optional(u.Email),
		"profileImage": optional(u.ProfileImage),
		"isAdmin":      u.IsAdmin,
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
