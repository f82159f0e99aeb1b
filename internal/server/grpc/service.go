package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "nakgo.auth.v1.AuthService"

const (
	LoginMethod   = "/" + ServiceName + "/Login"
	RefreshMethod = "/" + ServiceName + "/Refresh"
	VerifyMethod  = "/" + ServiceName + "/Verify"
	LogoutMethod  = "/" + ServiceName + "/Logout"
	PingMethod    = "/" + ServiceName + "/Ping"
)

// AuthServiceServer is the server API of the auth service. Messages are
// protobuf well-known types so no generated code is needed.
type AuthServiceServer interface {
	Login(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Refresh(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Verify(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Logout(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// RegisterAuthServiceServer registers srv on s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

// AuthServiceDesc describes the auth service for grpc.Server.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: stringHandler(LoginMethod, AuthServiceServer.Login)},
		{MethodName: "Refresh", Handler: stringHandler(RefreshMethod, AuthServiceServer.Refresh)},
		{MethodName: "Verify", Handler: emptyHandler(VerifyMethod, AuthServiceServer.Verify)},
		{MethodName: "Logout", Handler: stringHandler(LogoutMethod, AuthServiceServer.Logout)},
		{MethodName: "Ping", Handler: emptyHandler(PingMethod, AuthServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "nakgo/auth/v1/auth.proto",
}

func stringHandler[R any](method string, call func(AuthServiceServer, context.Context, *wrapperspb.StringValue) (R, error)) grpc.MethodHandler {
	return unaryHandler(method, func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }, call)
}

func emptyHandler[R any](method string, call func(AuthServiceServer, context.Context, *emptypb.Empty) (R, error)) grpc.MethodHandler {
	return unaryHandler(method, func() *emptypb.Empty { return new(emptypb.Empty) }, call)
}

func unaryHandler[Q, R any](method string, newReq func() Q, call func(AuthServiceServer, context.Context, Q) (R, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(Q))
		}
		return interceptor(ctx, in, info, handler)
	}
}
