package server

import (
	"chatrooms/api/chatv1"
	"chatrooms/auth"
	"log/slog"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
)

// NewGRPCServer builds the gRPC server exposing the chat service. Unary calls
// are logged, then authenticated; streams are authenticated only.
// Every request is decoded as JSON whatever content subtype the client sent.
func NewGRPCServer(log *slog.Logger, interceptors *auth.Interceptors, chatServer *ChatServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(chatv1.Codec{}),
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(log),
			interceptors.Unary(),
		),
		grpc.ChainStreamInterceptor(interceptors.Stream()),
	}, opts...)
	s := grpc.NewServer(opts...)
	chatv1.RegisterChatServiceServer(s, chatServer)
	return s
}
