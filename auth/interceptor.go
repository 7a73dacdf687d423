package auth

import (
	"chatrooms/errors"
	"context"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Interceptors authenticates gRPC calls with the authorization metadata.
// Methods listed as public are served without a token.
type Interceptors struct {
	resolver      Resolver
	publicMethods map[string]struct{}
}

func NewInterceptors(resolver Resolver, publicMethods ...string) *Interceptors {
	public := make(map[string]struct{}, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = struct{}{}
	}
	return &Interceptors{resolver: resolver, publicMethods: public}
}

// Unary handles JWT validation for incoming unary calls.
func (i *Interceptors) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if i.isPublicMethod(info.FullMethod) {
			return handler(ctx, req)
		}
		authCtx, err := i.authenticate(ctx)
		if err != nil {
			return nil, errors.MapToGRPCError(err)
		}
		return handler(authCtx, req)
	}
}

// Stream does the same for streaming calls. The handler sees a stream whose
// context carries the identity.
func (i *Interceptors) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if i.isPublicMethod(info.FullMethod) {
			return handler(srv, ss)
		}
		authCtx, err := i.authenticate(ss.Context())
		if err != nil {
			return errors.MapToGRPCError(err)
		}
		return handler(srv, &identityStream{ServerStream: ss, ctx: authCtx})
	}
}

func (i *Interceptors) authenticate(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.ErrMissingToken
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, errors.ErrMissingToken
	}
	userID, err := i.resolver.Resolve(values[0])
	if err != nil {
		return nil, err
	}
	return WithIdentity(ctx, userID), nil
}

func (i *Interceptors) isPublicMethod(method string) bool {
	_, ok := i.publicMethods[method]
	return ok
}

type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context {
	return s.ctx
}

// Middleware authenticates HTTP requests with the Authorization header.
// Browsers opening a websocket cannot set headers, so the access_token query
// parameter is accepted as well.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := r.Header.Get("Authorization")
			if credential == "" {
				credential = r.URL.Query().Get("access_token")
			}
			userID, err := resolver.Resolve(credential)
			if err != nil {
				http.Error(w, err.Error(), errors.HTTPStatus(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID)))
		})
	}
}
