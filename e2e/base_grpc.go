package e2e

import (
	"chatrooms/api/chatv1"
	"chatrooms/auth"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gookit/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type BaseGrpcSuite struct {
	suite.Suite
	Config Config
	conn   *grpc.ClientConn
	client chatv1.ChatServiceClient
}

// SetupSuite loads the environment configuration and connects once for the
// whole suite.
func (s *BaseGrpcSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" || s.Config.JwtSecret == "" {
		s.T().Skip("CHAT_SERVER_ADDR and E2E_JWT_SECRET are required for end-to-end tests")
	}
	s.conn, err = grpc.NewClient(s.Config.ServerAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.logCall),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.ServerAddr)
	s.client = chatv1.NewChatServiceClient(s.conn)
}

func (s *BaseGrpcSuite) TearDownSuite() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// logCall logs every unary call, with bodies when E2E_DEBUG_JSON is enabled.
func (s *BaseGrpcSuite) logCall(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	start := time.Now()
	err := invoker(ctx, method, req, reply, cc, opts...)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintln(&logBuilder, "\nREQUEST:")
		fmt.Fprintln(&logBuilder, indent(req))
		if err != nil {
			fmt.Fprintln(&logBuilder, "ERROR:", err)
		} else {
			fmt.Fprintln(&logBuilder, "RESPONSE:")
			fmt.Fprintln(&logBuilder, indent(reply))
		}
	}
	s.T().Log(logBuilder.String())
	return err
}

func indent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// As runs fn as the given identity, with a colorized step header.
func (s *BaseGrpcSuite) As(identity, step string, fn func(ctx context.Context, client chatv1.ChatServiceClient)) {
	header := fmt.Sprintf("  ====== %s: %s ======", identity, step)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	token, err := auth.NewJWTResolver(s.Config.JwtSecret, time.Hour).GenerateToken(identity)
	s.Require().NoError(err)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	fn(ctx, s.client)
}
