package chatv1

import (
	"context"

	"google.golang.org/grpc"
)

// ChatServiceClient is the client API for the chatrooms.v1.ChatService service.
// Every call is sent with the JSON content subtype.
type ChatServiceClient interface {
	CreateRoom(ctx context.Context, in *CreateRoomRequest, opts ...grpc.CallOption) (*Room, error)
	ListRooms(ctx context.Context, in *ListRoomsRequest, opts ...grpc.CallOption) (*ListRoomsResponse, error)
	GetRoom(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*Room, error)
	RenameRoom(ctx context.Context, in *RenameRoomRequest, opts ...grpc.CallOption) (*Room, error)
	PostMessage(ctx context.Context, in *PostMessageRequest, opts ...grpc.CallOption) (*Message, error)
	ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error)
	SearchMessages(ctx context.Context, in *SearchMessagesRequest, opts ...grpc.CallOption) (*SearchMessagesResponse, error)
	UpsertProfile(ctx context.Context, in *UpsertProfileRequest, opts ...grpc.CallOption) (*Profile, error)
	GetProfile(ctx context.Context, in *ProfileRequest, opts ...grpc.CallOption) (*Profile, error)
	Join(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*Empty, error)
	Leave(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*Empty, error)
	Heartbeat(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*HeartbeatResponse, error)
	Members(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*MembersResponse, error)
	Subscribe(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Message], error)
}

type chatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient {
	return &chatServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatServiceClient) CreateRoom(ctx context.Context, in *CreateRoomRequest, opts ...grpc.CallOption) (*Room, error) {
	return invoke[Room](ctx, c.cc, ChatService_CreateRoom_FullMethodName, in, opts)
}

func (c *chatServiceClient) ListRooms(ctx context.Context, in *ListRoomsRequest, opts ...grpc.CallOption) (*ListRoomsResponse, error) {
	return invoke[ListRoomsResponse](ctx, c.cc, ChatService_ListRooms_FullMethodName, in, opts)
}

func (c *chatServiceClient) GetRoom(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*Room, error) {
	return invoke[Room](ctx, c.cc, ChatService_GetRoom_FullMethodName, in, opts)
}

func (c *chatServiceClient) RenameRoom(ctx context.Context, in *RenameRoomRequest, opts ...grpc.CallOption) (*Room, error) {
	return invoke[Room](ctx, c.cc, ChatService_RenameRoom_FullMethodName, in, opts)
}

func (c *chatServiceClient) PostMessage(ctx context.Context, in *PostMessageRequest, opts ...grpc.CallOption) (*Message, error) {
	return invoke[Message](ctx, c.cc, ChatService_PostMessage_FullMethodName, in, opts)
}

func (c *chatServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, ChatService_ListMessages_FullMethodName, in, opts)
}

func (c *chatServiceClient) SearchMessages(ctx context.Context, in *SearchMessagesRequest, opts ...grpc.CallOption) (*SearchMessagesResponse, error) {
	return invoke[SearchMessagesResponse](ctx, c.cc, ChatService_SearchMessages_FullMethodName, in, opts)
}

func (c *chatServiceClient) UpsertProfile(ctx context.Context, in *UpsertProfileRequest, opts ...grpc.CallOption) (*Profile, error) {
	return invoke[Profile](ctx, c.cc, ChatService_UpsertProfile_FullMethodName, in, opts)
}

func (c *chatServiceClient) GetProfile(ctx context.Context, in *ProfileRequest, opts ...grpc.CallOption) (*Profile, error) {
	return invoke[Profile](ctx, c.cc, ChatService_GetProfile_FullMethodName, in, opts)
}

func (c *chatServiceClient) Join(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, ChatService_Join_FullMethodName, in, opts)
}

func (c *chatServiceClient) Leave(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, ChatService_Leave_FullMethodName, in, opts)
}

func (c *chatServiceClient) Heartbeat(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*HeartbeatResponse, error) {
	return invoke[HeartbeatResponse](ctx, c.cc, ChatService_Heartbeat_FullMethodName, in, opts)
}

func (c *chatServiceClient) Members(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (*MembersResponse, error) {
	return invoke[MembersResponse](ctx, c.cc, ChatService_Members_FullMethodName, in, opts)
}

func (c *chatServiceClient) Subscribe(ctx context.Context, in *RoomRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Message], error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ChatService_ServiceDesc.Streams[0], ChatService_Subscribe_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[RoomRequest, Message]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
