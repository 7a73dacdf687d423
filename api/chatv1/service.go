package chatv1

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ChatService_CreateRoom_FullMethodName     = "/chatrooms.v1.ChatService/CreateRoom"
	ChatService_ListRooms_FullMethodName      = "/chatrooms.v1.ChatService/ListRooms"
	ChatService_GetRoom_FullMethodName        = "/chatrooms.v1.ChatService/GetRoom"
	ChatService_RenameRoom_FullMethodName     = "/chatrooms.v1.ChatService/RenameRoom"
	ChatService_PostMessage_FullMethodName    = "/chatrooms.v1.ChatService/PostMessage"
	ChatService_ListMessages_FullMethodName   = "/chatrooms.v1.ChatService/ListMessages"
	ChatService_SearchMessages_FullMethodName = "/chatrooms.v1.ChatService/SearchMessages"
	ChatService_UpsertProfile_FullMethodName  = "/chatrooms.v1.ChatService/UpsertProfile"
	ChatService_GetProfile_FullMethodName     = "/chatrooms.v1.ChatService/GetProfile"
	ChatService_Join_FullMethodName           = "/chatrooms.v1.ChatService/Join"
	ChatService_Leave_FullMethodName          = "/chatrooms.v1.ChatService/Leave"
	ChatService_Heartbeat_FullMethodName      = "/chatrooms.v1.ChatService/Heartbeat"
	ChatService_Members_FullMethodName        = "/chatrooms.v1.ChatService/Members"
	ChatService_Subscribe_FullMethodName      = "/chatrooms.v1.ChatService/Subscribe"
)

// ChatServiceServer is the server API for the chatrooms.v1.ChatService service.
type ChatServiceServer interface {
	CreateRoom(context.Context, *CreateRoomRequest) (*Room, error)
	ListRooms(context.Context, *ListRoomsRequest) (*ListRoomsResponse, error)
	GetRoom(context.Context, *RoomRequest) (*Room, error)
	RenameRoom(context.Context, *RenameRoomRequest) (*Room, error)
	PostMessage(context.Context, *PostMessageRequest) (*Message, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	SearchMessages(context.Context, *SearchMessagesRequest) (*SearchMessagesResponse, error)
	UpsertProfile(context.Context, *UpsertProfileRequest) (*Profile, error)
	GetProfile(context.Context, *ProfileRequest) (*Profile, error)
	Join(context.Context, *RoomRequest) (*Empty, error)
	Leave(context.Context, *RoomRequest) (*Empty, error)
	Heartbeat(context.Context, *Empty) (*HeartbeatResponse, error)
	Members(context.Context, *RoomRequest) (*MembersResponse, error)
	// Subscribe streams every message appended to the room after the call.
	Subscribe(*RoomRequest, grpc.ServerStreamingServer[Message]) error
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

// unaryHandler builds the method handler the code generator would emit for a
// unary method.
func unaryHandler[Req, Resp any](fullMethod string,
	call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChatServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ChatServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	m := new(RoomRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ChatServiceServer).Subscribe(m, &grpc.GenericServerStream[RoomRequest, Message]{ServerStream: stream})
}

// ChatService_ServiceDesc is the grpc.ServiceDesc for the ChatService service.
var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "chatrooms.v1.ChatService",
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateRoom", Handler: unaryHandler(ChatService_CreateRoom_FullMethodName, ChatServiceServer.CreateRoom)},
		{MethodName: "ListRooms", Handler: unaryHandler(ChatService_ListRooms_FullMethodName, ChatServiceServer.ListRooms)},
		{MethodName: "GetRoom", Handler: unaryHandler(ChatService_GetRoom_FullMethodName, ChatServiceServer.GetRoom)},
		{MethodName: "RenameRoom", Handler: unaryHandler(ChatService_RenameRoom_FullMethodName, ChatServiceServer.RenameRoom)},
		{MethodName: "PostMessage", Handler: unaryHandler(ChatService_PostMessage_FullMethodName, ChatServiceServer.PostMessage)},
		{MethodName: "ListMessages", Handler: unaryHandler(ChatService_ListMessages_FullMethodName, ChatServiceServer.ListMessages)},
		{MethodName: "SearchMessages", Handler: unaryHandler(ChatService_SearchMessages_FullMethodName, ChatServiceServer.SearchMessages)},
		{MethodName: "UpsertProfile", Handler: unaryHandler(ChatService_UpsertProfile_FullMethodName, ChatServiceServer.UpsertProfile)},
		{MethodName: "GetProfile", Handler: unaryHandler(ChatService_GetProfile_FullMethodName, ChatServiceServer.GetProfile)},
		{MethodName: "Join", Handler: unaryHandler(ChatService_Join_FullMethodName, ChatServiceServer.Join)},
		{MethodName: "Leave", Handler: unaryHandler(ChatService_Leave_FullMethodName, ChatServiceServer.Leave)},
		{MethodName: "Heartbeat", Handler: unaryHandler(ChatService_Heartbeat_FullMethodName, ChatServiceServer.Heartbeat)},
		{MethodName: "Members", Handler: unaryHandler(ChatService_Members_FullMethodName, ChatServiceServer.Members)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "chatrooms/v1/chat.json",
}
