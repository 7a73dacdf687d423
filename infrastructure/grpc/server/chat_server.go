package server

import (
	"chatrooms/api/chatv1"
	"chatrooms/auth"
	"chatrooms/domain"
	"chatrooms/errors"
	"chatrooms/services"
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
)

const sortRecent = "recent"

type ChatServer struct {
	chatService services.IChatService
	log         *slog.Logger
}

func NewChatServer(log *slog.Logger, chatService services.IChatService) *ChatServer {
	return &ChatServer{chatService: chatService, log: log}
}

func identity(ctx context.Context) (string, error) {
	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return "", errors.MapToGRPCError(errors.ErrMissingToken)
	}
	return userID, nil
}

func (s *ChatServer) CreateRoom(ctx context.Context, req *chatv1.CreateRoomRequest) (*chatv1.Room, error) {
	userID, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.chatService.CreateRoom(domain.CreateRoomCommand{
		Name:        req.Name,
		Region:      req.Region,
		Province:    req.Province,
		Description: req.Description,
		CreatorID:   userID,
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	res := chatv1.FromRoom(room)
	return &res, nil
}

// ListRooms lists rooms newest first, the only supported order.
func (s *ChatServer) ListRooms(_ context.Context, req *chatv1.ListRoomsRequest) (*chatv1.ListRoomsResponse, error) {
	if req.Sort != "" && req.Sort != sortRecent {
		return nil, errors.MapToGRPCError(fmt.Errorf("%w: unsupported sort %q", errors.ErrValidation, req.Sort))
	}
	rooms, err := s.chatService.ListRooms(domain.RoomFilter{Region: req.Region, Province: req.Province}, req.Limit)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &chatv1.ListRoomsResponse{Rooms: chatv1.FromRooms(rooms)}, nil
}

func (s *ChatServer) GetRoom(_ context.Context, req *chatv1.RoomRequest) (*chatv1.Room, error) {
	room, err := s.chatService.GetRoom(domain.RoomID(req.RoomID))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	res := chatv1.FromRoom(room)
	return &res, nil
}

func (s *ChatServer) RenameRoom(ctx context.Context, req *chatv1.RenameRoomRequest) (*chatv1.Room, error) {
	userID, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.chatService.RenameRoom(domain.RenameRoomCommand{
		Room:     domain.RoomID(req.RoomID),
		CallerID: userID,
		Name:     req.Name,
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	res := chatv1.FromRoom(room)
	return &res, nil
}

// PostMessage appends the message and returns it once it is durable and
// pushed to the live subscribers of the room, the sender's own streams included.
func (s *ChatServer) PostMessage(ctx context.Context, req *chatv1.PostMessageRequest) (*chatv1.Message, error) {
	userID, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	cmd, err := req.PostMessageCommand(userID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	msg, err := s.chatService.PostMessage(cmd)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	res := chatv1.FromMessage(msg)
	return &res, nil
}

func (s *ChatServer) ListMessages(_ context.Context, req *chatv1.ListMessagesRequest) (*chatv1.ListMessagesResponse, error) {
	page, err := s.chatService.GetMessages(domain.GetMessagesCommand{
		Room:   domain.RoomID(req.RoomID),
		Limit:  req.Limit,
		Before: domain.Cursor(req.Before),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &chatv1.ListMessagesResponse{
		Messages: chatv1.FromMessages(page.Messages),
		Cursor:   page.Next.String(),
	}, nil
}

func (s *ChatServer) SearchMessages(ctx context.Context, req *chatv1.SearchMessagesRequest) (*chatv1.SearchMessagesResponse, error) {
	messages, err := s.chatService.SearchMessages(ctx, domain.SearchMessagesCommand{
		Room:  domain.RoomID(req.RoomID),
		Query: req.Query,
		Limit: req.Limit,
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &chatv1.SearchMessagesResponse{Messages: chatv1.FromMessages(messages)}, nil
}

func (s *ChatServer) UpsertProfile(ctx context.Context, req *chatv1.UpsertProfileRequest) (*chatv1.Profile, error) {
	userID, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.chatService.UpsertProfile(domain.UpsertProfileCommand{
		Identity:  userID,
		Username:  req.Username,
		AvatarRef: req.Avatar,
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	res := chatv1.FromProfile(profile)
	return &res, nil
}

func (s *ChatServer) GetProfile(_ context.Context, req *chatv1.ProfileRequest) (*chatv1.Profile, error) {
	profile, err := s.chatService.GetProfile(req.ID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	res := chatv1.FromProfile(profile)
	return &res, nil
}

func (s *ChatServer) Join(ctx context.Context, req *chatv1.RoomRequest) (*chatv1.Empty, error) {
	userID, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err = s.chatService.Join(userID, domain.RoomID(req.RoomID)); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &chatv1.Empty{}, nil
}

func (s *ChatServer) Leave(ctx context.Context, req *chatv1.RoomRequest) (*chatv1.Empty, error) {
	userID, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	s.chatService.Leave(userID, domain.RoomID(req.RoomID))
	return &chatv1.Empty{}, nil
}

func (s *ChatServer) Heartbeat(ctx context.Context, _ *chatv1.Empty) (*chatv1.HeartbeatResponse, error) {
	userID, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	return &chatv1.HeartbeatResponse{Active: s.chatService.Heartbeat(userID)}, nil
}

func (s *ChatServer) Members(_ context.Context, req *chatv1.RoomRequest) (*chatv1.MembersResponse, error) {
	members, err := s.chatService.Members(domain.RoomID(req.RoomID))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &chatv1.MembersResponse{Members: members}, nil
}

// Subscribe establishes a long-lived stream for real-time delivery.
// It blocks until the client disconnects, a send fails, or the hub drops the
// subscription; the deferred unsubscribe releases the membership in every case.
func (s *ChatServer) Subscribe(req *chatv1.RoomRequest, stream grpc.ServerStreamingServer[chatv1.Message]) error {
	ctx := stream.Context()
	userID, err := identity(ctx)
	if err != nil {
		return err
	}
	room := domain.RoomID(req.RoomID)
	sub, err := s.chatService.Subscribe(userID, room)
	if err != nil {
		return errors.MapToGRPCError(err)
	}
	defer s.chatService.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			s.log.Debug(fmt.Sprintf("Client %s disconnected from %s", userID, room))
			return nil
		case msg, ok := <-sub.Events():
			if !ok {
				s.log.Warn("subscription ended by the hub", "user_id", userID, "room_id", room, "reason", sub.Err())
				if errors.Is(sub.Err(), errors.ErrSlowConsumer) {
					return errors.MapToGRPCError(sub.Err())
				}
				return nil
			}
			res := chatv1.FromMessage(msg)
			if err := stream.Send(&res); err != nil {
				s.log.Error("failed to push event to stream",
					"user_id", userID,
					"room_id", room,
					"error", err)
				return err
			}
		}
	}
}
