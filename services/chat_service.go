//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/servicemocks/mock_chat_service.go -package=servicemocks
package services

import (
	"chatrooms/domain"
	"chatrooms/errors"
	"chatrooms/runtime"
	"chatrooms/runtime/presence"
	"context"
	"fmt"
	"log/slog"
)

const defaultRoomListLimit = 50

// IChatService is the gateway used by every transport. The caller identity
// is always explicit: transports resolve it from credentials first.
type IChatService interface {
	CreateRoom(cmd domain.CreateRoomCommand) (domain.Room, error)
	ListRooms(filter domain.RoomFilter, limit int) ([]domain.Room, error)
	GetRoom(id domain.RoomID) (domain.Room, error)
	RenameRoom(cmd domain.RenameRoomCommand) (domain.Room, error)
	PostMessage(cmd domain.PostMessageCommand) (domain.Message, error)
	GetMessages(cmd domain.GetMessagesCommand) (domain.MessagePage, error)
	SearchMessages(ctx context.Context, cmd domain.SearchMessagesCommand) ([]domain.Message, error)
	UpsertProfile(cmd domain.UpsertProfileCommand) (domain.Profile, error)
	GetProfile(identity string) (domain.Profile, error)
	Join(identity string, room domain.RoomID) error
	Leave(identity string, room domain.RoomID)
	Heartbeat(identity string) bool
	Members(room domain.RoomID) ([]string, error)
	Subscribe(identity string, room domain.RoomID) (*runtime.Subscription, error)
	Unsubscribe(sub *runtime.Subscription)
}

type ChatService struct {
	log      *slog.Logger
	rooms    *RoomService
	messages *MessageLog
	profiles *ProfileService
	tracker  *presence.Tracker
	hub      *runtime.Hub
	members  *runtime.MemberLocks
}

func NewChatService(
	log *slog.Logger,
	rooms *RoomService,
	messages *MessageLog,
	profiles *ProfileService,
	tracker *presence.Tracker,
	hub *runtime.Hub,
	members *runtime.MemberLocks,
) *ChatService {
	return &ChatService{
		log:      log,
		rooms:    rooms,
		messages: messages,
		profiles: profiles,
		tracker:  tracker,
		hub:      hub,
		members:  members,
	}
}

func (s *ChatService) CreateRoom(cmd domain.CreateRoomCommand) (domain.Room, error) {
	return s.rooms.CreateRoom(cmd)
}

// ListRooms collects at most limit rooms, newest first.
func (s *ChatService) ListRooms(filter domain.RoomFilter, limit int) ([]domain.Room, error) {
	if limit <= 0 {
		limit = defaultRoomListLimit
	}
	if filter.Province != "" && filter.Region != "" {
		if err := domain.ValidateLocation(filter.Region, filter.Province); err != nil {
			return nil, err
		}
	}
	rooms := make([]domain.Room, 0, limit)
	for room, err := range s.rooms.ListRooms(filter) {
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
		if len(rooms) == limit {
			break
		}
	}
	return rooms, nil
}

func (s *ChatService) GetRoom(id domain.RoomID) (domain.Room, error) {
	return s.rooms.GetRoom(id)
}

func (s *ChatService) RenameRoom(cmd domain.RenameRoomCommand) (domain.Room, error) {
	return s.rooms.RenameRoom(cmd)
}

func (s *ChatService) PostMessage(cmd domain.PostMessageCommand) (domain.Message, error) {
	return s.messages.Append(cmd)
}

func (s *ChatService) GetMessages(cmd domain.GetMessagesCommand) (domain.MessagePage, error) {
	return s.messages.ListRecent(cmd)
}

func (s *ChatService) SearchMessages(ctx context.Context, cmd domain.SearchMessagesCommand) ([]domain.Message, error) {
	return s.messages.Search(ctx, cmd)
}

func (s *ChatService) UpsertProfile(cmd domain.UpsertProfileCommand) (domain.Profile, error) {
	return s.profiles.Upsert(cmd)
}

func (s *ChatService) GetProfile(identity string) (domain.Profile, error) {
	return s.profiles.Get(identity)
}

// Join registers the identity in an existing room without opening a stream.
func (s *ChatService) Join(identity string, room domain.RoomID) error {
	if _, err := s.rooms.GetRoom(room); err != nil {
		return err
	}
	unlock := s.members.Lock(identity, room)
	defer unlock()
	s.tracker.Join(identity, room)
	return nil
}

// Leave ends the membership and closes every stream the identity holds on
// the room. Nothing published afterwards reaches them.
func (s *ChatService) Leave(identity string, room domain.RoomID) {
	unlock := s.members.Lock(identity, room)
	defer unlock()
	s.tracker.Leave(identity, room)
	if closed := s.hub.UnsubscribeMember(identity, room); closed > 0 {
		s.log.Debug("left room, streams closed", "identity", identity, "room", room, "streams", closed)
	}
}

func (s *ChatService) Heartbeat(identity string) bool {
	return s.tracker.Heartbeat(identity)
}

func (s *ChatService) Members(room domain.RoomID) ([]string, error) {
	if _, err := s.rooms.GetRoom(room); err != nil {
		return nil, err
	}
	return s.tracker.Members(room), nil
}

// Subscribe joins the room and opens a live stream of the messages appended
// from now on. Earlier messages are read with GetMessages.
func (s *ChatService) Subscribe(identity string, room domain.RoomID) (*runtime.Subscription, error) {
	if identity == "" {
		return nil, errors.ErrMissingToken
	}
	if _, err := s.rooms.GetRoom(room); err != nil {
		return nil, err
	}
	unlock := s.members.Lock(identity, room)
	defer unlock()
	s.tracker.Join(identity, room)
	sub, err := s.hub.Subscribe(room, identity)
	if err != nil {
		if !s.hub.Watching(identity, room) {
			s.tracker.Leave(identity, room)
		}
		return nil, fmt.Errorf("%w: %w", errors.ErrServiceUnavailable, err)
	}
	s.log.Debug("subscribed", "identity", identity, "room", room, "subscription", sub.ID)
	return sub, nil
}

// Unsubscribe closes the stream. The membership becomes Absent once the
// identity has no other stream on the room.
func (s *ChatService) Unsubscribe(sub *runtime.Subscription) {
	if sub == nil {
		return
	}
	unlock := s.members.Lock(sub.Identity, sub.Room)
	defer unlock()
	s.hub.Unsubscribe(sub)
	if !s.hub.Watching(sub.Identity, sub.Room) {
		s.tracker.Leave(sub.Identity, sub.Room)
	}
}
