package services

import (
	"chatrooms/domain"
	"chatrooms/domain/event"
	"chatrooms/errors"
	"chatrooms/mocks"
	"chatrooms/runtime"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type messageLogMocks struct {
	rooms     *mocks.MockIRoomRepository
	profiles  *mocks.MockIProfileRepository
	messages  *mocks.MockIMessageRepository
	index     *mocks.MockISearchIndex
	publisher *mocks.MockPublisher
	emitter   *mocks.MockEmitter
}

func newMessageLogWithMocks(t *testing.T) (*MessageLog, messageLogMocks) {
	ctrl := gomock.NewController(t)
	m := messageLogMocks{
		rooms:     mocks.NewMockIRoomRepository(ctrl),
		profiles:  mocks.NewMockIProfileRepository(ctrl),
		messages:  mocks.NewMockIMessageRepository(ctrl),
		index:     mocks.NewMockISearchIndex(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
		emitter:   mocks.NewMockEmitter(ctrl),
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	l := NewMessageLog(log, m.rooms, m.profiles, m.messages, runtime.NewRoomLocks(4), m.publisher,
		WithSearchIndex(m.index),
		WithEmitter(m.emitter),
		WithPageSize(2, 3),
	)
	return l, m
}

func TestMessageLog_Append_Publishes_Even_When_Indexing_Fails(t *testing.T) {
	req := require.New(t)
	l, m := newMessageLogWithMocks(t)

	m.rooms.EXPECT().Get(domain.RoomID("r1")).Return(domain.Room{ID: "r1"}, nil)
	m.profiles.EXPECT().Get("u1").Return(domain.Profile{ID: "u1"}, nil)
	m.messages.EXPECT().Append(gomock.Any()).DoAndReturn(func(msg domain.Message) (domain.Message, error) {
		req.False(msg.CreatedAt.IsZero())
		msg.Seq = 7
		return msg, nil
	})
	gomock.InOrder(
		m.publisher.EXPECT().Publish(domain.RoomID("r1"), gomock.Any()).Return(3),
		m.emitter.EXPECT().Emit(gomock.Any()).Do(func(e event.Event) {
			req.Equal(event.MessageAppendedType, e.Type)
			appended := e.Payload.(event.MessageAppended)
			req.Equal(uint64(7), appended.Seq)
			req.Equal(3, appended.Fanout)
		}),
		m.index.EXPECT().Index(gomock.Any()).Return(fmt.Errorf("disk full")),
	)

	msg, err := l.Append(domain.PostMessageCommand{Room: "r1", AuthorID: "u1", Content: domain.TextContent("hello")})
	req.NoError(err)
	req.Equal(uint64(7), msg.Seq)
}

func TestMessageLog_Append_Storage_Failure_Publishes_Nothing(t *testing.T) {
	req := require.New(t)
	l, m := newMessageLogWithMocks(t)

	m.rooms.EXPECT().Get(domain.RoomID("r1")).Return(domain.Room{ID: "r1"}, nil)
	m.profiles.EXPECT().Get("u1").Return(domain.Profile{ID: "u1"}, nil)
	m.messages.EXPECT().Append(gomock.Any()).
		Return(domain.Message{}, fmt.Errorf("%w: %w", errors.ErrServiceUnavailable, errors.ErrTransientStorage))

	_, err := l.Append(domain.PostMessageCommand{Room: "r1", AuthorID: "u1", Content: domain.ImageContent("img://1")})
	req.ErrorIs(err, errors.ErrServiceUnavailable)
}

func TestMessageLog_Append_Invalid_Content_Touches_Nothing(t *testing.T) {
	req := require.New(t)
	l, _ := newMessageLogWithMocks(t)

	_, err := l.Append(domain.PostMessageCommand{Room: "r1", AuthorID: "u1", Content: domain.TextContent("")})
	req.ErrorIs(err, errors.ErrValidation)
	_, err = l.Append(domain.PostMessageCommand{AuthorID: "u1", Content: domain.TextContent("hi")})
	req.ErrorIs(err, errors.ErrValidation)
}

func TestMessageLog_ListRecent_Clamps_Limit(t *testing.T) {
	req := require.New(t)
	l, m := newMessageLogWithMocks(t)

	m.rooms.EXPECT().Get(domain.RoomID("r1")).Return(domain.Room{ID: "r1"}, nil).Times(2)
	m.messages.EXPECT().ListRecent(domain.RoomID("r1"), 2, uint64(0)).
		Return([]domain.Message{{Seq: 9}, {Seq: 8}}, nil)
	m.messages.EXPECT().ListRecent(domain.RoomID("r1"), 3, uint64(8)).
		Return([]domain.Message{{Seq: 7}}, nil)

	page, err := l.ListRecent(domain.GetMessagesCommand{Room: "r1"})
	req.NoError(err)
	req.Equal(domain.NewCursor(8), page.Next)

	page, err = l.ListRecent(domain.GetMessagesCommand{Room: "r1", Limit: 50, Before: page.Next})
	req.NoError(err)
	req.Len(page.Messages, 1)
	req.Empty(page.Next)
}

func TestMessageLog_Search_Skips_Missing_Messages(t *testing.T) {
	req := require.New(t)
	l, m := newMessageLogWithMocks(t)

	m.rooms.EXPECT().Get(domain.RoomID("r1")).Return(domain.Room{ID: "r1"}, nil)
	m.index.EXPECT().Search(gomock.Any(), domain.RoomID("r1"), "lechon", 2).Return([]uint64{4, 2}, nil)
	m.messages.EXPECT().Get(domain.RoomID("r1"), uint64(4)).Return(domain.Message{}, errors.ErrNotFound)
	m.messages.EXPECT().Get(domain.RoomID("r1"), uint64(2)).Return(domain.Message{Seq: 2, Text: "lechon"}, nil)

	found, err := l.Search(t.Context(), domain.SearchMessagesCommand{Room: "r1", Query: "lechon"})
	req.NoError(err)
	req.Len(found, 1)
	req.Equal(uint64(2), found[0].Seq)
}
