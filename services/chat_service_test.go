package services

import (
	"chatrooms/domain"
	"chatrooms/errors"
	"chatrooms/infrastructure/storage"
	"chatrooms/moderation"
	"chatrooms/runtime"
	"chatrooms/runtime/presence"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type testChat struct {
	service  *ChatService
	hub      *runtime.Hub
	tracker  *presence.Tracker
	repo     *storage.MessageRepository
	profiles *storage.ProfileRepository
}

func newTestChat(t *testing.T) testChat {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	t.Cleanup(func() { _ = writer.Close() })

	moderator, err := moderation.NewModerator([]string{"gago", "tanga"}, '*', log)
	req.NoError(err)

	hub := runtime.NewHub(log, nil, 8, 0)
	tracker := presence.NewTracker(log, time.Minute, nil)
	memberLocks := runtime.NewMemberLocks(0)
	runtime.LinkPresence(hub, tracker, memberLocks)

	rooms := storage.NewRoomRepository(db, log)
	profiles := storage.NewProfileRepository(db, log)
	messages := storage.NewMessageRepository(db, log, 100)
	messageLog := NewMessageLog(log, rooms, profiles, messages, runtime.NewRoomLocks(0), hub,
		WithModerator(moderator),
		WithSearchIndex(storage.NewSearchIndex(writer, log)),
		WithPageSize(50, 100),
	)

	service := NewChatService(log,
		NewRoomService(log, rooms),
		messageLog,
		NewProfileService(log, profiles, tracker),
		tracker,
		hub,
		memberLocks,
	)
	return testChat{service: service, hub: hub, tracker: tracker, repo: messages, profiles: profiles}
}

func (c testChat) room(t *testing.T, creator string) domain.Room {
	t.Helper()
	room, err := c.service.CreateRoom(domain.CreateRoomCommand{
		Name:      "Cebu Talk",
		Region:    "Central Visayas",
		Province:  "Cebu",
		CreatorID: creator,
	})
	require.NoError(t, err)
	return room
}

func (c testChat) profile(t *testing.T, identity string) {
	t.Helper()
	_, err := c.service.UpsertProfile(domain.UpsertProfileCommand{Identity: identity, Username: "user_" + identity})
	require.NoError(t, err)
}

func TestChatService_CebuTalk_Scenario(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)

	// Given a room, an author and a client subscribed before the append
	room := chat.room(t, "u1")
	chat.profile(t, "u1")
	early, err := chat.service.Subscribe("u2", room.ID)
	req.NoError(err)

	// When u1 says hello
	msg, err := chat.service.PostMessage(domain.PostMessageCommand{
		Room:     room.ID,
		AuthorID: "u1",
		Content:  domain.TextContent("hello"),
	})
	req.NoError(err)
	req.Equal(uint64(1), msg.Seq)

	// Then the early subscriber received exactly one event
	select {
	case got := <-early.Events():
		req.Equal("hello", got.Text)
		req.Equal(uint64(1), got.Seq)
	default:
		req.Fail("early subscriber should have received the message")
	}
	req.Empty(early.Events())

	// And a late subscriber receives nothing retroactively
	late, err := chat.service.Subscribe("u3", room.ID)
	req.NoError(err)
	req.Empty(late.Events())

	page, err := chat.service.GetMessages(domain.GetMessagesCommand{Room: room.ID, Limit: 10})
	req.NoError(err)
	req.Len(page.Messages, 1)
	req.Equal("hello", page.Messages[0].Text)
	req.Empty(page.Next)
}

func TestChatService_EmptyText_Persists_Nothing(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")
	chat.profile(t, "u1")
	sub, err := chat.service.Subscribe("u2", room.ID)
	req.NoError(err)

	for _, content := range []domain.Content{
		domain.TextContent("   "),
		{Kind: domain.KindText},
		domain.ImageContent(""),
		{Kind: domain.KindImage, Text: "caption", ImageRef: "img://1"},
	} {
		_, err = chat.service.PostMessage(domain.PostMessageCommand{Room: room.ID, AuthorID: "u1", Content: content})
		req.ErrorIs(err, errors.ErrValidation)
	}

	last, err := chat.repo.LastSeq(room.ID)
	req.NoError(err)
	req.Zero(last)
	req.Empty(sub.Events())
}

func TestChatService_PostMessage_Unknown_Room_Or_Author(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")

	_, err := chat.service.PostMessage(domain.PostMessageCommand{Room: "missing", AuthorID: "u1", Content: domain.TextContent("hi")})
	req.ErrorIs(err, errors.ErrNotFound)

	// u1 has no profile yet
	_, err = chat.service.PostMessage(domain.PostMessageCommand{Room: room.ID, AuthorID: "u1", Content: domain.TextContent("hi")})
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestChatService_Ordering_And_Pagination(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")
	chat.profile(t, "u1")
	sub, err := chat.service.Subscribe("u2", room.ID)
	req.NoError(err)

	for i := 1; i <= 5; i++ {
		_, err = chat.service.PostMessage(domain.PostMessageCommand{
			Room: room.ID, AuthorID: "u1", Content: domain.TextContent(fmt.Sprintf("m%d", i)),
		})
		req.NoError(err)
	}

	// Subscriber order equals append order
	for i := 1; i <= 5; i++ {
		got := <-sub.Events()
		req.Equal(uint64(i), got.Seq)
	}

	// Pages are newest first, without duplicates nor gaps
	var seqs []uint64
	cursor := domain.Cursor("")
	for range 3 {
		page, err := chat.service.GetMessages(domain.GetMessagesCommand{Room: room.ID, Limit: 2, Before: cursor})
		req.NoError(err)
		for _, m := range page.Messages {
			seqs = append(seqs, m.Seq)
		}
		cursor = page.Next
	}
	req.Equal([]uint64{5, 4, 3, 2, 1}, seqs)
	req.Empty(cursor)

	_, err = chat.service.GetMessages(domain.GetMessagesCommand{Room: room.ID, Before: "%%%"})
	req.ErrorIs(err, errors.ErrValidation)
}

func TestChatService_Moderation_And_Search(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")
	chat.profile(t, "u1")

	censored, err := chat.service.PostMessage(domain.PostMessageCommand{
		Room: room.ID, AuthorID: "u1", Content: domain.TextContent("ikaw ay gago talaga"),
	})
	req.NoError(err)
	req.True(censored.Censored)
	req.Equal("ikaw ay **** talaga", censored.Text)

	_, err = chat.service.PostMessage(domain.PostMessageCommand{
		Room: room.ID, AuthorID: "u1", Content: domain.TextContent("maayong buntag sa tanan"),
	})
	req.NoError(err)
	_, err = chat.service.PostMessage(domain.PostMessageCommand{
		Room: room.ID, AuthorID: "u1", Content: domain.ImageContent("storage://photos/lechon.jpg"),
	})
	req.NoError(err)

	found, err := chat.service.SearchMessages(context.Background(), domain.SearchMessagesCommand{Room: room.ID, Query: "buntag"})
	req.NoError(err)
	req.Len(found, 1)
	req.Equal(uint64(2), found[0].Seq)

	_, err = chat.service.SearchMessages(context.Background(), domain.SearchMessagesCommand{Room: room.ID})
	req.ErrorIs(err, errors.ErrValidation)
}

func TestChatService_Subscribe_Then_Unsubscribe_Leaves_Nothing(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")

	sub, err := chat.service.Subscribe("u2", room.ID)
	req.NoError(err)
	req.True(chat.tracker.IsOnline("u2"))
	req.Equal([]string{"u2"}, chat.tracker.Members(room.ID))

	chat.service.Unsubscribe(sub)

	req.False(chat.tracker.IsOnline("u2"))
	req.False(chat.hub.Watching("u2", room.ID))
	req.Zero(chat.hub.Publish(room.ID, domain.Message{Room: room.ID, Seq: 1}))
	_, open := <-sub.Events()
	req.False(open)
	req.ErrorIs(sub.Err(), errors.ErrUnsubscribed)
}

func TestChatService_Closing_One_Stream_Keeps_The_Other_Joined(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")

	first, err := chat.service.Subscribe("u2", room.ID)
	req.NoError(err)
	second, err := chat.service.Subscribe("u2", room.ID)
	req.NoError(err)

	chat.service.Unsubscribe(first)
	req.True(chat.tracker.IsOnline("u2"))
	req.Equal(presence.Joined, chat.tracker.State("u2", room.ID))

	chat.service.Unsubscribe(second)
	req.False(chat.tracker.IsOnline("u2"))
}

func TestChatService_Leave_Closes_Every_Stream(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")
	chat.profile(t, "u1")

	// Given u2 watches the room from two streams and u3 from one
	first, err := chat.service.Subscribe("u2", room.ID)
	req.NoError(err)
	second, err := chat.service.Subscribe("u2", room.ID)
	req.NoError(err)
	other, err := chat.service.Subscribe("u3", room.ID)
	req.NoError(err)

	// When u2 leaves
	chat.service.Leave("u2", room.ID)

	// Then the membership is gone and both streams are closed
	req.Equal(presence.Absent, chat.tracker.State("u2", room.ID))
	req.False(chat.tracker.IsOnline("u2"))
	req.False(chat.hub.Watching("u2", room.ID))
	for _, sub := range []*runtime.Subscription{first, second} {
		_, open := <-sub.Events()
		req.False(open)
		req.ErrorIs(sub.Err(), errors.ErrUnsubscribed)
	}

	// And later messages only reach the remaining member
	msg, err := chat.service.PostMessage(domain.PostMessageCommand{Room: room.ID, AuthorID: "u1", Content: domain.TextContent("kumusta")})
	req.NoError(err)
	req.Equal(msg.Seq, (<-other.Events()).Seq)
	req.Empty(first.Events())
	req.Empty(second.Events())

	// The transport closing its handle afterwards changes nothing
	chat.service.Unsubscribe(first)
	members, err := chat.service.Members(room.ID)
	req.NoError(err)
	req.Equal([]string{"u3"}, members)
}

func TestChatService_Concurrent_Streams_Never_Outlive_Membership(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")

	// Given many streams of one identity opening and closing at once
	var orphans atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				sub, err := chat.service.Subscribe("u2", room.ID)
				if err != nil {
					t.Error(err)
					return
				}
				// a live stream always has a Joined membership behind it
				if chat.tracker.State("u2", room.ID) != presence.Joined {
					orphans.Add(1)
				}
				chat.service.Unsubscribe(sub)
			}
		}()
	}
	wg.Wait()

	// Then no stream was ever left without membership, and nothing remains
	req.Zero(orphans.Load())
	req.False(chat.hub.Watching("u2", room.ID))
	req.Equal(presence.Absent, chat.tracker.State("u2", room.ID))
	req.False(chat.tracker.IsOnline("u2"))
}

func TestChatService_Join_Heartbeat_Members(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")

	req.ErrorIs(chat.service.Join("u1", "missing"), errors.ErrNotFound)
	req.False(chat.service.Heartbeat("u1"))

	req.NoError(chat.service.Join("u1", room.ID))
	req.True(chat.service.Heartbeat("u1"))
	members, err := chat.service.Members(room.ID)
	req.NoError(err)
	req.Equal([]string{"u1"}, members)

	chat.service.Leave("u1", room.ID)
	members, err = chat.service.Members(room.ID)
	req.NoError(err)
	req.Empty(members)
}

func TestChatService_Rooms(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)

	_, err := chat.service.CreateRoom(domain.CreateRoomCommand{Name: "Bad", Region: "Central Visayas", Province: "Davao del Sur", CreatorID: "u1"})
	req.ErrorIs(err, errors.ErrValidation)
	_, err = chat.service.CreateRoom(domain.CreateRoomCommand{Region: "Central Visayas", Province: "Cebu", CreatorID: "u1"})
	req.ErrorIs(err, errors.ErrValidation)

	first := chat.room(t, "u1")
	second, err := chat.service.CreateRoom(domain.CreateRoomCommand{Name: "Bohol Beaches", Region: "Central Visayas", Province: "Bohol", CreatorID: "u2"})
	req.NoError(err)

	rooms, err := chat.service.ListRooms(domain.RoomFilter{}, 0)
	req.NoError(err)
	req.Len(rooms, 2)

	bohol, err := chat.service.ListRooms(domain.RoomFilter{Region: "Central Visayas", Province: "Bohol"}, 10)
	req.NoError(err)
	req.Len(bohol, 1)
	req.Equal(second.ID, bohol[0].ID)

	limited, err := chat.service.ListRooms(domain.RoomFilter{}, 1)
	req.NoError(err)
	req.Len(limited, 1)

	_, err = chat.service.RenameRoom(domain.RenameRoomCommand{Room: first.ID, CallerID: "u2", Name: "Mine"})
	req.ErrorIs(err, errors.ErrForbidden)
	renamed, err := chat.service.RenameRoom(domain.RenameRoomCommand{Room: first.ID, CallerID: "u1", Name: "Sugbo"})
	req.NoError(err)
	req.Equal("Sugbo", renamed.Name)

	got, err := chat.service.GetRoom(first.ID)
	req.NoError(err)
	req.Equal("Sugbo", got.Name)
}

func TestChatService_Profiles(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)

	_, err := chat.service.UpsertProfile(domain.UpsertProfileCommand{Identity: "u1", Username: "Juan"})
	req.NoError(err)
	_, err = chat.service.UpsertProfile(domain.UpsertProfileCommand{Identity: "u2", Username: "juan"})
	req.ErrorIs(err, errors.ErrConflict)
	_, err = chat.service.UpsertProfile(domain.UpsertProfileCommand{Identity: "u2", Username: "two words"})
	req.ErrorIs(err, errors.ErrValidation)

	profile, err := chat.service.GetProfile("u1")
	req.NoError(err)
	req.Equal("Juan", profile.Username)
}

func TestChatService_Profile_Follows_Live_Presence(t *testing.T) {
	req := require.New(t)
	chat := newTestChat(t)
	room := chat.room(t, "u1")

	// Given u2 subscribes before having a profile
	sub, err := chat.service.Subscribe("u2", room.ID)
	req.NoError(err)

	// When the profile is created
	created, err := chat.service.UpsertProfile(domain.UpsertProfileCommand{Identity: "u2", Username: "Maria"})

	// Then it is online, in the answer and in storage
	req.NoError(err)
	req.True(created.Online)
	stored, err := chat.profiles.Get("u2")
	req.NoError(err)
	req.True(stored.Online)

	// And reads follow the tracker once the stream closes
	chat.service.Unsubscribe(sub)
	profile, err := chat.service.GetProfile("u2")
	req.NoError(err)
	req.False(profile.Online)
	req.False(profile.LastSeen.IsZero())
}
