package httpapi

import (
	"bytes"
	"chatrooms/api/chatv1"
	"chatrooms/auth"
	"chatrooms/domain"
	"chatrooms/errors"
	"chatrooms/mocks/servicemocks"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "my_strong_and_long_secret_key_2026"

type testGateway struct {
	chat   *servicemocks.MockIChatService
	router http.Handler
	token  string
}

func newTestGateway(t *testing.T) testGateway {
	t.Helper()
	ctrl := gomock.NewController(t)
	chat := servicemocks.NewMockIChatService(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	resolver := auth.NewJWTResolver(testSecret, time.Hour)
	token, err := resolver.GenerateToken("maria")
	require.NoError(t, err)
	handler := NewHandler(log, chat, func(*http.Request) bool { return true })
	return testGateway{chat: chat, router: NewRouter(log, handler, resolver), token: token}
}

func (g testGateway) do(method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	r.Header.Set("Authorization", "Bearer "+g.token)
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, r)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var cebuTalk = domain.Room{
	ID:        "room-1",
	Name:      "Cebu Talk",
	Region:    "Central Visayas",
	Province:  "Cebu",
	CreatorID: "maria",
	CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
}

func TestRouter_Rejects_Anonymous_Calls(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	req.Equal(http.StatusUnauthorized, rec.Code)
}

func TestRouter_Health_Is_Public(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	req.Equal(http.StatusOK, rec.Code)
}

func TestCreateRoom(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	// Given the service accepts a room created by the caller
	g.chat.EXPECT().CreateRoom(domain.CreateRoomCommand{
		Name:      "Cebu Talk",
		Region:    "Central Visayas",
		Province:  "Cebu",
		CreatorID: "maria",
	}).Return(cebuTalk, nil)

	// When the room is posted
	rec := g.do(http.MethodPost, "/rooms", `{"name":"Cebu Talk","region":"Central Visayas","province":"Cebu"}`)

	// Then it is returned with its id
	req.Equal(http.StatusCreated, rec.Code)
	room := decodeBody[chatv1.Room](t, rec)
	req.Equal("room-1", room.ID)
	req.Equal("maria", room.CreatorID)
}

func TestCreateRoom_Errors(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	// Malformed JSON never reaches the service
	rec := g.do(http.MethodPost, "/rooms", `{"name":`)
	req.Equal(http.StatusBadRequest, rec.Code)

	// Taxonomy errors keep their message
	g.chat.EXPECT().CreateRoom(gomock.Any()).
		Return(domain.Room{}, fmt.Errorf("%w: unknown region", errors.ErrValidation))
	rec = g.do(http.MethodPost, "/rooms", `{"name":"x","region":"Atlantis","province":"y"}`)
	req.Equal(http.StatusBadRequest, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	req.Contains(body.Message, "unknown region")
	req.NotEmpty(body.RequestID)

	// Anything else is an opaque internal error
	g.chat.EXPECT().CreateRoom(gomock.Any()).Return(domain.Room{}, errors.New("disk on fire"))
	rec = g.do(http.MethodPost, "/rooms", `{"name":"x","region":"Central Visayas","province":"Cebu"}`)
	req.Equal(http.StatusInternalServerError, rec.Code)
	req.Equal("internal error", decodeBody[errorResponse](t, rec).Message)
}

func TestListRooms(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	g.chat.EXPECT().ListRooms(domain.RoomFilter{Region: "Central Visayas", Province: "Cebu"}, 5).
		Return([]domain.Room{cebuTalk}, nil)

	rec := g.do(http.MethodGet, "/rooms?sort=recent&region=Central+Visayas&province=Cebu&limit=5", "")

	req.Equal(http.StatusOK, rec.Code)
	rooms := decodeBody[[]chatv1.Room](t, rec)
	req.Len(rooms, 1)
	req.Equal("Cebu Talk", rooms[0].Name)
}

func TestListRooms_Rejects_Bad_Query(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	req.Equal(http.StatusBadRequest, g.do(http.MethodGet, "/rooms?sort=alphabetical", "").Code)
	req.Equal(http.StatusBadRequest, g.do(http.MethodGet, "/rooms?limit=ten", "").Code)
}

func TestGetRoom_NotFound(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	g.chat.EXPECT().GetRoom(domain.RoomID("nope")).Return(domain.Room{}, errors.ErrNotFound)

	req.Equal(http.StatusNotFound, g.do(http.MethodGet, "/rooms/nope", "").Code)
}

func TestRenameRoom_Forbidden(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	g.chat.EXPECT().RenameRoom(domain.RenameRoomCommand{Room: "room-1", CallerID: "maria", Name: "Sugbo"}).
		Return(domain.Room{}, errors.ErrForbidden)

	req.Equal(http.StatusForbidden, g.do(http.MethodPatch, "/rooms/room-1", `{"name":"Sugbo"}`).Code)
}

func TestPostMessage_Image(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)
	id := uuid.New()

	// Given an image message attributed to the caller
	g.chat.EXPECT().PostMessage(domain.PostMessageCommand{
		Room:     "room-1",
		AuthorID: "maria",
		Content:  domain.ImageContent("images/beach.jpg"),
	}).Return(domain.Message{ID: id, Room: "room-1", AuthorID: "maria", Seq: 3, Kind: domain.KindImage, ImageRef: "images/beach.jpg"}, nil)

	// When it is posted
	rec := g.do(http.MethodPost, "/messages", `{"roomId":"room-1","kind":"image","content":"images/beach.jpg"}`)

	// Then the stored message comes back
	req.Equal(http.StatusCreated, rec.Code)
	msg := decodeBody[chatv1.Message](t, rec)
	req.Equal(id.String(), msg.ID)
	req.Equal(uint64(3), msg.Seq)
	req.Equal("image", msg.Kind)
	req.Empty(msg.Text)
}

func TestPostMessage_Unknown_Kind(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	rec := g.do(http.MethodPost, "/messages", `{"roomId":"room-1","kind":"video","content":"x"}`)

	req.Equal(http.StatusBadRequest, rec.Code)
}

func TestListMessages_Pages_With_Cursor(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)
	before := domain.NewCursor(10)

	g.chat.EXPECT().GetMessages(domain.GetMessagesCommand{Room: "room-1", Limit: 2, Before: before}).
		Return(domain.MessagePage{
			Messages: []domain.Message{{Seq: 9, Kind: domain.KindText, Text: "b"}, {Seq: 8, Kind: domain.KindText, Text: "a"}},
			Next:     domain.NewCursor(8),
		}, nil)

	rec := g.do(http.MethodGet, "/messages?roomId=room-1&limit=2&before="+before.String(), "")

	req.Equal(http.StatusOK, rec.Code)
	page := decodeBody[chatv1.ListMessagesResponse](t, rec)
	req.Len(page.Messages, 2)
	req.Equal(uint64(9), page.Messages[0].Seq)
	req.Equal(domain.NewCursor(8).String(), page.Cursor)
}

func TestSearchMessages(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	g.chat.EXPECT().SearchMessages(gomock.Any(), domain.SearchMessagesCommand{Room: "room-1", Query: "buntag"}).
		Return([]domain.Message{{Seq: 2, Kind: domain.KindText, Text: "maayong buntag"}}, nil)

	rec := g.do(http.MethodGet, "/messages/search?roomId=room-1&q=buntag", "")

	req.Equal(http.StatusOK, rec.Code)
	messages := decodeBody[[]chatv1.Message](t, rec)
	req.Len(messages, 1)
	req.Equal("maayong buntag", messages[0].Text)
}

func TestProfiles(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	g.chat.EXPECT().UpsertProfile(domain.UpsertProfileCommand{Identity: "maria", Username: "Maria"}).
		Return(domain.Profile{}, errors.ErrConflict)
	req.Equal(http.StatusConflict, g.do(http.MethodPut, "/profile", `{"username":"Maria"}`).Code)

	g.chat.EXPECT().GetProfile("juan").Return(domain.Profile{ID: "juan", Username: "Juan", Online: true}, nil)
	rec := g.do(http.MethodGet, "/profiles/juan", "")
	req.Equal(http.StatusOK, rec.Code)
	profile := decodeBody[chatv1.Profile](t, rec)
	req.True(profile.Online)
}

func TestPresence(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t)

	gomock.InOrder(
		g.chat.EXPECT().Join("maria", domain.RoomID("room-1")).Return(nil),
		g.chat.EXPECT().Heartbeat("maria").Return(true),
		g.chat.EXPECT().Leave("maria", domain.RoomID("room-1")),
	)
	g.chat.EXPECT().Members(domain.RoomID("room-1")).Return([]string{"maria"}, nil)

	req.Equal(http.StatusNoContent, g.do(http.MethodPost, "/presence/join", `{"roomId":"room-1"}`).Code)

	rec := g.do(http.MethodPost, "/presence/heartbeat", "")
	req.Equal(http.StatusOK, rec.Code)
	req.True(decodeBody[chatv1.HeartbeatResponse](t, rec).Active)

	req.Equal(http.StatusNoContent, g.do(http.MethodPost, "/presence/leave", `{"roomId":"room-1"}`).Code)

	rec = g.do(http.MethodGet, "/rooms/room-1/members", "")
	req.Equal([]string{"maria"}, decodeBody[chatv1.MembersResponse](t, rec).Members)
}
