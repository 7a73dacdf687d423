package chatv1

import (
	"chatrooms/domain"
	"time"

	"github.com/samber/lo"
)

type Empty struct{}

type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Region      string    `json:"region"`
	Province    string    `json:"province"`
	Description string    `json:"description,omitempty"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	AuthorID  string    `json:"authorId"`
	Seq       uint64    `json:"seq"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text,omitempty"`
	ImageRef  string    `json:"imageRef,omitempty"`
	Lang      string    `json:"lang,omitempty"`
	Censored  bool      `json:"censored,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarRef string    `json:"avatar,omitempty"`
	Online    bool      `json:"online"`
	LastSeen  time.Time `json:"lastSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Region      string `json:"region"`
	Province    string `json:"province"`
	Description string `json:"description,omitempty"`
}

type ListRoomsRequest struct {
	Sort     string `json:"sort,omitempty"`
	Region   string `json:"region,omitempty"`
	Province string `json:"province,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type ListRoomsResponse struct {
	Rooms []Room `json:"rooms"`
}

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type RenameRoomRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// PostMessageRequest carries the text, or the image reference when Kind is
// "image", in Content.
type PostMessageRequest struct {
	RoomID  string `json:"roomId"`
	Kind    string `json:"kind,omitempty"`
	Content string `json:"content"`
}

type ListMessagesRequest struct {
	RoomID string `json:"roomId"`
	Limit  int    `json:"limit,omitempty"`
	Before string `json:"before,omitempty"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Cursor   string    `json:"cursor,omitempty"`
}

type SearchMessagesRequest struct {
	RoomID string `json:"roomId"`
	Query  string `json:"q"`
	Limit  int    `json:"limit,omitempty"`
}

type SearchMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type UpsertProfileRequest struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type ProfileRequest struct {
	ID string `json:"id"`
}

type HeartbeatResponse struct {
	Active bool `json:"active"`
}

type MembersResponse struct {
	Members []string `json:"members"`
}

// PostMessageCommand maps the request to the domain, attributing it to author.
func (r *PostMessageRequest) PostMessageCommand(author string) (domain.PostMessageCommand, error) {
	kind, err := domain.ParseKind(r.Kind)
	if err != nil {
		return domain.PostMessageCommand{}, err
	}
	content := domain.TextContent(r.Content)
	if kind == domain.KindImage {
		content = domain.ImageContent(r.Content)
	}
	return domain.PostMessageCommand{Room: domain.RoomID(r.RoomID), AuthorID: author, Content: content}, nil
}

func FromRoom(r domain.Room) Room {
	return Room{
		ID:          string(r.ID),
		Name:        r.Name,
		Region:      r.Region,
		Province:    r.Province,
		Description: r.Description,
		CreatorID:   r.CreatorID,
		CreatedAt:   r.CreatedAt,
	}
}

func FromRooms(rooms []domain.Room) []Room {
	return lo.Map(rooms, func(r domain.Room, _ int) Room { return FromRoom(r) })
}

func FromMessage(m domain.Message) Message {
	return Message{
		ID:        m.ID.String(),
		RoomID:    string(m.Room),
		AuthorID:  m.AuthorID,
		Seq:       m.Seq,
		Kind:      string(m.Kind),
		Text:      m.Text,
		ImageRef:  m.ImageRef,
		Lang:      m.Lang,
		Censored:  m.Censored,
		CreatedAt: m.CreatedAt,
	}
}

func FromMessages(messages []domain.Message) []Message {
	return lo.Map(messages, func(m domain.Message, _ int) Message { return FromMessage(m) })
}

func FromProfile(p domain.Profile) Profile {
	return Profile{
		ID:        p.ID,
		Username:  p.Username,
		AvatarRef: p.AvatarRef,
		Online:    p.Online,
		LastSeen:  p.LastSeen,
		CreatedAt: p.CreatedAt,
	}
}
