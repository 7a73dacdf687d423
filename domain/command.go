package domain

type Command interface {
	RoomID() RoomID
}

type CreateRoomCommand struct {
	Name        string `validate:"required,max=80"`
	Region      string `validate:"required"`
	Province    string `validate:"required"`
	Description string `validate:"max=500"`
	CreatorID   string `validate:"required"`
}

type RenameRoomCommand struct {
	Room     RoomID `validate:"required"`
	CallerID string `validate:"required"`
	Name     string `validate:"required,max=80"`
}

func (c RenameRoomCommand) RoomID() RoomID { return c.Room }

type PostMessageCommand struct {
	Room     RoomID `validate:"required"`
	AuthorID string `validate:"required"`
	Content  Content
}

func (c PostMessageCommand) RoomID() RoomID { return c.Room }

type GetMessagesCommand struct {
	Room   RoomID `validate:"required"`
	Limit  int    `validate:"gte=0"`
	Before Cursor
}

func (c GetMessagesCommand) RoomID() RoomID { return c.Room }

type SearchMessagesCommand struct {
	Room  RoomID `validate:"required"`
	Query string `validate:"required,max=200"`
	Limit int    `validate:"gte=0"`
}

func (c SearchMessagesCommand) RoomID() RoomID { return c.Room }

type UpsertProfileCommand struct {
	Identity  string `validate:"required"`
	Username  string `validate:"required"`
	AvatarRef string `validate:"omitempty,max=2048"`
}
