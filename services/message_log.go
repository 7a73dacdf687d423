package services

import (
	"chatrooms/contract"
	"chatrooms/domain"
	"chatrooms/domain/event"
	"chatrooms/errors"
	"chatrooms/infrastructure/storage"
	"chatrooms/moderation"
	"chatrooms/runtime"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageLog is the append-only history of every room. Appends of one room
// are serialized by its room lock and pushed to the hub in sequence order
// before Append returns.
type MessageLog struct {
	log       *slog.Logger
	rooms     storage.IRoomRepository
	profiles  storage.IProfileRepository
	messages  storage.IMessageRepository
	index     storage.ISearchIndex
	moderator *moderation.Moderator
	locks     *runtime.RoomLocks
	publisher contract.Publisher
	emitter   contract.Emitter
	pageSize  int
	maxPage   int
	now       func() time.Time
}

type MessageLogOption func(*MessageLog)

// WithModerator masks censored words of text messages before they are stored.
func WithModerator(m *moderation.Moderator) MessageLogOption {
	return func(l *MessageLog) { l.moderator = m }
}

// WithSearchIndex indexes every appended text message.
func WithSearchIndex(index storage.ISearchIndex) MessageLogOption {
	return func(l *MessageLog) { l.index = index }
}

func WithEmitter(emitter contract.Emitter) MessageLogOption {
	return func(l *MessageLog) { l.emitter = emitter }
}

// WithPageSize sets the default and maximum page sizes of ListRecent.
func WithPageSize(pageSize, maxPage int) MessageLogOption {
	return func(l *MessageLog) {
		if maxPage > 0 {
			l.maxPage = maxPage
		}
		if pageSize > 0 {
			l.pageSize = pageSize
		}
	}
}

func NewMessageLog(
	log *slog.Logger,
	rooms storage.IRoomRepository,
	profiles storage.IProfileRepository,
	messages storage.IMessageRepository,
	locks *runtime.RoomLocks,
	publisher contract.Publisher,
	opts ...MessageLogOption,
) *MessageLog {
	l := &MessageLog{
		log:       log,
		rooms:     rooms,
		profiles:  profiles,
		messages:  messages,
		locks:     locks,
		publisher: publisher,
		pageSize:  defaultPageSize,
		maxPage:   maxPageSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.pageSize = min(l.pageSize, l.maxPage)
	return l
}

// Append validates the content, assigns the next sequence number of the room
// and hands the stored message to the hub. Nothing is persisted when any
// check fails.
func (l *MessageLog) Append(cmd domain.PostMessageCommand) (domain.Message, error) {
	if err := validateCommand(cmd); err != nil {
		return domain.Message{}, err
	}
	if err := cmd.Content.Validate(); err != nil {
		return domain.Message{}, err
	}
	if _, err := l.rooms.Get(cmd.Room); err != nil {
		return domain.Message{}, err
	}
	if _, err := l.profiles.Get(cmd.AuthorID); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return domain.Message{}, fmt.Errorf("%w: author %s has no profile", errors.ErrNotFound, cmd.AuthorID)
		}
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:       uuid.New(),
		Room:     cmd.Room,
		AuthorID: cmd.AuthorID,
		Kind:     cmd.Content.Kind,
		Text:     cmd.Content.Text,
		ImageRef: cmd.Content.ImageRef,
	}
	var censoredWords []string
	if msg.Kind == domain.KindText && l.moderator != nil {
		verdict := l.moderator.Review(msg.Text)
		msg.Text = verdict.Text
		msg.Lang = verdict.Lang
		msg.Censored = verdict.Censored
		censoredWords = verdict.Words
	}

	stored, err := l.locks.AppendThenPublish(cmd.Room,
		func() (domain.Message, error) {
			msg.CreatedAt = l.now().UTC()
			return l.messages.Append(msg)
		},
		func(m domain.Message) {
			fanout := l.publisher.Publish(m.Room, m)
			l.emit(event.New(event.MessageAppendedType, event.MessageAppended{
				ID:       m.ID,
				Room:     m.Room,
				Seq:      m.Seq,
				Author:   m.AuthorID,
				At:       m.CreatedAt,
				Fanout:   fanout,
				Censored: m.Censored,
			}))
		})
	if err != nil {
		l.log.Error("unable to append message", "room", cmd.Room, "author", cmd.AuthorID, "error", err)
		return domain.Message{}, err
	}

	for _, word := range censoredWords {
		l.emit(event.New(event.CensorshipHitType, event.Censored{Room: stored.Room, Word: word}))
	}
	if l.index != nil && stored.Kind == domain.KindText {
		if err = l.index.Index(stored); err != nil {
			l.log.Warn("unable to index message", "room", stored.Room, "seq", stored.Seq, "error", err)
		}
	}
	return stored, nil
}

// ListRecent returns a page of the room history, newest first, strictly
// before the command cursor.
func (l *MessageLog) ListRecent(cmd domain.GetMessagesCommand) (domain.MessagePage, error) {
	if err := validateCommand(cmd); err != nil {
		return domain.MessagePage{}, err
	}
	before, err := cmd.Before.Seq()
	if err != nil {
		return domain.MessagePage{}, err
	}
	if _, err = l.rooms.Get(cmd.Room); err != nil {
		return domain.MessagePage{}, err
	}
	limit := l.limit(cmd.Limit)
	messages, err := l.messages.ListRecent(cmd.Room, limit, before)
	if err != nil {
		return domain.MessagePage{}, err
	}
	page := domain.MessagePage{Messages: messages}
	if len(messages) == limit {
		if last := messages[len(messages)-1]; last.Seq > 1 {
			page.Next = last.Cursor()
		}
	}
	return page, nil
}

// Search runs a full-text query over the text messages of a room and returns
// the matching messages by relevance.
func (l *MessageLog) Search(ctx context.Context, cmd domain.SearchMessagesCommand) ([]domain.Message, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	if l.index == nil {
		return nil, fmt.Errorf("%w: search is disabled", errors.ErrServiceUnavailable)
	}
	if _, err := l.rooms.Get(cmd.Room); err != nil {
		return nil, err
	}
	seqs, err := l.index.Search(ctx, cmd.Room, cmd.Query, l.limit(cmd.Limit))
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(seqs))
	for _, seq := range seqs {
		msg, err := l.messages.Get(cmd.Room, seq)
		if errors.Is(err, errors.ErrNotFound) {
			l.log.Debug("indexed message not found", "room", cmd.Room, "seq", seq)
			continue
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (l *MessageLog) limit(requested int) int {
	switch {
	case requested <= 0:
		return l.pageSize
	case requested > l.maxPage:
		return l.maxPage
	default:
		return requested
	}
}

func (l *MessageLog) emit(e event.Event) {
	if l.emitter != nil {
		l.emitter.Emit(e)
	}
}
