// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"chatrooms/errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindText, "":
		return KindText, nil
	case KindImage:
		return KindImage, nil
	default:
		return "", fmt.Errorf("%w: unknown message kind %q", errors.ErrValidation, s)
	}
}

// Content is the payload of a message: a text body or an image reference,
// never both.
type Content struct {
	Kind     Kind
	Text     string
	ImageRef string
}

func TextContent(text string) Content { return Content{Kind: KindText, Text: text} }

func ImageContent(ref string) Content { return Content{Kind: KindImage, ImageRef: ref} }

// Validate enforces the mutually exclusive payload rule.
func (c Content) Validate() error {
	switch c.Kind {
	case KindText:
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("%w: text message is empty", errors.ErrValidation)
		}
		if c.ImageRef != "" {
			return fmt.Errorf("%w: text message carries an image reference", errors.ErrValidation)
		}
	case KindImage:
		if strings.TrimSpace(c.ImageRef) == "" {
			return fmt.Errorf("%w: image message has no reference", errors.ErrValidation)
		}
		if c.Text != "" {
			return fmt.Errorf("%w: image message carries a text body", errors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown message kind %q", errors.ErrValidation, c.Kind)
	}
	return nil
}

// Message represents an immutable chat event. Seq is the per-room order,
// CreatedAt is informational only.
type Message struct {
	ID        uuid.UUID
	Room      RoomID
	AuthorID  string
	Seq       uint64
	Kind      Kind
	Text      string
	ImageRef  string
	Lang      string
	Censored  bool
	CreatedAt time.Time
}

func (m Message) Content() Content {
	return Content{Kind: m.Kind, Text: m.Text, ImageRef: m.ImageRef}
}

// Cursor returns the pagination token pointing just before this message.
func (m Message) Cursor() Cursor {
	return NewCursor(m.Seq)
}

// MessagePage is one page of a room history, newest first. Next is empty
// when the page reached the first message of the room.
type MessagePage struct {
	Messages []Message
	Next     Cursor
}
