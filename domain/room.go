// Package domain contains core concepts of the chat system.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"chatrooms/errors"
	"fmt"
	"strings"
	"time"
)

type RoomID string

func (id RoomID) String() string { return string(id) }

// Room is a location-scoped chat channel. Rooms are never deleted.
type Room struct {
	ID          RoomID
	Name        string
	Region      string
	Province    string
	Description string
	CreatorID   string
	CreatedAt   time.Time
}

// NewRoom validates the creation input and returns a room without identity
// nor timestamp; both are assigned by the store.
func NewRoom(name, region, province, description, creatorID string) (Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Room{}, fmt.Errorf("%w: room name is empty", errors.ErrValidation)
	}
	if strings.TrimSpace(creatorID) == "" {
		return Room{}, fmt.Errorf("%w: creator is empty", errors.ErrValidation)
	}
	if err := ValidateLocation(region, province); err != nil {
		return Room{}, err
	}
	return Room{
		Name:        name,
		Region:      region,
		Province:    province,
		Description: strings.TrimSpace(description),
		CreatorID:   creatorID,
	}, nil
}

// Rename changes the display name. Only the creator may rename a room.
func (r Room) Rename(callerID, name string) (Room, error) {
	if callerID != r.CreatorID {
		return Room{}, fmt.Errorf("%w: only the creator can rename room %s", errors.ErrForbidden, r.ID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Room{}, fmt.Errorf("%w: room name is empty", errors.ErrValidation)
	}
	r.Name = name
	return r, nil
}

// RoomFilter narrows a room listing to a region and optionally a province.
type RoomFilter struct {
	Region   string
	Province string
}

func (f RoomFilter) Match(r Room) bool {
	if f.Region != "" && f.Region != r.Region {
		return false
	}
	if f.Province != "" && f.Province != r.Province {
		return false
	}
	return true
}
