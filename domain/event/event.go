// Package event carries telemetry about the running system.
// Events are produced by the runtime and consumed by handlers in the telemetry worker.
// They never travel to chat clients.
package event

import (
	"chatrooms/domain"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	MessageAppendedType     Type = "MESSAGE_APPENDED"
	SubscriberDroppedType   Type = "SUBSCRIBER_DROPPED"
	PresenceChangedType     Type = "PRESENCE_CHANGED"
	CensorshipHitType       Type = "CENSORSHIP_HIT"
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
	HubStatsType            Type = "HUB_STATS"
	ProcessUsageType        Type = "PROCESS_USAGE"
)

type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

type MessageAppended struct {
	ID       uuid.UUID
	Room     domain.RoomID
	Seq      uint64
	Author   string
	At       time.Time
	Fanout   int
	Censored bool
}

type SubscriberDropped struct {
	Room           domain.RoomID
	Identity       string
	SubscriptionID uuid.UUID
	Reason         string
}

type PresenceChanged struct {
	Identity string
	Online   bool
	LastSeen time.Time
}

type Censored struct {
	Room domain.RoomID
	Word string
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type HubStats struct {
	Rooms         int
	Subscriptions int
}

type ProcessUsage struct {
	PID int32
	Cpu float64
	Ram uint64
}
