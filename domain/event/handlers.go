package event

import (
	"chatrooms/errors"
	"fmt"
	"log/slog"
)

// Handler Each kind of event has his own handler
// Based on the Chain of responsibility pattern
type Handler interface {
	Handle(event Event)
}

// SubscriberDroppedHandler logs every subscription evicted by the hub.
type SubscriberDroppedHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewSubscriberDroppedHandler(log *slog.Logger, counter *Counter) *SubscriberDroppedHandler {
	return &SubscriberDroppedHandler{log: log, counter: counter}
}

func (h *SubscriberDroppedHandler) Handle(event Event) {
	if event.Type != SubscriberDroppedType {
		return
	}
	payload, ok := event.Payload.(SubscriberDropped)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.counter.Increment(SubscriberDroppedType)
	h.log.Warn("subscriber dropped",
		"room_id", payload.Room,
		"identity", payload.Identity,
		"subscription_id", payload.SubscriptionID,
		"reason", payload.Reason)
}

type PresenceChangedHandler struct {
	log *slog.Logger
}

func NewPresenceChangedHandler(log *slog.Logger) *PresenceChangedHandler {
	return &PresenceChangedHandler{log: log}
}

func (h *PresenceChangedHandler) Handle(event Event) {
	if event.Type != PresenceChangedType {
		return
	}
	payload, ok := event.Payload.(PresenceChanged)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.log.Debug(fmt.Sprintf("presence of %s: online=%t", payload.Identity, payload.Online))
}

// UsageHandler reports process and hub gauges.
type UsageHandler struct {
	log *slog.Logger
}

func NewUsageHandler(log *slog.Logger) *UsageHandler {
	return &UsageHandler{log: log}
}

func (h *UsageHandler) Handle(event Event) {
	switch payload := event.Payload.(type) {
	case HubStats:
		h.log.Debug("hub stats", "rooms", payload.Rooms, "subscriptions", payload.Subscriptions)
	case ProcessUsage:
		h.log.Debug(fmt.Sprintf("PID %d | CPU %.2f%% | RAM %d bytes", payload.PID, payload.Cpu, payload.Ram))
	}
}
