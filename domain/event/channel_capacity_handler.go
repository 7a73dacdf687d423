package event

import (
	"chatrooms/errors"
	"fmt"
	"log/slog"
)

// ChannelCapacityHandler handles events reporting the capacity of channels.
// Useful for detecting backpressure before subscribers get dropped.
type ChannelCapacityHandler struct {
	log                  *slog.Logger
	lowCapacityThreshold int
}

func NewChannelCapacityHandler(log *slog.Logger, lowCapacityThreshold int) *ChannelCapacityHandler {
	return &ChannelCapacityHandler{log: log, lowCapacityThreshold: lowCapacityThreshold}
}

func (h ChannelCapacityHandler) Handle(event Event) {
	if event.Type != ChannelCapacityType {
		return
	}
	payload, ok := event.Payload.(ChannelCapacity)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.log.Debug(fmt.Sprintf("Channel %s usage: %d / %d", payload.ChannelName, payload.Length, payload.Capacity))
	if payload.Capacity <= 0 {
		// unbuffered
		return
	}
	capacityLeft := payload.Capacity - payload.Length
	if capacityLeft > 0 && capacityLeft <= h.lowCapacityThreshold {
		h.log.Warn(fmt.Sprintf("channel %s capacity left : %d", payload.ChannelName, capacityLeft))
	}
}
