package event

import (
	"log/slog"
	"time"
)

// LatencyHandler measures the time between the append timestamp and the moment
// the telemetry worker sees the event.
type LatencyHandler struct {
	log              *slog.Logger
	latencyThreshold time.Duration
	now              func() time.Time
}

func NewLatencyHandler(log *slog.Logger, latencyThreshold time.Duration) *LatencyHandler {
	return &LatencyHandler{log: log, latencyThreshold: latencyThreshold, now: time.Now}
}

func (h *LatencyHandler) Handle(e Event) {
	payload, ok := e.Payload.(MessageAppended)
	if !ok {
		return
	}
	leadTime := h.now().Sub(payload.At)
	h.log.Debug("telemetry: publish latency",
		"room_id", payload.Room,
		"seq", payload.Seq,
		"fanout", payload.Fanout,
		"lead_time_ms", leadTime.Milliseconds(),
	)
	if leadTime > h.latencyThreshold {
		h.log.Warn("high latency detected", "room_id", payload.Room, "lead_time", leadTime)
	}
}
