package event

import (
	"chatrooms/errors"
	"log/slog"
	"sync"
)

// CensoredHandler counts moderation hits per word.
type CensoredHandler struct {
	mu      sync.Mutex
	log     *slog.Logger
	counter *Counter
	hit     map[string]uint64
}

func NewCensoredHandler(log *slog.Logger, counter *Counter) *CensoredHandler {
	return &CensoredHandler{
		log:     log,
		counter: counter,
		hit:     make(map[string]uint64),
	}
}

func (h *CensoredHandler) Handle(event Event) {
	if event.Type != CensorshipHitType {
		return
	}
	payload, ok := event.Payload.(Censored)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.mu.Lock()
	h.hit[payload.Word]++
	h.mu.Unlock()
	h.counter.Increment(CensorshipHitType)
}

func (h *CensoredHandler) Hits(word string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hit[word]
}
