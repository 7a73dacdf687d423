package event

import (
	"chatrooms/errors"
	"log/slog"
)

// MessageAppendedHandler counts messages accepted by the log.
type MessageAppendedHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewMessageAppendedHandler(log *slog.Logger, counter *Counter) *MessageAppendedHandler {
	return &MessageAppendedHandler{log: log, counter: counter}
}

func (p *MessageAppendedHandler) Handle(event Event) {
	if event.Type != MessageAppendedType {
		return
	}
	if _, ok := event.Payload.(MessageAppended); !ok {
		p.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	p.counter.Increment(MessageAppendedType)
}
