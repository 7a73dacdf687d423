package runtime

import (
	"chatrooms/domain"
	"chatrooms/errors"
	"sync"

	"github.com/google/uuid"
)

type offerResult int

const (
	delivered offerResult = iota
	overflowed
	alreadyClosed
)

// Subscription is the live handle of one viewer on one room. Events arrive in
// sequence order; the channel is closed when the subscription ends and Err
// tells why.
type Subscription struct {
	ID       uuid.UUID
	Identity string
	Room     domain.RoomID

	mu     sync.Mutex
	events chan domain.Message
	closed bool
	err    error
}

func newSubscription(identity string, room domain.RoomID, bufferSize int) *Subscription {
	return &Subscription{
		ID:       uuid.New(),
		Identity: identity,
		Room:     room,
		events:   make(chan domain.Message, bufferSize),
	}
}

func (s *Subscription) Events() <-chan domain.Message {
	return s.events
}

// Err is nil while the subscription is live.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Usage reports the buffer length and capacity.
func (s *Subscription) Usage() (length, capacity int) {
	return len(s.events), cap(s.events)
}

// offer never blocks. A full buffer closes the subscription.
func (s *Subscription) offer(msg domain.Message) offerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return alreadyClosed
	}
	select {
	case s.events <- msg:
		return delivered
	default:
		s.closeLocked(errors.ErrSlowConsumer)
		return overflowed
	}
}

func (s *Subscription) close(reason error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closeLocked(reason)
	return true
}

func (s *Subscription) closeLocked(reason error) {
	s.closed = true
	s.err = reason
	close(s.events)
}
