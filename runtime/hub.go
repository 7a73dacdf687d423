// Package runtime handles live delivery of messages: room locks, the fan-out
// hub, subscriptions and the workers that keep them healthy.
// It contains no business rules.
package runtime

import (
	"chatrooms/contract"
	"chatrooms/domain"
	"chatrooms/domain/event"
	"chatrooms/errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	defaultBufferSize = 64
	defaultChunkSize  = 256
)

// DropListener is told about subscriptions evicted for being too slow.
type DropListener func(identity string, room domain.RoomID)

type HubStats struct {
	Rooms         int
	Subscriptions int
	Published     uint64
	Dropped       uint64
}

// Hub routes appended messages to the live subscriptions of their room.
// Publish for a given room must be serialized by the caller (see RoomLocks).
type Hub struct {
	mu         sync.RWMutex
	log        *slog.Logger
	rooms      map[domain.RoomID]map[uuid.UUID]*Subscription
	bufferSize int
	chunkSize  int
	emitter    contract.Emitter
	onDrop     DropListener
	closed     bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

func NewHub(log *slog.Logger, emitter contract.Emitter, bufferSize, chunkSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Hub{
		log:        log,
		rooms:      make(map[domain.RoomID]map[uuid.UUID]*Subscription),
		bufferSize: bufferSize,
		chunkSize:  chunkSize,
		emitter:    emitter,
	}
}

// OnDrop registers the listener called after a slow subscriber is evicted.
// It must be set before the hub is used.
// LinkPresence wires it to the tracker: the dropped membership is evicted and
// every other stream of the identity in that room is closed along with it.
func (h *Hub) OnDrop(listener DropListener) {
	h.onDrop = listener
}

func (h *Hub) Subscribe(room domain.RoomID, identity string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.ErrHubClosed
	}
	sub := newSubscription(identity, room, h.bufferSize)
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[uuid.UUID]*Subscription)
		h.rooms[room] = subs
	}
	subs[sub.ID] = sub
	h.log.Debug("subscription opened", "room_id", room, "identity", identity, "subscription_id", sub.ID)
	return sub, nil
}

// Unsubscribe closes the subscription channel immediately. It is idempotent.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	h.removeLocked(sub)
	h.mu.Unlock()
	if sub.close(errors.ErrUnsubscribed) {
		h.log.Debug("subscription closed", "room_id", sub.Room, "identity", sub.Identity, "subscription_id", sub.ID)
	}
}

// UnsubscribeMember closes every subscription the identity holds in the room.
func (h *Hub) UnsubscribeMember(identity string, room domain.RoomID) int {
	h.mu.Lock()
	subs := lo.Filter(lo.Values(h.rooms[room]), func(s *Subscription, _ int) bool {
		return s.Identity == identity
	})
	for _, s := range subs {
		h.removeLocked(s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.close(errors.ErrUnsubscribed)
	}
	return len(subs)
}

// Watching tells whether the identity still holds a subscription in the room.
func (h *Hub) Watching(identity string, room domain.RoomID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := lo.Find(lo.Values(h.rooms[room]), func(s *Subscription) bool {
		return s.Identity == identity
	})
	return ok
}

// Publish enqueues the message on every subscription of the room without
// blocking. Large rooms are split in chunks delivered concurrently; Publish
// returns only once every chunk is done. Subscriptions whose buffer is full
// are evicted. It returns how many subscriptions received the message.
func (h *Hub) Publish(room domain.RoomID, msg domain.Message) int {
	h.mu.RLock()
	subs := lo.Values(h.rooms[room])
	h.mu.RUnlock()
	if len(subs) == 0 {
		h.published.Add(1)
		return 0
	}

	chunks := lo.Chunk(subs, h.chunkSize)
	results := make([][]*Subscription, len(chunks))
	counts := make([]int, len(chunks))
	if len(chunks) == 1 {
		counts[0], results[0] = deliver(chunks[0], msg)
	} else {
		var wg sync.WaitGroup
		for i, chunk := range chunks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				counts[i], results[i] = deliver(chunk, msg)
			}()
		}
		wg.Wait()
	}
	h.published.Add(1)

	if evicted := lo.Flatten(results); len(evicted) > 0 {
		h.evict(evicted)
	}
	return lo.Sum(counts)
}

func deliver(subs []*Subscription, msg domain.Message) (int, []*Subscription) {
	var count int
	var evicted []*Subscription
	for _, s := range subs {
		switch s.offer(msg) {
		case delivered:
			count++
		case overflowed:
			evicted = append(evicted, s)
		}
	}
	return count, evicted
}

func (h *Hub) evict(subs []*Subscription) {
	h.mu.Lock()
	for _, s := range subs {
		h.removeLocked(s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		h.dropped.Add(1)
		h.log.Warn("slow subscriber dropped", "room_id", s.Room, "identity", s.Identity, "subscription_id", s.ID)
		h.emit(event.New(event.SubscriberDroppedType, event.SubscriberDropped{
			Room:           s.Room,
			Identity:       s.Identity,
			SubscriptionID: s.ID,
			Reason:         errors.ErrSlowConsumer.Error(),
		}))
		if h.onDrop != nil {
			h.onDrop(s.Identity, s.Room)
		}
	}
}

func (h *Hub) removeLocked(sub *Subscription) {
	subs, ok := h.rooms[sub.Room]
	if !ok {
		return
	}
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(h.rooms, sub.Room)
	}
}

func (h *Hub) emit(e event.Event) {
	if h.emitter != nil {
		h.emitter.Emit(e)
	}
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, subs := range h.rooms {
		total += len(subs)
	}
	return HubStats{
		Rooms:         len(h.rooms),
		Subscriptions: total,
		Published:     h.published.Load(),
		Dropped:       h.dropped.Load(),
	}
}

// Close ends every subscription. Later Subscribe calls fail with ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	rooms := h.rooms
	h.rooms = make(map[domain.RoomID]map[uuid.UUID]*Subscription)
	h.mu.Unlock()

	for _, subs := range rooms {
		for _, s := range subs {
			s.close(errors.ErrHubClosed)
		}
	}
}
