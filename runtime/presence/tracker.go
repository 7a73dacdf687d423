// Package presence tracks room memberships and derives the online status of
// identities from them.
package presence

import (
	"chatrooms/contract"
	"chatrooms/domain"
	"chatrooms/domain/event"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// State of one (identity, room) membership.
type State int

const (
	Absent State = iota
	Joined
)

func (s State) String() string {
	if s == Joined {
		return "joined"
	}
	return "absent"
}

type membershipKey struct {
	identity string
	room     domain.RoomID
}

type membership struct {
	state    State
	lastBeat time.Time
}

// AbsentListener is told when a membership is forced to Absent by the tracker
// itself (expiry or eviction), so live subscriptions can be closed.
type AbsentListener func(identity string, room domain.RoomID)

// Tracker is the only writer of presence. Every transition that flips the
// online flag of an identity is queued for persistence; Pending drains the queue.
type Tracker struct {
	mu          sync.Mutex
	log         *slog.Logger
	window      time.Duration
	now         func() time.Time
	memberships map[membershipKey]*membership
	online      map[string]bool
	lastSeen    map[string]time.Time
	pending     map[string]domain.Presence
	notify      chan struct{}
	onAbsent    AbsentListener
	emitter     contract.Emitter
}

func NewTracker(log *slog.Logger, window time.Duration, emitter contract.Emitter) *Tracker {
	return &Tracker{
		log:         log,
		window:      window,
		now:         time.Now,
		memberships: make(map[membershipKey]*membership),
		online:      make(map[string]bool),
		lastSeen:    make(map[string]time.Time),
		pending:     make(map[string]domain.Presence),
		notify:      make(chan struct{}, 1),
		emitter:     emitter,
	}
}

// OnAbsent registers the listener for forced transitions. It must be set
// before the tracker is used.
func (t *Tracker) OnAbsent(listener AbsentListener) {
	t.onAbsent = listener
}

// WithClock replaces the time source, for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) Window() time.Duration {
	return t.window
}

// Join moves the membership to Joined and counts as a heartbeat. Joining twice
// is a no-op besides the refresh.
func (t *Tracker) Join(identity string, room domain.RoomID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	key := membershipKey{identity: identity, room: room}
	m, ok := t.memberships[key]
	if !ok {
		m = &membership{}
		t.memberships[key] = m
	}
	m.state = Joined
	m.lastBeat = now
	t.recomputeLocked(identity, now)
}

// Leave moves the membership to Absent. LastSeen is stamped with the leave time.
func (t *Tracker) Leave(identity string, room domain.RoomID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := membershipKey{identity: identity, room: room}
	if _, ok := t.memberships[key]; !ok {
		return
	}
	delete(t.memberships, key)
	t.recomputeLocked(identity, t.now())
}

// Evict marks a membership Absent on behalf of the runtime, e.g. after its
// subscriber was dropped, and notifies the absent listener.
func (t *Tracker) Evict(identity string, room domain.RoomID) {
	t.mu.Lock()
	key := membershipKey{identity: identity, room: room}
	m, ok := t.memberships[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.memberships, key)
	t.recomputeLocked(identity, m.lastBeat)
	t.mu.Unlock()

	if t.onAbsent != nil {
		t.onAbsent(identity, room)
	}
}

// Heartbeat refreshes every Joined membership of the identity.
// It returns false when the identity has none.
func (t *Tracker) Heartbeat(identity string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	refreshed := false
	for key, m := range t.memberships {
		if key.identity == identity && m.state == Joined {
			m.lastBeat = now
			refreshed = true
		}
	}
	return refreshed
}

// Sweep forces to Absent every membership whose last heartbeat is older than
// the liveness window. LastSeen is the last heartbeat, not the sweep time.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	now := t.now()
	var expired []membershipKey
	lastBeats := make(map[string]time.Time)
	for key, m := range t.memberships {
		if now.Sub(m.lastBeat) > t.window {
			expired = append(expired, key)
			if m.lastBeat.After(lastBeats[key.identity]) {
				lastBeats[key.identity] = m.lastBeat
			}
		}
	}
	for _, key := range expired {
		delete(t.memberships, key)
	}
	for identity, beat := range lastBeats {
		t.recomputeLocked(identity, beat)
	}
	t.mu.Unlock()

	for _, key := range expired {
		t.log.Debug("membership expired", "identity", key.identity, "room_id", key.room)
		if t.onAbsent != nil {
			t.onAbsent(key.identity, key.room)
		}
	}
	return len(expired)
}

// recomputeLocked derives the online flag as the OR over memberships and
// queues a transition when it flips. seen stamps LastSeen on the way offline.
func (t *Tracker) recomputeLocked(identity string, seen time.Time) {
	online := false
	for key, m := range t.memberships {
		if key.identity == identity && m.state == Joined {
			online = true
			break
		}
	}
	if online == t.online[identity] {
		return
	}
	presence := domain.Presence{Identity: identity, Online: online}
	if online {
		t.online[identity] = true
	} else {
		delete(t.online, identity)
		t.lastSeen[identity] = seen
		presence.LastSeen = seen
	}
	t.pending[identity] = presence
	select {
	case t.notify <- struct{}{}:
	default:
	}
	if t.emitter != nil {
		t.emitter.Emit(event.New(event.PresenceChangedType, event.PresenceChanged{
			Identity: identity,
			Online:   online,
			LastSeen: presence.LastSeen,
		}))
	}
}

func (t *Tracker) IsOnline(identity string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online[identity]
}

// Presence returns the tracker's current view of an identity.
func (t *Tracker) Presence(identity string) domain.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.Presence{Identity: identity, Online: t.online[identity], LastSeen: t.lastSeen[identity]}
}

func (t *Tracker) State(identity string, room domain.RoomID) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.memberships[membershipKey{identity: identity, room: room}]; ok {
		return m.state
	}
	return Absent
}

// Members lists the identities Joined in a room, sorted.
func (t *Tracker) Members(room domain.RoomID) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var members []string
	for key, m := range t.memberships {
		if key.room == room && m.state == Joined {
			members = append(members, key.identity)
		}
	}
	sort.Strings(members)
	return members
}

// Changed is signalled whenever transitions are waiting in Pending.
func (t *Tracker) Changed() <-chan struct{} {
	return t.notify
}

// Pending hands over the queued transitions, latest per identity.
func (t *Tracker) Pending() []domain.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return nil
	}
	out := make([]domain.Presence, 0, len(t.pending))
	for _, p := range t.pending {
		out = append(out, p)
	}
	t.pending = make(map[string]domain.Presence)
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}
