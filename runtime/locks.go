package runtime

import (
	"chatrooms/domain"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultLockStripes = 256

type roomStripe struct {
	append  sync.Mutex
	publish sync.Mutex
}

// RoomLocks is a fixed arena of lock stripes indexed by the hash of a room id.
// Rooms sharing a stripe are serialized together; unrelated rooms never
// contend on a global lock and the table never grows.
type RoomLocks struct {
	stripes []roomStripe
}

func NewRoomLocks(stripes int) *RoomLocks {
	if stripes <= 0 {
		stripes = defaultLockStripes
	}
	return &RoomLocks{stripes: make([]roomStripe, stripes)}
}

func (l *RoomLocks) stripe(room domain.RoomID) *roomStripe {
	return &l.stripes[xxhash.Sum64String(string(room))%uint64(len(l.stripes))]
}

// AppendThenPublish runs persist under the room's append lock. On success the
// publish lock is taken before the append lock is released (hand-over-hand),
// then publish runs with only the publish lock held. The next appender can
// persist while this message fans out, yet cannot publish before it.
func (l *RoomLocks) AppendThenPublish(
	room domain.RoomID,
	persist func() (domain.Message, error),
	publish func(domain.Message),
) (domain.Message, error) {
	s := l.stripe(room)
	s.append.Lock()
	msg, err := persist()
	if err != nil {
		s.append.Unlock()
		return domain.Message{}, err
	}
	s.publish.Lock()
	s.append.Unlock()
	defer s.publish.Unlock()
	publish(msg)
	return msg, nil
}

// MemberLocks serializes the membership changes of one (identity, room) pair:
// subscribe, unsubscribe, leave and forced absence. Same fixed arena as
// RoomLocks, keyed by the hash of both ids.
type MemberLocks struct {
	stripes []sync.Mutex
}

func NewMemberLocks(stripes int) *MemberLocks {
	if stripes <= 0 {
		stripes = defaultLockStripes
	}
	return &MemberLocks{stripes: make([]sync.Mutex, stripes)}
}

// Lock takes the stripe of the pair and returns its unlock.
func (l *MemberLocks) Lock(identity string, room domain.RoomID) func() {
	d := xxhash.New()
	_, _ = d.WriteString(identity)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(string(room))
	m := &l.stripes[d.Sum64()%uint64(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
