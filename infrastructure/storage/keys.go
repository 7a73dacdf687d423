package storage

import (
	"chatrooms/domain"
	"fmt"
	"math"
	"strings"
)

// Key layout:
//
//	room:{id}                          -> room record
//	room_by_time:{created_nano}:{id}   -> empty, newest-first listing index
//	seq:{room}                         -> last assigned sequence number
//	msg:{room}:{seq}                   -> message record
//	profile:{id}                       -> profile record
//	username:{lower(username)}         -> profile id
//
// Numbers are zero padded so that lexicographical order matches numeric order.
const (
	roomPrefix       = "room:"
	roomByTimePrefix = "room_by_time:"
	seqPrefix        = "seq:"
	msgPrefix        = "msg:"
	profilePrefix    = "profile:"
	usernamePrefix   = "username:"
)

func roomKey(id domain.RoomID) []byte { return []byte(roomPrefix + string(id)) }

func roomByTimeKey(r domain.Room) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", roomByTimePrefix, r.CreatedAt.UnixNano(), r.ID))
}

// roomIDFromIndexKey extracts the id from a room_by_time key.
func roomIDFromIndexKey(key []byte) domain.RoomID {
	rest := strings.TrimPrefix(string(key), roomByTimePrefix)
	_, id, _ := strings.Cut(rest, ":")
	return domain.RoomID(id)
}

func seqKey(room domain.RoomID) []byte { return []byte(seqPrefix + string(room)) }

func messagePrefix(room domain.RoomID) []byte {
	return []byte(msgPrefix + string(room) + ":")
}

func messageKey(room domain.RoomID, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", msgPrefix, room, seq))
}

// messageSeekKey returns the key a reverse iterator seeks to in order to
// start strictly before the given sequence. Zero means "from the newest".
func messageSeekKey(room domain.RoomID, before uint64) []byte {
	if before == 0 {
		return messageKey(room, math.MaxUint64)
	}
	return messageKey(room, before-1)
}

func profileKey(id string) []byte { return []byte(profilePrefix + id) }

func usernameKey(lower string) []byte { return []byte(usernamePrefix + lower) }
