package storage

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Record is a decoded badger entry, as shown by the debugging tools.
type Record struct {
	Key    string
	Kind   string
	Detail string
}

// KeyPrefixes lists the prefixes of every record family, in display order.
func KeyPrefixes() []string {
	return []string{roomPrefix, roomByTimePrefix, seqPrefix, msgPrefix, profilePrefix, usernamePrefix}
}

// Describe decodes a raw entry. Unknown or corrupted values are reported, never
// returned as errors.
func Describe(key string, val []byte) Record {
	record := Record{Key: key, Kind: "RAW", Detail: fmt.Sprintf("Size: %d bytes", len(val))}
	switch {
	case strings.HasPrefix(key, roomByTimePrefix):
		record.Kind = "ROOM_INDEX"
		record.Detail = string(roomIDFromIndexKey([]byte(key)))
	case strings.HasPrefix(key, roomPrefix):
		record.Kind = "ROOM"
		if r, err := decodeRoom(val); err == nil {
			record.Detail = fmt.Sprintf("%s (%s / %s) by %s", r.Name, r.Region, r.Province, r.CreatorID)
		} else {
			record.Detail = "Error: " + err.Error()
		}
	case strings.HasPrefix(key, seqPrefix):
		record.Kind = "SEQ"
		if len(val) == 8 {
			record.Detail = fmt.Sprintf("last=%d", binary.BigEndian.Uint64(val))
		}
	case strings.HasPrefix(key, msgPrefix):
		record.Kind = "MESSAGE"
		if m, err := decodeMessage(val); err == nil {
			body := m.Text
			if body == "" {
				body = "[image] " + m.ImageRef
			}
			record.Detail = fmt.Sprintf("#%d %s: %s", m.Seq, m.AuthorID, body)
		} else {
			record.Detail = "Error: " + err.Error()
		}
	case strings.HasPrefix(key, profilePrefix):
		record.Kind = "PROFILE"
		if p, err := decodeProfile(val); err == nil {
			record.Detail = fmt.Sprintf("%s online=%t", p.Username, p.Online)
		} else {
			record.Detail = "Error: " + err.Error()
		}
	case strings.HasPrefix(key, usernamePrefix):
		record.Kind = "USERNAME"
		record.Detail = string(val)
	}
	return record
}
