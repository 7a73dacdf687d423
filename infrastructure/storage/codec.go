package storage

import (
	"chatrooms/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Values are stored as protobuf wire records. Field numbers are part of the
// on-disk format and must never be reused.
const (
	roomFieldID          protowire.Number = 1
	roomFieldName        protowire.Number = 2
	roomFieldRegion      protowire.Number = 3
	roomFieldProvince    protowire.Number = 4
	roomFieldDescription protowire.Number = 5
	roomFieldCreator     protowire.Number = 6
	roomFieldCreatedAt   protowire.Number = 7

	msgFieldID        protowire.Number = 1
	msgFieldRoom      protowire.Number = 2
	msgFieldAuthor    protowire.Number = 3
	msgFieldSeq       protowire.Number = 4
	msgFieldKind      protowire.Number = 5
	msgFieldText      protowire.Number = 6
	msgFieldImageRef  protowire.Number = 7
	msgFieldLang      protowire.Number = 8
	msgFieldCensored  protowire.Number = 9
	msgFieldCreatedAt protowire.Number = 10

	profileFieldID        protowire.Number = 1
	profileFieldUsername  protowire.Number = 2
	profileFieldAvatarRef protowire.Number = 3
	profileFieldOnline    protowire.Number = 4
	profileFieldLastSeen  protowire.Number = 5
	profileFieldCreatedAt protowire.Number = 6
)

type recordWriter struct {
	b []byte
}

func (w *recordWriter) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	w.b = protowire.AppendTag(w.b, num, protowire.BytesType)
	w.b = protowire.AppendString(w.b, v)
}

func (w *recordWriter) uint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	w.b = protowire.AppendTag(w.b, num, protowire.VarintType)
	w.b = protowire.AppendVarint(w.b, v)
}

func (w *recordWriter) bool(num protowire.Number, v bool) {
	if !v {
		return
	}
	w.uint(num, protowire.EncodeBool(v))
}

func (w *recordWriter) time(num protowire.Number, t time.Time) {
	if t.IsZero() {
		return
	}
	w.b = protowire.AppendTag(w.b, num, protowire.VarintType)
	w.b = protowire.AppendVarint(w.b, protowire.EncodeZigZag(t.UnixNano()))
}

type field struct {
	num    protowire.Number
	varint uint64
	bytes  []byte
}

func (f field) string() string { return string(f.bytes) }

func (f field) time() time.Time {
	return time.Unix(0, protowire.DecodeZigZag(f.varint)).UTC()
}

// decodeRecord walks every field of a record. Unknown wire types are skipped
// so older binaries can read records written by newer ones.
func decodeRecord(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("corrupted record: %w", protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("corrupted record: %w", protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return fmt.Errorf("corrupted record: %w", protowire.ParseError(n))
		}
		b = b[n:]
		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

func encodeRoom(r domain.Room) []byte {
	w := recordWriter{}
	w.string(roomFieldID, string(r.ID))
	w.string(roomFieldName, r.Name)
	w.string(roomFieldRegion, r.Region)
	w.string(roomFieldProvince, r.Province)
	w.string(roomFieldDescription, r.Description)
	w.string(roomFieldCreator, r.CreatorID)
	w.time(roomFieldCreatedAt, r.CreatedAt)
	return w.b
}

func decodeRoom(b []byte) (domain.Room, error) {
	var r domain.Room
	err := decodeRecord(b, func(f field) error {
		switch f.num {
		case roomFieldID:
			r.ID = domain.RoomID(f.string())
		case roomFieldName:
			r.Name = f.string()
		case roomFieldRegion:
			r.Region = f.string()
		case roomFieldProvince:
			r.Province = f.string()
		case roomFieldDescription:
			r.Description = f.string()
		case roomFieldCreator:
			r.CreatorID = f.string()
		case roomFieldCreatedAt:
			r.CreatedAt = f.time()
		}
		return nil
	})
	return r, err
}

func encodeMessage(m domain.Message) []byte {
	w := recordWriter{}
	w.string(msgFieldID, m.ID.String())
	w.string(msgFieldRoom, string(m.Room))
	w.string(msgFieldAuthor, m.AuthorID)
	w.uint(msgFieldSeq, m.Seq)
	w.string(msgFieldKind, string(m.Kind))
	w.string(msgFieldText, m.Text)
	w.string(msgFieldImageRef, m.ImageRef)
	w.string(msgFieldLang, m.Lang)
	w.bool(msgFieldCensored, m.Censored)
	w.time(msgFieldCreatedAt, m.CreatedAt)
	return w.b
}

func decodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	err := decodeRecord(b, func(f field) error {
		switch f.num {
		case msgFieldID:
			id, err := uuid.ParseBytes(f.bytes)
			if err != nil {
				return err
			}
			m.ID = id
		case msgFieldRoom:
			m.Room = domain.RoomID(f.string())
		case msgFieldAuthor:
			m.AuthorID = f.string()
		case msgFieldSeq:
			m.Seq = f.varint
		case msgFieldKind:
			m.Kind = domain.Kind(f.string())
		case msgFieldText:
			m.Text = f.string()
		case msgFieldImageRef:
			m.ImageRef = f.string()
		case msgFieldLang:
			m.Lang = f.string()
		case msgFieldCensored:
			m.Censored = protowire.DecodeBool(f.varint)
		case msgFieldCreatedAt:
			m.CreatedAt = f.time()
		}
		return nil
	})
	return m, err
}

func encodeProfile(p domain.Profile) []byte {
	w := recordWriter{}
	w.string(profileFieldID, p.ID)
	w.string(profileFieldUsername, p.Username)
	w.string(profileFieldAvatarRef, p.AvatarRef)
	w.bool(profileFieldOnline, p.Online)
	w.time(profileFieldLastSeen, p.LastSeen)
	w.time(profileFieldCreatedAt, p.CreatedAt)
	return w.b
}

func decodeProfile(b []byte) (domain.Profile, error) {
	var p domain.Profile
	err := decodeRecord(b, func(f field) error {
		switch f.num {
		case profileFieldID:
			p.ID = f.string()
		case profileFieldUsername:
			p.Username = f.string()
		case profileFieldAvatarRef:
			p.AvatarRef = f.string()
		case profileFieldOnline:
			p.Online = protowire.DecodeBool(f.varint)
		case profileFieldLastSeen:
			p.LastSeen = f.time()
		case profileFieldCreatedAt:
			p.CreatedAt = f.time()
		}
		return nil
	})
	return p, err
}
