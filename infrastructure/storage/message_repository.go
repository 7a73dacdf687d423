//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"chatrooms/domain"
	"chatrooms/errors"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

const defaultLimitMessages = 100

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	ListRecent(room domain.RoomID, limit int, before uint64) ([]domain.Message, error)
	Get(room domain.RoomID, seq uint64) (domain.Message, error)
	LastSeq(room domain.RoomID) (uint64, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	retry         retrier
	limitMessages int
}

// NewMessageRepository caps every page at limitMessages.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages int) *MessageRepository {
	if limitMessages <= 0 {
		limitMessages = defaultLimitMessages
	}
	return &MessageRepository{db: db, log: log, retry: newRetrier(db, log), limitMessages: limitMessages}
}

// Append assigns the next sequence number of the room and persists the
// message in the same transaction as the counter, so a failed append leaves
// neither a message nor a consumed sequence behind.
// Callers must hold the room's append lock: the counter is read-modify-write.
func (m *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	err := m.retry.update(func(txn *badger.Txn) error {
		last, err := lastSeq(txn, message.Room)
		if err != nil {
			return err
		}
		message.Seq = last + 1
		if err = txn.Set(seqKey(message.Room), binary.BigEndian.AppendUint64(nil, message.Seq)); err != nil {
			return err
		}
		return txn.Set(messageKey(message.Room, message.Seq), encodeMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ListRecent scans the room in reverse key order, starting strictly before
// the given sequence (0 for the newest message).
func (m *MessageRepository) ListRecent(room domain.RoomID, limit int, before uint64) ([]domain.Message, error) {
	if limit <= 0 || limit > m.limitMessages {
		limit = m.limitMessages
	}
	messages := make([]domain.Message, 0, limit)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchSize = limit
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := messagePrefix(room)
		for it.Seek(messageSeekKey(room, before)); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			err := it.Item().Value(func(val []byte) error {
				msg, err := decodeMessage(val)
				if err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (m *MessageRepository) Get(room domain.RoomID, seq uint64) (domain.Message, error) {
	var msg domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageKey(room, seq))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: message %d in room %s", errors.ErrNotFound, seq, room)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			msg, err = decodeMessage(val)
			return err
		})
	})
	return msg, err
}

func (m *MessageRepository) LastSeq(room domain.RoomID) (uint64, error) {
	var seq uint64
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		seq, err = lastSeq(txn, room)
		return err
	})
	return seq, err
}

func lastSeq(txn *badger.Txn, room domain.RoomID) (uint64, error) {
	item, err := txn.Get(seqKey(room))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupted sequence counter for room %s", room)
		}
		seq = binary.BigEndian.Uint64(val)
		return nil
	})
	return seq, err
}
