//go:generate go run go.uber.org/mock/mockgen -source=room_repository.go -destination=../../mocks/mock_room_repository.go -package=mocks
package storage

import (
	"chatrooms/domain"
	"chatrooms/errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IRoomRepository interface {
	Create(room domain.Room) (domain.Room, error)
	Get(id domain.RoomID) (domain.Room, error)
	Update(room domain.Room) error
	List(filter domain.RoomFilter) iter.Seq2[domain.Room, error]
}

type RoomRepository struct {
	db    *badger.DB
	log   *slog.Logger
	retry retrier
	now   func() time.Time
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) *RoomRepository {
	return &RoomRepository{db: db, log: log, retry: newRetrier(db, log), now: time.Now}
}

// Create assigns an identity and a creation timestamp, then writes the room
// and its listing index in a single transaction.
func (r *RoomRepository) Create(room domain.Room) (domain.Room, error) {
	room.ID = domain.RoomID(uuid.NewString())
	room.CreatedAt = r.now().UTC()
	err := r.retry.update(func(txn *badger.Txn) error {
		if err := txn.Set(roomKey(room.ID), encodeRoom(room)); err != nil {
			return err
		}
		return txn.Set(roomByTimeKey(room), nil)
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *RoomRepository) Get(id domain.RoomID) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, id)
		return err
	})
	return room, err
}

// Update overwrites the mutable fields of an existing room. Last writer wins.
func (r *RoomRepository) Update(room domain.Room) error {
	return r.retry.update(func(txn *badger.Txn) error {
		existing, err := getRoom(txn, room.ID)
		if err != nil {
			return err
		}
		existing.Name = room.Name
		existing.Description = room.Description
		return txn.Set(roomKey(room.ID), encodeRoom(existing))
	})
}

// List returns a lazy sequence of rooms, newest first. Each range over the
// sequence opens its own read transaction, so it can be iterated again and
// observes rooms created in between.
func (r *RoomRepository) List(filter domain.RoomFilter) iter.Seq2[domain.Room, error] {
	return func(yield func(domain.Room, error) bool) {
		stopped := false
		err := r.db.View(func(txn *badger.Txn) error {
			options := badger.DefaultIteratorOptions
			options.Reverse = true
			options.PrefetchValues = false
			it := txn.NewIterator(options)
			defer it.Close()

			prefix := []byte(roomByTimePrefix)
			// Reverse iteration has to start past the last possible index key.
			it.Seek(append([]byte(roomByTimePrefix), 0xFF))
			for ; it.ValidForPrefix(prefix); it.Next() {
				id := roomIDFromIndexKey(it.Item().KeyCopy(nil))
				room, err := getRoom(txn, id)
				if err != nil {
					return err
				}
				if !filter.Match(room) {
					continue
				}
				if !yield(room, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(domain.Room{}, err)
		}
	}
}

func getRoom(txn *badger.Txn, id domain.RoomID) (domain.Room, error) {
	item, err := txn.Get(roomKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, fmt.Errorf("%w: room %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Room{}, err
	}
	var room domain.Room
	err = item.Value(func(val []byte) error {
		room, err = decodeRoom(val)
		return err
	})
	return room, err
}
