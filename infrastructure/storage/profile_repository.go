//go:generate go run go.uber.org/mock/mockgen -source=profile_repository.go -destination=../../mocks/mock_profile_repository.go -package=mocks
package storage

import (
	"chatrooms/domain"
	"chatrooms/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IProfileRepository interface {
	Upsert(profile domain.Profile) (domain.Profile, error)
	Get(id string) (domain.Profile, error)
	SetPresence(ctx context.Context, presence domain.Presence) error
}

type ProfileRepository struct {
	db    *badger.DB
	log   *slog.Logger
	retry retrier
	now   func() time.Time
}

func NewProfileRepository(db *badger.DB, log *slog.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, log: log, retry: newRetrier(db, log), now: time.Now}
}

// Upsert writes the client-owned fields of a profile. The username index is
// moved in the same transaction; a username held by another identity is a
// conflict. Presence fields are never taken from the input.
func (p *ProfileRepository) Upsert(profile domain.Profile) (domain.Profile, error) {
	var saved domain.Profile
	lower := strings.ToLower(profile.Username)
	err := p.retry.update(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(lower))
		switch {
		case err == nil:
			var owner string
			if err = item.Value(func(val []byte) error {
				owner = string(val)
				return nil
			}); err != nil {
				return err
			}
			if owner != profile.ID {
				return fmt.Errorf("%w: username %q is taken", errors.ErrConflict, profile.Username)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		existing, err := getProfile(txn, profile.ID)
		switch {
		case err == nil:
			if old := strings.ToLower(existing.Username); old != lower {
				if err = txn.Delete(usernameKey(old)); err != nil {
					return err
				}
			}
		case errors.Is(err, errors.ErrNotFound):
			existing = domain.Profile{ID: profile.ID, CreatedAt: p.now().UTC()}
		default:
			return err
		}

		existing.Username = profile.Username
		existing.AvatarRef = profile.AvatarRef
		if err = txn.Set(usernameKey(lower), []byte(profile.ID)); err != nil {
			return err
		}
		saved = existing
		return txn.Set(profileKey(profile.ID), encodeProfile(existing))
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return saved, nil
}

func (p *ProfileRepository) Get(id string) (domain.Profile, error) {
	var profile domain.Profile
	err := p.db.View(func(txn *badger.Txn) error {
		var err error
		profile, err = getProfile(txn, id)
		return err
	})
	return profile, err
}

// SetPresence records the tracker's view of an identity. Identities without a
// profile have nothing to update and get ErrNotFound.
func (p *ProfileRepository) SetPresence(_ context.Context, presence domain.Presence) error {
	return p.retry.update(func(txn *badger.Txn) error {
		profile, err := getProfile(txn, presence.Identity)
		if err != nil {
			return err
		}
		profile.Online = presence.Online
		if !presence.LastSeen.IsZero() {
			profile.LastSeen = presence.LastSeen
		}
		return txn.Set(profileKey(profile.ID), encodeProfile(profile))
	})
}

// ResetPresence marks every stored profile offline. Presence lives in memory,
// so flags left online by a previous process are stale at startup.
// LastSeen is kept as recorded.
func (p *ProfileRepository) ResetPresence(ctx context.Context) (int, error) {
	var stale []string
	err := p.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(profilePrefix), PrefetchValues: true})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				profile, err := decodeProfile(val)
				if err != nil {
					return err
				}
				if profile.Online {
					stale = append(stale, profile.ID)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, id := range stale {
		if err = p.SetPresence(ctx, domain.Presence{Identity: id}); err != nil {
			return 0, err
		}
	}
	if len(stale) > 0 {
		p.log.Info("stale presence reset", "profiles", len(stale))
	}
	return len(stale), nil
}

func getProfile(txn *badger.Txn, id string) (domain.Profile, error) {
	item, err := txn.Get(profileKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Profile{}, fmt.Errorf("%w: profile %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Profile{}, err
	}
	var profile domain.Profile
	err = item.Value(func(val []byte) error {
		profile, err = decodeProfile(val)
		return err
	})
	return profile, err
}
