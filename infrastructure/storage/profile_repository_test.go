package storage

import (
	"chatrooms/domain"
	"chatrooms/errors"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProfileRepository_Upsert_UniqueUsername(t *testing.T) {
	req := require.New(t)
	repo := NewProfileRepository(openTestDB(t), slog.Default())

	created, err := repo.Upsert(domain.Profile{ID: "u1", Username: "Juan"})
	req.NoError(err)
	req.False(created.CreatedAt.IsZero())

	_, err = repo.Upsert(domain.Profile{ID: "u2", Username: "juan"})
	req.ErrorIs(err, errors.ErrConflict)

	// The owner may keep or change its own username.
	_, err = repo.Upsert(domain.Profile{ID: "u1", Username: "Juan", AvatarRef: "a.png"})
	req.NoError(err)
	renamed, err := repo.Upsert(domain.Profile{ID: "u1", Username: "Pedro"})
	req.NoError(err)
	req.Equal(created.CreatedAt, renamed.CreatedAt)

	// The released username is free again.
	_, err = repo.Upsert(domain.Profile{ID: "u2", Username: "juan"})
	req.NoError(err)

	fetched, err := repo.Get("u1")
	req.NoError(err)
	req.Equal("Pedro", fetched.Username)
	req.Empty(fetched.AvatarRef)
}

func TestProfileRepository_SetPresence(t *testing.T) {
	req := require.New(t)
	repo := NewProfileRepository(openTestDB(t), slog.Default())
	ctx := context.Background()

	_, err := repo.Upsert(domain.Profile{ID: "u1", Username: "Juan", Online: true})
	req.NoError(err)

	fetched, err := repo.Get("u1")
	req.NoError(err)
	req.False(fetched.Online, "presence is never taken from upsert input")

	seen := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	req.NoError(repo.SetPresence(ctx, domain.Presence{Identity: "u1", Online: true}))
	req.NoError(repo.SetPresence(ctx, domain.Presence{Identity: "u1", Online: false, LastSeen: seen}))

	fetched, err = repo.Get("u1")
	req.NoError(err)
	req.False(fetched.Online)
	req.Equal(seen, fetched.LastSeen)

	// Upsert keeps presence fields untouched.
	_, err = repo.Upsert(domain.Profile{ID: "u1", Username: "Juan", AvatarRef: "b.png"})
	req.NoError(err)
	fetched, err = repo.Get("u1")
	req.NoError(err)
	req.Equal(seen, fetched.LastSeen)

	req.ErrorIs(repo.SetPresence(ctx, domain.Presence{Identity: "ghost", Online: true}), errors.ErrNotFound)
}

func TestProfileRepository_ResetPresence_Clears_Stale_Flags(t *testing.T) {
	req := require.New(t)
	repo := NewProfileRepository(openTestDB(t), slog.Default())
	ctx := context.Background()
	seen := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	// Given a profile left online by a previous run and one already offline
	_, err := repo.Upsert(domain.Profile{ID: "u1", Username: "Juan"})
	req.NoError(err)
	_, err = repo.Upsert(domain.Profile{ID: "u2", Username: "Maria"})
	req.NoError(err)
	req.NoError(repo.SetPresence(ctx, domain.Presence{Identity: "u1", Online: false, LastSeen: seen}))
	req.NoError(repo.SetPresence(ctx, domain.Presence{Identity: "u1", Online: true}))

	// When the server starts
	reset, err := repo.ResetPresence(ctx)

	// Then only the stale profile is rewritten, keeping its last seen time
	req.NoError(err)
	req.Equal(1, reset)
	fetched, err := repo.Get("u1")
	req.NoError(err)
	req.False(fetched.Online)
	req.Equal(seen, fetched.LastSeen)

	reset, err = repo.ResetPresence(ctx)
	req.NoError(err)
	req.Zero(reset)
}
