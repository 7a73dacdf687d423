package cache

import (
	"chatrooms/domain"
	"chatrooms/errors"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestPresence(t *testing.T) (*RedisPresence, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisPresence(logs.GetLoggerFromLevel(slog.LevelDebug), rdb), mr
}

func TestRedisPresence_Online_Then_Offline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, mr := newTestPresence(t)
	lastSeen := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Given two identities coming online
	req.NoError(store.SetPresence(ctx, domain.Presence{Identity: "maria", Online: true}))
	req.NoError(store.SetPresence(ctx, domain.Presence{Identity: "juan", Online: true}))

	online, err := store.Online(ctx)
	req.NoError(err)
	req.Equal([]string{"juan", "maria"}, online)

	// When one of them goes offline
	req.NoError(store.SetPresence(ctx, domain.Presence{Identity: "juan", Online: false, LastSeen: lastSeen}))

	// Then only the other one is listed and the offline hash carries last_seen
	online, err = store.Online(ctx)
	req.NoError(err)
	req.Equal([]string{"maria"}, online)

	p, err := store.Get(ctx, "juan")
	req.NoError(err)
	req.False(p.Online)
	req.True(lastSeen.Equal(p.LastSeen))
	req.Equal(offlineTTL, mr.TTL(presenceKey("juan")))

	// And the online hash does not expire
	req.Zero(mr.TTL(presenceKey("maria")))
}

func TestRedisPresence_Back_Online_Clears_Expiry(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, mr := newTestPresence(t)

	req.NoError(store.SetPresence(ctx, domain.Presence{Identity: "maria", Online: false, LastSeen: time.Now()}))
	req.NotZero(mr.TTL(presenceKey("maria")))

	req.NoError(store.SetPresence(ctx, domain.Presence{Identity: "maria", Online: true}))

	req.Zero(mr.TTL(presenceKey("maria")))
	p, err := store.Get(ctx, "maria")
	req.NoError(err)
	req.True(p.Online)
}

func TestRedisPresence_Unknown_Identity(t *testing.T) {
	req := require.New(t)
	store, _ := newTestPresence(t)

	_, err := store.Get(context.Background(), "ghost")

	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRedisPresence_Unreachable(t *testing.T) {
	req := require.New(t)
	// Given a client pointing at nothing
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	store := NewRedisPresence(logs.GetLoggerFromLevel(slog.LevelDebug), rdb)

	// Then writes are reported as transient
	err := store.SetPresence(context.Background(), domain.Presence{Identity: "maria", Online: true})
	req.ErrorIs(err, errors.ErrTransientStorage)
}

func TestNewRedisClient_Wrong_Password(t *testing.T) {
	req := require.New(t)
	mr := miniredis.RunT(t)
	mr.RequireAuth("correct")

	rdb, err := NewRedisClient(mr.Addr(), "wrong", 0)

	req.Error(err)
	req.Nil(rdb)
	req.Contains(err.Error(), "failed to connect to Redis")
}

func TestRedisPresence_Reset_Clears_The_Online_Set(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store, mr := newTestPresence(t)

	// Given identities left online by a previous run
	req.NoError(store.SetPresence(ctx, domain.Presence{Identity: "maria", Online: true}))
	req.NoError(store.SetPresence(ctx, domain.Presence{Identity: "juan", Online: true}))

	// When the mirror is reset
	reset, err := store.Reset(ctx)

	// Then nobody is online and the entries will expire
	req.NoError(err)
	req.Equal(2, reset)
	online, err := store.Online(ctx)
	req.NoError(err)
	req.Empty(online)
	maria, err := store.Get(ctx, "maria")
	req.NoError(err)
	req.False(maria.Online)
	req.Equal(offlineTTL, mr.TTL(presenceKey("maria")))

	reset, err = store.Reset(ctx)
	req.NoError(err)
	req.Zero(reset)
}
