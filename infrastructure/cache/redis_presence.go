// Package cache mirrors presence into Redis so that other nodes and tools can
// read who is online without touching the local store.
package cache

import (
	"chatrooms/domain"
	"chatrooms/errors"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presencePrefix = "presence:"
	onlineSetKey   = "presence:online"
	fieldOnline    = "online"
	fieldLastSeen  = "last_seen"
	offlineTTL     = 7 * 24 * time.Hour
)

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     50,
		MaxIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// RedisPresence is a presence store writing a hash per identity and the set
// of online identities.
type RedisPresence struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisPresence(log *slog.Logger, rdb *redis.Client) *RedisPresence {
	return &RedisPresence{rdb: rdb, log: log}
}

func presenceKey(identity string) string {
	return presencePrefix + identity
}

// SetPresence writes the transition in a single transaction. Offline entries
// expire so that identities which never come back do not pile up.
func (r *RedisPresence) SetPresence(ctx context.Context, p domain.Presence) error {
	key := presenceKey(p.Identity)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldOnline, strconv.FormatBool(p.Online))
		if p.Online {
			pipe.Persist(ctx, key)
			pipe.SAdd(ctx, onlineSetKey, p.Identity)
			return nil
		}
		pipe.HSet(ctx, key, fieldLastSeen, p.LastSeen.UTC().Format(time.RFC3339Nano))
		pipe.Expire(ctx, key, offlineTTL)
		pipe.SRem(ctx, onlineSetKey, p.Identity)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis presence: %v", errors.ErrTransientStorage, err)
	}
	r.log.Debug("presence mirrored", "identity", p.Identity, "online", p.Online)
	return nil
}

// Get reads back the mirrored presence of an identity.
func (r *RedisPresence) Get(ctx context.Context, identity string) (domain.Presence, error) {
	values, err := r.rdb.HGetAll(ctx, presenceKey(identity)).Result()
	if err != nil {
		return domain.Presence{}, fmt.Errorf("%w: redis presence: %v", errors.ErrTransientStorage, err)
	}
	if len(values) == 0 {
		return domain.Presence{}, fmt.Errorf("%w: no presence for %s", errors.ErrNotFound, identity)
	}
	p := domain.Presence{Identity: identity, Online: values[fieldOnline] == "true"}
	if raw, ok := values[fieldLastSeen]; ok {
		if p.LastSeen, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return domain.Presence{}, fmt.Errorf("corrupted last_seen for %s: %w", identity, err)
		}
	}
	return p, nil
}

// Online lists the identities currently online, sorted.
func (r *RedisPresence) Online(ctx context.Context) ([]string, error) {
	members, err := r.rdb.SMembers(ctx, onlineSetKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("%w: redis presence: %v", errors.ErrTransientStorage, err)
	}
	sort.Strings(members)
	return members, nil
}

// Reset marks offline every identity left in the online set by a previous
// process. Their last_seen is kept as mirrored.
func (r *RedisPresence) Reset(ctx context.Context) (int, error) {
	stale, err := r.Online(ctx)
	if err != nil || len(stale) == 0 {
		return 0, err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, identity := range stale {
			pipe.HSet(ctx, presenceKey(identity), fieldOnline, strconv.FormatBool(false))
			pipe.Expire(ctx, presenceKey(identity), offlineTTL)
		}
		pipe.Del(ctx, onlineSetKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: redis presence: %v", errors.ErrTransientStorage, err)
	}
	r.log.Info("stale mirrored presence reset", "identities", len(stale))
	return len(stale), nil
}
