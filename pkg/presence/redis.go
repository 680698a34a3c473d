package presence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKeyPrefix = "hexconquest:presence"

// RedisTracker shares presence between server instances. Each connection
// is a hash holding its game and user, and each game keeps a set of its
// connection ids.
type RedisTracker struct {
	rdb    *redis.Client
	prefix string
}

type NewRedisTrackerOptions struct {
	// URL is a redis:// or rediss:// URL. Ignored when Client is set.
	URL    string
	Client *redis.Client
	// KeyPrefix defaults to DefaultRedisKeyPrefix.
	KeyPrefix string
}

func NewRedisTracker(ctx context.Context, opts NewRedisTrackerOptions) (*RedisTracker, error) {
	rdb := opts.Client
	if rdb == nil {
		redisOpts, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %v", err)
		}
		rdb = redis.NewClient(redisOpts)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisTracker{
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (t *RedisTracker) connKey(connectionID string) string {
	return t.prefix + ":conn:" + connectionID
}

func (t *RedisTracker) gameKey(gameID string) string {
	return t.prefix + ":game:" + gameID
}

func (t *RedisTracker) Register(ctx context.Context, entry Entry) error {
	previous, found, err := t.load(ctx, entry.ConnectionID)
	if err != nil {
		return err
	}

	_, err = t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if found && previous.GameID != entry.GameID {
			pipe.SRem(ctx, t.gameKey(previous.GameID), entry.ConnectionID)
		}
		pipe.HSet(ctx, t.connKey(entry.ConnectionID), "gameId", entry.GameID, "userId", entry.UserID)
		pipe.SAdd(ctx, t.gameKey(entry.GameID), entry.ConnectionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register connection %s: %w", entry.ConnectionID, err)
	}
	return nil
}

func (t *RedisTracker) Unregister(ctx context.Context, connectionID string) (Entry, bool, error) {
	entry, found, err := t.load(ctx, connectionID)
	if err != nil || !found {
		return Entry{}, false, err
	}

	_, err = t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, t.connKey(connectionID))
		pipe.SRem(ctx, t.gameKey(entry.GameID), connectionID)
		return nil
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to unregister connection %s: %w", connectionID, err)
	}
	return entry, true, nil
}

func (t *RedisTracker) OnlineUsersInGame(ctx context.Context, gameID, excludingUserID string) ([]string, error) {
	entries, err := t.Connections(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return distinctUsers(entries, excludingUserID), nil
}

func (t *RedisTracker) Connections(ctx context.Context, gameID string) ([]Entry, error) {
	ids, err := t.rdb.SMembers(ctx, t.gameKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list connections of game %s: %w", gameID, err)
	}
	if len(ids) == 0 {
		return []Entry{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = t.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, t.connKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load connections of game %s: %w", gameID, err)
	}

	entries := make([]Entry, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		// a connection hash removed by another instance leaves a stale member
		if len(fields) == 0 || fields["gameId"] != gameID {
			continue
		}
		entries = append(entries, Entry{
			ConnectionID: ids[i],
			GameID:       gameID,
			UserID:       fields["userId"],
		})
	}
	return entries, nil
}

func (t *RedisTracker) load(ctx context.Context, connectionID string) (Entry, bool, error) {
	fields, err := t.rdb.HGetAll(ctx, t.connKey(connectionID)).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to load connection %s: %w", connectionID, err)
	}
	if len(fields) == 0 {
		return Entry{}, false, nil
	}
	return Entry{
		ConnectionID: connectionID,
		GameID:       fields["gameId"],
		UserID:       fields["userId"],
	}, true, nil
}

func (t *RedisTracker) Close() error {
	return t.rdb.Close()
}
