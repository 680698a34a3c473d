package presence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTrackerContract(t *testing.T, newTracker func(t *testing.T) Tracker) {
	ctx := context.Background()

	t.Run("online users are sorted and distinct", func(t *testing.T) {
		tracker := newTracker(t)
		require.NoError(t, tracker.Register(ctx, Entry{ConnectionID: "c1", GameID: "g1", UserID: "bob"}))
		require.NoError(t, tracker.Register(ctx, Entry{ConnectionID: "c2", GameID: "g1", UserID: "alice"}))
		require.NoError(t, tracker.Register(ctx, Entry{ConnectionID: "c3", GameID: "g1", UserID: "bob"}))
		require.NoError(t, tracker.Register(ctx, Entry{ConnectionID: "c4", GameID: "g2", UserID: "carol"}))

		users, err := tracker.OnlineUsersInGame(ctx, "g1", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, users)

		users, err = tracker.OnlineUsersInGame(ctx, "g1", "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, users)

		users, err = tracker.OnlineUsersInGame(ctx, "g3", "")
		require.NoError(t, err)
		assert.Empty(t, users)

		conns, err := tracker.Connections(ctx, "g1")
		require.NoError(t, err)
		assert.Len(t, conns, 3)
	})

	t.Run("unregister", func(t *testing.T) {
		tracker := newTracker(t)
		entry := Entry{ConnectionID: "c1", GameID: "g1", UserID: "bob"}
		require.NoError(t, tracker.Register(ctx, entry))
		require.NoError(t, tracker.Register(ctx, Entry{ConnectionID: "c2", GameID: "g1", UserID: "bob"}))

		got, found, err := tracker.Unregister(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, entry, got)

		online, err := IsUserOnline(ctx, tracker, "g1", "bob")
		require.NoError(t, err)
		assert.True(t, online)

		_, found, err = tracker.Unregister(ctx, "c1")
		require.NoError(t, err)
		assert.False(t, found)

		_, _, err = tracker.Unregister(ctx, "c2")
		require.NoError(t, err)
		online, err = IsUserOnline(ctx, tracker, "g1", "bob")
		require.NoError(t, err)
		assert.False(t, online)
	})

	t.Run("register moves a connection between games", func(t *testing.T) {
		tracker := newTracker(t)
		require.NoError(t, tracker.Register(ctx, Entry{ConnectionID: "c1", GameID: "g1", UserID: "bob"}))
		require.NoError(t, tracker.Register(ctx, Entry{ConnectionID: "c1", GameID: "g2", UserID: "bob"}))

		users, err := tracker.OnlineUsersInGame(ctx, "g1", "")
		require.NoError(t, err)
		assert.Empty(t, users)

		users, err = tracker.OnlineUsersInGame(ctx, "g2", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, users)
	})
}

func TestMemoryTracker(t *testing.T) {
	runTrackerContract(t, func(t *testing.T) Tracker {
		return NewMemoryTracker()
	})
}

func TestRedisTracker(t *testing.T) {
	runTrackerContract(t, func(t *testing.T) Tracker {
		s := miniredis.RunT(t)
		tracker, err := NewRedisTracker(context.Background(), NewRedisTrackerOptions{
			URL: "redis://" + s.Addr(),
		})
		require.NoError(t, err)
		t.Cleanup(func() { tracker.Close() })
		return tracker
	})
}

func TestRedisTracker_SharedBetweenInstances(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)

	newTracker := func() *RedisTracker {
		tracker, err := NewRedisTracker(ctx, NewRedisTrackerOptions{
			Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		})
		require.NoError(t, err)
		t.Cleanup(func() { tracker.Close() })
		return tracker
	}
	a, b := newTracker(), newTracker()

	require.NoError(t, a.Register(ctx, Entry{ConnectionID: "c1", GameID: "g1", UserID: "alice"}))
	require.NoError(t, b.Register(ctx, Entry{ConnectionID: "c2", GameID: "g1", UserID: "bob"}))

	users, err := a.OnlineUsersInGame(ctx, "g1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	entry, found, err := a.Unregister(ctx, "c2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bob", entry.UserID)

	users, err = b.OnlineUsersInGame(ctx, "g1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}

func TestRedisTracker_KeyLayout(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)
	tracker, err := NewRedisTracker(ctx, NewRedisTrackerOptions{URL: "redis://" + s.Addr(), KeyPrefix: "test"})
	require.NoError(t, err)
	defer tracker.Close()

	require.NoError(t, tracker.Register(ctx, Entry{ConnectionID: "c1", GameID: "g1", UserID: "alice"}))

	assert.Equal(t, "alice", s.HGet("test:conn:c1", "userId"))
	members, err := s.Members("test:game:g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, members)
}
