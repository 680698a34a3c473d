package presence

import (
	"context"
	"slices"
)

// Entry binds a connection to the game room it joined and the user behind it.
type Entry struct {
	ConnectionID string
	GameID       string
	UserID       string
}

// Tracker records which users are connected to which game rooms.
type Tracker interface {
	// Register binds a connection to a game and user, replacing any
	// previous binding of the same connection.
	Register(ctx context.Context, entry Entry) error
	// Unregister forgets a connection and returns what it was bound to.
	Unregister(ctx context.Context, connectionID string) (Entry, bool, error)
	// OnlineUsersInGame returns the sorted distinct users connected to the
	// game, leaving out excludingUserID.
	OnlineUsersInGame(ctx context.Context, gameID, excludingUserID string) ([]string, error)
	// Connections returns every connection bound to the game.
	Connections(ctx context.Context, gameID string) ([]Entry, error)
	Close() error
}

// IsUserOnline reports whether the user still has a connection in the game.
func IsUserOnline(ctx context.Context, t Tracker, gameID, userID string) (bool, error) {
	users, err := t.OnlineUsersInGame(ctx, gameID, "")
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(users, userID)
	return found, nil
}

func distinctUsers(entries []Entry, excludingUserID string) []string {
	users := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.UserID == excludingUserID {
			continue
		}
		users = append(users, e.UserID)
	}
	slices.Sort(users)
	return slices.Compact(users)
}
