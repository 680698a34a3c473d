package presence

import (
	"context"
	"sync"
)

// MemoryTracker keeps presence in process memory. It is only correct when a
// single server instance hosts every connection of a game.
type MemoryTracker struct {
	entries map[string]Entry
	lock    sync.RWMutex
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		entries: make(map[string]Entry),
	}
}

func (t *MemoryTracker) Register(ctx context.Context, entry Entry) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.entries[entry.ConnectionID] = entry
	return nil
}

func (t *MemoryTracker) Unregister(ctx context.Context, connectionID string) (Entry, bool, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	entry, ok := t.entries[connectionID]
	if ok {
		delete(t.entries, connectionID)
	}
	return entry, ok, nil
}

func (t *MemoryTracker) OnlineUsersInGame(ctx context.Context, gameID, excludingUserID string) ([]string, error) {
	entries, _ := t.Connections(ctx, gameID)
	return distinctUsers(entries, excludingUserID), nil
}

func (t *MemoryTracker) Connections(ctx context.Context, gameID string) ([]Entry, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	entries := make([]Entry, 0)
	for _, e := range t.entries {
		if e.GameID == gameID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (t *MemoryTracker) Close() error {
	return nil
}
