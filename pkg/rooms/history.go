package rooms

import (
	"sync"

	"github.com/cbodonnell/hexconquest/pkg/messages"
)

// joinHistory remembers the last join announcement of every user per game so
// it can be replayed to users joining later.
type joinHistory struct {
	lock  sync.Mutex
	games map[string]*gameJoins
	// seq numbers every Record across all games.
	seq uint64
}

type gameJoins struct {
	order      []string
	joins      map[string]*messages.Message
	generation uint64
}

func newJoinHistory() *joinHistory {
	return &joinHistory{
		games: make(map[string]*gameJoins),
	}
}

// Record stores msg as the latest join of userID. A user keeps the position
// of their first join.
func (h *joinHistory) Record(gameID, userID string, msg *messages.Message) {
	h.lock.Lock()
	defer h.lock.Unlock()

	g, ok := h.games[gameID]
	if !ok {
		g = &gameJoins{joins: make(map[string]*messages.Message)}
		h.games[gameID] = g
	}
	if _, ok := g.joins[userID]; !ok {
		g.order = append(g.order, userID)
	}
	g.joins[userID] = msg
	h.seq++
	g.generation = h.seq
}

// Others returns the joins of every user but excludingUserID, oldest first.
func (h *joinHistory) Others(gameID, excludingUserID string) []*messages.Message {
	h.lock.Lock()
	defer h.lock.Unlock()

	g, ok := h.games[gameID]
	if !ok {
		return nil
	}
	others := make([]*messages.Message, 0, len(g.order))
	for _, userID := range g.order {
		if userID == excludingUserID {
			continue
		}
		others = append(others, g.joins[userID])
	}
	return others
}

func (h *joinHistory) Clear(gameID string) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.games, gameID)
}

// Generations returns the games with a recorded history, each with the
// generation of its latest join.
func (h *joinHistory) Generations() map[string]uint64 {
	h.lock.Lock()
	defer h.lock.Unlock()
	generations := make(map[string]uint64, len(h.games))
	for id, g := range h.games {
		generations[id] = g.generation
	}
	return generations
}

// ClearIfUnchanged clears the history of gameID unless a join was recorded
// after generation.
func (h *joinHistory) ClearIfUnchanged(gameID string, generation uint64) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	g, ok := h.games[gameID]
	if !ok || g.generation != generation {
		return false
	}
	delete(h.games, gameID)
	return true
}
