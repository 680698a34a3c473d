package repositories

import (
	"context"
	"sync"

	"github.com/cbodonnell/hexconquest/pkg/game/types"
)

// MemoryRepository keeps games and users in process memory. Stored values
// are copied on the way in and out so callers never share state with it.
type MemoryRepository struct {
	games     map[string]*types.Game
	users     map[string]*types.User
	gamesLock sync.RWMutex
	usersLock sync.RWMutex
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		games: make(map[string]*types.Game),
		users: make(map[string]*types.User),
	}
}

func (r *MemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) FindGameByID(ctx context.Context, gameID string) (*types.Game, error) {
	r.gamesLock.RLock()
	defer r.gamesLock.RUnlock()

	game, ok := r.games[gameID]
	if !ok {
		return nil, &ErrNotFound{}
	}
	return game.Copy(), nil
}

func (r *MemoryRepository) SaveGame(ctx context.Context, game *types.Game) error {
	r.gamesLock.Lock()
	defer r.gamesLock.Unlock()

	r.games[game.ID] = game.Copy()
	return nil
}

func (r *MemoryRepository) UpdateGameState(ctx context.Context, game *types.Game) error {
	r.gamesLock.Lock()
	defer r.gamesLock.Unlock()

	stored, ok := r.games[game.ID]
	if !ok {
		return &ErrNotFound{}
	}
	if stored.Version != game.Version {
		return &ErrVersionConflict{GameID: game.ID, Version: game.Version}
	}

	next := game.Copy()
	stored.Figures = next.Figures
	stored.Players = next.Players
	stored.CurrentPlayerIndex = next.CurrentPlayerIndex
	stored.TurnCount = next.TurnCount
	stored.GamePhase = next.GamePhase
	stored.LastActivity = next.LastActivity
	stored.Version++

	game.Version = stored.Version
	return nil
}

func (r *MemoryRepository) SwapAutoPlayController(ctx context.Context, gameID, from, to string) (bool, error) {
	r.gamesLock.Lock()
	defer r.gamesLock.Unlock()

	stored, ok := r.games[gameID]
	if !ok {
		return false, &ErrNotFound{}
	}
	if stored.AutoPlayControllerID != from {
		return false, nil
	}
	stored.AutoPlayControllerID = to
	return true, nil
}

func (r *MemoryRepository) ResetAutoPlayControllers(ctx context.Context) (int, error) {
	r.gamesLock.Lock()
	defer r.gamesLock.Unlock()

	n := 0
	for _, game := range r.games {
		if game.AutoPlayControllerID != "" {
			game.AutoPlayControllerID = ""
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) FindUserByID(ctx context.Context, userID string) (*types.User, error) {
	r.usersLock.RLock()
	defer r.usersLock.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, &ErrNotFound{}
	}
	u := *user
	return &u, nil
}

func (r *MemoryRepository) SaveUser(ctx context.Context, user *types.User) error {
	r.usersLock.Lock()
	defer r.usersLock.Unlock()

	u := *user
	r.users[user.ID] = &u
	return nil
}
