package repositories

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cbodonnell/hexconquest/pkg/game/types"
)

type Repository interface {
	Close(ctx context.Context) error
	// FindGameByID returns the game or ErrNotFound.
	FindGameByID(ctx context.Context, gameID string) (*types.Game, error)
	// SaveGame inserts or replaces the whole game document.
	SaveGame(ctx context.Context, game *types.Game) error
	// UpdateGameState writes the mutable state of the game (figures, players,
	// current player, turn count, phase and last activity) only if the stored
	// version still equals game.Version. On success game.Version is advanced.
	// It returns ErrVersionConflict when another write got there first.
	UpdateGameState(ctx context.Context, game *types.Game) error
	// SwapAutoPlayController sets the controller to `to` only if it is
	// currently `from`, and reports whether it did.
	SwapAutoPlayController(ctx context.Context, gameID, from, to string) (bool, error)
	// ResetAutoPlayControllers clears the controller of every game and
	// returns how many games had one. Controllers are connection ids, which
	// do not outlive the process that issued them.
	ResetAutoPlayControllers(ctx context.Context) (int, error)
	FindUserByID(ctx context.Context, userID string) (*types.User, error)
	SaveUser(ctx context.Context, user *types.User) error
}

type OpenOptions struct {
	// ConnStr selects the backend by scheme: memory://, sqlite://<path>,
	// postgresql://... or mongodb://...
	ConnStr string
	// MongoDatabase names the database used by the MongoDB backend.
	MongoDatabase string
}

// Open creates the repository named by the connection string.
func Open(ctx context.Context, opts OpenOptions) (Repository, error) {
	u, err := url.Parse(opts.ConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %v", err)
	}

	switch u.Scheme {
	case "memory":
		return NewMemoryRepository(), nil
	case "sqlite":
		return NewSQLiteRepository(ctx, u.Host+u.Path)
	case "postgres", "postgresql":
		return NewPostgresRepository(ctx, opts.ConnStr)
	case "mongodb", "mongodb+srv":
		return NewMongoRepository(ctx, NewMongoRepositoryOptions{
			URI:      opts.ConnStr,
			Database: opts.MongoDatabase,
		})
	default:
		return nil, fmt.Errorf("unknown database type %s", u.Scheme)
	}
}
