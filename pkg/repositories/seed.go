package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cbodonnell/hexconquest/pkg/game/types"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/google/uuid"
)

// Seed is the content of a seed file: games and the users playing them.
type Seed struct {
	Games []*types.Game `json:"games"`
	Users []*types.User `json:"users"`
}

// LoadSeedFile reads a seed file and writes its content to the repository.
func LoadSeedFile(ctx context.Context, repository Repository, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %v", err)
	}
	seed := &Seed{}
	if err := json.Unmarshal(b, seed); err != nil {
		return fmt.Errorf("failed to unmarshal seed file: %v", err)
	}
	return ApplySeed(ctx, repository, seed)
}

// ApplySeed saves every user and game of the seed. Records without an id
// get a new one. Existing records with the same id are replaced.
func ApplySeed(ctx context.Context, repository Repository, seed *Seed) error {
	for _, user := range seed.Users {
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		if err := repository.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("failed to save user %s: %v", user.ID, err)
		}
	}

	now := time.Now().UTC()
	for _, game := range seed.Games {
		if game.ID == "" {
			game.ID = uuid.NewString()
		}
		if game.GamePhase == "" {
			game.GamePhase = types.GamePhaseSetup
		}
		if err := game.Validate(); err != nil {
			return fmt.Errorf("invalid game %s: %v", game.ID, err)
		}
		if game.CreatedAt.IsZero() {
			game.CreatedAt = now
		}
		if game.LastActivity.IsZero() {
			game.LastActivity = now
		}
		if err := repository.SaveGame(ctx, game); err != nil {
			return fmt.Errorf("failed to save game %s: %v", game.ID, err)
		}
	}

	log.Info("Seeded %d games and %d users", len(seed.Games), len(seed.Users))
	return nil
}
