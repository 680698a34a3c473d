package election

import (
	"context"
	"fmt"

	"github.com/cbodonnell/hexconquest/pkg/repositories"
)

// Outcome reports the controller of a game after a claim or release.
type Outcome struct {
	// Changed is true when the call modified the stored controller.
	Changed bool
	// ControllerID is the connection holding control afterwards, empty when
	// nobody does.
	ControllerID string
}

// Election decides which connection drives the automated seats of a game.
// All decisions are made by the repository's compare-and-swap, so it holds
// no state of its own and works across server instances.
type Election struct {
	repository repositories.Repository
}

type NewElectionOptions struct {
	Repository repositories.Repository
}

func NewElection(opts NewElectionOptions) *Election {
	return &Election{
		repository: opts.Repository,
	}
}

// Claim makes connectionID the controller if the game has none.
func (e *Election) Claim(ctx context.Context, gameID, connectionID string) (Outcome, error) {
	if connectionID == "" {
		return Outcome{}, fmt.Errorf("connection id must not be empty")
	}

	swapped, err := e.repository.SwapAutoPlayController(ctx, gameID, "", connectionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to claim auto play for game %s: %w", gameID, err)
	}
	if swapped {
		return Outcome{Changed: true, ControllerID: connectionID}, nil
	}

	return e.current(ctx, gameID)
}

// Release clears the controller if connectionID holds it. Releasing
// something not held is a no-op.
func (e *Election) Release(ctx context.Context, gameID, connectionID string) (Outcome, error) {
	if connectionID == "" {
		return e.current(ctx, gameID)
	}

	swapped, err := e.repository.SwapAutoPlayController(ctx, gameID, connectionID, "")
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to release auto play for game %s: %w", gameID, err)
	}
	if swapped {
		return Outcome{Changed: true}, nil
	}

	return e.current(ctx, gameID)
}

// Reset forgets every controller. Controllers are connections of a running
// server, so a server calls it before accepting connections.
func (e *Election) Reset(ctx context.Context) (int, error) {
	n, err := e.repository.ResetAutoPlayControllers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reset auto play controllers: %w", err)
	}
	return n, nil
}

// Current returns the controller without changing it.
func (e *Election) Current(ctx context.Context, gameID string) (Outcome, error) {
	return e.current(ctx, gameID)
}

func (e *Election) current(ctx context.Context, gameID string) (Outcome, error) {
	game, err := e.repository.FindGameByID(ctx, gameID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read auto play controller for game %s: %w", gameID, err)
	}
	return Outcome{ControllerID: game.AutoPlayControllerID}, nil
}
