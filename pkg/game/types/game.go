package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// GamePhase is the lifecycle phase of a game.
type GamePhase string

const (
	GamePhaseSetup    GamePhase = "SETUP"
	GamePhasePlaying  GamePhase = "PLAYING"
	GamePhaseFinished GamePhase = "FINISHED"
)

func (p GamePhase) Valid() bool {
	switch p {
	case GamePhaseSetup, GamePhasePlaying, GamePhaseFinished:
		return true
	default:
		return false
	}
}

// Grid holds the board dimensions. The hex layout itself is produced
// elsewhere and is opaque to the server.
type Grid struct {
	Cols int `json:"cols" bson:"cols"`
	Rows int `json:"rows" bson:"rows"`
}

// Coordinate is a column/row pair on the hex grid.
type Coordinate struct {
	Col int `json:"col" bson:"col"`
	Row int `json:"row" bson:"row"`
}

// Hex is a single cell and the index of the figure territory it belongs to.
type Hex struct {
	Coordinates Coordinate `json:"coordinates" bson:"coordinates"`
	Parent      int        `json:"parent" bson:"parent"`
}

// Game is the authoritative aggregate for a single match.
type Game struct {
	ID                 string    `json:"id" bson:"-"`
	Name               string    `json:"name" bson:"name"`
	CurrentPlayerIndex int       `json:"currentPlayerIndex" bson:"currentPlayerIndex"`
	GamePhase          GamePhase `json:"gamePhase" bson:"gamePhase"`
	TurnCount          int       `json:"turnCount" bson:"turnCount"`
	Grid               Grid      `json:"grid" bson:"grid"`
	Players            []Player  `json:"players" bson:"players"`
	Figures            []Figure  `json:"figures" bson:"figures"`
	// AutoPlayControllerID is the connection allowed to act for automated
	// seats. Empty means no controller.
	AutoPlayControllerID string    `json:"autoPlayControllerId,omitempty" bson:"autoPlayControllerId"`
	CreatedAt            time.Time `json:"createdAt" bson:"createdAt"`
	LastActivity         time.Time `json:"lastActivity" bson:"lastActivity"`
	// Version is incremented by the repository on every state update and
	// is used for conditional writes.
	Version int64 `json:"version" bson:"version"`
}

// Copy returns a deep copy of the game.
func (g *Game) Copy() *Game {
	c := *g
	c.Players = make([]Player, len(g.Players))
	for i := range g.Players {
		c.Players[i] = g.Players[i].Copy()
	}
	c.Figures = make([]Figure, len(g.Figures))
	for i := range g.Figures {
		c.Figures[i] = g.Figures[i].Copy()
	}
	return &c
}

// Figure returns a pointer to the figure with the given stable index.
func (g *Game) Figure(index int) (*Figure, bool) {
	for i := range g.Figures {
		if g.Figures[i].Config.Index == index {
			return &g.Figures[i], true
		}
	}
	return nil, false
}

// Player returns a pointer to the player at the given seat.
func (g *Game) Player(index int) (*Player, bool) {
	if index < 0 || index >= len(g.Players) {
		return nil, false
	}
	return &g.Players[index], true
}

// PlayerByUserID returns the seat bound to the given user.
func (g *Game) PlayerByUserID(userID string) (int, *Player, bool) {
	for i := range g.Players {
		if g.Players[i].User != nil && g.Players[i].User.ID == userID {
			return i, &g.Players[i], true
		}
	}
	return -1, nil, false
}

// OwnerOf returns the seat that owns the figure: the unique player whose
// color matches the figure color and whose figure set contains its index.
func (g *Game) OwnerOf(figure *Figure) (int, bool) {
	owner := -1
	for i := range g.Players {
		p := &g.Players[i]
		if p.Config.Color != figure.Config.Color || !p.HasFigure(figure.Config.Index) {
			continue
		}
		if owner != -1 {
			return -1, false
		}
		owner = i
	}
	return owner, owner != -1
}

// OwnedFigures returns pointers to every figure the seat owns under the
// color and set membership rule.
func (g *Game) OwnedFigures(playerIndex int) []*Figure {
	player, ok := g.Player(playerIndex)
	if !ok {
		return nil
	}
	figures := make([]*Figure, 0, len(player.Figures))
	for _, index := range player.Figures {
		figure, ok := g.Figure(index)
		if !ok || figure.Config.Color != player.Config.Color {
			continue
		}
		figures = append(figures, figure)
	}
	return figures
}

// TransferOwnership moves a figure from one seat to another and recolors
// it. It is the only place where figure color and seat membership change,
// so the two always agree.
func (g *Game) TransferOwnership(figureIndex, from, to int, newColor Color) error {
	figure, ok := g.Figure(figureIndex)
	if !ok {
		return fmt.Errorf("figure %d does not exist", figureIndex)
	}
	fromPlayer, ok := g.Player(from)
	if !ok {
		return fmt.Errorf("player %d does not exist", from)
	}
	toPlayer, ok := g.Player(to)
	if !ok {
		return fmt.Errorf("player %d does not exist", to)
	}
	if !fromPlayer.HasFigure(figureIndex) {
		return fmt.Errorf("player %d does not own figure %d", from, figureIndex)
	}
	if toPlayer.Config.Color != newColor {
		return fmt.Errorf("color %s does not belong to player %d", newColor, to)
	}

	fromPlayer.removeFigure(figureIndex)
	toPlayer.addFigure(figureIndex)
	figure.Config.Color = newColor
	return nil
}

// Validate checks the structural invariants of the aggregate.
func (g *Game) Validate() error {
	if !g.GamePhase.Valid() {
		return fmt.Errorf("invalid game phase %q", g.GamePhase)
	}
	if len(g.Players) == 0 {
		return fmt.Errorf("game has no players")
	}
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return fmt.Errorf("current player index %d out of range", g.CurrentPlayerIndex)
	}
	if g.TurnCount < 0 {
		return fmt.Errorf("negative turn count %d", g.TurnCount)
	}

	seen := make(map[int]bool, len(g.Figures))
	for _, f := range g.Figures {
		if seen[f.Config.Index] {
			return fmt.Errorf("figure index %d is duplicated", f.Config.Index)
		}
		seen[f.Config.Index] = true
		if f.Dice < 0 || f.Dice > MaxDice {
			return fmt.Errorf("figure %d has %d dice", f.Config.Index, f.Dice)
		}
	}

	claimed := make(map[int]int, len(g.Figures))
	for i, p := range g.Players {
		if p.User != nil && p.Config.IsAuto {
			return fmt.Errorf("player %d is bound to a user but marked auto", i)
		}
		for _, index := range p.Figures {
			if !seen[index] {
				return fmt.Errorf("player %d references unknown figure %d", i, index)
			}
			if other, ok := claimed[index]; ok {
				return fmt.Errorf("figure %d is owned by players %d and %d", index, other, i)
			}
			claimed[index] = i
		}
	}
	return nil
}

// ParseGames decodes a JSON array of games, as used by seed files.
func ParseGames(b []byte) ([]*Game, error) {
	var games []*Game
	if err := json.Unmarshal(b, &games); err != nil {
		return nil, fmt.Errorf("failed to unmarshal games: %v", err)
	}
	return games, nil
}
