package rules

import (
	"github.com/cbodonnell/hexconquest/pkg/game/types"
	"github.com/cbodonnell/hexconquest/pkg/gameerrors"
)

// Engine applies battle and turn rules to a game in place. It holds no
// state besides its dice and never touches storage or the network.
type Engine struct {
	dice Dice
}

type NewEngineOptions struct {
	// Dice defaults to NewRandomDice when nil.
	Dice Dice
}

func NewEngine(opts NewEngineOptions) *Engine {
	dice := opts.Dice
	if dice == nil {
		dice = NewRandomDice()
	}
	return &Engine{
		dice: dice,
	}
}

// BattleResult describes a resolved battle.
type BattleResult struct {
	AttackerRoll  int   `json:"attackerRoll"`
	DefenderRoll  int   `json:"defenderRoll"`
	AttackerRolls []int `json:"attackerRolls"`
	DefenderRolls []int `json:"defenderRolls"`
	// Winner is the index of the winning figure.
	Winner            int `json:"winner"`
	WinnerPlayerIndex int `json:"winnerPlayerIndex"`
	// Figures holds the attacker and defender after the battle, in that order.
	Figures               [2]types.Figure `json:"figures"`
	EliminatedPlayerIndex *int            `json:"eliminatedPlayerIndex,omitempty"`
}

// SuppliedFigure is a figure that received a die at the start of a turn.
type SuppliedFigure struct {
	Config types.FigureConfig `json:"config"`
	Dice   int                `json:"dice"`
}

// TurnResult describes the outcome of ending a turn.
type TurnResult struct {
	NewPlayerIndex int              `json:"newPlayerIndex"`
	TurnCount      int              `json:"turnCount"`
	GamePhase      types.GamePhase  `json:"gamePhase"`
	PlayerFigures  []SuppliedFigure `json:"playerFigures"`
}

// Finished reports whether the turn ended the game.
func (r *TurnResult) Finished() bool {
	return r.GamePhase == types.GamePhaseFinished
}

// ResolveBattle lets the figure at attackerIndex attack the figure at
// defenderIndex on behalf of actingPlayerIndex. The game is only modified
// when the returned error is nil.
func (e *Engine) ResolveBattle(attackerIndex, defenderIndex, actingPlayerIndex int, game *types.Game) (*BattleResult, error) {
	actor, ok := game.Player(actingPlayerIndex)
	if !ok || !actor.HasFigure(attackerIndex) {
		return nil, gameerrors.New(gameerrors.CodeOwnership, "player %d does not own figure %d", actingPlayerIndex, attackerIndex).
			WithDetail("playerIndex", actingPlayerIndex).
			WithDetail("figure", attackerIndex)
	}

	attacker, ok := game.Figure(attackerIndex)
	if !ok {
		return nil, gameerrors.New(gameerrors.CodeUnknownFigure, "figure %d does not exist", attackerIndex)
	}
	defender, ok := game.Figure(defenderIndex)
	if !ok {
		return nil, gameerrors.New(gameerrors.CodeUnknownFigure, "figure %d does not exist", defenderIndex)
	}

	if attacker.Config.Color == defender.Config.Color {
		return nil, gameerrors.New(gameerrors.CodeSelfAttack, "figure %d cannot attack figure %d of the same color", attackerIndex, defenderIndex)
	}

	attackerOwner, ok := game.OwnerOf(attacker)
	if !ok || attackerOwner != actingPlayerIndex {
		return nil, gameerrors.New(gameerrors.CodeOwnershipMismatch, "figure %d color does not match its owner", attackerIndex)
	}
	defenderOwner, ok := game.OwnerOf(defender)
	if !ok {
		return nil, gameerrors.New(gameerrors.CodeOwnershipMismatch, "figure %d color does not match its owner", defenderIndex)
	}

	attackerRolls, attackerRoll := roll(e.dice, attacker.Dice)
	defenderRolls, defenderRoll := roll(e.dice, defender.Dice)

	result := &BattleResult{
		AttackerRoll:  attackerRoll,
		DefenderRoll:  defenderRoll,
		AttackerRolls: attackerRolls,
		DefenderRolls: defenderRolls,
	}

	if attackerRoll > defenderRoll {
		attackerDice := attacker.Dice
		if err := game.TransferOwnership(defenderIndex, defenderOwner, attackerOwner, attacker.Config.Color); err != nil {
			return nil, gameerrors.Wrap(gameerrors.CodeInternal, err, "failed to transfer figure %d", defenderIndex)
		}
		defender.Dice = attackerDice - 1
		attacker.Dice = 1
		result.Winner = attackerIndex
		result.WinnerPlayerIndex = attackerOwner

		if loser, _ := game.Player(defenderOwner); len(loser.Figures) == 0 {
			loser.Defeat()
			eliminated := defenderOwner
			result.EliminatedPlayerIndex = &eliminated
		}
	} else {
		attacker.Dice = 1
		result.Winner = defenderIndex
		result.WinnerPlayerIndex = defenderOwner
	}

	result.Figures = [2]types.Figure{attacker.Copy(), defender.Copy()}
	return result, nil
}

// AdvanceTurn passes the turn from requestingPlayerIndex to the next seat
// that is still in the game and supplies up to supplyAmount dice to it.
// When no other seat is left the game finishes instead.
func (e *Engine) AdvanceTurn(requestingPlayerIndex, supplyAmount int, game *types.Game) (*TurnResult, error) {
	if _, ok := game.Player(requestingPlayerIndex); !ok {
		return nil, gameerrors.New(gameerrors.CodeInvalidPlayer, "player %d does not exist", requestingPlayerIndex).
			WithDetail("playerIndex", requestingPlayerIndex)
	}
	if supplyAmount < 0 {
		return nil, gameerrors.New(gameerrors.CodeValidation, "supply amount must not be negative").
			WithDetail("supplyAmount", supplyAmount)
	}

	next, ok := nextActivePlayer(game, requestingPlayerIndex)
	if !ok {
		game.GamePhase = types.GamePhaseFinished
		return &TurnResult{
			NewPlayerIndex: game.CurrentPlayerIndex,
			TurnCount:      game.TurnCount,
			GamePhase:      game.GamePhase,
			PlayerFigures:  []SuppliedFigure{},
		}, nil
	}

	game.CurrentPlayerIndex = next
	game.TurnCount++

	return &TurnResult{
		NewPlayerIndex: next,
		TurnCount:      game.TurnCount,
		GamePhase:      game.GamePhase,
		PlayerFigures:  e.supply(game, next, supplyAmount),
	}, nil
}

func (e *Engine) supply(game *types.Game, playerIndex, amount int) []SuppliedFigure {
	pool := newSupplyPool(game.OwnedFigures(playerIndex))
	supplied := make([]SuppliedFigure, 0, min(amount, pool.len()))
	for i := 0; i < amount && pool.len() > 0; i++ {
		f := pool.draw(e.dice)
		f.Dice++
		supplied = append(supplied, SuppliedFigure{
			Config: f.Config,
			Dice:   f.Dice,
		})
	}
	return supplied
}

// nextActivePlayer scans the other seats circularly starting after from.
func nextActivePlayer(game *types.Game, from int) (int, bool) {
	n := len(game.Players)
	for step := 1; step < n; step++ {
		i := (from + step) % n
		if !game.Players[i].Config.IsDefeated {
			return i, true
		}
	}
	return 0, false
}
