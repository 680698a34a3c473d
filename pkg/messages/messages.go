package messages

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/cbodonnell/hexconquest/pkg/game/types"
	"github.com/cbodonnell/hexconquest/pkg/gameerrors"
)

const (
	// MessageBufferSize represents the maximum size of a message
	MessageBufferSize = 64 * 1024
)

type MessageType string

// Message types
const (
	MessageTypeJoinGame       MessageType = "JOIN_GAME"
	MessageTypeTurnUpdate     MessageType = "TURN_UPDATE"
	MessageTypeClaimAutoPlay  MessageType = "CLAIM_AUTO_PLAY"
	MessageTypeAutoPlayStatus MessageType = "AUTO_PLAY_STATUS"
	MessageTypeOffline        MessageType = "OFFLINE"
	MessageTypeError          MessageType = "ERROR"
)

// TurnType selects the action carried by a TURN_UPDATE.
type TurnType string

const (
	TurnTypeBattle   TurnType = "BATTLE"
	TurnTypeNextTurn TurnType = "NEXT_TURN"
)

// Message is the envelope of every frame exchanged over a connection.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage marshals payload into a message of the given type.
func NewMessage(t MessageType, payload interface{}) (*Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %v", t, err)
	}
	return &Message{
		Type:    t,
		Payload: b,
	}, nil
}

// DecodePayload unmarshals the payload into v. A malformed payload is a
// validation error.
func (m *Message) DecodePayload(v interface{}) error {
	if len(m.Payload) == 0 {
		return gameerrors.New(gameerrors.CodeValidation, "%s payload is missing", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return gameerrors.Wrap(gameerrors.CodeValidation, err, "invalid %s payload", m.Type)
	}
	return nil
}

// JoinGame is sent by a client to enter a game room.
type JoinGame struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
}

func (j *JoinGame) Validate() error {
	return required(map[string]bool{
		"gameId": j.GameID != "",
		"userId": j.UserID != "",
	})
}

// JoinGameResponse announces a player to the room.
type JoinGameResponse struct {
	GameID      string           `json:"gameId"`
	Player      types.Player     `json:"player"`
	PlayerIndex int              `json:"playerIndex"`
	User        types.PlayerUser `json:"user"`
	// OnlinePlayers lists the other users connected to the game.
	OnlinePlayers []string `json:"onlinePlayers"`
}

// TurnUpdate carries a turn action from a client and its result back to
// the room. Data holds BattleData or NextTurnData on the way in and the
// engine's result on the way out.
type TurnUpdate struct {
	GameID string          `json:"gameId"`
	Type   TurnType        `json:"type"`
	Data   json.RawMessage `json:"data"`
}

func (u *TurnUpdate) Validate() error {
	return required(map[string]bool{
		"gameId": u.GameID != "",
		"type":   u.Type != "",
		"data":   len(u.Data) > 0 && string(u.Data) != "null",
	})
}

// BattleData asks for figure Attacker to attack figure Defender.
type BattleData struct {
	Attacker    *int `json:"attacker"`
	Defender    *int `json:"defender"`
	PlayerIndex *int `json:"playerIndex"`
}

func NewBattleData(attacker, defender, playerIndex int) BattleData {
	return BattleData{Attacker: &attacker, Defender: &defender, PlayerIndex: &playerIndex}
}

func (d *BattleData) Validate() error {
	return required(map[string]bool{
		"attacker":    d.Attacker != nil,
		"defender":    d.Defender != nil,
		"playerIndex": d.PlayerIndex != nil,
	})
}

// NextTurnData ends the turn of CurrentPlayerIndex.
type NextTurnData struct {
	CurrentPlayerIndex *int `json:"currentPlayerIndex"`
	SupplyAmount       *int `json:"supplyAmount"`
}

func NewNextTurnData(currentPlayerIndex, supplyAmount int) NextTurnData {
	return NextTurnData{CurrentPlayerIndex: &currentPlayerIndex, SupplyAmount: &supplyAmount}
}

func (d *NextTurnData) Validate() error {
	return required(map[string]bool{
		"currentPlayerIndex": d.CurrentPlayerIndex != nil,
		"supplyAmount":       d.SupplyAmount != nil,
	})
}

// ClaimAutoPlay asks to take (Enable) or give up control of automated seats.
type ClaimAutoPlay struct {
	GameID string `json:"gameId"`
	Enable bool   `json:"enable"`
}

func (c *ClaimAutoPlay) Validate() error {
	return required(map[string]bool{
		"gameId": c.GameID != "",
	})
}

// AutoPlayStatus reports the current controller of a game's automated seats.
type AutoPlayStatus struct {
	GameID       string `json:"gameId"`
	ControllerID string `json:"controllerId"`
	Enabled      bool   `json:"enabled"`
	// Code is ELECTION_CONFLICT on the answer to a claim another connection
	// already holds.
	Code gameerrors.Code `json:"code,omitempty"`
}

// Offline tells the room that a user has no connection left.
type Offline struct {
	GameID string `json:"gameId"`
	UserID string `json:"userId"`
}

func required(fields map[string]bool) error {
	var missing []string
	for name, ok := range fields {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return gameerrors.New(gameerrors.CodeValidation, "missing required fields: %s", strings.Join(missing, ", ")).
		WithDetail("fields", missing)
}
