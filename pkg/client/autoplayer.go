package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cbodonnell/hexconquest/pkg/game/rules"
	"github.com/cbodonnell/hexconquest/pkg/gameerrors"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/cbodonnell/hexconquest/pkg/messages"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	DefaultSupplyAmount = 3
	writeTimeout        = 5 * time.Second
)

// AutoPlayer is a bot that joins a game, takes control of its automated
// seats and ends their turns whenever one comes up.
type AutoPlayer struct {
	url          string
	token        string
	gameID       string
	userID       string
	autoSeats    map[int]bool
	supplyAmount int

	conn *websocket.Conn
}

type NewAutoPlayerOptions struct {
	// URL is the server's WebSocket endpoint, e.g. ws://localhost:8080/ws.
	URL   string
	Token string
	// GameID and UserID are used to join. The user must hold a seat.
	GameID string
	UserID string
	// AutoSeats are the automated seats the bot plays for.
	AutoSeats    []int
	SupplyAmount int
}

func NewAutoPlayer(opts NewAutoPlayerOptions) *AutoPlayer {
	seats := make(map[int]bool, len(opts.AutoSeats))
	for _, s := range opts.AutoSeats {
		seats[s] = true
	}
	supply := opts.SupplyAmount
	if supply <= 0 {
		supply = DefaultSupplyAmount
	}
	return &AutoPlayer{
		url:          opts.URL,
		token:        opts.Token,
		gameID:       opts.GameID,
		userID:       opts.UserID,
		autoSeats:    seats,
		supplyAmount: supply,
	}
}

// Run plays until ctx is done or the connection drops.
func (a *AutoPlayer) Run(ctx context.Context) error {
	header := http.Header{}
	if a.token != "" {
		header.Set("Authorization", "Bearer "+a.token)
	}

	log.Info("Connecting to %s", a.url)
	conn, _, err := websocket.Dial(ctx, a.url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("failed to connect to server: %v", err)
	}
	conn.SetReadLimit(messages.MessageBufferSize)
	a.conn = conn
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := a.send(ctx, messages.MessageTypeJoinGame, messages.JoinGame{GameID: a.gameID, UserID: a.userID}); err != nil {
		return err
	}
	if err := a.send(ctx, messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: a.gameID, Enable: true}); err != nil {
		return err
	}

	for {
		msg := &messages.Message{}
		if err := wsjson.Read(ctx, conn, msg); err != nil {
			if ctx.Err() != nil {
				a.release()
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("failed to read message: %v", err)
		}
		if err := a.handleMessage(ctx, msg); err != nil {
			log.Error("Failed to handle %s: %v", msg.Type, err)
		}
	}
}

// release hands control back before leaving. The server also does this on
// disconnect, so failures are only logged.
func (a *AutoPlayer) release() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := a.send(ctx, messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: a.gameID}); err != nil {
		log.Debug("Failed to release auto play: %v", err)
	}
}

func (a *AutoPlayer) handleMessage(ctx context.Context, msg *messages.Message) error {
	log.Trace("Received %s", msg.Type)

	switch msg.Type {
	case messages.MessageTypeAutoPlayStatus:
		status := &messages.AutoPlayStatus{}
		if err := msg.DecodePayload(status); err != nil {
			return err
		}
		if !status.Enabled {
			// Control is free again, try to take it.
			return a.send(ctx, messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: a.gameID, Enable: true})
		}
		// Whoever got control, an automated seat may already be waiting.
		for seat := range a.autoSeats {
			if err := a.endTurn(ctx, seat); err != nil {
				return err
			}
		}

	case messages.MessageTypeTurnUpdate:
		update := &messages.TurnUpdate{}
		if err := msg.DecodePayload(update); err != nil {
			return err
		}
		if update.Type != messages.TurnTypeNextTurn {
			return nil
		}
		result := &rules.TurnResult{}
		if err := json.Unmarshal(update.Data, result); err != nil {
			return fmt.Errorf("failed to unmarshal turn result: %v", err)
		}
		if result.Finished() {
			log.Info("Game %s finished", a.gameID)
			return nil
		}
		if a.autoSeats[result.NewPlayerIndex] {
			return a.endTurn(ctx, result.NewPlayerIndex)
		}

	case messages.MessageTypeError:
		resp := &gameerrors.Response{}
		if err := msg.DecodePayload(resp); err != nil {
			return err
		}
		// Probing seats that are not up yet is expected to fail.
		log.Debug("Server rejected action: %s (%s)", resp.Message, resp.Code)
	}
	return nil
}

func (a *AutoPlayer) endTurn(ctx context.Context, seat int) error {
	log.Debug("Ending turn of seat %d", seat)
	data, err := json.Marshal(messages.NewNextTurnData(seat, a.supplyAmount))
	if err != nil {
		return fmt.Errorf("failed to marshal turn data: %v", err)
	}
	return a.send(ctx, messages.MessageTypeTurnUpdate, messages.TurnUpdate{
		GameID: a.gameID,
		Type:   messages.TurnTypeNextTurn,
		Data:   data,
	})
}

func (a *AutoPlayer) send(ctx context.Context, t messages.MessageType, payload interface{}) error {
	msg, err := messages.NewMessage(t, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, a.conn, msg); err != nil {
		return fmt.Errorf("failed to send %s: %v", t, err)
	}
	return nil
}
