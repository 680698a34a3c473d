package rooms

import (
	"context"
	"encoding/json"

	"github.com/cbodonnell/hexconquest/pkg/game/types"
	"github.com/cbodonnell/hexconquest/pkg/gameerrors"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/cbodonnell/hexconquest/pkg/messages"
	"github.com/cbodonnell/hexconquest/pkg/presence"
	"github.com/cbodonnell/hexconquest/pkg/repositories"
)

func (s *Synchronizer) handleJoinGame(ctx context.Context, sess *session, msg *messages.Message) error {
	if sess.state == sessionJoined {
		return gameerrors.New(gameerrors.CodeProtocol, "connection already joined game %s", sess.gameID)
	}

	req := &messages.JoinGame{}
	if err := msg.DecodePayload(req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if sess.authUserID != "" && sess.authUserID != req.UserID {
		return gameerrors.New(gameerrors.CodeValidation, "userId does not match the authenticated user").
			WithDetail("userId", req.UserID)
	}

	game, err := s.repository.FindGameByID(ctx, req.GameID)
	if err != nil {
		return storageError(err, gameerrors.CodeGameNotFound, "game %s not found", req.GameID)
	}
	playerIndex, player, ok := game.PlayerByUserID(req.UserID)
	if !ok {
		return gameerrors.New(gameerrors.CodePlayerNotFound, "user %s has no seat in game %s", req.UserID, req.GameID)
	}
	user, err := s.repository.FindUserByID(ctx, req.UserID)
	if err != nil {
		return storageError(err, gameerrors.CodeUserNotFound, "user %s not found", req.UserID)
	}

	if err := s.presence.Register(ctx, presence.Entry{
		ConnectionID: sess.clientID,
		GameID:       req.GameID,
		UserID:       req.UserID,
	}); err != nil {
		return gameerrors.Wrap(gameerrors.CodeStorage, err, "failed to register presence")
	}
	if err := s.sender.JoinRoom(sess.clientID, req.GameID); err != nil {
		if _, _, unregisterErr := s.presence.Unregister(ctx, sess.clientID); unregisterErr != nil {
			log.Error("Failed to unregister presence of client %s: %v", sess.clientID, unregisterErr)
		}
		return gameerrors.Wrap(gameerrors.CodeInternal, err, "failed to join room")
	}
	s.markJoined(sess, req.GameID, req.UserID)

	online, err := s.presence.OnlineUsersInGame(ctx, req.GameID, req.UserID)
	if err != nil {
		log.Error("Failed to read presence of game %s: %v", req.GameID, err)
		online = []string{}
	}

	joined, err := messages.NewMessage(messages.MessageTypeJoinGame, messages.JoinGameResponse{
		GameID:        req.GameID,
		Player:        *player,
		PlayerIndex:   playerIndex,
		User:          types.PlayerUser{ID: req.UserID, Username: user.Username},
		OnlinePlayers: online,
	})
	if err != nil {
		return gameerrors.Wrap(gameerrors.CodeInternal, err, "failed to build join message")
	}
	s.history.Record(req.GameID, req.UserID, joined)
	s.sender.SendToRoom(req.GameID, joined)

	for _, previous := range s.history.Others(req.GameID, req.UserID) {
		if err := s.sender.SendToClient(sess.clientID, previous); err != nil {
			log.Debug("Failed to replay join to client %s: %v", sess.clientID, err)
		}
	}

	outcome, err := s.election.Current(ctx, req.GameID)
	if err != nil {
		return storageError(err, gameerrors.CodeGameNotFound, "game %s not found", req.GameID)
	}
	if err := s.sendAutoPlayStatus(sess.clientID, autoPlayStatus(req.GameID, outcome)); err != nil {
		return err
	}

	log.With("clientId", sess.clientID).With("gameId", req.GameID).Info("User %s joined as player %d", req.UserID, playerIndex)
	return nil
}

func (s *Synchronizer) handleTurnUpdate(ctx context.Context, sess *session, msg *messages.Message) error {
	if err := requireJoined(sess); err != nil {
		return err
	}
	req := &messages.TurnUpdate{}
	if err := msg.DecodePayload(req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := checkRoom(sess, req.GameID); err != nil {
		return err
	}

	unlock := s.gameLocks.Lock(req.GameID)
	defer unlock()

	var (
		result   interface{}
		finished bool
	)
	for attempt := 1; ; attempt++ {
		game, err := s.repository.FindGameByID(ctx, req.GameID)
		if err != nil {
			return storageError(err, gameerrors.CodeGameNotFound, "game %s not found", req.GameID)
		}

		result, finished, err = s.applyTurn(sess, req, game)
		if err != nil {
			return err
		}
		game.LastActivity = s.now().UTC()

		err = s.repository.UpdateGameState(ctx, game)
		if err == nil {
			break
		}
		if !repositories.IsVersionConflict(err) {
			return gameerrors.Wrap(gameerrors.CodeStorage, err, "failed to save game %s", req.GameID)
		}
		if attempt >= s.maxTurnRetries {
			return gameerrors.Wrap(gameerrors.CodeStorage, err, "game %s kept changing, giving up", req.GameID)
		}
		log.Debug("Retrying %s on game %s after a concurrent write", req.Type, req.GameID)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return gameerrors.Wrap(gameerrors.CodeInternal, err, "failed to marshal turn result")
	}
	s.broadcast(req.GameID, messages.MessageTypeTurnUpdate, messages.TurnUpdate{
		GameID: req.GameID,
		Type:   req.Type,
		Data:   data,
	})

	if finished {
		s.history.Clear(req.GameID)
		log.With("gameId", req.GameID).Info("Game finished")
	}
	return nil
}

// applyTurn checks that the connection may act for the seat and runs the
// action against game.
func (s *Synchronizer) applyTurn(sess *session, req *messages.TurnUpdate, game *types.Game) (interface{}, bool, error) {
	if game.GamePhase == types.GamePhaseFinished {
		return nil, false, gameerrors.New(gameerrors.CodeGameFinished, "game %s is finished", game.ID)
	}

	switch req.Type {
	case messages.TurnTypeBattle:
		data := &messages.BattleData{}
		if err := decodeTurnData(req, data); err != nil {
			return nil, false, err
		}
		if err := s.authorizeSeat(sess, game, *data.PlayerIndex); err != nil {
			return nil, false, err
		}
		result, err := s.engine.ResolveBattle(*data.Attacker, *data.Defender, *data.PlayerIndex, game)
		if err != nil {
			return nil, false, err
		}
		return result, false, nil

	case messages.TurnTypeNextTurn:
		data := &messages.NextTurnData{}
		if err := decodeTurnData(req, data); err != nil {
			return nil, false, err
		}
		if err := s.authorizeSeat(sess, game, *data.CurrentPlayerIndex); err != nil {
			return nil, false, err
		}
		result, err := s.engine.AdvanceTurn(*data.CurrentPlayerIndex, *data.SupplyAmount, game)
		if err != nil {
			return nil, false, err
		}
		return result, result.Finished(), nil

	default:
		return nil, false, gameerrors.New(gameerrors.CodeValidation, "unknown turn type %q", req.Type).
			WithDetail("type", req.Type)
	}
}

type validator interface {
	Validate() error
}

func decodeTurnData(req *messages.TurnUpdate, v validator) error {
	if err := json.Unmarshal(req.Data, v); err != nil {
		return gameerrors.Wrap(gameerrors.CodeValidation, err, "invalid %s data", req.Type)
	}
	return v.Validate()
}

// authorizeSeat checks that the connection may act for seat now. Seats that
// do not exist are left for the engine to reject.
func (s *Synchronizer) authorizeSeat(sess *session, game *types.Game, seat int) error {
	player, ok := game.Player(seat)
	if !ok {
		return nil
	}

	ownsSeat := player.User != nil && player.User.ID == sess.userID
	controlsSeat := player.Config.IsAuto && game.AutoPlayControllerID == sess.clientID
	if !ownsSeat && !controlsSeat {
		return gameerrors.New(gameerrors.CodeSeatAuthorization, "connection may not act for player %d", seat).
			WithDetail("playerIndex", seat)
	}
	if seat != game.CurrentPlayerIndex {
		return gameerrors.New(gameerrors.CodeTurnOrder, "it is not player %d's turn", seat).
			WithDetail("playerIndex", seat).
			WithDetail("currentPlayerIndex", game.CurrentPlayerIndex)
	}
	return nil
}

func (s *Synchronizer) handleClaimAutoPlay(ctx context.Context, sess *session, msg *messages.Message) error {
	if err := requireJoined(sess); err != nil {
		return err
	}
	req := &messages.ClaimAutoPlay{}
	if err := msg.DecodePayload(req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := checkRoom(sess, req.GameID); err != nil {
		return err
	}

	claim := s.election.Release
	if req.Enable {
		claim = s.election.Claim
	}
	outcome, err := claim(ctx, req.GameID, sess.clientID)
	if err != nil {
		return storageError(err, gameerrors.CodeGameNotFound, "game %s not found", req.GameID)
	}

	if outcome.Changed {
		s.broadcastAutoPlayStatus(req.GameID, outcome)
		log.With("gameId", req.GameID).Info("Auto play controller is now %q", outcome.ControllerID)
		return nil
	}

	status := autoPlayStatus(req.GameID, outcome)
	if req.Enable && outcome.ControllerID != sess.clientID {
		status.Code = gameerrors.CodeElectionConflict
	}
	return s.sendAutoPlayStatus(sess.clientID, status)
}

func requireJoined(sess *session) error {
	if sess.state != sessionJoined {
		return gameerrors.New(gameerrors.CodeProtocol, "join a game first")
	}
	return nil
}

// checkRoom rejects actions aimed at a game other than the joined one.
func checkRoom(sess *session, gameID string) error {
	if gameID != sess.gameID {
		return gameerrors.New(gameerrors.CodeProtocol, "connection is in game %s, not %s", sess.gameID, gameID).
			WithDetail("gameId", gameID)
	}
	return nil
}
