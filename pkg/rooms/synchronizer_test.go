package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mocks "github.com/cbodonnell/hexconquest/mocks/github.com/cbodonnell/hexconquest/pkg/repositories"
	"github.com/cbodonnell/hexconquest/pkg/game/rules"
	"github.com/cbodonnell/hexconquest/pkg/game/types"
	"github.com/cbodonnell/hexconquest/pkg/gameerrors"
	"github.com/cbodonnell/hexconquest/pkg/messages"
	"github.com/cbodonnell/hexconquest/pkg/presence"
	"github.com/cbodonnell/hexconquest/pkg/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeSender records what every connection would have received.
type fakeSender struct {
	lock    sync.Mutex
	members map[string]string
	inbox   map[string][]*messages.Message
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		members: make(map[string]string),
		inbox:   make(map[string][]*messages.Message),
	}
}

func (f *fakeSender) SendToClient(clientID string, msg *messages.Message) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.inbox[clientID] = append(f.inbox[clientID], msg)
	return nil
}

func (f *fakeSender) SendToRoom(gameID string, msg *messages.Message) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for clientID, room := range f.members {
		if room == gameID {
			f.inbox[clientID] = append(f.inbox[clientID], msg)
		}
	}
}

func (f *fakeSender) JoinRoom(clientID, gameID string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.members[clientID] = gameID
	return nil
}

func (f *fakeSender) LeaveRoom(clientID string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.members, clientID)
}

// drain returns and forgets the messages a connection received.
func (f *fakeSender) drain(clientID string) []*messages.Message {
	f.lock.Lock()
	defer f.lock.Unlock()
	msgs := f.inbox[clientID]
	delete(f.inbox, clientID)
	return msgs
}

// loadedDice always rolls six and always picks the first candidate.
type loadedDice struct{}

func (loadedDice) RollD6() int    { return 6 }
func (loadedDice) Intn(n int) int { return 0 }

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testGame() *types.Game {
	fig := func(index int, color types.Color, dice int) types.Figure {
		return types.Figure{
			Config: types.FigureConfig{Color: color, Index: index},
			Dice:   dice,
		}
	}
	return &types.Game{
		ID:        "g1",
		Name:      "test",
		GamePhase: types.GamePhasePlaying,
		Players: []types.Player{
			{
				Config:  types.PlayerConfig{Color: types.ColorRed},
				Figures: []int{0, 3},
				User:    &types.PlayerUser{ID: "alice", Username: "Alice"},
			},
			{
				Config:  types.PlayerConfig{Color: types.ColorBlue},
				Figures: []int{1},
				User:    &types.PlayerUser{ID: "bob", Username: "Bob"},
			},
			{
				Config:  types.PlayerConfig{Color: types.ColorGreen, IsAuto: true},
				Figures: []int{2},
			},
		},
		Figures: []types.Figure{
			fig(0, types.ColorRed, 3),
			fig(1, types.ColorBlue, 1),
			fig(2, types.ColorGreen, 2),
			fig(3, types.ColorRed, 1),
		},
	}
}

type fixture struct {
	synchronizer *Synchronizer
	repo         *repositories.MemoryRepository
	sender       *fakeSender
	tracker      *presence.MemoryTracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo := repositories.NewMemoryRepository()
	require.NoError(t, repo.SaveGame(ctx, testGame()))
	for _, u := range []*types.User{
		{ID: "alice", Username: "Alice"},
		{ID: "bob", Username: "Bob"},
		{ID: "carol", Username: "Carol"},
	} {
		require.NoError(t, repo.SaveUser(ctx, u))
	}

	sender := newFakeSender()
	tracker := presence.NewMemoryTracker()
	return &fixture{
		synchronizer: NewSynchronizer(NewSynchronizerOptions{
			Repository: repo,
			Engine:     rules.NewEngine(rules.NewEngineOptions{Dice: loadedDice{}}),
			Presence:   tracker,
			Sender:     sender,
			Now:        func() time.Time { return fixedNow },
		}),
		repo:    repo,
		sender:  sender,
		tracker: tracker,
	}
}

func newMessage(t *testing.T, msgType messages.MessageType, payload interface{}) *messages.Message {
	t.Helper()
	msg, err := messages.NewMessage(msgType, payload)
	require.NoError(t, err)
	return msg
}

func turnMessage(t *testing.T, gameID string, turnType messages.TurnType, data interface{}) *messages.Message {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	return newMessage(t, messages.MessageTypeTurnUpdate, messages.TurnUpdate{GameID: gameID, Type: turnType, Data: b})
}

func (f *fixture) join(t *testing.T, clientID, userID string) {
	t.Helper()
	f.synchronizer.HandleMessage(context.Background(), clientID, "", newMessage(t, messages.MessageTypeJoinGame, messages.JoinGame{GameID: "g1", UserID: userID}))
}

func requireType(t *testing.T, msg *messages.Message, msgType messages.MessageType) {
	t.Helper()
	require.Equal(t, msgType, msg.Type, "payload: %s", msg.Payload)
}

func requireErrorCode(t *testing.T, msgs []*messages.Message, code gameerrors.Code) {
	t.Helper()
	require.Len(t, msgs, 1)
	requireType(t, msgs[0], messages.MessageTypeError)
	var resp gameerrors.Response
	require.NoError(t, msgs[0].DecodePayload(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, code, resp.Code, resp.Message)
}

func decodeJoin(t *testing.T, msg *messages.Message) messages.JoinGameResponse {
	t.Helper()
	requireType(t, msg, messages.MessageTypeJoinGame)
	var resp messages.JoinGameResponse
	require.NoError(t, msg.DecodePayload(&resp))
	return resp
}

func decodeStatus(t *testing.T, msg *messages.Message) messages.AutoPlayStatus {
	t.Helper()
	requireType(t, msg, messages.MessageTypeAutoPlayStatus)
	var status messages.AutoPlayStatus
	require.NoError(t, msg.DecodePayload(&status))
	return status
}

func TestJoinGame_AnnouncesAndReplays(t *testing.T) {
	f := newFixture(t)

	f.join(t, "c1", "alice")
	first := f.sender.drain("c1")
	require.Len(t, first, 2)
	aliceJoin := decodeJoin(t, first[0])
	assert.Equal(t, "g1", aliceJoin.GameID)
	assert.Equal(t, 0, aliceJoin.PlayerIndex)
	assert.Equal(t, types.PlayerUser{ID: "alice", Username: "Alice"}, aliceJoin.User)
	assert.Equal(t, types.ColorRed, aliceJoin.Player.Config.Color)
	assert.Empty(t, aliceJoin.OnlinePlayers)
	assert.False(t, decodeStatus(t, first[1]).Enabled)

	f.join(t, "c2", "bob")

	// The earlier client sees the latecomer.
	toAlice := f.sender.drain("c1")
	require.Len(t, toAlice, 1)
	bobJoin := decodeJoin(t, toAlice[0])
	assert.Equal(t, 1, bobJoin.PlayerIndex)
	assert.Equal(t, []string{"alice"}, bobJoin.OnlinePlayers)

	// The latecomer gets its own join, then the replay, then the status.
	toBob := f.sender.drain("c2")
	require.Len(t, toBob, 3)
	assert.Equal(t, "bob", decodeJoin(t, toBob[0]).User.ID)
	assert.Equal(t, "alice", decodeJoin(t, toBob[1]).User.ID)
	decodeStatus(t, toBob[2])
}

func TestJoinGame_ReplayKeepsLatestJoinPerUser(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice")
	f.join(t, "c2", "alice")
	f.join(t, "c3", "bob")

	toBob := f.sender.drain("c3")
	require.Len(t, toBob, 3)
	assert.Equal(t, "alice", decodeJoin(t, toBob[1]).User.ID)
	decodeStatus(t, toBob[2])
}

func TestJoinGame_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		authUserID string
		msg        func(t *testing.T) *messages.Message
		code       gameerrors.Code
	}{
		{
			name: "unknown game",
			msg: func(t *testing.T) *messages.Message {
				return newMessage(t, messages.MessageTypeJoinGame, messages.JoinGame{GameID: "nope", UserID: "alice"})
			},
			code: gameerrors.CodeGameNotFound,
		},
		{
			name: "user without seat",
			msg: func(t *testing.T) *messages.Message {
				return newMessage(t, messages.MessageTypeJoinGame, messages.JoinGame{GameID: "g1", UserID: "carol"})
			},
			code: gameerrors.CodePlayerNotFound,
		},
		{
			name: "seat without user record",
			msg: func(t *testing.T) *messages.Message {
				return newMessage(t, messages.MessageTypeJoinGame, messages.JoinGame{GameID: "g2", UserID: "ghost"})
			},
			code: gameerrors.CodeUserNotFound,
		},
		{
			name: "missing user id",
			msg: func(t *testing.T) *messages.Message {
				return newMessage(t, messages.MessageTypeJoinGame, messages.JoinGame{GameID: "g1"})
			},
			code: gameerrors.CodeValidation,
		},
		{
			name: "malformed payload",
			msg: func(t *testing.T) *messages.Message {
				return &messages.Message{Type: messages.MessageTypeJoinGame, Payload: json.RawMessage(`[1]`)}
			},
			code: gameerrors.CodeValidation,
		},
		{
			name:       "identity mismatch",
			authUserID: "bob",
			msg: func(t *testing.T) *messages.Message {
				return newMessage(t, messages.MessageTypeJoinGame, messages.JoinGame{GameID: "g1", UserID: "alice"})
			},
			code: gameerrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ghostGame := testGame()
			ghostGame.ID = "g2"
			ghostGame.Players[1].User = &types.PlayerUser{ID: "ghost"}
			require.NoError(t, f.repo.SaveGame(ctx, ghostGame))

			f.synchronizer.HandleMessage(ctx, "c1", tt.authUserID, tt.msg(t))

			requireErrorCode(t, f.sender.drain("c1"), tt.code)
			conns, err := f.tracker.Connections(ctx, "g1")
			require.NoError(t, err)
			assert.Empty(t, conns)
		})
	}
}

func TestJoinGame_SecondJoinIsProtocolError(t *testing.T) {
	f := newFixture(t)
	f.join(t, "c1", "alice")
	f.sender.drain("c1")

	f.join(t, "c1", "alice")
	requireErrorCode(t, f.sender.drain("c1"), gameerrors.CodeProtocol)
}

func TestJoinGame_AuthenticatedIdentity(t *testing.T) {
	f := newFixture(t)
	f.synchronizer.HandleConnect("c1", "alice")
	f.synchronizer.HandleMessage(context.Background(), "c1", "alice", newMessage(t, messages.MessageTypeJoinGame, messages.JoinGame{GameID: "g1", UserID: "alice"}))

	msgs := f.sender.drain("c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", decodeJoin(t, msgs[0]).User.ID)
}

func TestTurnUpdate_BattlePersistsAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.join(t, "c1", "alice")
	f.join(t, "c2", "bob")
	f.sender.drain("c1")
	f.sender.drain("c2")

	f.synchronizer.HandleMessage(ctx, "c1", "", turnMessage(t, "g1", messages.TurnTypeBattle, messages.NewBattleData(0, 1, 0)))

	for _, clientID := range []string{"c1", "c2"} {
		msgs := f.sender.drain(clientID)
		require.Len(t, msgs, 1, clientID)
		requireType(t, msgs[0], messages.MessageTypeTurnUpdate)

		var update messages.TurnUpdate
		require.NoError(t, msgs[0].DecodePayload(&update))
		assert.Equal(t, "g1", update.GameID)
		assert.Equal(t, messages.TurnTypeBattle, update.Type)

		var result rules.BattleResult
		require.NoError(t, json.Unmarshal(update.Data, &result))
		assert.Equal(t, 0, result.Winner)
		assert.Equal(t, 18, result.AttackerRoll)
		assert.Equal(t, 6, result.DefenderRoll)
		require.NotNil(t, result.EliminatedPlayerIndex)
		assert.Equal(t, 1, *result.EliminatedPlayerIndex)
	}

	game, err := f.repo.FindGameByID(ctx, "g1")
	require.NoError(t, err)
	defender, _ := game.Figure(1)
	assert.Equal(t, types.ColorRed, defender.Config.Color)
	assert.Equal(t, 2, defender.Dice)
	assert.ElementsMatch(t, []int{0, 3, 1}, game.Players[0].Figures)
	assert.True(t, game.Players[1].Config.IsDefeated)
	assert.Equal(t, fixedNow, game.LastActivity.UTC())
	assert.EqualValues(t, 1, game.Version)
}

func TestTurnUpdate_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		clientID string
		prepare  func(t *testing.T, f *fixture)
		msg      func(t *testing.T) *messages.Message
		code     gameerrors.Code
	}{
		{
			name:     "before join",
			clientID: "c3",
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 1))
			},
			code: gameerrors.CodeProtocol,
		},
		{
			name:     "other game",
			clientID: "c1",
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g2", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 1))
			},
			code: gameerrors.CodeProtocol,
		},
		{
			name:     "foreign seat",
			clientID: "c2",
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 1))
			},
			code: gameerrors.CodeSeatAuthorization,
		},
		{
			name:     "out of turn",
			clientID: "c2",
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g1", messages.TurnTypeBattle, messages.NewBattleData(1, 0, 1))
			},
			code: gameerrors.CodeTurnOrder,
		},
		{
			name:     "auto seat without control",
			clientID: "c1",
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(2, 1))
			},
			code: gameerrors.CodeSeatAuthorization,
		},
		{
			name:     "unknown turn type",
			clientID: "c1",
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g1", messages.TurnType("DANCE"), map[string]int{})
			},
			code: gameerrors.CodeValidation,
		},
		{
			name:     "incomplete battle data",
			clientID: "c1",
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g1", messages.TurnTypeBattle, map[string]int{"attacker": 0})
			},
			code: gameerrors.CodeValidation,
		},
		{
			name:     "self attack",
			clientID: "c1",
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g1", messages.TurnTypeBattle, messages.NewBattleData(0, 3, 0))
			},
			code: gameerrors.CodeSelfAttack,
		},
		{
			name:     "missing seat",
			clientID: "c1",
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(7, 1))
			},
			code: gameerrors.CodeInvalidPlayer,
		},
		{
			name:     "finished game",
			clientID: "c1",
			prepare: func(t *testing.T, f *fixture) {
				game, err := f.repo.FindGameByID(ctx, "g1")
				require.NoError(t, err)
				game.GamePhase = types.GamePhaseFinished
				require.NoError(t, f.repo.UpdateGameState(ctx, game))
			},
			msg: func(t *testing.T) *messages.Message {
				return turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 1))
			},
			code: gameerrors.CodeGameFinished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.join(t, "c1", "alice")
			f.join(t, "c2", "bob")
			f.sender.drain("c1")
			f.sender.drain("c2")
			if tt.prepare != nil {
				tt.prepare(t, f)
			}
			before, err := f.repo.FindGameByID(ctx, "g1")
			require.NoError(t, err)

			f.synchronizer.HandleMessage(ctx, tt.clientID, "", tt.msg(t))

			requireErrorCode(t, f.sender.drain(tt.clientID), tt.code)
			for _, other := range []string{"c1", "c2", "c3"} {
				if other != tt.clientID {
					assert.Empty(t, f.sender.drain(other), "nothing is broadcast for a failed action")
				}
			}
			after, err := f.repo.FindGameByID(ctx, "g1")
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestTurnUpdate_AutoSeatFollowsController(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	game, err := f.repo.FindGameByID(ctx, "g1")
	require.NoError(t, err)
	game.CurrentPlayerIndex = 2
	require.NoError(t, f.repo.UpdateGameState(ctx, game))

	f.join(t, "c1", "alice")
	f.synchronizer.HandleMessage(ctx, "c1", "", newMessage(t, messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: "g1", Enable: true}))
	f.sender.drain("c1")

	f.synchronizer.HandleMessage(ctx, "c1", "", turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(2, 1)))

	msgs := f.sender.drain("c1")
	require.Len(t, msgs, 1)
	requireType(t, msgs[0], messages.MessageTypeTurnUpdate)
	var update messages.TurnUpdate
	require.NoError(t, msgs[0].DecodePayload(&update))
	var result rules.TurnResult
	require.NoError(t, json.Unmarshal(update.Data, &result))
	assert.Equal(t, 0, result.NewPlayerIndex)
	assert.Equal(t, 1, result.TurnCount)
	require.Len(t, result.PlayerFigures, 1)

	stored, err := f.repo.FindGameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentPlayerIndex)
	assert.Equal(t, "c1", stored.AutoPlayControllerID)
}

func TestTurnUpdate_FinishingClearsJoinHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	game, err := f.repo.FindGameByID(ctx, "g1")
	require.NoError(t, err)
	game.Players[1].Defeat()
	game.Players[2].Defeat()
	require.NoError(t, f.repo.UpdateGameState(ctx, game))

	f.join(t, "c1", "alice")
	f.sender.drain("c1")
	require.Len(t, f.synchronizer.history.Generations(), 1)

	f.synchronizer.HandleMessage(ctx, "c1", "", turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 3)))

	msgs := f.sender.drain("c1")
	require.Len(t, msgs, 1)
	requireType(t, msgs[0], messages.MessageTypeTurnUpdate)
	assert.Empty(t, f.synchronizer.history.Generations())

	stored, err := f.repo.FindGameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, types.GamePhaseFinished, stored.GamePhase)

	f.synchronizer.HandleMessage(ctx, "c1", "", turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 3)))
	requireErrorCode(t, f.sender.drain("c1"), gameerrors.CodeGameFinished)
}

// joinedSynchronizer returns a synchronizer over repo where c1 already sits
// in g1 as alice.
func joinedSynchronizer(repo repositories.Repository, sender *fakeSender, retries int) *Synchronizer {
	s := NewSynchronizer(NewSynchronizerOptions{
		Repository:     repo,
		Engine:         rules.NewEngine(rules.NewEngineOptions{Dice: loadedDice{}}),
		Presence:       presence.NewMemoryTracker(),
		Sender:         sender,
		MaxTurnRetries: retries,
	})
	s.sessions["c1"] = &session{clientID: "c1", state: sessionJoined, gameID: "g1", userID: "alice"}
	sender.members["c1"] = "g1"
	return s
}

func TestTurnUpdate_RetriesOnVersionConflict(t *testing.T) {
	repo := mocks.NewRepository(t)
	repo.EXPECT().FindGameByID(mock.Anything, "g1").
		RunAndReturn(func(ctx context.Context, id string) (*types.Game, error) {
			return testGame(), nil
		}).Times(2)
	repo.EXPECT().UpdateGameState(mock.Anything, mock.Anything).
		Return(&repositories.ErrVersionConflict{GameID: "g1"}).Once()
	repo.EXPECT().UpdateGameState(mock.Anything, mock.Anything).
		Return(nil).Once()

	sender := newFakeSender()
	s := joinedSynchronizer(repo, sender, 3)
	s.HandleMessage(context.Background(), "c1", "", turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 1)))

	msgs := sender.drain("c1")
	require.Len(t, msgs, 1)
	requireType(t, msgs[0], messages.MessageTypeTurnUpdate)
}

func TestTurnUpdate_GivesUpAfterMaxRetries(t *testing.T) {
	repo := mocks.NewRepository(t)
	repo.EXPECT().FindGameByID(mock.Anything, "g1").
		RunAndReturn(func(ctx context.Context, id string) (*types.Game, error) {
			return testGame(), nil
		}).Times(2)
	repo.EXPECT().UpdateGameState(mock.Anything, mock.Anything).
		Return(&repositories.ErrVersionConflict{GameID: "g1"}).Times(2)

	sender := newFakeSender()
	s := joinedSynchronizer(repo, sender, 2)
	s.HandleMessage(context.Background(), "c1", "", turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 1)))

	requireErrorCode(t, sender.drain("c1"), gameerrors.CodeStorage)
}

func TestTurnUpdate_StorageFailure(t *testing.T) {
	repo := mocks.NewRepository(t)
	repo.EXPECT().FindGameByID(mock.Anything, "g1").
		Return(nil, assert.AnError).Once()

	sender := newFakeSender()
	s := joinedSynchronizer(repo, sender, 3)
	s.HandleMessage(context.Background(), "c1", "", turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 1)))

	requireErrorCode(t, sender.drain("c1"), gameerrors.CodeStorage)
}

func TestTurnUpdate_SerializedPerGame(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 8; i++ {
		f.join(t, string(rune('a'+i)), "alice")
	}

	msg := turnMessage(t, "g1", messages.TurnTypeNextTurn, messages.NewNextTurnData(0, 1))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(clientID string) {
			defer wg.Done()
			f.synchronizer.HandleMessage(ctx, clientID, "", msg)
		}(string(rune('a' + i)))
	}
	wg.Wait()

	// Only the first NEXT_TURN for seat 0 can succeed; the rest are out of turn.
	stored, err := f.repo.FindGameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TurnCount)
	assert.Equal(t, 1, stored.CurrentPlayerIndex)
	assert.EqualValues(t, 1, stored.Version)
}

func TestClaimAutoPlay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.join(t, "c1", "alice")
	f.join(t, "c2", "bob")
	f.sender.drain("c1")
	f.sender.drain("c2")

	claim := func(clientID string, enable bool) {
		f.synchronizer.HandleMessage(ctx, clientID, "", newMessage(t, messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: "g1", Enable: enable}))
	}

	claim("c1", true)
	for _, clientID := range []string{"c1", "c2"} {
		msgs := f.sender.drain(clientID)
		require.Len(t, msgs, 1)
		assert.Equal(t, messages.AutoPlayStatus{GameID: "g1", ControllerID: "c1", Enabled: true}, decodeStatus(t, msgs[0]))
	}

	// A lost claim only tells the requester who holds control.
	claim("c2", true)
	assert.Empty(t, f.sender.drain("c1"))
	msgs := f.sender.drain("c2")
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.AutoPlayStatus{
		GameID:       "g1",
		ControllerID: "c1",
		Enabled:      true,
		Code:         gameerrors.CodeElectionConflict,
	}, decodeStatus(t, msgs[0]))

	// Releasing something not held changes nothing.
	claim("c2", false)
	assert.Empty(t, f.sender.drain("c1"))
	msgs = f.sender.drain("c2")
	require.Len(t, msgs, 1)
	assert.Empty(t, decodeStatus(t, msgs[0]).Code)

	// Claiming again while holding is not a conflict.
	claim("c1", true)
	msgs = f.sender.drain("c1")
	require.Len(t, msgs, 1)
	assert.Empty(t, decodeStatus(t, msgs[0]).Code)

	claim("c1", false)
	for _, clientID := range []string{"c1", "c2"} {
		msgs := f.sender.drain(clientID)
		require.Len(t, msgs, 1)
		assert.Equal(t, messages.AutoPlayStatus{GameID: "g1"}, decodeStatus(t, msgs[0]))
	}
}

func TestClaimAutoPlay_BeforeJoin(t *testing.T) {
	f := newFixture(t)
	f.synchronizer.HandleMessage(context.Background(), "c1", "", newMessage(t, messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: "g1", Enable: true}))
	requireErrorCode(t, f.sender.drain("c1"), gameerrors.CodeProtocol)
}

func TestHandleMessage_UnknownEvent(t *testing.T) {
	f := newFixture(t)
	f.synchronizer.HandleMessage(context.Background(), "c1", "", &messages.Message{Type: "DANCE", Payload: json.RawMessage(`{}`)})
	requireErrorCode(t, f.sender.drain("c1"), gameerrors.CodeProtocol)
}

func TestHandleDisconnect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.join(t, "c1", "alice")
	f.join(t, "c2", "alice")
	f.join(t, "c3", "bob")
	f.synchronizer.HandleMessage(ctx, "c1", "", newMessage(t, messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: "g1", Enable: true}))
	for _, clientID := range []string{"c1", "c2", "c3"} {
		f.sender.drain(clientID)
	}

	// Alice still has c2, so she is not offline, but c1's claim is released.
	f.synchronizer.HandleDisconnect(ctx, "c1")
	msgs := f.sender.drain("c3")
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.AutoPlayStatus{GameID: "g1"}, decodeStatus(t, msgs[0]))
	assert.Empty(t, f.sender.drain("c1"))

	f.synchronizer.HandleDisconnect(ctx, "c2")
	msgs = f.sender.drain("c3")
	require.Len(t, msgs, 1)
	requireType(t, msgs[0], messages.MessageTypeOffline)
	var offline messages.Offline
	require.NoError(t, msgs[0].DecodePayload(&offline))
	assert.Equal(t, messages.Offline{GameID: "g1", UserID: "alice"}, offline)

	// Disconnecting an unknown or never joined connection is harmless.
	f.synchronizer.HandleDisconnect(ctx, "c1")
	f.synchronizer.HandleDisconnect(ctx, "nobody")
	assert.Empty(t, f.sender.drain("c3"))

	online, err := f.tracker.OnlineUsersInGame(ctx, "g1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, online)
}

func TestSweepJoinHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.join(t, "c1", "alice")

	swept, err := f.synchronizer.SweepJoinHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)

	f.synchronizer.HandleDisconnect(ctx, "c1")
	swept, err = f.synchronizer.SweepJoinHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Empty(t, f.synchronizer.history.Generations())
}

// unreachableTracker fails to unregister, like a presence store that is down.
type unreachableTracker struct {
	*presence.MemoryTracker
}

func (unreachableTracker) Unregister(ctx context.Context, connectionID string) (presence.Entry, bool, error) {
	return presence.Entry{}, false, errors.New("dial tcp: connection refused")
}

func TestHandleDisconnect_ReleasesClaimWhenPresenceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.synchronizer.presence = unreachableTracker{MemoryTracker: f.tracker}
	f.join(t, "c1", "alice")
	f.join(t, "c2", "bob")
	f.synchronizer.HandleMessage(ctx, "c1", "", newMessage(t, messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: "g1", Enable: true}))
	f.sender.drain("c1")
	f.sender.drain("c2")

	f.synchronizer.HandleDisconnect(ctx, "c1")

	// No OFFLINE without presence, but the claim is released.
	msgs := f.sender.drain("c2")
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.AutoPlayStatus{GameID: "g1"}, decodeStatus(t, msgs[0]))

	stored, err := f.repo.FindGameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, stored.AutoPlayControllerID)
}

func TestReleaseClaims(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.join(t, "c1", "alice")
	f.join(t, "c2", "bob")
	f.synchronizer.HandleMessage(ctx, "c1", "", newMessage(t, messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: "g1", Enable: true}))
	f.sender.drain("c1")
	f.sender.drain("c2")

	assert.Equal(t, 1, f.synchronizer.ReleaseClaims(ctx))
	msgs := f.sender.drain("c2")
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.AutoPlayStatus{GameID: "g1"}, decodeStatus(t, msgs[0]))

	stored, err := f.repo.FindGameByID(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, stored.AutoPlayControllerID)

	assert.Equal(t, 0, f.synchronizer.ReleaseClaims(ctx))
}

// racingTracker runs onConnections once, after reading the connections of a
// game.
type racingTracker struct {
	*presence.MemoryTracker
	onConnections func()
}

func (r *racingTracker) Connections(ctx context.Context, gameID string) ([]presence.Entry, error) {
	entries, err := r.MemoryTracker.Connections(ctx, gameID)
	if r.onConnections != nil {
		r.onConnections()
		r.onConnections = nil
	}
	return entries, err
}

func TestSweepJoinHistory_KeepsJoinRecordedDuringSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.join(t, "c1", "alice")
	f.synchronizer.HandleDisconnect(ctx, "c1")

	bobJoin := newMessage(t, messages.MessageTypeJoinGame, messages.JoinGameResponse{GameID: "g1"})
	f.synchronizer.presence = &racingTracker{
		MemoryTracker: f.tracker,
		onConnections: func() {
			f.synchronizer.history.Record("g1", "bob", bobJoin)
		},
	}

	swept, err := f.synchronizer.SweepJoinHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
	assert.Equal(t, []*messages.Message{bobJoin}, f.synchronizer.history.Others("g1", "alice"))

	swept, err = f.synchronizer.SweepJoinHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Empty(t, f.synchronizer.history.Generations())
}

type fullRoomSender struct {
	*fakeSender
}

func (fullRoomSender) JoinRoom(clientID, gameID string) error {
	return errors.New("client gone")
}

func TestJoinGame_RoomFailureUndoesPresence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.synchronizer.sender = fullRoomSender{fakeSender: f.sender}

	f.join(t, "c1", "alice")

	requireErrorCode(t, f.sender.drain("c1"), gameerrors.CodeInternal)
	conns, err := f.tracker.Connections(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, conns)
	assert.Empty(t, f.synchronizer.history.Generations())
}
