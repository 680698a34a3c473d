package rooms

import (
	"context"
	"sync"
	"time"

	"github.com/cbodonnell/hexconquest/pkg/election"
	"github.com/cbodonnell/hexconquest/pkg/game/rules"
	"github.com/cbodonnell/hexconquest/pkg/gameerrors"
	"github.com/cbodonnell/hexconquest/pkg/locks"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/cbodonnell/hexconquest/pkg/messages"
	"github.com/cbodonnell/hexconquest/pkg/presence"
	"github.com/cbodonnell/hexconquest/pkg/repositories"
)

const (
	DefaultActionTimeout  = 10 * time.Second
	DefaultMaxTurnRetries = 3
)

// Sender delivers messages to connections and keeps room membership.
type Sender interface {
	SendToClient(clientID string, msg *messages.Message) error
	SendToRoom(gameID string, msg *messages.Message)
	JoinRoom(clientID, gameID string) error
	LeaveRoom(clientID string)
}

type sessionState int

const (
	sessionConnected sessionState = iota
	sessionJoined
)

type session struct {
	clientID string
	// authUserID is the verified identity of the connection, if any.
	authUserID string
	state      sessionState
	gameID     string
	userID     string
}

// Synchronizer keeps every connection of a game room consistent with the
// stored game. It validates and applies client actions, persists them and
// fans the results out to the room.
type Synchronizer struct {
	repository     repositories.Repository
	engine         *rules.Engine
	election       *election.Election
	presence       presence.Tracker
	sender         Sender
	gameLocks      *locks.KeyedMutex
	history        *joinHistory
	actionTimeout  time.Duration
	maxTurnRetries int
	now            func() time.Time

	sessionsLock sync.Mutex
	sessions     map[string]*session
	// joined maps joined connections to their game, for use outside the
	// connection's own goroutine.
	joined map[string]string
}

type NewSynchronizerOptions struct {
	Repository repositories.Repository
	Engine     *rules.Engine
	Election   *election.Election
	Presence   presence.Tracker
	Sender     Sender
	// GameLocks defaults to a fresh KeyedMutex.
	GameLocks *locks.KeyedMutex
	// ActionTimeout bounds the handling of a single event.
	ActionTimeout time.Duration
	// MaxTurnRetries is how often a turn is attempted when its write loses
	// to a concurrent one.
	MaxTurnRetries int
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewSynchronizer(opts NewSynchronizerOptions) *Synchronizer {
	s := &Synchronizer{
		repository:     opts.Repository,
		engine:         opts.Engine,
		election:       opts.Election,
		presence:       opts.Presence,
		sender:         opts.Sender,
		gameLocks:      opts.GameLocks,
		history:        newJoinHistory(),
		actionTimeout:  opts.ActionTimeout,
		maxTurnRetries: opts.MaxTurnRetries,
		now:            opts.Now,
		sessions:       make(map[string]*session),
		joined:         make(map[string]string),
	}
	if s.engine == nil {
		s.engine = rules.NewEngine(rules.NewEngineOptions{})
	}
	if s.election == nil {
		s.election = election.NewElection(election.NewElectionOptions{Repository: opts.Repository})
	}
	if s.gameLocks == nil {
		s.gameLocks = locks.NewKeyedMutex()
	}
	if s.actionTimeout <= 0 {
		s.actionTimeout = DefaultActionTimeout
	}
	if s.maxTurnRetries <= 0 {
		s.maxTurnRetries = DefaultMaxTurnRetries
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// HandleConnect starts tracking a connection.
func (s *Synchronizer) HandleConnect(clientID, userID string) {
	s.session(clientID, userID)
	log.Debug("Client %s connected as %q", clientID, userID)
}

// HandleMessage handles one event of a connection. Events of the same
// connection must not be handled concurrently. Failures are reported to the
// connection as ERROR events.
func (s *Synchronizer) HandleMessage(ctx context.Context, clientID, userID string, msg *messages.Message) {
	// A closing socket must not abort an action halfway.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.actionTimeout)
	defer cancel()

	sess := s.session(clientID, userID)

	var err error
	switch msg.Type {
	case messages.MessageTypeJoinGame:
		err = s.handleJoinGame(ctx, sess, msg)
	case messages.MessageTypeTurnUpdate:
		err = s.handleTurnUpdate(ctx, sess, msg)
	case messages.MessageTypeClaimAutoPlay:
		err = s.handleClaimAutoPlay(ctx, sess, msg)
	default:
		err = gameerrors.New(gameerrors.CodeProtocol, "unsupported event type %q", msg.Type)
	}
	if err != nil {
		s.reportError(clientID, msg.Type, err)
	}
}

// HandleDisconnect releases everything the connection held and tells the
// room if its user went offline.
func (s *Synchronizer) HandleDisconnect(ctx context.Context, clientID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.actionTimeout)
	defer cancel()

	var gameID, userID string
	s.sessionsLock.Lock()
	if sess, ok := s.sessions[clientID]; ok && sess.state == sessionJoined {
		gameID, userID = sess.gameID, sess.userID
	}
	delete(s.sessions, clientID)
	delete(s.joined, clientID)
	s.sessionsLock.Unlock()

	s.sender.LeaveRoom(clientID)

	entry, registered, err := s.presence.Unregister(ctx, clientID)
	if err != nil {
		log.Error("Failed to unregister presence of client %s: %v", clientID, err)
	} else if registered {
		gameID, userID = entry.GameID, entry.UserID
	}
	if gameID == "" {
		return
	}
	logger := log.With("clientId", clientID).With("gameId", gameID)

	// Without presence nobody can tell whether the user is still around.
	if err == nil {
		online, err := presence.IsUserOnline(ctx, s.presence, gameID, userID)
		if err != nil {
			logger.Error("Failed to read presence: %v", err)
		} else if !online {
			s.broadcast(gameID, messages.MessageTypeOffline, messages.Offline{
				GameID: gameID,
				UserID: userID,
			})
		}
	}

	s.releaseClaim(ctx, gameID, clientID)
	logger.Debug("Client left game")
}

// ReleaseClaims gives up the auto play control held by any connection of this
// server. It returns the number of games released.
func (s *Synchronizer) ReleaseClaims(ctx context.Context) int {
	s.sessionsLock.Lock()
	joined := make(map[string]string, len(s.joined))
	for clientID, gameID := range s.joined {
		joined[clientID] = gameID
	}
	s.sessionsLock.Unlock()

	released := 0
	for clientID, gameID := range joined {
		if s.releaseClaim(ctx, gameID, clientID) {
			released++
		}
	}
	return released
}

func (s *Synchronizer) releaseClaim(ctx context.Context, gameID, clientID string) bool {
	outcome, err := s.election.Release(ctx, gameID, clientID)
	if err != nil {
		log.With("clientId", clientID).With("gameId", gameID).Error("Failed to release auto play: %v", err)
		return false
	}
	if outcome.Changed {
		s.broadcastAutoPlayStatus(gameID, outcome)
	}
	return outcome.Changed
}

// SweepJoinHistory drops the join history of games nobody is connected to.
func (s *Synchronizer) SweepJoinHistory(ctx context.Context) (int, error) {
	swept := 0
	for gameID, generation := range s.history.Generations() {
		conns, err := s.presence.Connections(ctx, gameID)
		if err != nil {
			return swept, err
		}
		if len(conns) > 0 {
			continue
		}
		// A join recorded while presence was read keeps its history.
		if s.history.ClearIfUnchanged(gameID, generation) {
			swept++
		}
	}
	return swept, nil
}

func (s *Synchronizer) markJoined(sess *session, gameID, userID string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	sess.state = sessionJoined
	sess.gameID = gameID
	sess.userID = userID
	s.joined[sess.clientID] = gameID
}

// session returns the session of a connection, creating it on first use.
func (s *Synchronizer) session(clientID, userID string) *session {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	sess, ok := s.sessions[clientID]
	if !ok {
		sess = &session{
			clientID:   clientID,
			authUserID: userID,
			state:      sessionConnected,
		}
		s.sessions[clientID] = sess
	}
	return sess
}

func (s *Synchronizer) reportError(clientID string, eventType messages.MessageType, err error) {
	code := gameerrors.CodeOf(err)
	if code == gameerrors.CodeInternal || code == gameerrors.CodeStorage {
		log.Error("Failed to handle %s from client %s: %v", eventType, clientID, err)
	} else {
		log.Debug("Rejected %s from client %s: %v", eventType, clientID, err)
	}

	msg, err := messages.NewMessage(messages.MessageTypeError, gameerrors.ToResponse(err))
	if err != nil {
		log.Error("Failed to build error message: %v", err)
		return
	}
	if err := s.sender.SendToClient(clientID, msg); err != nil {
		log.Debug("Failed to send error to client %s: %v", clientID, err)
	}
}

func (s *Synchronizer) broadcast(gameID string, t messages.MessageType, payload interface{}) *messages.Message {
	msg, err := messages.NewMessage(t, payload)
	if err != nil {
		log.Error("Failed to build %s message: %v", t, err)
		return nil
	}
	s.sender.SendToRoom(gameID, msg)
	return msg
}

func (s *Synchronizer) broadcastAutoPlayStatus(gameID string, outcome election.Outcome) {
	s.broadcast(gameID, messages.MessageTypeAutoPlayStatus, autoPlayStatus(gameID, outcome))
}

func (s *Synchronizer) sendAutoPlayStatus(clientID string, status messages.AutoPlayStatus) error {
	msg, err := messages.NewMessage(messages.MessageTypeAutoPlayStatus, status)
	if err != nil {
		return gameerrors.Wrap(gameerrors.CodeInternal, err, "failed to build auto play status")
	}
	if err := s.sender.SendToClient(clientID, msg); err != nil {
		log.Debug("Failed to send auto play status to client %s: %v", clientID, err)
	}
	return nil
}

func autoPlayStatus(gameID string, outcome election.Outcome) messages.AutoPlayStatus {
	return messages.AutoPlayStatus{
		GameID:       gameID,
		ControllerID: outcome.ControllerID,
		Enabled:      outcome.ControllerID != "",
	}
}

// storageError maps a repository failure to a client facing error.
func storageError(err error, notFound gameerrors.Code, format string, args ...interface{}) error {
	if repositories.IsNotFound(err) {
		return gameerrors.New(notFound, format, args...)
	}
	return gameerrors.Wrap(gameerrors.CodeStorage, err, "storage failure")
}
