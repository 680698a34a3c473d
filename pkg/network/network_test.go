package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	authproviders "github.com/cbodonnell/hexconquest/pkg/auth/providers"
	"github.com/cbodonnell/hexconquest/pkg/gameerrors"
	"github.com/cbodonnell/hexconquest/pkg/messages"
	"github.com/cbodonnell/hexconquest/pkg/presence"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu       sync.Mutex
	received []string
	users    []string
}

func (h *recordingHandler) HandleMessage(ctx context.Context, clientID, userID string, message *messages.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, string(message.Type))
	h.users = append(h.users, userID)
}

func (h *recordingHandler) snapshot() ([]string, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.received...), append([]string(nil), h.users...)
}

type testServer struct {
	url     string
	manager *NetworkManager
	handler *recordingHandler
}

func newTestServer(t *testing.T, authProvider authproviders.AuthProvider) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	handler := &recordingHandler{}
	manager := NewNetworkManager(NewNetworkManagerOptions{
		AuthProvider:  authProvider,
		ClientManager: NewClientManager(NewClientManagerOptions{}),
		Presence:      presence.NewMemoryTracker(),
		Handler:       handler,
	})

	// Nothing else consumes connection events here.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-manager.ClientManager.GetConnectionEventChan():
			}
		}
	}()

	server := httptest.NewServer(manager.Handler(ctx))
	t.Cleanup(server.Close)

	return &testServer{
		url:     server.URL,
		manager: manager,
		handler: handler,
	}
}

func (s *testServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.url, "http")+"/ws"+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *messages.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msg, err := ReadMessageFromWS(conn)
	require.NoError(t, err)
	return msg
}

func TestClientManager_Rooms(t *testing.T) {
	cm := NewClientManager(NewClientManagerOptions{SendQueueSize: 4})
	a := cm.ConnectClient(nil, "alice")
	b := cm.ConnectClient(nil, "bob")
	c := cm.ConnectClient(nil, "carol")

	require.NoError(t, cm.JoinRoom(a.ID, "g1"))
	require.NoError(t, cm.JoinRoom(b.ID, "g1"))
	require.NoError(t, cm.JoinRoom(c.ID, "g2"))
	assert.ElementsMatch(t, []string{a.ID, b.ID}, cm.RoomMembers("g1"))

	msg, err := messages.NewMessage(messages.MessageTypeOffline, messages.Offline{GameID: "g1", UserID: "dave"})
	require.NoError(t, err)
	cm.SendToRoom("g1", msg)
	assert.Equal(t, 1, a.send.Size())
	assert.Equal(t, 1, b.send.Size())
	assert.Equal(t, 0, c.send.Size())

	require.NoError(t, cm.JoinRoom(b.ID, "g2"))
	assert.ElementsMatch(t, []string{a.ID}, cm.RoomMembers("g1"))
	assert.ElementsMatch(t, []string{b.ID, c.ID}, cm.RoomMembers("g2"))

	cm.DisconnectClient(a.ID)
	assert.Empty(t, cm.RoomMembers("g1"))
	assert.False(t, cm.Exists(a.ID))
	assert.Equal(t, 2, cm.Count())
	assert.Error(t, cm.SendToClient(a.ID, msg))
	assert.Error(t, cm.JoinRoom(a.ID, "g1"))

	var events []ConnectionEventType
	for len(events) < 4 {
		events = append(events, (<-cm.GetConnectionEventChan()).Type)
	}
	assert.Equal(t, []ConnectionEventType{
		ConnectionEventTypeConnect,
		ConnectionEventTypeConnect,
		ConnectionEventTypeConnect,
		ConnectionEventTypeDisconnect,
	}, events)
}

func TestWSServer_Healthz(t *testing.T) {
	s := newTestServer(t, nil)

	resp, err := http.Get(s.url + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestWSServer_RejectsInvalidToken(t *testing.T) {
	provider, err := authproviders.NewJWTAuthProvider(authproviders.NewJWTAuthProviderOptions{Secret: "secret"})
	require.NoError(t, err)
	s := newTestServer(t, provider)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.url, "http")+"/ws?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.url, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSServer_PassesVerifiedIdentity(t *testing.T) {
	provider, err := authproviders.NewJWTAuthProvider(authproviders.NewJWTAuthProviderOptions{Secret: "secret"})
	require.NoError(t, err)
	s := newTestServer(t, provider)

	token, err := authproviders.SignToken("secret", "alice", time.Minute)
	require.NoError(t, err)
	conn := s.dial(t, "?token="+token)

	msg, err := messages.NewMessage(messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: "g1", Enable: true})
	require.NoError(t, err)
	require.NoError(t, WriteMessageToWS(conn, msg))

	assert.Eventually(t, func() bool {
		received, _ := s.handler.snapshot()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)
	received, users := s.handler.snapshot()
	assert.Equal(t, []string{string(messages.MessageTypeClaimAutoPlay)}, received)
	assert.Equal(t, []string{"alice"}, users)
}

func TestWSServer_MalformedFrameKeepsConnectionOpen(t *testing.T) {
	s := newTestServer(t, nil)
	conn := s.dial(t, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	reply := readMessage(t, conn)
	assert.Equal(t, messages.MessageTypeError, reply.Type)

	var resp gameerrors.Response
	require.NoError(t, reply.DecodePayload(&resp))
	assert.Equal(t, gameerrors.CodeProtocol, resp.Code)

	msg, err := messages.NewMessage(messages.MessageTypeClaimAutoPlay, messages.ClaimAutoPlay{GameID: "g1"})
	require.NoError(t, err)
	require.NoError(t, WriteMessageToWS(conn, msg))
	assert.Eventually(t, func() bool {
		received, _ := s.handler.snapshot()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWSServer_DisconnectRemovesClient(t *testing.T) {
	s := newTestServer(t, nil)
	conn := s.dial(t, "")

	assert.Eventually(t, func() bool {
		return s.manager.ClientManager.Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool {
		return s.manager.ClientManager.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWSServer_Presence(t *testing.T) {
	tracker := presence.NewMemoryTracker()
	require.NoError(t, tracker.Register(context.Background(), presence.Entry{ConnectionID: "c1", GameID: "g1", UserID: "alice"}))

	server := NewWSServer(NewWSServerOptions{
		ClientManager: NewClientManager(NewClientManagerOptions{}),
		Presence:      tracker,
	})
	handler := server.Handler(context.Background(), func(*Client) {}, func(context.Context, *Client, *messages.Message) {})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games/g1/presence", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		GameID        string   `json:"gameId"`
		OnlinePlayers []string `json:"onlinePlayers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "g1", body.GameID)
	assert.Equal(t, []string{"alice"}, body.OnlinePlayers)
}
