package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	authproviders "github.com/cbodonnell/hexconquest/pkg/auth/providers"
	"github.com/cbodonnell/hexconquest/pkg/gameerrors"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/cbodonnell/hexconquest/pkg/messages"
	"github.com/cbodonnell/hexconquest/pkg/presence"
	"github.com/cbodonnell/hexconquest/pkg/version"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// ErrMalformedMessage is returned for frames that are not a JSON envelope.
var ErrMalformedMessage = errors.New("malformed message")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSServer represents a WebSocket server.
type WSServer struct {
	port          int
	tls           *TLSConfig
	authProvider  authproviders.AuthProvider
	clientManager *ClientManager
	presence      presence.Tracker
	upgrader      websocket.Upgrader
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewWSServerOptions struct {
	Port int
	TLS  *TLSConfig
	// AuthProvider verifies the token presented on upgrade. When nil every
	// connection is accepted anonymously.
	AuthProvider  authproviders.AuthProvider
	ClientManager *ClientManager
	Presence      presence.Tracker
	// AllowOrigin is the allowed Origin header, "*" or empty for any.
	AllowOrigin string
}

// NewWSServer creates a new WebSocket server.
func NewWSServer(opts NewWSServerOptions) *WSServer {
	allowOrigin := opts.AllowOrigin
	return &WSServer{
		port:          opts.Port,
		tls:           opts.TLS,
		authProvider:  opts.AuthProvider,
		clientManager: opts.ClientManager,
		presence:      opts.Presence,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowOrigin == "" || allowOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowOrigin
			},
		},
	}
}

// ControlDisconnectHandler is called once the reader of a client exits.
type ControlDisconnectHandler func(client *Client)

// ControlMessageHandler is called for every frame read from a client. Calls
// for one client never overlap.
type ControlMessageHandler func(ctx context.Context, client *Client, message *messages.Message)

// Handler returns the HTTP routes served by the server.
func (s *WSServer) Handler(ctx context.Context, disconnectHandler ControlDisconnectHandler, messageHandler ControlMessageHandler) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/games/{gameID}/presence", s.handlePresence).Methods(http.MethodGet)
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.authenticate(r)
		if err != nil {
			log.Debug("Rejected WebSocket connection from %s: %v", r.RemoteAddr, err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("Failed to upgrade to WebSocket: %v", err)
			return
		}
		log.Debug("New WebSocket connection from %s", conn.RemoteAddr().String())

		client := s.clientManager.ConnectClient(conn, userID)
		go s.handleWSConnection(ctx, client, disconnectHandler, messageHandler)
	})
	return r
}

// Start starts the WebSocket server.
func (s *WSServer) Start(ctx context.Context, disconnectHandler ControlDisconnectHandler, messageHandler ControlMessageHandler) error {
	addr := fmt.Sprintf(":%d", s.port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(ctx, disconnectHandler, messageHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	var listenAndServe func() error
	if s.tls != nil {
		log.Info("WebSocket server listening on %s with TLS", addr)
		listenAndServe = func() error {
			return server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("WebSocket server listening on %s", addr)
		listenAndServe = server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("WebSocket server closed")
			return nil
		}
		return fmt.Errorf("websocket server error: %v", err)
	}
	return nil
}

// authenticate returns the user behind the request's token. The token is
// read from the Authorization header or the token query parameter, since
// browsers cannot set headers on WebSocket requests.
func (s *WSServer) authenticate(r *http.Request) (string, error) {
	if s.authProvider == nil {
		return "", nil
	}

	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		return "", fmt.Errorf("missing token")
	}

	claims, err := s.authProvider.VerifyToken(r.Context(), token)
	if err != nil {
		return "", err
	}
	return claims.UID, nil
}

func (s *WSServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": version.Get(),
		"clients": s.clientManager.Count(),
	})
}

func (s *WSServer) handlePresence(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	users, err := s.presence.OnlineUsersInGame(r.Context(), gameID, "")
	if err != nil {
		log.Error("Failed to read presence of game %s: %v", gameID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "failed to read presence",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gameId":        gameID,
		"onlinePlayers": users,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response: %v", err)
	}
}

// handleWSConnection reads frames from a client until it goes away. Frames
// are handled one at a time so a client's actions apply in order.
func (s *WSServer) handleWSConnection(ctx context.Context, client *Client, disconnectHandler ControlDisconnectHandler, messageHandler ControlMessageHandler) {
	conn := client.WSConn
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		disconnectHandler(client)
		conn.Close()
	}()

	go s.writePump(ctx, client)

	conn.SetReadLimit(messages.MessageBufferSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		message, err := ReadMessageFromWS(conn)
		if err != nil {
			if errors.Is(err, ErrMalformedMessage) {
				log.Debug("Malformed message from client %s: %v", client.ID, err)
				s.rejectMessage(client)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("Error reading WebSocket message from %s: %v", conn.RemoteAddr().String(), err)
			}
			log.Trace("Connection closed for %s", conn.RemoteAddr().String())
			return
		}

		messageHandler(ctx, client, message)
	}
}

func (s *WSServer) rejectMessage(client *Client) {
	msg, err := messages.NewMessage(messages.MessageTypeError, gameerrors.ToResponse(
		gameerrors.New(gameerrors.CodeProtocol, "message is not a valid event envelope"),
	))
	if err != nil {
		log.Error("Failed to build error message: %v", err)
		return
	}
	if err := s.clientManager.SendToClient(client.ID, msg); err != nil {
		log.Debug("Failed to send error to client %s: %v", client.ID, err)
	}
}

// writePump is the only goroutine writing data frames to the connection.
func (s *WSServer) writePump(ctx context.Context, client *Client) {
	conn := client.WSConn
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					log.Trace("Failed to ping client %s: %v", client.ID, err)
					return
				}
			}
		}
	}()

	for {
		item, err := client.send.Dequeue(ctx)
		if err != nil {
			return
		}
		msg, ok := item.(*messages.Message)
		if !ok {
			log.Error("Unexpected item in send queue of client %s: %T", client.ID, item)
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := WriteMessageToWS(conn, msg); err != nil {
			log.Debug("Failed to write to client %s: %v", client.ID, err)
			conn.Close()
			return
		}
	}
}

// WriteMessageToWS writes a Message to a WebSocket connection
func WriteMessageToWS(conn *websocket.Conn, msg *messages.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("failed to write message to WebSocket connection: %v", err)
	}

	return nil
}

// ReadMessageFromWS reads a Message from a WebSocket connection
func ReadMessageFromWS(conn *websocket.Conn) (*messages.Message, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	msg := &messages.Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	return msg, nil
}
