package network

import (
	"context"
	"net/http"

	authproviders "github.com/cbodonnell/hexconquest/pkg/auth/providers"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/cbodonnell/hexconquest/pkg/messages"
	"github.com/cbodonnell/hexconquest/pkg/presence"
)

// MessageHandler consumes the events clients send.
type MessageHandler interface {
	HandleMessage(ctx context.Context, clientID, userID string, message *messages.Message)
}

type NetworkManager struct {
	ClientManager *ClientManager
	WSServer      *WSServer
	handler       MessageHandler
}

type NewNetworkManagerOptions struct {
	AuthProvider  authproviders.AuthProvider
	ClientManager *ClientManager
	Presence      presence.Tracker
	Handler       MessageHandler
	WSPort        int
	WSServerTLS   *TLSConfig
	AllowOrigin   string
}

func NewNetworkManager(opts NewNetworkManagerOptions) *NetworkManager {
	return &NetworkManager{
		ClientManager: opts.ClientManager,
		handler:       opts.Handler,
		WSServer: NewWSServer(NewWSServerOptions{
			Port:          opts.WSPort,
			TLS:           opts.WSServerTLS,
			AuthProvider:  opts.AuthProvider,
			ClientManager: opts.ClientManager,
			Presence:      opts.Presence,
			AllowOrigin:   opts.AllowOrigin,
		}),
	}
}

// Start serves clients until ctx is done.
func (n *NetworkManager) Start(ctx context.Context) error {
	return n.WSServer.Start(ctx, n.handleControlDisconnect, n.handleControlMessage)
}

// Handler exposes the HTTP routes without listening, for embedding in
// another server or in tests.
func (n *NetworkManager) Handler(ctx context.Context) http.Handler {
	return n.WSServer.Handler(ctx, n.handleControlDisconnect, n.handleControlMessage)
}

func (n *NetworkManager) handleControlDisconnect(client *Client) {
	n.ClientManager.DisconnectClient(client.ID)
	log.Info("Client %s disconnected", client.ID)
}

func (n *NetworkManager) handleControlMessage(ctx context.Context, client *Client, message *messages.Message) {
	log.Trace("Received %s from client %s", message.Type, client.ID)
	n.handler.HandleMessage(ctx, client.ID, client.UserID, message)
}
