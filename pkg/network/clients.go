package network

import (
	"fmt"
	"sync"

	"github.com/cbodonnell/hexconquest/pkg/messages"
	"github.com/cbodonnell/hexconquest/pkg/queue"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// ConnectionEventChannelSize represents the size of the connection event channel
	ConnectionEventChannelSize = 1024
	// DefaultSendQueueSize bounds the outbound messages buffered per client
	DefaultSendQueueSize = 256
)

// Client represents a connected client
type Client struct {
	ID string
	// UserID is the verified identity of the connection, empty when
	// the server runs without authentication.
	UserID string
	WSConn *websocket.Conn
	// send is drained by the client's single writer goroutine.
	send queue.Queue
	// gameID is the room the client is in.
	gameID string
}

// ConnectionEvent represents an event that happened to a client
type ConnectionEvent struct {
	ClientID string
	UserID   string
	Type     ConnectionEventType
}

// ConnectionEventType represents the type of a connection event
type ConnectionEventType int

const (
	ConnectionEventTypeConnect ConnectionEventType = iota
	ConnectionEventTypeDisconnect
)

// ClientManager manages connected clients and the game rooms they are in
type ClientManager struct {
	clients             map[string]*Client
	rooms               map[string]map[string]*Client
	clientsLock         sync.RWMutex
	connectionEventChan chan ConnectionEvent
	sendQueueSize       int
}

type NewClientManagerOptions struct {
	SendQueueSize int
}

// NewClientManager creates a new ClientManager
func NewClientManager(opts NewClientManagerOptions) *ClientManager {
	size := opts.SendQueueSize
	if size <= 0 {
		size = DefaultSendQueueSize
	}
	return &ClientManager{
		clients:             make(map[string]*Client),
		rooms:               make(map[string]map[string]*Client),
		connectionEventChan: make(chan ConnectionEvent, ConnectionEventChannelSize),
		sendQueueSize:       size,
	}
}

// GetConnectionEventChan returns a one-way channel for receiving connection events
func (cm *ClientManager) GetConnectionEventChan() <-chan ConnectionEvent {
	return cm.connectionEventChan
}

// ConnectClient registers a new client and returns it
func (cm *ClientManager) ConnectClient(wsConn *websocket.Conn, userID string) *Client {
	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		WSConn: wsConn,
		send:   queue.NewInMemoryQueue(cm.sendQueueSize),
	}

	cm.clientsLock.Lock()
	cm.clients[client.ID] = client
	cm.clientsLock.Unlock()

	cm.connectionEventChan <- ConnectionEvent{
		ClientID: client.ID,
		UserID:   userID,
		Type:     ConnectionEventTypeConnect,
	}

	return client
}

// DisconnectClient removes a client from the manager and its room
func (cm *ClientManager) DisconnectClient(clientID string) {
	cm.clientsLock.Lock()
	client, ok := cm.clients[clientID]
	if !ok {
		cm.clientsLock.Unlock()
		return
	}
	cm.leaveRoomLocked(client)
	delete(cm.clients, clientID)
	cm.clientsLock.Unlock()

	// Nothing pending can reach a closed socket.
	client.send.Close()
	client.send.ClearQueue()

	cm.connectionEventChan <- ConnectionEvent{
		ClientID: client.ID,
		UserID:   client.UserID,
		Type:     ConnectionEventTypeDisconnect,
	}
}

// GetClient returns the client with the given ID
func (cm *ClientManager) GetClient(clientID string) (*Client, error) {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	client, ok := cm.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %s not found", clientID)
	}
	return client, nil
}

func (cm *ClientManager) Exists(clientID string) bool {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	_, ok := cm.clients[clientID]
	return ok
}

// Count returns the number of connected clients
func (cm *ClientManager) Count() int {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	return len(cm.clients)
}

// JoinRoom moves a client into the room of a game
func (cm *ClientManager) JoinRoom(clientID, gameID string) error {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	client, ok := cm.clients[clientID]
	if !ok {
		return fmt.Errorf("client %s not found", clientID)
	}
	cm.leaveRoomLocked(client)

	room, ok := cm.rooms[gameID]
	if !ok {
		room = make(map[string]*Client)
		cm.rooms[gameID] = room
	}
	room[clientID] = client
	client.gameID = gameID
	return nil
}

// LeaveRoom removes a client from its room, if any
func (cm *ClientManager) LeaveRoom(clientID string) {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()
	if client, ok := cm.clients[clientID]; ok {
		cm.leaveRoomLocked(client)
	}
}

// RoomMembers returns the IDs of the clients in a room
func (cm *ClientManager) RoomMembers(gameID string) []string {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	members := make([]string, 0, len(cm.rooms[gameID]))
	for id := range cm.rooms[gameID] {
		members = append(members, id)
	}
	return members
}

// leaveRoomLocked must be called with clientsLock held
func (cm *ClientManager) leaveRoomLocked(client *Client) {
	if client.gameID == "" {
		return
	}
	if room, ok := cm.rooms[client.gameID]; ok {
		delete(room, client.ID)
		if len(room) == 0 {
			delete(cm.rooms, client.gameID)
		}
	}
	client.gameID = ""
}

// SendToClient queues a message for a single client. A client whose queue
// is full is too slow to keep up and gets disconnected.
func (cm *ClientManager) SendToClient(clientID string, msg *messages.Message) error {
	client, err := cm.GetClient(clientID)
	if err != nil {
		return err
	}
	return cm.enqueue(client, msg)
}

// SendToRoom queues a message for every client in a room. Each client
// receives room messages in the order they were sent.
func (cm *ClientManager) SendToRoom(gameID string, msg *messages.Message) {
	cm.clientsLock.RLock()
	members := make([]*Client, 0, len(cm.rooms[gameID]))
	for _, client := range cm.rooms[gameID] {
		members = append(members, client)
	}
	cm.clientsLock.RUnlock()

	for _, client := range members {
		cm.enqueue(client, msg)
	}
}

func (cm *ClientManager) enqueue(client *Client, msg *messages.Message) error {
	if err := client.send.Enqueue(msg); err != nil {
		if err == queue.ErrQueueFull {
			client.WSConn.Close()
		}
		return fmt.Errorf("failed to queue message for client %s: %v", client.ID, err)
	}
	return nil
}
