package workers

import (
	"context"
	"sync"

	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/cbodonnell/hexconquest/pkg/network"
)

// ConnectionEventHandler reacts to connections coming and going.
type ConnectionEventHandler interface {
	HandleConnect(clientID, userID string)
	HandleDisconnect(ctx context.Context, clientID string)
}

type ConnectionEventWorker struct {
	connectionEventChan <-chan network.ConnectionEvent
	handler             ConnectionEventHandler
}

type NewConnectionEventWorkerOptions struct {
	ConnectionEventChan <-chan network.ConnectionEvent
	Handler             ConnectionEventHandler
}

// NewConnectionEventWorker creates a new ConnectionEventWorker.
// The worker processes client events like connect and disconnect
// in the order they happened and hands them to the room synchronizer.
func NewConnectionEventWorker(opts NewConnectionEventWorkerOptions) *ConnectionEventWorker {
	return &ConnectionEventWorker{
		connectionEventChan: opts.ConnectionEventChan,
		handler:             opts.Handler,
	}
}

// Start handles events until ctx is done, then waits for the disconnects
// still in flight. Connects are handled in order. Each disconnect runs on its
// own goroutine so a slow game does not hold up the others; it is the last
// event of its connection, so ordering per connection is kept.
func (w *ConnectionEventWorker) Start(ctx context.Context) {
	var inFlight sync.WaitGroup
	defer inFlight.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.connectionEventChan:
			switch event.Type {
			case network.ConnectionEventTypeConnect:
				w.handler.HandleConnect(event.ClientID, event.UserID)
			case network.ConnectionEventTypeDisconnect:
				inFlight.Add(1)
				go func(clientID string) {
					defer inFlight.Done()
					w.handler.HandleDisconnect(ctx, clientID)
				}(event.ClientID)
			default:
				log.Error("Unknown client event type: %v", event.Type)
			}
		}
	}
}
