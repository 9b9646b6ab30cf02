package workers

import (
	"context"

	"github.com/cbodonnell/vibemod/pkg/log"
	"github.com/cbodonnell/vibemod/pkg/network"
)

type ConnectionEventWorker struct {
	connectionEventChan <-chan network.ConnectionEvent
	rooms               *network.RoomManager
}

type NewConnectionEventWorkerOptions struct {
	ConnectionEventChan <-chan network.ConnectionEvent
	Rooms               *network.RoomManager
}

// NewConnectionEventWorker creates a new ConnectionEventWorker.
// The worker applies connect and disconnect events of the websocket
// server to room membership, one at a time.
func NewConnectionEventWorker(opts NewConnectionEventWorkerOptions) *ConnectionEventWorker {
	return &ConnectionEventWorker{
		connectionEventChan: opts.ConnectionEventChan,
		rooms:               opts.Rooms,
	}
}

func (w *ConnectionEventWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.connectionEventChan:
			w.handleConnectionEvent(event)
		}
	}
}

func (w *ConnectionEventWorker) handleConnectionEvent(event network.ConnectionEvent) {
	switch event.Type {
	case network.ConnectionEventTypeConnect:
		if err := w.rooms.Join(event.RoomID, event.Participant); err != nil {
			log.Error("Failed to join %s to room %s: %v", event.Participant.ID, event.RoomID, err)
			event.Participant.Close(err.Error())
		}
	case network.ConnectionEventTypeDisconnect:
		w.rooms.Leave(event.RoomID, event.Participant.ID)
	default:
		log.Error("Unknown connection event type: %v", event.Type)
	}
}
