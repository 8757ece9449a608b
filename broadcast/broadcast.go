// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"

	"github.com/wfunc/drawguess/logger"
	"github.com/wfunc/drawguess/room"
	"github.com/wfunc/drawguess/session"
)

// Broadcaster delivers outbound events to clients.
type Broadcaster interface {
	Send(clientID string, msg any)
	BroadcastToRoom(r *room.Room, msg any)
	Unregister(clientID string)
}

// RoomBroadcaster fans room events out over the session registry.
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) Send(clientID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Errorf("Failed to encode message for client %s: %v", clientID, err)
		return
	}
	b.sessionManager.Send(clientID, data)
}

// BroadcastToRoom encodes msg once and sends it to every player of r that
// is still connected. The caller holds the room lock.
func (b *RoomBroadcaster) BroadcastToRoom(r *room.Room, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Errorf("Failed to encode message for room %s: %v", r.GetID(), err)
		return
	}
	b.sessionManager.Broadcast(r.PlayerIDs(), data)
}

func (b *RoomBroadcaster) Unregister(clientID string) {
	b.sessionManager.Unregister(clientID)
}
