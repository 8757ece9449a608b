package room

import "github.com/wfunc/drawguess/state"

// Snapshot is a read-only copy of a room for diagnostics and spectators.
// The keyword is deliberately absent.
type Snapshot struct {
	RoomID        string       `json:"room_id"`
	Status        state.Status `json:"status"`
	CurrentRound  int          `json:"current_round"`
	TotalRounds   int          `json:"total_rounds"`
	MaxPlayers    int          `json:"max_players"`
	CurrentPlayer string       `json:"current_player,omitempty"`
	HasDrawing    bool         `json:"has_drawing"`
	Players       []Player     `json:"players"`
}

func (r *Room) publish() {
	s := &Snapshot{
		RoomID:       r.ID,
		Status:       r.Status(),
		CurrentRound: r.CurrentRound,
		TotalRounds:  r.TotalRounds,
		MaxPlayers:   r.MaxPlayers,
		HasDrawing:   r.CurrentDrawing != "",
		Players:      r.PlayerList(),
	}
	if drawer, _ := r.Drawer(); drawer != nil {
		s.CurrentPlayer = drawer.Nickname
	}
	r.snapshot.Store(s)
}

// Snapshot returns the state as of the last time the room was unlocked.
// It never blocks on a handler holding the room.
func (r *Room) Snapshot() Snapshot {
	return *r.snapshot.Load()
}
