// room/room.go
package room

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/drawguess/state"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrNicknameTaken = errors.New("nickname already taken")
	ErrNoRoomID      = errors.New("no free room id")
)

// Settings are fixed at creation.
type Settings struct {
	Password    string
	MaxPlayers  int
	TotalRounds int
	// StartGate decides whether the room may enter round_start. nil means
	// every player must be ready.
	StartGate func(*Room) bool
}

// Room holds one game. All fields are guarded by the room lock taken through
// Manager.Acquire; Snapshot is the only lock-free accessor.
type Room struct {
	ID           string
	Password     string
	MaxPlayers   int
	TotalRounds  int
	CurrentRound int
	Players      []*Player
	// client id -> guess text, current round only
	Guesses            map[string]string
	CurrentDrawing     string
	CurrentKeyword     string
	JudgmentsSubmitted bool
	StateMachine       state.StateMachine
	CreatedAt          time.Time

	mutex    sync.Mutex
	removed  bool
	snapshot atomic.Pointer[Snapshot]
}

// NewRoom creates a waiting room at round 1 with creator as the ready drawer.
func NewRoom(id string, settings Settings, creator *Player) *Room {
	creator.IsDrawing = true
	creator.Ready = true

	gate := settings.StartGate
	if gate == nil {
		gate = (*Room).AllReady
	}

	r := &Room{
		ID:           id,
		Password:     settings.Password,
		MaxPlayers:   settings.MaxPlayers,
		TotalRounds:  settings.TotalRounds,
		CurrentRound: 1,
		Players:      []*Player{creator},
		Guesses:      make(map[string]string),
		CreatedAt:    time.Now(),
	}
	r.StateMachine = state.NewRoomMachine(func() bool { return gate(r) })
	r.publish()
	return r
}

func (r *Room) Lock() {
	r.mutex.Lock()
}

// Unlock publishes a fresh snapshot before releasing the room.
func (r *Room) Unlock() {
	r.publish()
	r.mutex.Unlock()
}

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) Status() state.Status {
	return r.StateMachine.GetCurrentState()
}

func (r *Room) SetStatus(status state.Status) error {
	return r.StateMachine.ChangeState(status)
}

// AddPlayer appends p as a non-drawing, unready player.
func (r *Room) AddPlayer(p *Player) error {
	if len(r.Players) >= r.MaxPlayers {
		return ErrRoomFull
	}
	for _, existing := range r.Players {
		if existing.Nickname == p.Nickname {
			return ErrNicknameTaken
		}
	}
	p.IsDrawing = false
	p.Ready = false
	r.Players = append(r.Players, p)
	return nil
}

// FindPlayer returns the player and its position, or (nil, -1).
func (r *Room) FindPlayer(clientID string) (*Player, int) {
	for i, p := range r.Players {
		if p.ClientID == clientID {
			return p, i
		}
	}
	return nil, -1
}

// Drawer returns the current drawer and its position, or (nil, -1).
func (r *Room) Drawer() (*Player, int) {
	for i, p := range r.Players {
		if p.IsDrawing {
			return p, i
		}
	}
	return nil, -1
}

func (r *Room) PlayerIDs() []string {
	ids := make([]string, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ClientID
	}
	return ids
}

// PlayerList copies the roster for outbound messages.
func (r *Room) PlayerList() []Player {
	list := make([]Player, len(r.Players))
	for i, p := range r.Players {
		list[i] = *p
	}
	return list
}

// Guessers returns the non-drawing players in turn order.
func (r *Room) Guessers() []*Player {
	guessers := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if !p.IsDrawing {
			guessers = append(guessers, p)
		}
	}
	return guessers
}

func (r *Room) AllReady() bool {
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// StartNextRound resets per-round state and bumps the round counter.
func (r *Room) StartNextRound() {
	r.CurrentRound++
	r.resetRound()
}

func (r *Room) resetRound() {
	r.Guesses = make(map[string]string)
	r.CurrentDrawing = ""
	r.CurrentKeyword = ""
	r.JudgmentsSubmitted = false
}
