// Package game holds the room state machine: the handlers for every inbound
// event and the dispatcher routing frames to them.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wfunc/drawguess/broadcast"
	"github.com/wfunc/drawguess/judge"
	"github.com/wfunc/drawguess/monitor"
	"github.com/wfunc/drawguess/network"
	"github.com/wfunc/drawguess/room"
)

var (
	ErrInvalidSettings = errors.New("invalid room settings")
	ErrAlreadyInRoom   = errors.New("client already in a room")
	ErrWrongPassword   = errors.New("incorrect password")
	ErrNotMember       = errors.New("client is not in the room")
	ErrDrawerGuess     = errors.New("drawer cannot guess")
	ErrGuessingClosed  = errors.New("guessing is closed for this round")
	ErrEmptyGuess      = errors.New("empty guess")
	ErrBadDrawing      = errors.New("invalid drawing reference")
)

// ClientError is a validation failure reported only to the client that
// caused it. Message is the text sent in the error event.
type ClientError struct {
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

func clientError(message string, err error) *ClientError {
	return &ClientError{Message: message, Err: err}
}

// Oracle judges an ordered batch of guesses against a reference answer.
type Oracle interface {
	Judge(ctx context.Context, reference string, guesses []string) ([]judge.Verdict, error)
}

// AssetStore names and cleans up the drawing files of a room.
type AssetStore interface {
	DeleteAssetsFor(roomID string) error
	PublicURL(name string) string
}

// ReadyPolicy decides when the room may start the next round.
type ReadyPolicy string

const (
	// ReadyAll waits for every player in the room.
	ReadyAll ReadyPolicy = "all"
	// ReadyFirst advances on the first ready signal.
	ReadyFirst ReadyPolicy = "first"
)

func ParseReadyPolicy(s string) (ReadyPolicy, error) {
	switch p := ReadyPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ReadyAll, ReadyFirst:
		return p, nil
	case "":
		return ReadyAll, nil
	default:
		return "", fmt.Errorf("unknown ready policy %q", s)
	}
}

// met is the room's start gate. It is checked on every move into
// round_start, after a ready signal and after a player leaves round_end.
func (p ReadyPolicy) met(r *room.Room) bool {
	if p != ReadyFirst {
		return r.AllReady()
	}
	for _, player := range r.Players {
		if player.Ready {
			return true
		}
	}
	return false
}

type Game struct {
	rooms       *room.Manager
	broadcaster broadcast.Broadcaster
	oracle      Oracle
	assets      AssetStore
	policy      ReadyPolicy
	monitor     *monitor.Monitor
}

func New(rooms *room.Manager, broadcaster broadcast.Broadcaster, oracle Oracle, assets AssetStore, policy ReadyPolicy, mon *monitor.Monitor) *Game {
	return &Game{
		rooms:       rooms,
		broadcaster: broadcaster,
		oracle:      oracle,
		assets:      assets,
		policy:      policy,
		monitor:     mon,
	}
}

// Rooms exposes the store for the read-only query surfaces.
func (g *Game) Rooms() *room.Manager {
	return g.rooms
}

// RegisterHandlers binds every inbound event to its handler.
func (g *Game) RegisterHandlers(d *Dispatcher) {
	d.Register(network.EventCreateRoom, g.handleCreateRoom)
	d.Register(network.EventJoinRoom, g.handleJoinRoom)
	d.Register(network.EventSubmitDrawing, g.handleSubmitDrawing)
	d.Register(network.EventRequestAIJudgment, g.handleRequestAIJudgment)
	d.Register(network.EventSubmitJudgments, g.handleSubmitJudgments)
	d.Register(network.EventPlayerReady, g.handlePlayerReady)
	d.Register(network.EventSubmitGuess, g.handleSubmitGuess)
}

func (g *Game) updateRoomGauge() {
	g.monitor.SetActiveRooms(g.rooms.Count())
}
