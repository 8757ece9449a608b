package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/drawguess/judge"
	"github.com/wfunc/drawguess/monitor"
	"github.com/wfunc/drawguess/room"
)

type sentMessage struct {
	To  []string
	Msg any
}

// MockBroadcaster records every outbound message instead of sending it.
type MockBroadcaster struct {
	mu           sync.Mutex
	unicast      map[string][]any
	broadcasts   []sentMessage
	unregistered []string
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{unicast: make(map[string][]any)}
}

func (m *MockBroadcaster) Send(clientID string, msg any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unicast[clientID] = append(m.unicast[clientID], msg)
}

func (m *MockBroadcaster) BroadcastToRoom(r *room.Room, msg any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, sentMessage{To: r.PlayerIDs(), Msg: msg})
}

func (m *MockBroadcaster) Unregister(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregistered = append(m.unregistered, clientID)
}

func (m *MockBroadcaster) Unicast(clientID string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.unicast[clientID]...)
}

func (m *MockBroadcaster) Broadcasts() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.broadcasts...)
}

// MockOracle returns canned verdicts and remembers what it was asked.
type MockOracle struct {
	mu        sync.Mutex
	verdicts  []judge.Verdict
	err       error
	calls     int
	reference string
	guesses   []string
}

func (m *MockOracle) Judge(ctx context.Context, reference string, guesses []string) ([]judge.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.reference = reference
	m.guesses = append([]string(nil), guesses...)
	return m.verdicts, m.err
}

type MockAssets struct {
	mu      sync.Mutex
	deleted []string
}

func (m *MockAssets) DeleteAssetsFor(roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, roomID)
	return nil
}

func (m *MockAssets) PublicURL(name string) string {
	return "/images/" + name
}

func (m *MockAssets) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

type fixture struct {
	game       *Game
	dispatcher *Dispatcher
	bc         *MockBroadcaster
	oracle     Oracle
	assets     *MockAssets
	rooms      *room.Manager
}

func newFixture(t *testing.T, policy ReadyPolicy, oracle Oracle) *fixture {
	t.Helper()
	if oracle == nil {
		oracle = &MockOracle{}
	}
	f := &fixture{
		bc:     NewMockBroadcaster(),
		oracle: oracle,
		assets: &MockAssets{},
		rooms:  room.NewRoomManager(),
	}
	mon := monitor.NewMonitor("test")
	f.game = New(f.rooms, f.bc, oracle, f.assets, policy, mon)
	f.dispatcher = NewDispatcher(f.bc, mon)
	f.game.RegisterHandlers(f.dispatcher)
	return f
}

func (f *fixture) send(t *testing.T, clientID string, payload map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	f.dispatcher.Dispatch(context.Background(), clientID, data)
}

func (f *fixture) createRoom(t *testing.T, clientID, nickname string, maxPlayers, rounds int) string {
	t.Helper()
	f.send(t, clientID, map[string]any{
		"event":           "create_room",
		"creatorNickname": nickname,
		"password":        "pw",
		"maxPlayers":      maxPlayers,
		"rounds":          rounds,
	})
	created := lastOf[RoomCreated](t, f.bc.Unicast(clientID))
	return created.RoomID
}

func (f *fixture) join(t *testing.T, clientID, roomID, nickname string) {
	t.Helper()
	f.send(t, clientID, map[string]any{
		"event":    "join_room",
		"roomId":   roomID,
		"nickname": nickname,
		"password": "pw",
	})
}

func (f *fixture) snapshot(t *testing.T, roomID string) room.Snapshot {
	t.Helper()
	r, ok := f.rooms.GetRoom(roomID)
	require.True(t, ok, "room %s should exist", roomID)
	return r.Snapshot()
}

func (f *fixture) lastError(t *testing.T, clientID string) string {
	t.Helper()
	return lastOf[ErrorMessage](t, f.bc.Unicast(clientID)).Message
}

func broadcastsOf[T any](msgs []sentMessage) []T {
	var out []T
	for _, m := range msgs {
		if v, ok := m.Msg.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func lastOf[T any](t *testing.T, msgs []any) T {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if v, ok := msgs[i].(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T among %d messages", zero, len(msgs))
	return zero
}

func lastBroadcast[T any](t *testing.T, msgs []sentMessage) T {
	t.Helper()
	found := broadcastsOf[T](msgs)
	if len(found) == 0 {
		var zero T
		t.Fatalf("no %T broadcast among %d messages", zero, len(msgs))
	}
	return found[len(found)-1]
}

func playerByNickname(t *testing.T, players []room.Player, nickname string) room.Player {
	t.Helper()
	for _, p := range players {
		if p.Nickname == nickname {
			return p
		}
	}
	t.Fatalf("player %s not found", nickname)
	return room.Player{}
}

func drawers(players []room.Player) []string {
	var out []string
	for _, p := range players {
		if p.IsDrawing {
			out = append(out, p.Nickname)
		}
	}
	return out
}
