package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/drawguess/assets"
	"github.com/wfunc/drawguess/broadcast"
	"github.com/wfunc/drawguess/config"
	"github.com/wfunc/drawguess/game"
	"github.com/wfunc/drawguess/judge"
	"github.com/wfunc/drawguess/monitor"
	"github.com/wfunc/drawguess/room"
	"github.com/wfunc/drawguess/session"
)

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Judge(ctx context.Context, reference string, guesses []string) ([]judge.Verdict, error) {
	args := m.Called(ctx, reference, guesses)
	verdicts, _ := args.Get(0).([]judge.Verdict)
	return verdicts, args.Error(1)
}

type testServer struct {
	*GameServer
	http  *httptest.Server
	rooms *room.Manager
}

func newTestServer(t *testing.T, cfg config.ServerConfig, oracle game.Oracle) *testServer {
	t.Helper()
	if oracle == nil {
		oracle = &MockOracle{}
	}
	sessions := session.NewManager()
	rooms := room.NewRoomManager()
	mon := monitor.NewMonitor("test")
	bc := broadcast.NewRoomBroadcaster(sessions)
	store := assets.NewStore(afero.NewMemMapFs(), "images")

	g := game.New(rooms, bc, oracle, store, game.ReadyAll, mon)
	d := game.NewDispatcher(bc, mon)
	g.RegisterHandlers(d)

	s := NewGameServer(cfg, sessions, g, d, oracle, mon)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testServer{GameServer: s, http: ts, rooms: rooms}
}

func (ts *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readUntil skips events until one with the given tag arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) map[string]any {
	t.Helper()
	for {
		if msg := readEvent(t, conn); msg["event"] == event {
			return msg
		}
	}
}

func TestWebSocket_AssignedID(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)
	conn := ts.dial(t, "/ws")

	msg := readEvent(t, conn)
	assert.Equal(t, "connected", msg["event"])
	assert.NotEmpty(t, msg["clientId"])
}

func TestWebSocket_GameFlow(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)
	alice := ts.dial(t, "/ws/alice")

	require.NoError(t, alice.WriteJSON(map[string]any{
		"event": "create_room", "creatorNickname": "Alice", "password": "pw", "maxPlayers": 4, "rounds": 2,
	}))
	created := readEvent(t, alice)
	require.Equal(t, "room_created", created["event"])
	roomID := created["roomId"].(string)

	bob := ts.dial(t, "/ws/bob")
	require.NoError(t, bob.WriteJSON(map[string]any{
		"event": "join_room", "roomId": roomID, "nickname": "Bob", "password": "pw",
	}))
	for _, conn := range []*websocket.Conn{alice, bob} {
		joined := readUntil(t, conn, "player_joined")
		assert.Len(t, joined["players"], 2)
	}

	require.NoError(t, bob.WriteJSON(map[string]any{"event": "join_room", "roomId": roomID, "nickname": "Bob", "password": "pw"}))
	assert.Equal(t, "Already in a room", readUntil(t, bob, "error")["message"])

	bob.Close()
	left := readUntil(t, alice, "player_left")
	assert.Equal(t, false, left["drawer_left"])
	assert.Len(t, left["players"], 1)
}

func TestWebSocket_DuplicateClientID(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)
	ts.dial(t, "/ws/alice")

	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws/alice"
	require.Eventually(t, func() bool {
		_, ok := ts.sessionManager.Get("alice")
		return ok
	}, time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWebSocket_RateLimitDropsFrames(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{RateLimit: 0.5, RateBurst: 1}, nil)
	conn := ts.dial(t, "/ws/alice")

	bad := map[string]any{"event": "create_room", "creatorNickname": "", "maxPlayers": 1, "rounds": 1}
	require.NoError(t, conn.WriteJSON(bad))
	require.NoError(t, conn.WriteJSON(bad))

	assert.Equal(t, "error", readEvent(t, conn)["event"])

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr), "expected a read timeout, got %v", err)
	assert.True(t, netErr.Timeout())
}

func TestAPI_Status(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)

	resp, err := http.Get(ts.http.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok","code":200}`, string(body))
}

func TestAPI_GameStateAndRooms(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)
	r, err := ts.rooms.CreateRoom(room.Settings{MaxPlayers: 4, TotalRounds: 3}, room.NewPlayer("a", "Alice"))
	require.NoError(t, err)

	resp, err := http.Get(ts.http.URL + "/api/game/state/" + r.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, r.ID, snap["room_id"])
	assert.Equal(t, "Alice", snap["current_player"])
	assert.Equal(t, "waiting", snap["status"])
	assert.EqualValues(t, 3, snap["total_rounds"])
	assert.NotContains(t, snap, "keyword")

	missing, err := http.Get(ts.http.URL + "/api/game/state/0000")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	list, err := http.Get(ts.http.URL + "/api/rooms")
	require.NoError(t, err)
	defer list.Body.Close()
	var rooms []map[string]any
	require.NoError(t, json.NewDecoder(list.Body).Decode(&rooms))
	assert.Len(t, rooms, 1)
}

func postJSON(t *testing.T, url string, v any) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	json.Unmarshal(raw, &out)
	return resp, out
}

func TestAPI_SubmitGuess(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)
	r, err := ts.rooms.CreateRoom(room.Settings{MaxPlayers: 4, TotalRounds: 3}, room.NewPlayer("a", "Alice"))
	require.NoError(t, err)
	r.Lock()
	require.NoError(t, r.AddPlayer(room.NewPlayer("b", "Bob")))
	r.Unlock()

	resp, body := postJSON(t, ts.http.URL+"/api/game/submit-guess", map[string]string{"room_id": r.ID, "player_id": "b", "guess": "cat"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"status": "success", "all_guessed": true, "close": false}, body)

	resp, _ = postJSON(t, ts.http.URL+"/api/game/submit-guess", map[string]string{"room_id": "0000", "player_id": "b", "guess": "cat"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = postJSON(t, ts.http.URL+"/api/game/submit-guess", map[string]string{"room_id": r.ID, "player_id": "a", "guess": "cat"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "The drawer cannot guess", body["detail"])
}

func TestAPI_Judge(t *testing.T) {
	oracle := &MockOracle{}
	oracle.On("Judge", mock.Anything, "cat", []string{"cat", "dog"}).Return([]judge.Verdict{
		{Guess: "cat", IsCorrect: true, Reason: "same"},
		{Guess: "dog", IsCorrect: false, Reason: "different"},
	}, nil).Once()
	oracle.On("Judge", mock.Anything, "cat", []string{}).Return(nil, judge.ErrEmptyInput).Once()
	ts := newTestServer(t, config.ServerConfig{}, oracle)

	body, err := json.Marshal(map[string]any{"reference_answer": "cat", "guessed_answers": []string{"cat", "dog"}})
	require.NoError(t, err)
	resp, err := http.Post(ts.http.URL+"/api/judge", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"Judge":true,"Reason":"same"},{"Judge":false,"Reason":"different"}]`, string(raw))

	failed, out := postJSON(t, ts.http.URL+"/api/judge", map[string]any{"reference_answer": "cat", "guessed_answers": []string{}})
	assert.Equal(t, http.StatusInternalServerError, failed.StatusCode)
	assert.True(t, strings.HasPrefix(out["detail"].(string), "AI judgment failed: "))
	oracle.AssertExpectations(t)
}

func TestAPI_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{AllowedOrigins: []string{"*"}}, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.http.URL+"/api/judge", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_Metrics(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{}, nil)
	ts.dial(t, "/ws/alice")
	require.Eventually(t, func() bool {
		_, ok := ts.sessionManager.Get("alice")
		return ok
	}, time.Second, 10*time.Millisecond)

	resp, err := http.Get(ts.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "test_online_players")
}

func TestStart_StopsOnCancel(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{HTTPAddress: "127.0.0.1:0", RPCAddress: "127.0.0.1:0"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStart_BadRPCAddress(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{HTTPAddress: "127.0.0.1:0", RPCAddress: "bad-address"}, nil)
	assert.Error(t, ts.Start(context.Background()))
}
