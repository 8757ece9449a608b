package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/drawguess/logger"
)

var errUsage = errors.New(`commands:
  create <nickname> <password> <maxPlayers> <rounds>
  join <roomId> <nickname> <password>
  draw <drawingUrl> <keyword>
  guess <text>
  judge <keyword> <clientId>=<guess> ...
  verdict <clientId>=<true|false> ...
  ready`)

// roomState remembers the room the client is in so commands can omit it.
type roomState struct {
	mu sync.Mutex
	id string
}

func (r *roomState) Set(id string) {
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()
}

func (r *roomState) Get() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

// parseCommand turns one console line into an event frame.
func parseCommand(line, roomID string) (map[string]any, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errUsage
	}
	args := fields[1:]

	switch fields[0] {
	case "create":
		if len(args) != 4 {
			return nil, errUsage
		}
		maxPlayers, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("maxPlayers: %w", err)
		}
		rounds, err := strconv.Atoi(args[3])
		if err != nil {
			return nil, fmt.Errorf("rounds: %w", err)
		}
		return map[string]any{
			"event":           "create_room",
			"creatorNickname": args[0],
			"password":        args[1],
			"maxPlayers":      maxPlayers,
			"rounds":          rounds,
		}, nil

	case "join":
		if len(args) < 2 {
			return nil, errUsage
		}
		password := ""
		if len(args) > 2 {
			password = args[2]
		}
		return map[string]any{"event": "join_room", "roomId": args[0], "nickname": args[1], "password": password}, nil

	case "draw":
		if len(args) != 2 {
			return nil, errUsage
		}
		return map[string]any{"event": "submit_drawing", "roomId": roomID, "drawingUrl": args[0], "keyword": args[1]}, nil

	case "guess":
		if len(args) == 0 {
			return nil, errUsage
		}
		return map[string]any{"event": "submit_guess", "roomId": roomID, "guess": strings.Join(args, " ")}, nil

	case "judge":
		if len(args) < 1 {
			return nil, errUsage
		}
		guesses := make(map[string]string)
		for _, kv := range args[1:] {
			id, guess, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("bad guess %q", kv)
			}
			guesses[id] = guess
		}
		return map[string]any{"event": "request_ai_judgment", "roomId": roomID, "keyword": args[0], "guesses": guesses}, nil

	case "verdict":
		judgments := make([]map[string]any, 0, len(args))
		for _, kv := range args {
			id, value, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("bad verdict %q", kv)
			}
			correct, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("verdict for %s: %w", id, err)
			}
			judgments = append(judgments, map[string]any{"player_id": id, "is_correct": correct})
		}
		return map[string]any{"event": "submit_judgments", "roomId": roomID, "judgments": judgments}, nil

	case "ready":
		return map[string]any{"event": "player_ready", "roomId": roomID}, nil
	}
	return nil, errUsage
}

func main() {
	addr := flag.String("addr", "localhost:8000", "server address")
	clientID := flag.String("id", "", "client id (server assigns one when empty)")
	flag.Parse()

	logger.Init("info")
	defer logger.Sync()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	path := "/ws"
	if *clientID != "" {
		path += "/" + url.PathEscape(*clientID)
	}
	u := url.URL{Scheme: "ws", Host: *addr, Path: path}
	logger.Log.Infof("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	var current roomState
	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				logger.Log.Infof("Read error: %v", err)
				return
			}
			var envelope struct {
				Event  string `json:"event"`
				RoomID string `json:"roomId"`
			}
			if err := json.Unmarshal(message, &envelope); err == nil && envelope.Event == "room_created" {
				current.Set(envelope.RoomID)
			}
			fmt.Printf("<- %s\n", message)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println(errUsage)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				logger.Log.Warnf("Write close error: %v", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			frame, err := parseCommand(line, current.Get())
			if err != nil {
				fmt.Println(err)
				continue
			}
			if frame["event"] == "join_room" {
				current.Set(frame["roomId"].(string))
			}
			if err := c.WriteJSON(frame); err != nil {
				logger.Log.Errorf("Write error: %v", err)
				return
			}
		}
	}
}
