package network

import (
	"encoding/json"
	"errors"
)

// Inbound events.
const (
	EventCreateRoom        = "create_room"
	EventJoinRoom          = "join_room"
	EventSubmitDrawing     = "submit_drawing"
	EventRequestAIJudgment = "request_ai_judgment"
	EventSubmitJudgments   = "submit_judgments"
	EventPlayerReady       = "player_ready"
	EventSubmitGuess       = "submit_guess"
)

// Outbound events.
const (
	EventConnected        = "connected"
	EventRoomCreated      = "room_created"
	EventPlayerJoined     = "player_joined"
	EventError            = "error"
	EventNewDrawing       = "new_drawing"
	EventAIJudgments      = "ai_judgments"
	EventAIJudgmentFailed = "ai_judgment_failed"
	EventRoundEnd         = "round_end"
	EventGameOver         = "game_over"
	EventRoundStart       = "round_start"
	EventPlayerLeft       = "player_left"
	EventGuessReceived    = "guess_received"
	EventAllGuessed       = "all_guessed"
)

var ErrMissingEvent = errors.New("missing event tag")

// Event is a decoded inbound envelope. Raw keeps the whole frame so handlers
// can decode their own payload fields.
type Event struct {
	Name   string          `json:"event"`
	RoomID string          `json:"roomId,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	if ev.Name == "" {
		return Event{}, ErrMissingEvent
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	return ev, nil
}

// Decode unmarshals the frame into a handler-specific payload.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}
