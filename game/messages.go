package game

import "github.com/wfunc/drawguess/room"

// Inbound payloads. The envelope's event tag and roomId are decoded by the
// dispatcher; handlers decode the rest of the frame into these.

type createRoomRequest struct {
	CreatorNickname string `json:"creatorNickname"`
	Password        string `json:"password"`
	MaxPlayers      int    `json:"maxPlayers"`
	Rounds          int    `json:"rounds"`
}

type joinRoomRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type submitDrawingRequest struct {
	DrawingURL string `json:"drawingUrl"`
	Keyword    string `json:"keyword"`
}

type judgmentRequest struct {
	Keyword string            `json:"keyword"`
	Guesses map[string]string `json:"guesses"`
}

// Judgment is one confirmed verdict, from the oracle path or a human.
type Judgment struct {
	PlayerID  string `json:"player_id"`
	IsCorrect bool   `json:"is_correct"`
}

type submitJudgmentsRequest struct {
	Judgments []Judgment `json:"judgments"`
}

type submitGuessRequest struct {
	Guess string `json:"guess"`
}

// Outbound events.

type RoomCreated struct {
	Event  string `json:"event"`
	RoomID string `json:"roomId"`
}

type Connected struct {
	Event    string `json:"event"`
	ClientID string `json:"clientId"`
}

type ErrorMessage struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

type PlayerJoined struct {
	Event   string        `json:"event"`
	Players []room.Player `json:"players"`
}

type NewDrawing struct {
	Event      string `json:"event"`
	DrawingURL string `json:"drawingUrl"`
}

// PendingGuess is a guess awaiting arbitration.
type PendingGuess struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Guess    string `json:"guess"`
}

type JudgmentResult struct {
	PlayerID  string `json:"player_id"`
	Nickname  string `json:"nickname"`
	Guess     string `json:"guess"`
	IsCorrect bool   `json:"is_correct"`
	Reason    string `json:"reason"`
}

type AIJudgments struct {
	Event     string           `json:"event"`
	Judgments []JudgmentResult `json:"judgments"`
	Keyword   string           `json:"keyword"`
}

type AIJudgmentFailed struct {
	Event   string         `json:"event"`
	Error   string         `json:"error"`
	Guesses []PendingGuess `json:"guesses"`
}

// RoundJudgment is an applied verdict as echoed in round_end and game_over.
type RoundJudgment struct {
	PlayerID  string `json:"player_id"`
	Guess     string `json:"guess"`
	IsCorrect bool   `json:"is_correct"`
}

type RoundEnd struct {
	Event        string          `json:"event"`
	Judgments    []RoundJudgment `json:"judgments"`
	Players      []room.Player   `json:"players"`
	Keyword      string          `json:"keyword"`
	CurrentRound int             `json:"current_round"`
	TotalRounds  int             `json:"total_rounds"`
}

type FinalScore struct {
	Nickname                 string `json:"nickname"`
	Score                    int    `json:"score"`
	CorrectGuesses           int    `json:"correct_guesses"`
	DrawingsGuessedCorrectly int    `json:"drawings_guessed_correctly"`
}

type GameOver struct {
	Event       string          `json:"event"`
	Players     []room.Player   `json:"players"`
	FinalScores []FinalScore    `json:"final_scores"`
	Judgments   []RoundJudgment `json:"judgments"`
	Keyword     string          `json:"keyword"`
}

// RoundStart without counters is a roster update; with counters it opens
// a round.
type RoundStart struct {
	Event        string        `json:"event"`
	Players      []room.Player `json:"players"`
	CurrentRound int           `json:"currentRound,omitempty"`
	TotalRounds  int           `json:"totalRounds,omitempty"`
}

type PlayerLeft struct {
	Event      string        `json:"event"`
	Players    []room.Player `json:"players"`
	DrawerLeft bool          `json:"drawer_left"`
}

type GuessReceived struct {
	Event      string `json:"event"`
	Guess      string `json:"guess"`
	AllGuessed bool   `json:"all_guessed"`
	Close      bool   `json:"close"`
}

type AllGuessed struct {
	Event   string            `json:"event"`
	Guesses map[string]string `json:"guesses"`
}
