package room

// Player is owned by exactly one room. JSON keys match the client protocol.
type Player struct {
	ClientID                 string `json:"client_id"`
	Nickname                 string `json:"nickname"`
	Score                    int    `json:"score"`
	IsDrawing                bool   `json:"isDrawing"`
	Ready                    bool   `json:"ready"`
	CorrectGuesses           int    `json:"correct_guesses"`
	DrawingsGuessedCorrectly int    `json:"drawings_guessed_correctly"`
}

func NewPlayer(clientID, nickname string) *Player {
	return &Player{ClientID: clientID, Nickname: nickname}
}
