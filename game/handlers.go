package game

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/wfunc/drawguess/assets"
	"github.com/wfunc/drawguess/logger"
	"github.com/wfunc/drawguess/network"
	"github.com/wfunc/drawguess/room"
	"github.com/wfunc/drawguess/state"
)

func decodePayload(ev network.Event, v any) error {
	if err := ev.Decode(v); err != nil {
		return fmt.Errorf("decode %s payload: %w", ev.Name, err)
	}
	return nil
}

func (g *Game) handleCreateRoom(ctx context.Context, clientID string, ev network.Event) error {
	var req createRoomRequest
	if err := decodePayload(ev, &req); err != nil {
		return err
	}

	nickname := strings.TrimSpace(req.CreatorNickname)
	if nickname == "" || req.MaxPlayers < 1 || req.Rounds < 1 {
		return clientError("Invalid room settings", ErrInvalidSettings)
	}
	if _, bound := g.rooms.RoomOf(clientID); bound {
		return clientError("Already in a room", ErrAlreadyInRoom)
	}

	r, err := g.rooms.CreateRoom(room.Settings{
		Password:    req.Password,
		MaxPlayers:  req.MaxPlayers,
		TotalRounds: req.Rounds,
		StartGate:   g.policy.met,
	}, room.NewPlayer(clientID, nickname))
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	g.rooms.Bind(clientID, r.ID)
	g.updateRoomGauge()

	logger.Log.Infof("Room %s created by client %s", r.ID, clientID)
	g.broadcaster.Send(clientID, RoomCreated{Event: network.EventRoomCreated, RoomID: r.ID})
	return nil
}

func (g *Game) handleJoinRoom(ctx context.Context, clientID string, ev network.Event) error {
	var req joinRoomRequest
	if err := decodePayload(ev, &req); err != nil {
		return err
	}
	if _, bound := g.rooms.RoomOf(clientID); bound {
		return clientError("Already in a room", ErrAlreadyInRoom)
	}

	r, err := g.rooms.Acquire(ev.RoomID)
	if err != nil {
		logger.Log.Warnf("Attempt to join non-existent room %s", ev.RoomID)
		return clientError("Room not found", err)
	}
	defer r.Unlock()

	if r.Password != req.Password {
		logger.Log.Warnf("Incorrect password attempt for room %s", r.ID)
		return clientError("Incorrect password", ErrWrongPassword)
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		return clientError("Invalid nickname", ErrInvalidSettings)
	}
	if err := r.AddPlayer(room.NewPlayer(clientID, nickname)); err != nil {
		switch {
		case errors.Is(err, room.ErrRoomFull):
			return clientError("Room is full", err)
		case errors.Is(err, room.ErrNicknameTaken):
			return clientError("Nickname already taken", err)
		}
		return fmt.Errorf("join room %s: %w", r.ID, err)
	}
	g.rooms.Bind(clientID, r.ID)

	logger.Log.Infof("Player %s joined room %s", nickname, r.ID)
	g.broadcaster.BroadcastToRoom(r, PlayerJoined{Event: network.EventPlayerJoined, Players: r.PlayerList()})
	return nil
}

func (g *Game) handleSubmitDrawing(ctx context.Context, clientID string, ev network.Event) error {
	var req submitDrawingRequest
	if err := decodePayload(ev, &req); err != nil {
		return err
	}

	r, err := g.rooms.Acquire(ev.RoomID)
	if err != nil {
		logger.Log.Warnf("Submit drawing for non-existent room %s", ev.RoomID)
		return nil
	}
	defer r.Unlock()

	if p, _ := r.FindPlayer(clientID); p == nil {
		logger.Log.Warnf("Client %s submitted a drawing to room %s without being in it", clientID, r.ID)
		return nil
	}
	if r.Status() == state.GameOver {
		logger.Log.Infof("Ignoring drawing for finished room %s", r.ID)
		return nil
	}

	name := assets.FileName(req.DrawingURL)
	if name == "" {
		return clientError("Invalid drawing", ErrBadDrawing)
	}
	r.CurrentDrawing = name
	r.CurrentKeyword = req.Keyword

	logger.Log.Infof("New drawing %s submitted in room %s", name, r.ID)
	g.broadcaster.BroadcastToRoom(r, NewDrawing{Event: network.EventNewDrawing, DrawingURL: g.assets.PublicURL(name)})
	return nil
}

func (g *Game) handlePlayerReady(ctx context.Context, clientID string, ev network.Event) error {
	r, err := g.rooms.Acquire(ev.RoomID)
	if err != nil {
		logger.Log.Debugf("Ready for non-existent room %s", ev.RoomID)
		return nil
	}
	defer r.Unlock()

	p, _ := r.FindPlayer(clientID)
	if p == nil {
		logger.Log.Warnf("Client %s sent ready to room %s without being in it", clientID, r.ID)
		return nil
	}

	from := r.Status()
	if from == state.GameOver {
		return nil
	}

	p.Ready = true
	g.broadcaster.BroadcastToRoom(r, RoundStart{Event: network.EventRoundStart, Players: r.PlayerList()})

	if from == state.RoundStart {
		return nil
	}
	return g.tryStartRound(r, from)
}

// tryStartRound moves the room into round_start if its start gate allows it.
// Leaving round_end also advances the round counter and drops the old
// drawings.
func (g *Game) tryStartRound(r *room.Room, from state.Status) error {
	if err := r.SetStatus(state.RoundStart); err != nil {
		if errors.Is(err, state.ErrConditionNotMet) {
			return nil
		}
		return fmt.Errorf("start round in room %s: %w", r.ID, err)
	}

	if from == state.RoundEnd {
		r.StartNextRound()
		if err := g.assets.DeleteAssetsFor(r.ID); err != nil {
			logger.Log.Errorf("Error cleaning up drawings for room %s: %v", r.ID, err)
		}
	}

	logger.Log.Infof("Starting round %d in room %s", r.CurrentRound, r.ID)
	g.broadcaster.BroadcastToRoom(r, RoundStart{
		Event:        network.EventRoundStart,
		Players:      r.PlayerList(),
		CurrentRound: r.CurrentRound,
		TotalRounds:  r.TotalRounds,
	})
	return nil
}

func (g *Game) handleSubmitGuess(ctx context.Context, clientID string, ev network.Event) error {
	var req submitGuessRequest
	if err := decodePayload(ev, &req); err != nil {
		return err
	}

	outcome, err := g.SubmitGuess(ev.RoomID, clientID, req.Guess)
	if err != nil {
		return err
	}
	g.broadcaster.Send(clientID, GuessReceived{
		Event:      network.EventGuessReceived,
		Guess:      strings.TrimSpace(req.Guess),
		AllGuessed: outcome.AllGuessed,
		Close:      outcome.Close,
	})
	return nil
}

const closeGuessDistance = 2

// nearMiss reports a guess a couple of edits away from the keyword. Exact
// matches are left to arbitration.
func nearMiss(guess, keyword string) bool {
	if utf8.RuneCountInString(keyword) <= closeGuessDistance {
		return false
	}
	d := levenshtein.ComputeDistance(strings.ToLower(guess), strings.ToLower(keyword))
	return d > 0 && d <= closeGuessDistance
}

type GuessOutcome struct {
	AllGuessed bool
	// within a couple of edits of the keyword
	Close bool
}

// SubmitGuess records a guesser's answer for the current round. Once every
// non-drawing player has guessed the room is sent all_guessed.
func (g *Game) SubmitGuess(roomID, clientID, guess string) (GuessOutcome, error) {
	r, err := g.rooms.Acquire(roomID)
	if err != nil {
		return GuessOutcome{}, clientError("Room not found", err)
	}
	defer r.Unlock()

	p, _ := r.FindPlayer(clientID)
	switch {
	case p == nil:
		return GuessOutcome{}, clientError("Not in this room", ErrNotMember)
	case p.IsDrawing:
		return GuessOutcome{}, clientError("The drawer cannot guess", ErrDrawerGuess)
	case r.Status() == state.GameOver || r.JudgmentsSubmitted:
		return GuessOutcome{}, clientError("Guessing is closed", ErrGuessingClosed)
	}

	guess = strings.TrimSpace(guess)
	if guess == "" {
		return GuessOutcome{}, clientError("Guess is empty", ErrEmptyGuess)
	}
	r.Guesses[clientID] = guess
	outcome := GuessOutcome{Close: nearMiss(guess, r.CurrentKeyword)}

	for _, guesser := range r.Guessers() {
		if _, ok := r.Guesses[guesser.ClientID]; !ok {
			return outcome, nil
		}
	}

	logger.Log.Infof("All players have submitted guesses in room %s", r.ID)
	g.broadcaster.BroadcastToRoom(r, AllGuessed{Event: network.EventAllGuessed, Guesses: maps.Clone(r.Guesses)})
	outcome.AllGuessed = true
	return outcome, nil
}

// Disconnect unregisters the client and removes it from its room. The last
// player leaving destroys the room.
func (g *Game) Disconnect(clientID string) {
	g.broadcaster.Unregister(clientID)

	roomID, ok := g.rooms.RoomOf(clientID)
	if !ok {
		return
	}
	g.rooms.Unbind(clientID)

	r, err := g.rooms.Acquire(roomID)
	if err != nil {
		logger.Log.Debugf("Room %s of client %s is already gone", roomID, clientID)
		return
	}
	defer r.Unlock()

	removed, drawerLeft := r.RemovePlayer(clientID)
	if removed == nil {
		return
	}

	if len(r.Players) == 0 {
		g.rooms.RemoveRoom(r.ID)
		g.updateRoomGauge()
		if err := g.assets.DeleteAssetsFor(r.ID); err != nil {
			logger.Log.Errorf("Error cleaning up drawings for room %s: %v", r.ID, err)
		}
		logger.Log.Infof("Room %s deleted (no players)", r.ID)
		return
	}

	logger.Log.Infof("Player %s left room %s, drawer_left: %t", removed.Nickname, r.ID, drawerLeft)
	g.broadcaster.BroadcastToRoom(r, PlayerLeft{
		Event:      network.EventPlayerLeft,
		Players:    r.PlayerList(),
		DrawerLeft: drawerLeft,
	})

	// The leaver may have been the last player the round was waiting for.
	if r.Status() == state.RoundEnd {
		if err := g.tryStartRound(r, state.RoundEnd); err != nil {
			logger.Log.Errorf("Error starting next round in room %s: %v", r.ID, err)
		}
	}
}
