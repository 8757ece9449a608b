package game

import (
	"context"
	"fmt"

	"github.com/wfunc/drawguess/judge"
	"github.com/wfunc/drawguess/logger"
	"github.com/wfunc/drawguess/network"
	"github.com/wfunc/drawguess/room"
	"github.com/wfunc/drawguess/state"
)

// pendingGuesses orders the submitted guesses by the room's turn order. The
// requester, the drawer and anyone not in the room are left out.
func pendingGuesses(r *room.Room, requester string, submitted map[string]string) []PendingGuess {
	pending := make([]PendingGuess, 0, len(submitted))
	for _, p := range r.Players {
		if p.ClientID == requester || p.IsDrawing {
			continue
		}
		guess, ok := submitted[p.ClientID]
		if !ok {
			continue
		}
		pending = append(pending, PendingGuess{PlayerID: p.ClientID, Nickname: p.Nickname, Guess: guess})
	}
	return pending
}

// handleRequestAIJudgment holds the room for the whole oracle exchange, so
// no other event can touch the round until the verdicts are out.
func (g *Game) handleRequestAIJudgment(ctx context.Context, clientID string, ev network.Event) error {
	var req judgmentRequest
	if err := decodePayload(ev, &req); err != nil {
		return err
	}

	r, err := g.rooms.Acquire(ev.RoomID)
	if err != nil {
		logger.Log.Warnf("AI judgment request for non-existent room %s", ev.RoomID)
		return nil
	}
	defer r.Unlock()

	if p, _ := r.FindPlayer(clientID); p == nil {
		logger.Log.Warnf("Client %s requested judgment in room %s without being in it", clientID, r.ID)
		return nil
	}
	if r.Status() == state.GameOver || r.JudgmentsSubmitted {
		logger.Log.Infof("Ignoring judgment request for room %s: round already judged", r.ID)
		return nil
	}

	pending := pendingGuesses(r, clientID, req.Guesses)
	texts := make([]string, len(pending))
	for i, pg := range pending {
		texts[i] = pg.Guess
		r.Guesses[pg.PlayerID] = pg.Guess
	}

	keyword := req.Keyword
	if keyword == "" {
		keyword = r.CurrentKeyword
	}
	logger.Log.Infof("AI judgment request for room %s: %q", r.ID, texts)

	verdicts, err := g.oracle.Judge(ctx, keyword, texts)
	if err == nil && len(verdicts) != len(pending) {
		err = fmt.Errorf("%w: got %d verdicts for %d guesses", judge.ErrMalformed, len(verdicts), len(pending))
	}
	if err != nil {
		g.monitor.IncOracleRequests("failed")
		logger.Log.Errorf("Error in AI judgment for room %s: %v", r.ID, err)
		g.broadcaster.BroadcastToRoom(r, AIJudgmentFailed{
			Event:   network.EventAIJudgmentFailed,
			Error:   err.Error(),
			Guesses: pending,
		})
		return nil
	}
	g.monitor.IncOracleRequests("success")

	results := make([]JudgmentResult, len(pending))
	for i, pg := range pending {
		results[i] = JudgmentResult{
			PlayerID:  pg.PlayerID,
			Nickname:  pg.Nickname,
			Guess:     pg.Guess,
			IsCorrect: verdicts[i].IsCorrect,
			Reason:    verdicts[i].Reason,
		}
	}
	g.broadcaster.BroadcastToRoom(r, AIJudgments{
		Event:     network.EventAIJudgments,
		Judgments: results,
		Keyword:   keyword,
	})
	return nil
}

// normalizeJudgments keeps one entry per guessing room member, first one
// wins.
func normalizeJudgments(r *room.Room, in []Judgment) []Judgment {
	seen := make(map[string]bool, len(in))
	out := make([]Judgment, 0, len(in))
	for _, j := range in {
		p, _ := r.FindPlayer(j.PlayerID)
		if p == nil || p.IsDrawing || seen[j.PlayerID] {
			logger.Log.Debugf("Dropping judgment for %s in room %s", j.PlayerID, r.ID)
			continue
		}
		seen[j.PlayerID] = true
		out = append(out, j)
	}
	return out
}

// applyJudgments scores the round and returns how many guesses were right.
// The drawer earns one point per correct guess.
func applyJudgments(r *room.Room, judgments []Judgment) int {
	correct := 0
	for _, j := range judgments {
		if !j.IsCorrect {
			continue
		}
		p, _ := r.FindPlayer(j.PlayerID)
		p.Score++
		p.CorrectGuesses++
		correct++
	}

	if drawer, _ := r.Drawer(); drawer != nil && correct > 0 {
		drawer.Score += correct
		drawer.DrawingsGuessedCorrectly++
		logger.Log.Infof("Drawer %s earned %d points in room %s", drawer.Nickname, correct, r.ID)
	}
	return correct
}

func (g *Game) handleSubmitJudgments(ctx context.Context, clientID string, ev network.Event) error {
	var req submitJudgmentsRequest
	if err := decodePayload(ev, &req); err != nil {
		return err
	}

	r, err := g.rooms.Acquire(ev.RoomID)
	if err != nil {
		logger.Log.Warnf("Submit judgments for non-existent room %s", ev.RoomID)
		return nil
	}
	defer r.Unlock()

	if p, _ := r.FindPlayer(clientID); p == nil {
		logger.Log.Warnf("Client %s submitted judgments to room %s without being in it", clientID, r.ID)
		return nil
	}
	if r.Status() == state.GameOver || r.JudgmentsSubmitted {
		logger.Log.Infof("Ignoring duplicate judgments for room %s round %d", r.ID, r.CurrentRound)
		return nil
	}

	next := state.RoundEnd
	if r.CurrentRound >= r.TotalRounds {
		next = state.GameOver
	}
	if err := r.SetStatus(next); err != nil {
		return fmt.Errorf("end round in room %s: %w", r.ID, err)
	}

	judgments := normalizeJudgments(r, req.Judgments)
	applyJudgments(r, judgments)
	r.JudgmentsSubmitted = true
	for _, p := range r.Players {
		p.Ready = false
	}
	r.RotateDrawer()

	echoed := make([]RoundJudgment, len(judgments))
	for i, j := range judgments {
		echoed[i] = RoundJudgment{PlayerID: j.PlayerID, Guess: r.Guesses[j.PlayerID], IsCorrect: j.IsCorrect}
	}

	if next == state.GameOver {
		players := r.PlayerList()
		scores := make([]FinalScore, len(players))
		for i, p := range players {
			scores[i] = FinalScore{
				Nickname:                 p.Nickname,
				Score:                    p.Score,
				CorrectGuesses:           p.CorrectGuesses,
				DrawingsGuessedCorrectly: p.DrawingsGuessedCorrectly,
			}
		}
		logger.Log.Infof("Game over in room %s", r.ID)
		g.broadcaster.BroadcastToRoom(r, GameOver{
			Event:       network.EventGameOver,
			Players:     players,
			FinalScores: scores,
			Judgments:   echoed,
			Keyword:     r.CurrentKeyword,
		})
		return nil
	}

	logger.Log.Infof("Round %d ended in room %s", r.CurrentRound, r.ID)
	g.broadcaster.BroadcastToRoom(r, RoundEnd{
		Event:        network.EventRoundEnd,
		Judgments:    echoed,
		Players:      r.PlayerList(),
		Keyword:      r.CurrentKeyword,
		CurrentRound: r.CurrentRound,
		TotalRounds:  r.TotalRounds,
	})
	return nil
}
