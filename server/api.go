package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wfunc/drawguess/game"
	"github.com/wfunc/drawguess/logger"
	"github.com/wfunc/drawguess/room"
)

type detail struct {
	Detail string `json:"detail"`
}

type submitGuessRequest struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	Guess    string `json:"guess"`
}

type submitGuessResponse struct {
	Status     string `json:"status"`
	AllGuessed bool   `json:"all_guessed"`
	Close      bool   `json:"close"`
}

type judgeRequest struct {
	ReferenceAnswer string   `json:"reference_answer"`
	GuessedAnswers  []string `json:"guessed_answers"`
}

type judgeResponse struct {
	Judge  bool   `json:"Judge"`
	Reason string `json:"Reason"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnf("Failed to write response: %v", err)
	}
}

func (s *GameServer) handleGameState(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	rm, ok := s.game.Rooms().GetRoom(roomID)
	if !ok {
		logger.Log.Warnf("Room %s not found", roomID)
		writeJSON(w, http.StatusNotFound, detail{Detail: "Room not found"})
		return
	}
	writeJSON(w, http.StatusOK, rm.Snapshot())
}

func (s *GameServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Rooms().Snapshots())
}

func (s *GameServer) handleSubmitGuess(w http.ResponseWriter, r *http.Request) {
	var req submitGuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detail{Detail: err.Error()})
		return
	}

	outcome, err := s.game.SubmitGuess(req.RoomID, req.PlayerID, req.Guess)
	if err != nil {
		var ce *game.ClientError
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			writeJSON(w, http.StatusNotFound, detail{Detail: "Room not found"})
		case errors.As(err, &ce):
			writeJSON(w, http.StatusBadRequest, detail{Detail: ce.Message})
		default:
			writeJSON(w, http.StatusInternalServerError, detail{Detail: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, submitGuessResponse{Status: "success", AllGuessed: outcome.AllGuessed, Close: outcome.Close})
}

func (s *GameServer) handleJudge(w http.ResponseWriter, r *http.Request) {
	var req judgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detail{Detail: err.Error()})
		return
	}

	verdicts, err := s.oracle.Judge(r.Context(), req.ReferenceAnswer, req.GuessedAnswers)
	if err != nil {
		s.monitor.IncOracleRequests("failed")
		writeJSON(w, http.StatusInternalServerError, detail{Detail: "AI judgment failed: " + err.Error()})
		return
	}
	s.monitor.IncOracleRequests("success")

	resp := make([]judgeResponse, len(verdicts))
	for i, v := range verdicts {
		resp[i] = judgeResponse{Judge: v.IsCorrect, Reason: v.Reason}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *GameServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "code": http.StatusOK})
}
