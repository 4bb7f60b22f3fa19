package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chalkline/dartscore/internal/engine"
	"github.com/chalkline/dartscore/internal/realtime"
)

// TurnRequest submits one turn, either as an aggregate total or dart by
// dart. Exactly one of the two fields must be set.
type TurnRequest struct {
	Score *int          `json:"score,omitempty"`
	Darts []engine.Dart `json:"darts,omitempty"`
}

func handleSubmitTurn(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		game, room, ok := authorizedGame(w, r, store)
		if !ok {
			return
		}
		if game.Status != realtime.GameStatusActive {
			writeError(w, http.StatusConflict, "game is not active")
			return
		}

		var req TurnRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Score != nil && len(req.Darts) > 0 {
			writeError(w, http.StatusBadRequest, "provide either a total score or darts, not both")
			return
		}
		if req.Score == nil && len(req.Darts) == 0 {
			writeError(w, http.StatusBadRequest, "a score or darts are required")
			return
		}

		players, err := store.PlayersByGame(r.Context(), game.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		turns, err := store.TurnsByGame(r.Context(), game.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// The backend is authoritative: rules run here, on state rebuilt
		// from storage, not on whatever the device computed.
		g := engineGame(game, players, turns)

		var next engine.Game
		if req.Score != nil {
			next, err = engine.ApplyTotal(g, *req.Score)
		} else {
			next, err = engine.ApplyDarts(g, req.Darts)
		}
		if err != nil {
			writeEngineError(w, err)
			return
		}

		turn := next.History[len(next.History)-1]
		rec := TurnRow{
			GameID:          game.ID,
			PlayerID:        players[turn.PlayerIndex].ID,
			TurnIndex:       turn.Number,
			ScoredTotal:     turn.ScoredPoints,
			TurnTotal:       turn.TurnTotal,
			IsBust:          turn.IsBust,
			IsWin:           turn.IsWin,
			RemainingBefore: turn.PrevRemaining,
			RemainingAfter:  turn.RemainingAfter,
			FinishDart:      turn.FinishDart,
		}
		if len(turn.Darts) > 0 {
			darts, err := json.Marshal(turn.Darts)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			rec.DartsJSON = string(darts)
		}

		rec, err = store.RecordTurn(r.Context(), rec, players[next.CurrentPlayer].ID, next.Phase == engine.GameOver)
		if err != nil {
			logger.Error("recording turn", "game_id", game.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("turn recorded", "game_id", game.ID, "room_id", room.ID,
			"turn", rec.TurnIndex, "player_id", rec.PlayerID,
			"scored", rec.ScoredTotal, "bust", rec.IsBust, "win", rec.IsWin)

		snap, ok := respondWithSnapshot(w, r, store, game.ID)
		if !ok {
			return
		}
		publishSnapshot(broker, game.ID, snap)
		publishTurnEvent(broker, game.ID, realtime.EventTurnAdded, rec)
	}
}

func handleUndoTurn(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		game, room, ok := authorizedGame(w, r, store)
		if !ok {
			return
		}

		undone, err := store.UndoLastTurn(r.Context(), game.ID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusBadRequest, "no turns to undo")
			return
		}
		if err != nil {
			logger.Error("undoing turn", "game_id", game.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("turn undone", "game_id", game.ID, "room_id", room.ID,
			"turn", undone.TurnIndex, "player_id", undone.PlayerID)

		snap, ok := respondWithSnapshot(w, r, store, game.ID)
		if !ok {
			return
		}
		publishSnapshot(broker, game.ID, snap)
		publishTurnEvent(broker, game.ID, realtime.EventTurnUndone, undone)
	}
}

// authorizedGame resolves {gameID}, loads its room, and checks the scorer
// token. On failure it writes the response and reports false.
func authorizedGame(w http.ResponseWriter, r *http.Request, store Store) (GameRow, Room, bool) {
	game, err := store.GameByID(r.Context(), chi.URLParam(r, "gameID"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return GameRow{}, Room{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return GameRow{}, Room{}, false
	}
	room, err := store.RoomByID(r.Context(), game.RoomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return GameRow{}, Room{}, false
	}
	if err := authorizeScorer(r, room); err != nil {
		writeAuthError(w, err)
		return GameRow{}, Room{}, false
	}
	return game, room, true
}

// respondWithSnapshot reloads the game and writes the fresh authoritative
// snapshot; mutating handlers answer with it so devices reconcile against
// the same state the channel will push.
func respondWithSnapshot(w http.ResponseWriter, r *http.Request, store Store, gameID string) (realtime.GameSnapshot, bool) {
	game, err := store.GameByID(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return realtime.GameSnapshot{}, false
	}
	snap, err := buildSnapshot(r.Context(), store, game)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return realtime.GameSnapshot{}, false
	}
	writeJSON(w, http.StatusOK, snap)
	return snap, true
}

func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrGameOver) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func publishTurnEvent(broker *Broker, gameID string, typ realtime.EventType, rec TurnRow) {
	payload, err := json.Marshal(turnRecord(rec))
	if err != nil {
		return
	}
	broker.Publish(gameID, realtime.Envelope{Type: typ, Payload: payload})
}
