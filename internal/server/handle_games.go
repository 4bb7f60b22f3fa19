package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chalkline/dartscore/internal/engine"
	"github.com/chalkline/dartscore/internal/realtime"
)

// CreateGameRequest starts a game in a room. Player names are seated in
// order; blanks get a default name.
type CreateGameRequest struct {
	Mode      int      `json:"mode"`
	DoubleOut bool     `json:"double_out"`
	Players   []string `json:"players"`
}

func handleCreateGame(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := store.RoomByCode(r.Context(), chi.URLParam(r, "code"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := authorizeScorer(r, room); err != nil {
			writeAuthError(w, err)
			return
		}

		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		settings := engine.Settings{
			StartingScore: req.Mode,
			DoubleOut:     req.DoubleOut,
			Players:       sanitizePlayerNames(req.Players),
		}
		if err := settings.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		seats := make([]NewPlayer, len(settings.Players))
		for i, name := range settings.Players {
			seats[i] = NewPlayer{Name: name}
		}

		game, _, err := store.CreateGame(r.Context(), room.ID, settings.StartingScore, settings.DoubleOut, seats)
		if err != nil {
			logger.Error("creating game", "room_id", room.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		snap, err := buildSnapshot(r.Context(), store, game)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		publishSnapshot(broker, game.ID, snap)

		logger.Info("game created", "game_id", game.ID, "room_id", room.ID,
			"mode", game.Mode, "double_out", game.DoubleOut, "players", len(seats))
		writeJSON(w, http.StatusCreated, snap)
	}
}

func handleGameSnapshot(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		game, err := store.GameByID(r.Context(), chi.URLParam(r, "gameID"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		snap, err := buildSnapshot(r.Context(), store, game)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleCurrentGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := store.RoomByCode(r.Context(), chi.URLParam(r, "code"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		game, err := store.CurrentGameByRoom(r.Context(), room.ID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "no game in this room")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		snap, err := buildSnapshot(r.Context(), store, game)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleListTurns(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		if _, err := store.GameByID(r.Context(), gameID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "game not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)
		turns, err := store.TurnsPage(r.Context(), gameID, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := make([]realtime.TurnRecord, 0, len(turns))
		for _, t := range turns {
			out = append(out, turnRecord(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// sanitizePlayerNames trims whitespace and fills blanks with "Player N".
func sanitizePlayerNames(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			trimmed = fmt.Sprintf("Player %d", i+1)
		}
		out[i] = trimmed
	}
	return out
}

func publishSnapshot(broker *Broker, gameID string, snap realtime.GameSnapshot) {
	env, err := realtime.NewSnapshotEvent(snap)
	if err != nil {
		return
	}
	broker.Publish(gameID, env)
}
