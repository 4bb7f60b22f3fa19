package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chalkline/dartscore/internal/realtime"
)

// AddPlayerRequest seats a late-arriving player. Only allowed before the
// first turn is scored.
type AddPlayerRequest struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name,omitempty"`
	UserID      *string `json:"user_id,omitempty"`
}

const maxSeats = 4

func handleAddPlayer(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		game, room, ok := authorizedGame(w, r, store)
		if !ok {
			return
		}

		var req AddPlayerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		players, err := store.PlayersByGame(r.Context(), game.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if len(players) >= maxSeats {
			writeError(w, http.StatusBadRequest, "game is full")
			return
		}
		turns, err := store.TurnsByGame(r.Context(), game.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if len(turns) > 0 {
			writeError(w, http.StatusConflict, "scoring has started, seats are locked")
			return
		}

		player, err := store.AddPlayer(r.Context(), game.ID, NewPlayer{
			Name:        req.Name,
			DisplayName: req.DisplayName,
			UserID:      req.UserID,
		}, game.Mode, len(players))
		if err != nil {
			logger.Error("adding player", "game_id", game.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("player added", "game_id", game.ID, "room_id", room.ID,
			"player_id", player.ID, "seat", player.SeatOrder)

		snap, ok := respondWithSnapshot(w, r, store, game.ID)
		if !ok {
			return
		}
		publishSnapshot(broker, game.ID, snap)
	}
}

func handleListPlayers(store Store) http.HandlerFunc {
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

		players, err := store.PlayersByGame(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := make([]realtime.PlayerState, 0, len(players))
		for _, p := range players {
			out = append(out, realtime.PlayerState{
				ID:          p.ID,
				Name:        p.Name,
				DisplayName: p.DisplayName,
				UserID:      p.UserID,
				Remaining:   p.Remaining,
				SeatOrder:   p.SeatOrder,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// UpdateRemainingRequest is a manual score correction by the scorer.
type UpdateRemainingRequest struct {
	Remaining int `json:"remaining"`
}

func handleUpdatePlayerRemaining(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player, err := store.PlayerByID(r.Context(), chi.URLParam(r, "playerID"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		game, err := store.GameByID(r.Context(), player.GameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		room, err := store.RoomByID(r.Context(), game.RoomID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := authorizeScorer(r, room); err != nil {
			writeAuthError(w, err)
			return
		}

		var req UpdateRemainingRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Remaining < 0 || req.Remaining > game.Mode {
			writeError(w, http.StatusBadRequest, "remaining must be between 0 and the starting score")
			return
		}

		if err := store.UpdatePlayerRemaining(r.Context(), player.ID, req.Remaining); err != nil {
			logger.Error("updating remaining", "player_id", player.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("remaining corrected", "game_id", game.ID,
			"player_id", player.ID, "remaining", req.Remaining)

		snap, ok := respondWithSnapshot(w, r, store, game.ID)
		if !ok {
			return
		}
		publishSnapshot(broker, game.ID, snap)
	}
}
